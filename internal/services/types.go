package services

import "time"

// Raw aggregates returned by the store. Rates and rounding are applied by
// AnalyticsService so every dialect reports identical numbers.

type KPITotals struct {
	Total           int64
	AIUsers         int64
	Trained         int64
	AvgProductivity float64
	AvgIncome       float64
	AvgComfort      float64
}

type SentimentTotals struct {
	Total       int64
	Worried     int64
	Hopeful     int64
	Overwhelmed int64
	Excited     int64
}

type SegmentSentiment struct {
	Segment string
	SentimentTotals
}

type CategoryCount struct {
	Label string
	Count int64
}

type AdoptionTotals struct {
	Label           string
	Total           int64
	AIUsers         int64
	AvgProductivity float64
}

type MaturityTotals struct {
	Level           string
	Total           int64
	WithPolicy      int64
	Sustainable     int64
	AvgProductivity float64
}

type PolicyTotals struct {
	CompanySize string
	Total       int64
	WithPolicy  int64
}

type TrainingTotals struct {
	Trained         bool
	Total           int64
	AIUsers         int64
	AvgComfort      float64
	AvgProductivity float64
	AvgTools        float64
}

type SizeTrainingTotals struct {
	CompanySize string
	Total       int64
	Trained     int64
}

type ComfortTotals struct {
	Level int
	Count int64
}

type UsageTotals struct {
	Segment    string
	Total      int64
	AIUsers    int64
	Daily      int64
	Weekly     int64
	Monthly    int64
	Rarely     int64
	Never      int64
	AvgComfort float64
	AvgTools   float64
}

// Segment names a respondent grouping for usage demographics.
type Segment string

const (
	SegmentAge        Segment = "age"
	SegmentRole       Segment = "role"
	SegmentExperience Segment = "experience"
)

// AuditEntry is what services record about an administrative action.
type AuditEntry struct {
	Time       time.Time
	ActorID    int64
	Action     string
	TargetType string
	TargetID   string
	Details    string
	Status     string
}

// Audit action types.
const (
	ActionUserCreate       = "user_create"
	ActionUserUpdate       = "user_update"
	ActionUserDelete       = "user_delete"
	ActionUserStatusChange = "user_status_change"
	ActionUsersExport      = "users_export"
	ActionLogsExport       = "logs_export"
	ActionSettingsUpdate   = "settings_update"
	ActionDataImport       = "data_import"
)

// ExportResult is a rendered download.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}
