package models

import "time"

// Respondent is one anonymised survey participant. Rows are written only by
// bulk import and never modified afterwards.
type Respondent struct {
	RespondentID string
	AgeGroup     string
	Education    string
	IncomeLevel  *int
	Industry     string
	JobRole      string
	CompanySize  string
	Experience   *int

	IsAIUser         bool
	UsageFrequency   string
	ComfortLevel     *int // 1..5
	TrainingReceived bool
	ToolsUsedCount   *int
	AgentsAwareness  *int // 1..5

	IsWorried     bool
	IsHopeful     bool
	IsOverwhelmed bool
	IsExcited     bool

	JobOutlook         string
	AutomationRisk     *int // 1..10
	WorkflowPotential  *int // 1..5
	OrgAdoptionLevel   string
	OrgInvestmentTrend string
	OrgHasAIPolicy     bool
	OrgSustainability  bool
	WagePremium        *float64
	ProductivityChange *float64 // -100..100

	CreatedAt time.Time
}

// User is a dashboard account. PasswordHash never leaves the service layer.
type User struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	Department   string     `json:"department"`
	Status       string     `json:"status"`
	LastLogin    *time.Time `json:"lastLogin"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// AuditEntry is an append-only record of an administrative action.
type AuditEntry struct {
	ID          int64     `json:"id"`
	AdminUserID *int64    `json:"adminUserId"`
	AdminName   string    `json:"adminName"`
	ActionType  string    `json:"actionType"`
	TargetType  string    `json:"targetType"`
	TargetID    string    `json:"targetId"`
	Details     string    `json:"details"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Setting is a raw system_settings row; Value is always stored as text.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	Type      string    `json:"type"`
	Category  string    `json:"category"`
	UpdatedBy *int64    `json:"updatedBy"`
	UpdatedAt time.Time `json:"updatedAt"`
}

const (
	ImportPending    = "pending"
	ImportProcessing = "processing"
	ImportCompleted  = "completed"
	ImportFailed     = "failed"
)

// ImportRecord tracks one upload through the ingestion pipeline.
type ImportRecord struct {
	ID           string     `json:"id"`
	FileName     string     `json:"fileName"`
	UploaderID   *int64     `json:"uploaderId"`
	Status       string     `json:"status"`
	TotalRows    int        `json:"totalRows"`
	InsertedRows int        `json:"insertedRows"`
	SkippedRows  int        `json:"skippedRows"`
	FailedRows   int        `json:"failedRows"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	CompletedAt  *time.Time `json:"completedAt"`
}

// Done reports whether the import reached a terminal status.
func (r ImportRecord) Done() bool {
	return r.Status == ImportCompleted || r.Status == ImportFailed
}

// TableStat is a row count for one application table.
type TableStat struct {
	Name string `json:"name"`
	Rows int64  `json:"rows"`
}
