package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/soaringjerry/awap/internal/models"
	"github.com/soaringjerry/awap/internal/query"
)

// RowError describes a row that could not be converted. Line is 1-based and
// counts data rows only.
type RowError struct {
	Line   int    `json:"line"`
	Column string `json:"column"`
	Reason string `json:"reason"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s: %s", e.Line, e.Column, e.Reason)
}

// Result is the outcome of converting a table.
type Result struct {
	Respondents []models.Respondent
	Failed      []RowError
}

var frequencies = map[string]string{
	"never":   "Never",
	"rarely":  "Rarely",
	"monthly": "Monthly",
	"weekly":  "Weekly",
	"daily":   "Daily",
}

var jobRoles = map[string]string{
	"ic":                     "Individual Contributor",
	"individual contributor": "Individual Contributor",
	"manager":                "Manager",
	"executive":              "Executive",
	"exec":                   "Executive",
	"other":                  "Other",
}

var educationLevels = map[string]string{
	"high school":  "High School",
	"some college": "Some College",
	"bachelor":     "Bachelor",
	"bachelors":    "Bachelor",
	"master":       "Master",
	"masters":      "Master",
	"phd":          "PhD",
	"doctorate":    "PhD",
}

type intRange struct{ min, max int }

var intColumns = map[string]*intRange{
	"income_level":                  nil,
	"years_experience":              nil,
	"ai_tools_used_count":           nil,
	"ai_comfort_level":              {1, 5},
	"ai_agents_awareness_level":     {1, 5},
	"automation_risk_perception":    {1, 10},
	"workflow_automation_potential": {1, 5},
}

// Convert maps every data row of t onto a respondent. Rows missing a
// respondent_id get one derived from idPrefix and the row number.
func Convert(t *Table, idPrefix string) Result {
	index := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}
	var res Result
	for i, row := range t.Rows {
		line := i + 1
		r, err := convertRow(index, row, line, idPrefix)
		if err != nil {
			res.Failed = append(res.Failed, *err)
			continue
		}
		res.Respondents = append(res.Respondents, r)
	}
	return res
}

type rowReader struct {
	index map[string]int
	row   []string
	line  int
	err   *RowError
}

func (rr *rowReader) cell(col string) string {
	i, ok := rr.index[col]
	if !ok || i >= len(rr.row) {
		return ""
	}
	return strings.TrimSpace(rr.row[i])
}

func (rr *rowReader) fail(col, reason string) {
	if rr.err == nil {
		rr.err = &RowError{Line: rr.line, Column: col, Reason: reason}
	}
}

func (rr *rowReader) int(col string) *int {
	raw := rr.cell(col)
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		rr.fail(col, fmt.Sprintf("not a number: %q", raw))
		return nil
	}
	v := int(math.Round(f))
	if rng := intColumns[col]; rng != nil {
		v = clampInt(v, rng.min, rng.max)
	}
	return &v
}

func (rr *rowReader) float(col string, lo, hi float64) *float64 {
	raw := strings.TrimSuffix(rr.cell(col), "%")
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		rr.fail(col, fmt.Sprintf("not a number: %q", raw))
		return nil
	}
	if lo < hi {
		f = math.Max(lo, math.Min(hi, f))
	}
	return &f
}

func convertRow(index map[string]int, row []string, line int, idPrefix string) (models.Respondent, *RowError) {
	rr := &rowReader{index: index, row: row, line: line}
	r := models.Respondent{
		RespondentID:       rr.cell("respondent_id"),
		AgeGroup:           rr.cell("age_group"),
		Education:          mapOr(educationLevels, rr.cell("education_level"), rr.cell("education_level")),
		IncomeLevel:        rr.int("income_level"),
		Industry:           rr.cell("industry_sector"),
		JobRole:            JobRole(rr.cell("job_role")),
		CompanySize:        CompanySize(rr.cell("company_size")),
		Experience:         rr.int("years_experience"),
		IsAIUser:           Bool(rr.cell("is_ai_user")),
		UsageFrequency:     UsageFrequency(rr.cell("ai_usage_frequency")),
		ComfortLevel:       rr.int("ai_comfort_level"),
		TrainingReceived:   Bool(rr.cell("ai_training_received")),
		ToolsUsedCount:     rr.int("ai_tools_used_count"),
		AgentsAwareness:    rr.int("ai_agents_awareness_level"),
		IsWorried:          Bool(rr.cell("is_worried")),
		IsHopeful:          Bool(rr.cell("is_hopeful")),
		IsOverwhelmed:      Bool(rr.cell("is_overwhelmed")),
		IsExcited:          Bool(rr.cell("is_excited")),
		JobOutlook:         rr.cell("job_opportunity_outlook"),
		AutomationRisk:     rr.int("automation_risk_perception"),
		WorkflowPotential:  rr.int("workflow_automation_potential"),
		OrgAdoptionLevel:   rr.cell("org_ai_adoption_level"),
		OrgInvestmentTrend: rr.cell("org_ai_investment_trend"),
		OrgHasAIPolicy:     Bool(rr.cell("org_has_ai_policy")),
		OrgSustainability:  Bool(rr.cell("org_ai_sustainability_use")),
		WagePremium:        rr.float("wage_premium_ai_skills", 0, 0),
		ProductivityChange: rr.float("productivity_change", -100, 100),
	}
	if rr.err != nil {
		return models.Respondent{}, rr.err
	}
	if r.RespondentID == "" {
		r.RespondentID = GeneratedID(idPrefix, line)
	}
	return r, nil
}

// GeneratedID is the respondent id assigned to a row that lacks one.
func GeneratedID(prefix string, line int) string {
	if prefix == "" {
		return fmt.Sprintf("RESP_%05d", line)
	}
	return fmt.Sprintf("RESP_%s_%05d", prefix, line)
}

// Bool accepts true/1/yes/t/y in any case; everything else is false.
func Bool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "t", "y":
		return true
	}
	return false
}

// UsageFrequency canonicalises a frequency label, defaulting to Rarely.
func UsageFrequency(raw string) string {
	return mapOr(frequencies, raw, "Rarely")
}

// JobRole canonicalises a job role label, defaulting to Other.
func JobRole(raw string) string {
	return mapOr(jobRoles, raw, "Other")
}

// CompanySize maps legacy size aliases onto the canonical buckets. Values
// that are neither are kept as given.
func CompanySize(raw string) string {
	raw = strings.TrimSpace(raw)
	if v, ok := query.CompanySizeAliases[strings.ToLower(raw)]; ok {
		return v
	}
	return raw
}

func mapOr(m map[string]string, raw, fallback string) string {
	if v, ok := m[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return v
	}
	return fallback
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
