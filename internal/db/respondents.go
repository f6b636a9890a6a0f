package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/soaringjerry/awap/internal/models"
)

const insertRespondentSQL = `INSERT INTO survey_respondents (
	respondent_id, age_group, education_level, income_level, industry_sector, job_role, company_size, years_experience,
	is_ai_user, ai_usage_frequency, ai_comfort_level, ai_training_received, ai_tools_used_count, ai_agents_awareness_level,
	is_worried, is_hopeful, is_overwhelmed, is_excited,
	job_opportunity_outlook, automation_risk_perception, workflow_automation_potential,
	org_ai_adoption_level, org_ai_investment_trend, org_has_ai_policy, org_ai_sustainability_use,
	wage_premium_ai_skills, productivity_change, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (respondent_id) DO NOTHING`

// InsertRespondents writes the batch in one transaction. Rows whose
// respondent_id already exists are skipped; the number actually inserted is
// returned.
func (s *Store) InsertRespondents(ctx context.Context, batch []models.Respondent) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}
	inserted := 0
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, s.rebind(insertRespondentSQL))
		if err != nil {
			return fmt.Errorf("prepare respondent insert: %w", err)
		}
		defer stmt.Close()
		for _, r := range batch {
			created := r.CreatedAt
			if created.IsZero() {
				created = s.now()
			}
			res, err := stmt.ExecContext(ctx,
				r.RespondentID, toNullString(r.AgeGroup), toNullString(r.Education), toNullInt(r.IncomeLevel),
				toNullString(r.Industry), toNullString(r.JobRole), toNullString(r.CompanySize), toNullInt(r.Experience),
				r.IsAIUser, toNullString(r.UsageFrequency), toNullInt(r.ComfortLevel), r.TrainingReceived,
				toNullInt(r.ToolsUsedCount), toNullInt(r.AgentsAwareness),
				r.IsWorried, r.IsHopeful, r.IsOverwhelmed, r.IsExcited,
				toNullString(r.JobOutlook), toNullInt(r.AutomationRisk), toNullInt(r.WorkflowPotential),
				toNullString(r.OrgAdoptionLevel), toNullString(r.OrgInvestmentTrend), r.OrgHasAIPolicy, r.OrgSustainability,
				toNullFloat(r.WagePremium), toNullFloat(r.ProductivityChange), created.UTC(),
			)
			if err != nil {
				return fmt.Errorf("insert respondent %s: %w", r.RespondentID, err)
			}
			if n, err := res.RowsAffected(); err == nil && n > 0 {
				inserted++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}
