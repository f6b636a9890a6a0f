package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/soaringjerry/awap/internal/query"
	"github.com/soaringjerry/awap/internal/services"
)

const avgProductivity = "CAST(AVG(productivity_change) AS DOUBLE PRECISION)"

func countIf(cond string) string {
	return "COALESCE(SUM(CASE WHEN " + cond + " THEN 1 ELSE 0 END), 0)"
}

var (
	countTmpl = query.Template{
		Name: "count",
		SQL:  `SELECT COUNT(*) FROM survey_respondents {{where}}`,
	}

	kpiTmpl = query.Template{
		Name: "kpis",
		SQL: `SELECT COUNT(*), ` + countIf("is_ai_user") + `, ` + countIf("ai_training_received") + `,
		  ` + avgProductivity + `,
		  CAST(AVG(income_level) AS DOUBLE PRECISION),
		  CAST(AVG(ai_comfort_level) AS DOUBLE PRECISION)
		FROM survey_respondents {{where}}`,
	}

	sentimentTotalsTmpl = query.Template{
		Name: "sentiment-totals",
		SQL: `SELECT COUNT(*), ` + countIf("is_worried") + `, ` + countIf("is_hopeful") + `,
		  ` + countIf("is_overwhelmed") + `, ` + countIf("is_excited") + `
		FROM survey_respondents {{where}}`,
	}

	sentimentByAgeTmpl = query.Template{
		Name: "sentiment-by-age",
		Base: []string{"age_group IS NOT NULL"},
		SQL: `SELECT age_group, COUNT(*), ` + countIf("is_worried") + `, ` + countIf("is_hopeful") + `,
		  ` + countIf("is_overwhelmed") + `, ` + countIf("is_excited") + `
		FROM survey_respondents {{where}}
		GROUP BY age_group`,
	}

	outlookTmpl = query.Template{
		Name: "outlook",
		Base: []string{"job_opportunity_outlook IS NOT NULL"},
		SQL: `SELECT job_opportunity_outlook, COUNT(*) FROM survey_respondents {{where}}
		GROUP BY job_opportunity_outlook`,
	}

	adoptionTmpl = query.Template{
		Name: "adoption-by-segment",
		Base: []string{"{{segment}} IS NOT NULL"},
		SQL: `SELECT {{segment}}, COUNT(*), ` + countIf("is_ai_user") + `, ` + avgProductivity + `
		FROM survey_respondents {{where}}
		GROUP BY {{segment}}`,
	}

	maturityTmpl = query.Template{
		Name: "maturity-levels",
		Base: []string{"org_ai_adoption_level IS NOT NULL"},
		SQL: `SELECT org_ai_adoption_level, COUNT(*), ` + countIf("org_has_ai_policy") + `, ` + countIf("org_ai_sustainability_use") + `,
		  ` + avgProductivity + `
		FROM survey_respondents {{where}}
		GROUP BY org_ai_adoption_level`,
	}

	investmentTmpl = query.Template{
		Name: "investment-trends",
		Base: []string{"org_ai_investment_trend IS NOT NULL"},
		SQL: `SELECT org_ai_investment_trend, COUNT(*) FROM survey_respondents {{where}}
		GROUP BY org_ai_investment_trend`,
	}

	policyTmpl = query.Template{
		Name: "policy-by-size",
		Base: []string{"company_size IS NOT NULL"},
		SQL: `SELECT company_size, COUNT(*), ` + countIf("org_has_ai_policy") + `
		FROM survey_respondents {{where}}
		GROUP BY company_size`,
	}

	trainingImpactTmpl = query.Template{
		Name: "training-impact",
		SQL: `SELECT CASE WHEN ai_training_received THEN 1 ELSE 0 END AS trained, COUNT(*), ` + countIf("is_ai_user") + `,
		  CAST(AVG(ai_comfort_level) AS DOUBLE PRECISION),
		  ` + avgProductivity + `,
		  CAST(AVG(ai_tools_used_count) AS DOUBLE PRECISION)
		FROM survey_respondents {{where}}
		GROUP BY 1`,
	}

	trainingBySizeTmpl = query.Template{
		Name: "training-by-size",
		Base: []string{"company_size IS NOT NULL"},
		SQL: `SELECT company_size, COUNT(*), ` + countIf("ai_training_received") + `
		FROM survey_respondents {{where}}
		GROUP BY company_size`,
	}

	comfortTmpl = query.Template{
		Name: "comfort-distribution",
		Base: []string{"ai_comfort_level IS NOT NULL"},
		SQL: `SELECT ai_comfort_level, COUNT(*) FROM survey_respondents {{where}}
		GROUP BY ai_comfort_level`,
	}

	usageTmpl = query.Template{
		Name: "usage-by-segment",
		Base: []string{"{{segment}} IS NOT NULL"},
		SQL: `SELECT {{segment}} AS segment, COUNT(*), ` + countIf("is_ai_user") + `,
		  ` + countIf("LOWER(ai_usage_frequency) = 'daily'") + `,
		  ` + countIf("LOWER(ai_usage_frequency) = 'weekly'") + `,
		  ` + countIf("LOWER(ai_usage_frequency) = 'monthly'") + `,
		  ` + countIf("LOWER(ai_usage_frequency) = 'rarely'") + `,
		  ` + countIf("LOWER(ai_usage_frequency) = 'never'") + `,
		  CAST(AVG(ai_comfort_level) AS DOUBLE PRECISION),
		  CAST(AVG(ai_tools_used_count) AS DOUBLE PRECISION)
		FROM survey_respondents {{where}}
		GROUP BY 1`,
	}
)

const experienceBucket = `CASE
	WHEN years_experience IS NULL THEN NULL
	WHEN years_experience <= 2 THEN '0-2'
	WHEN years_experience <= 5 THEN '3-5'
	WHEN years_experience <= 10 THEN '6-10'
	WHEN years_experience <= 20 THEN '11-20'
	ELSE '20+' END`

var segmentExpr = map[services.Segment]string{
	services.SegmentAge:        "age_group",
	services.SegmentRole:       "job_role",
	services.SegmentExperience: experienceBucket,
}

// run renders t for c and hands each row to scan.
func (s *Store) run(ctx context.Context, t query.Template, c query.Criteria, scan func(*sql.Rows) error) error {
	q, args := t.Render(s.dialect, query.Respondents, c)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", t.Name, err)
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("%s: scan: %w", t.Name, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%s: %w", t.Name, err)
	}
	return nil
}

func (s *Store) CountRespondents(ctx context.Context, c query.Criteria) (int64, error) {
	var n int64
	err := s.run(ctx, countTmpl, c, func(r *sql.Rows) error { return r.Scan(&n) })
	return n, err
}

func (s *Store) KPITotals(ctx context.Context, c query.Criteria) (services.KPITotals, error) {
	var (
		t                        services.KPITotals
		prod, income, comfortAvg sql.NullFloat64
	)
	err := s.run(ctx, kpiTmpl, c, func(r *sql.Rows) error {
		return r.Scan(&t.Total, &t.AIUsers, &t.Trained, &prod, &income, &comfortAvg)
	})
	t.AvgProductivity, t.AvgIncome, t.AvgComfort = prod.Float64, income.Float64, comfortAvg.Float64
	return t, err
}

func (s *Store) SentimentTotals(ctx context.Context, c query.Criteria) (services.SentimentTotals, error) {
	var t services.SentimentTotals
	err := s.run(ctx, sentimentTotalsTmpl, c, func(r *sql.Rows) error {
		return r.Scan(&t.Total, &t.Worried, &t.Hopeful, &t.Overwhelmed, &t.Excited)
	})
	return t, err
}

func (s *Store) SentimentByAge(ctx context.Context, c query.Criteria) ([]services.SegmentSentiment, error) {
	var out []services.SegmentSentiment
	err := s.run(ctx, sentimentByAgeTmpl, c, func(r *sql.Rows) error {
		var row services.SegmentSentiment
		if err := r.Scan(&row.Segment, &row.Total, &row.Worried, &row.Hopeful, &row.Overwhelmed, &row.Excited); err != nil {
			return err
		}
		out = append(out, row)
		return nil
	})
	return out, err
}

func (s *Store) categoryCounts(ctx context.Context, t query.Template, c query.Criteria) ([]services.CategoryCount, error) {
	var out []services.CategoryCount
	err := s.run(ctx, t, c, func(r *sql.Rows) error {
		var row services.CategoryCount
		if err := r.Scan(&row.Label, &row.Count); err != nil {
			return err
		}
		out = append(out, row)
		return nil
	})
	return out, err
}

func (s *Store) OutlookCounts(ctx context.Context, c query.Criteria) ([]services.CategoryCount, error) {
	return s.categoryCounts(ctx, outlookTmpl, c)
}

func (s *Store) InvestmentTrends(ctx context.Context, c query.Criteria) ([]services.CategoryCount, error) {
	return s.categoryCounts(ctx, investmentTmpl, c)
}

func (s *Store) adoptionBy(ctx context.Context, column string, c query.Criteria) ([]services.AdoptionTotals, error) {
	var out []services.AdoptionTotals
	err := s.run(ctx, adoptionTmpl.With("segment", column), c, func(r *sql.Rows) error {
		var (
			row  services.AdoptionTotals
			prod sql.NullFloat64
		)
		if err := r.Scan(&row.Label, &row.Total, &row.AIUsers, &prod); err != nil {
			return err
		}
		row.AvgProductivity = prod.Float64
		out = append(out, row)
		return nil
	})
	return out, err
}

func (s *Store) AdoptionByIndustry(ctx context.Context, c query.Criteria) ([]services.AdoptionTotals, error) {
	return s.adoptionBy(ctx, "industry_sector", c)
}

func (s *Store) AdoptionByCompanySize(ctx context.Context, c query.Criteria) ([]services.AdoptionTotals, error) {
	return s.adoptionBy(ctx, "company_size", c)
}

func (s *Store) MaturityLevels(ctx context.Context, c query.Criteria) ([]services.MaturityTotals, error) {
	var out []services.MaturityTotals
	err := s.run(ctx, maturityTmpl, c, func(r *sql.Rows) error {
		var (
			row  services.MaturityTotals
			prod sql.NullFloat64
		)
		if err := r.Scan(&row.Level, &row.Total, &row.WithPolicy, &row.Sustainable, &prod); err != nil {
			return err
		}
		row.AvgProductivity = prod.Float64
		out = append(out, row)
		return nil
	})
	return out, err
}

func (s *Store) PolicyBySize(ctx context.Context, c query.Criteria) ([]services.PolicyTotals, error) {
	var out []services.PolicyTotals
	err := s.run(ctx, policyTmpl, c, func(r *sql.Rows) error {
		var row services.PolicyTotals
		if err := r.Scan(&row.CompanySize, &row.Total, &row.WithPolicy); err != nil {
			return err
		}
		out = append(out, row)
		return nil
	})
	return out, err
}

func (s *Store) TrainingImpact(ctx context.Context, c query.Criteria) ([]services.TrainingTotals, error) {
	var out []services.TrainingTotals
	err := s.run(ctx, trainingImpactTmpl, c, func(r *sql.Rows) error {
		var (
			row                  services.TrainingTotals
			trained              int64
			comfort, prod, tools sql.NullFloat64
		)
		if err := r.Scan(&trained, &row.Total, &row.AIUsers, &comfort, &prod, &tools); err != nil {
			return err
		}
		row.Trained = trained == 1
		row.AvgComfort, row.AvgProductivity, row.AvgTools = comfort.Float64, prod.Float64, tools.Float64
		out = append(out, row)
		return nil
	})
	return out, err
}

func (s *Store) TrainingBySize(ctx context.Context, c query.Criteria) ([]services.SizeTrainingTotals, error) {
	var out []services.SizeTrainingTotals
	err := s.run(ctx, trainingBySizeTmpl, c, func(r *sql.Rows) error {
		var row services.SizeTrainingTotals
		if err := r.Scan(&row.CompanySize, &row.Total, &row.Trained); err != nil {
			return err
		}
		out = append(out, row)
		return nil
	})
	return out, err
}

func (s *Store) ComfortDistribution(ctx context.Context, c query.Criteria) ([]services.ComfortTotals, error) {
	var out []services.ComfortTotals
	err := s.run(ctx, comfortTmpl, c, func(r *sql.Rows) error {
		var (
			row   services.ComfortTotals
			level int64
		)
		if err := r.Scan(&level, &row.Count); err != nil {
			return err
		}
		row.Level = int(level)
		out = append(out, row)
		return nil
	})
	return out, err
}

func (s *Store) UsageBySegment(ctx context.Context, c query.Criteria, seg services.Segment) ([]services.UsageTotals, error) {
	expr, ok := segmentExpr[seg]
	if !ok {
		return nil, fmt.Errorf("unknown usage segment %q", seg)
	}
	var out []services.UsageTotals
	err := s.run(ctx, usageTmpl.With("segment", expr), c, func(r *sql.Rows) error {
		var (
			row           services.UsageTotals
			comfort, tool sql.NullFloat64
		)
		if err := r.Scan(&row.Segment, &row.Total, &row.AIUsers, &row.Daily, &row.Weekly, &row.Monthly,
			&row.Rarely, &row.Never, &comfort, &tool); err != nil {
			return err
		}
		row.AvgComfort, row.AvgTools = comfort.Float64, tool.Float64
		out = append(out, row)
		return nil
	})
	return out, err
}
