package services

import (
	"context"
	"encoding/json"
	"math"
	"net/url"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/soaringjerry/awap/internal/query"
	"github.com/soaringjerry/awap/internal/utils"
)

type AnalyticsStore interface {
	CountRespondents(ctx context.Context, c query.Criteria) (int64, error)
	KPITotals(ctx context.Context, c query.Criteria) (KPITotals, error)
	SentimentTotals(ctx context.Context, c query.Criteria) (SentimentTotals, error)
	SentimentByAge(ctx context.Context, c query.Criteria) ([]SegmentSentiment, error)
	OutlookCounts(ctx context.Context, c query.Criteria) ([]CategoryCount, error)
	AdoptionByIndustry(ctx context.Context, c query.Criteria) ([]AdoptionTotals, error)
	AdoptionByCompanySize(ctx context.Context, c query.Criteria) ([]AdoptionTotals, error)
	MaturityLevels(ctx context.Context, c query.Criteria) ([]MaturityTotals, error)
	InvestmentTrends(ctx context.Context, c query.Criteria) ([]CategoryCount, error)
	PolicyBySize(ctx context.Context, c query.Criteria) ([]PolicyTotals, error)
	TrainingImpact(ctx context.Context, c query.Criteria) ([]TrainingTotals, error)
	TrainingBySize(ctx context.Context, c query.Criteria) ([]SizeTrainingTotals, error)
	ComfortDistribution(ctx context.Context, c query.Criteria) ([]ComfortTotals, error)
	UsageBySegment(ctx context.Context, c query.Criteria, seg Segment) ([]UsageTotals, error)
}

// ResponseCache stores rendered analytics payloads. Implementations must be
// safe for concurrent use and treat failures as misses.
//
// Lookup reports the cache generation it read. Store writes under that
// generation, so a payload loaded before an Invalidate is never visible after
// it. A negative generation means the cache could not be read and Store must
// do nothing.
type ResponseCache interface {
	Lookup(ctx context.Context, endpoint, criteria string) (payload []byte, gen int64, ok bool)
	Store(ctx context.Context, gen int64, endpoint, criteria string, payload []byte)
	Invalidate(ctx context.Context)
}

// Fixed display orders.
var (
	MaturityLevelOrder = []string{"Not Started", "Exploring", "Piloting", "Scaling", "Advanced"}
	ExperienceBuckets  = []string{"0-2", "3-5", "6-10", "11-20", "20+"}
)

const topN = 5

type AnalyticsService struct {
	store AnalyticsStore
	cache ResponseCache
	spec  *query.Spec
}

func NewAnalyticsService(store AnalyticsStore, cache ResponseCache) *AnalyticsService {
	return &AnalyticsService{store: store, cache: cache, spec: query.Respondents}
}

type KPIs struct {
	TotalRespondents int64   `json:"totalRespondents"`
	AdoptionRate     float64 `json:"adoptionRate"`
	AvgProductivity  float64 `json:"avgProductivity"`
	AvgIncome        float64 `json:"avgIncome"`
	AvgComfortLevel  float64 `json:"avgComfortLevel"`
	TrainedCount     int64   `json:"trainedCount"`
	TrainingRate     float64 `json:"trainingRate"`
}

type Share struct {
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

type SentimentOverall struct {
	TotalRespondents int64 `json:"totalRespondents"`
	Worried          Share `json:"worried"`
	Hopeful          Share `json:"hopeful"`
	Overwhelmed      Share `json:"overwhelmed"`
	Excited          Share `json:"excited"`
}

type AgeSentiment struct {
	AgeGroup    string  `json:"ageGroup"`
	Total       int64   `json:"total"`
	Worried     float64 `json:"worried"`
	Hopeful     float64 `json:"hopeful"`
	Overwhelmed float64 `json:"overwhelmed"`
	Excited     float64 `json:"excited"`
}

type OutlookShare struct {
	Outlook    string  `json:"outlook"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

type SentimentReport struct {
	Overall SentimentOverall `json:"overall"`
	ByAge   []AgeSentiment   `json:"byAge"`
	Outlook []OutlookShare   `json:"outlook"`
}

type IndustryAdoption struct {
	Industry         string  `json:"industry"`
	TotalRespondents int64   `json:"totalRespondents"`
	AIUsers          int64   `json:"aiUsers"`
	AdoptionRate     float64 `json:"adoptionRate"`
	AvgProductivity  float64 `json:"avgProductivity"`
}

type CompanySizeAdoption struct {
	CompanySize      string  `json:"companySize"`
	TotalRespondents int64   `json:"totalRespondents"`
	AIUsers          int64   `json:"aiUsers"`
	AdoptionRate     float64 `json:"adoptionRate"`
	AvgProductivity  float64 `json:"avgProductivity"`
}

type MaturityLevel struct {
	Level                 string  `json:"level"`
	Organizations         int64   `json:"organizations"`
	PolicyRate            float64 `json:"policyRate"`
	SustainabilityRate    float64 `json:"sustainabilityRate"`
	AvgProductivityChange float64 `json:"avgProductivityChange"`
}

type InvestmentTrend struct {
	Trend      string  `json:"trend"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

type SizePolicy struct {
	CompanySize string  `json:"companySize"`
	Total       int64   `json:"total"`
	WithPolicy  int64   `json:"withPolicy"`
	PolicyRate  float64 `json:"policyRate"`
}

type OrgMaturityReport struct {
	MaturityLevels   []MaturityLevel   `json:"maturityLevels"`
	InvestmentTrends []InvestmentTrend `json:"investmentTrends"`
	PolicyBySize     []SizePolicy      `json:"policyBySize"`
}

type TrainingImpactRow struct {
	Trained               bool    `json:"trained"`
	Respondents           int64   `json:"respondents"`
	AdoptionRate          float64 `json:"adoptionRate"`
	AvgComfortLevel       float64 `json:"avgComfortLevel"`
	AvgProductivityChange float64 `json:"avgProductivityChange"`
	AvgToolsUsed          float64 `json:"avgToolsUsed"`
}

type SizeTraining struct {
	CompanySize  string  `json:"companySize"`
	Total        int64   `json:"total"`
	Trained      int64   `json:"trained"`
	TrainingRate float64 `json:"trainingRate"`
}

type ComfortShare struct {
	Level      int     `json:"level"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

type TrainingImpactReport struct {
	TrainingImpact      []TrainingImpactRow `json:"trainingImpact"`
	TrainingBySize      []SizeTraining      `json:"trainingBySize"`
	ComfortDistribution []ComfortShare      `json:"comfortDistribution"`
}

type UsageSegment struct {
	Segment      string  `json:"segment"`
	Total        int64   `json:"total"`
	AdoptionRate float64 `json:"adoptionRate"`
	AvgComfort   float64 `json:"avgComfort"`
	AvgTools     float64 `json:"avgTools"`
	DailyPct     float64 `json:"dailyPct"`
	WeeklyPct    float64 `json:"weeklyPct"`
	MonthlyPct   float64 `json:"monthlyPct"`
	RarelyPct    float64 `json:"rarelyPct"`
	NeverPct     float64 `json:"neverPct"`
}

type UsageDemographicsReport struct {
	ByAge        []UsageSegment `json:"byAge"`
	ByRole       []UsageSegment `json:"byRole"`
	ByExperience []UsageSegment `json:"byExperience"`
}

type RespondentCount struct {
	Count int64 `json:"count"`
}

// Criteria validates query-string filters.
func (s *AnalyticsService) Criteria(v url.Values) (query.Criteria, error) {
	c, err := s.spec.Parse(v)
	if err != nil {
		return query.Criteria{}, WithDetails(NewInvalidError("Invalid filter"), err.Error())
	}
	return c, nil
}

func (s *AnalyticsService) RespondentCount(ctx context.Context, v url.Values) (*RespondentCount, error) {
	return cached(ctx, s, "respondents-count", v, func(c query.Criteria) (*RespondentCount, error) {
		n, err := s.store.CountRespondents(ctx, c)
		if err != nil {
			return nil, err
		}
		return &RespondentCount{Count: n}, nil
	})
}

func (s *AnalyticsService) KPIs(ctx context.Context, v url.Values) (*KPIs, error) {
	return cached(ctx, s, "kpis", v, func(c query.Criteria) (*KPIs, error) {
		t, err := s.store.KPITotals(ctx, c)
		if err != nil {
			return nil, err
		}
		return &KPIs{
			TotalRespondents: t.Total,
			AdoptionRate:     percent(t.AIUsers, t.Total),
			AvgProductivity:  round2(t.AvgProductivity),
			AvgIncome:        round2(t.AvgIncome),
			AvgComfortLevel:  round2(t.AvgComfort),
			TrainedCount:     t.Trained,
			TrainingRate:     percent(t.Trained, t.Total),
		}, nil
	})
}

func (s *AnalyticsService) Sentiment(ctx context.Context, v url.Values) (*SentimentReport, error) {
	return cached(ctx, s, "sentiment", v, func(c query.Criteria) (*SentimentReport, error) {
		var (
			totals  SentimentTotals
			byAge   []SegmentSentiment
			outlook []CategoryCount
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) { totals, err = s.store.SentimentTotals(gctx, c); return })
		g.Go(func() (err error) { byAge, err = s.store.SentimentByAge(gctx, c); return })
		g.Go(func() (err error) { outlook, err = s.store.OutlookCounts(gctx, c); return })
		if err := g.Wait(); err != nil {
			return nil, err
		}

		rep := &SentimentReport{
			Overall: SentimentOverall{
				TotalRespondents: totals.Total,
				Worried:          share(totals.Worried, totals.Total),
				Hopeful:          share(totals.Hopeful, totals.Total),
				Overwhelmed:      share(totals.Overwhelmed, totals.Total),
				Excited:          share(totals.Excited, totals.Total),
			},
			ByAge:   make([]AgeSentiment, 0, len(byAge)),
			Outlook: make([]OutlookShare, 0, len(outlook)),
		}
		sortByOrder(byAge, query.AgeGroups, func(r SegmentSentiment) string { return r.Segment })
		for _, r := range byAge {
			rep.ByAge = append(rep.ByAge, AgeSentiment{
				AgeGroup:    r.Segment,
				Total:       r.Total,
				Worried:     percent(r.Worried, r.Total),
				Hopeful:     percent(r.Hopeful, r.Total),
				Overwhelmed: percent(r.Overwhelmed, r.Total),
				Excited:     percent(r.Excited, r.Total),
			})
		}
		sortByCount(outlook)
		sum := sumCounts(outlook)
		for _, o := range outlook {
			rep.Outlook = append(rep.Outlook, OutlookShare{Outlook: o.Label, Count: o.Count, Percentage: percent(o.Count, sum)})
		}
		return rep, nil
	})
}

func (s *AnalyticsService) AdoptionByIndustry(ctx context.Context, v url.Values) ([]IndustryAdoption, error) {
	return cached(ctx, s, "adoption-by-industry", v, func(c query.Criteria) ([]IndustryAdoption, error) {
		rows, err := s.store.AdoptionByIndustry(ctx, c)
		if err != nil {
			return nil, err
		}
		out := make([]IndustryAdoption, 0, len(rows))
		for _, r := range rows {
			out = append(out, IndustryAdoption{
				Industry:         r.Label,
				TotalRespondents: r.Total,
				AIUsers:          r.AIUsers,
				AdoptionRate:     percent(r.AIUsers, r.Total),
				AvgProductivity:  round2(r.AvgProductivity),
			})
		}
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].AdoptionRate != out[j].AdoptionRate {
				return out[i].AdoptionRate > out[j].AdoptionRate
			}
			return out[i].Industry < out[j].Industry
		})
		return out, nil
	})
}

func (s *AnalyticsService) AdoptionByCompanySize(ctx context.Context, v url.Values) ([]CompanySizeAdoption, error) {
	return cached(ctx, s, "adoption-by-company-size", v, func(c query.Criteria) ([]CompanySizeAdoption, error) {
		rows, err := s.store.AdoptionByCompanySize(ctx, c)
		if err != nil {
			return nil, err
		}
		sortByOrder(rows, query.CompanySizes, func(r AdoptionTotals) string { return r.Label })
		out := make([]CompanySizeAdoption, 0, len(rows))
		for _, r := range rows {
			out = append(out, CompanySizeAdoption{
				CompanySize:      r.Label,
				TotalRespondents: r.Total,
				AIUsers:          r.AIUsers,
				AdoptionRate:     percent(r.AIUsers, r.Total),
				AvgProductivity:  round2(r.AvgProductivity),
			})
		}
		return out, nil
	})
}

func (s *AnalyticsService) OrgMaturity(ctx context.Context, v url.Values) (*OrgMaturityReport, error) {
	return cached(ctx, s, "org-maturity", v, func(c query.Criteria) (*OrgMaturityReport, error) {
		var (
			levels []MaturityTotals
			trends []CategoryCount
			policy []PolicyTotals
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) { levels, err = s.store.MaturityLevels(gctx, c); return })
		g.Go(func() (err error) { trends, err = s.store.InvestmentTrends(gctx, c); return })
		g.Go(func() (err error) { policy, err = s.store.PolicyBySize(gctx, c); return })
		if err := g.Wait(); err != nil {
			return nil, err
		}

		rep := &OrgMaturityReport{
			MaturityLevels:   make([]MaturityLevel, 0, len(levels)),
			InvestmentTrends: make([]InvestmentTrend, 0, len(trends)),
			PolicyBySize:     make([]SizePolicy, 0, topN),
		}
		sortByOrder(levels, MaturityLevelOrder, func(r MaturityTotals) string { return r.Level })
		for _, r := range levels {
			rep.MaturityLevels = append(rep.MaturityLevels, MaturityLevel{
				Level:                 r.Level,
				Organizations:         r.Total,
				PolicyRate:            percent(r.WithPolicy, r.Total),
				SustainabilityRate:    percent(r.Sustainable, r.Total),
				AvgProductivityChange: round2(r.AvgProductivity),
			})
		}
		sortByCount(trends)
		sum := sumCounts(trends)
		for _, t := range trends {
			rep.InvestmentTrends = append(rep.InvestmentTrends, InvestmentTrend{Trend: t.Label, Count: t.Count, Percentage: percent(t.Count, sum)})
		}
		sortByOrder(policy, query.CompanySizes, func(r PolicyTotals) string { return r.CompanySize })
		sizes := make([]SizePolicy, 0, len(policy))
		for _, p := range policy {
			sizes = append(sizes, SizePolicy{CompanySize: p.CompanySize, Total: p.Total, WithPolicy: p.WithPolicy, PolicyRate: percent(p.WithPolicy, p.Total)})
		}
		sort.SliceStable(sizes, func(i, j int) bool { return sizes[i].PolicyRate > sizes[j].PolicyRate })
		if len(sizes) > topN {
			sizes = sizes[:topN]
		}
		rep.PolicyBySize = append(rep.PolicyBySize, sizes...)
		return rep, nil
	})
}

func (s *AnalyticsService) TrainingImpact(ctx context.Context, v url.Values) (*TrainingImpactReport, error) {
	return cached(ctx, s, "training-impact", v, func(c query.Criteria) (*TrainingImpactReport, error) {
		var (
			impact  []TrainingTotals
			bySize  []SizeTrainingTotals
			comfort []ComfortTotals
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) { impact, err = s.store.TrainingImpact(gctx, c); return })
		g.Go(func() (err error) { bySize, err = s.store.TrainingBySize(gctx, c); return })
		g.Go(func() (err error) { comfort, err = s.store.ComfortDistribution(gctx, c); return })
		if err := g.Wait(); err != nil {
			return nil, err
		}

		rep := &TrainingImpactReport{
			TrainingImpact:      make([]TrainingImpactRow, 0, len(impact)),
			TrainingBySize:      make([]SizeTraining, 0, topN),
			ComfortDistribution: make([]ComfortShare, 0, 5),
		}
		sort.SliceStable(impact, func(i, j int) bool { return impact[i].Trained && !impact[j].Trained })
		for _, r := range impact {
			rep.TrainingImpact = append(rep.TrainingImpact, TrainingImpactRow{
				Trained:               r.Trained,
				Respondents:           r.Total,
				AdoptionRate:          percent(r.AIUsers, r.Total),
				AvgComfortLevel:       round2(r.AvgComfort),
				AvgProductivityChange: round2(r.AvgProductivity),
				AvgToolsUsed:          round2(r.AvgTools),
			})
		}
		sortByOrder(bySize, query.CompanySizes, func(r SizeTrainingTotals) string { return r.CompanySize })
		sizes := make([]SizeTraining, 0, len(bySize))
		for _, r := range bySize {
			sizes = append(sizes, SizeTraining{CompanySize: r.CompanySize, Total: r.Total, Trained: r.Trained, TrainingRate: percent(r.Trained, r.Total)})
		}
		sort.SliceStable(sizes, func(i, j int) bool { return sizes[i].TrainingRate > sizes[j].TrainingRate })
		if len(sizes) > topN {
			sizes = sizes[:topN]
		}
		rep.TrainingBySize = append(rep.TrainingBySize, sizes...)

		counts := make(map[int]int64, 5)
		var sum int64
		for _, r := range comfort {
			counts[r.Level] += r.Count
			sum += r.Count
		}
		for level := 1; level <= 5; level++ {
			rep.ComfortDistribution = append(rep.ComfortDistribution, ComfortShare{Level: level, Count: counts[level], Percentage: percent(counts[level], sum)})
		}
		return rep, nil
	})
}

func (s *AnalyticsService) UsageDemographics(ctx context.Context, v url.Values) (*UsageDemographicsReport, error) {
	return cached(ctx, s, "usage-demographics", v, func(c query.Criteria) (*UsageDemographicsReport, error) {
		var age, role, exp []UsageTotals
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) { age, err = s.store.UsageBySegment(gctx, c, SegmentAge); return })
		g.Go(func() (err error) { role, err = s.store.UsageBySegment(gctx, c, SegmentRole); return })
		g.Go(func() (err error) { exp, err = s.store.UsageBySegment(gctx, c, SegmentExperience); return })
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return &UsageDemographicsReport{
			ByAge:        usageSegments(age, query.AgeGroups),
			ByRole:       usageSegments(role, query.JobRoles),
			ByExperience: usageSegments(exp, ExperienceBuckets),
		}, nil
	})
}

func usageSegments(rows []UsageTotals, order []string) []UsageSegment {
	sortByOrder(rows, order, func(r UsageTotals) string { return r.Segment })
	out := make([]UsageSegment, 0, len(rows))
	for _, r := range rows {
		out = append(out, UsageSegment{
			Segment:      r.Segment,
			Total:        r.Total,
			AdoptionRate: percent(r.AIUsers, r.Total),
			AvgComfort:   round2(r.AvgComfort),
			AvgTools:     round2(r.AvgTools),
			DailyPct:     percent(r.Daily, r.Total),
			WeeklyPct:    percent(r.Weekly, r.Total),
			MonthlyPct:   percent(r.Monthly, r.Total),
			RarelyPct:    percent(r.Rarely, r.Total),
			NeverPct:     percent(r.Never, r.Total),
		})
	}
	return out
}

// InvalidateCache drops every cached analytics payload.
func (s *AnalyticsService) InvalidateCache(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}

func cached[T any](ctx context.Context, s *AnalyticsService, endpoint string, v url.Values, load func(query.Criteria) (T, error)) (T, error) {
	var zero T
	c, err := s.Criteria(v)
	if err != nil {
		return zero, err
	}
	key := s.spec.Key(c)
	gen := int64(-1)
	if s.cache != nil {
		payload, g, ok := s.cache.Lookup(ctx, endpoint, key)
		gen = g
		if ok {
			var out T
			if err := json.Unmarshal(payload, &out); err == nil {
				return out, nil
			}
			utils.Warn("discarding unreadable cache entry", utils.String("endpoint", endpoint))
		}
	}
	out, err := load(c)
	if err != nil {
		return zero, err
	}
	if s.cache != nil && gen >= 0 {
		if payload, err := json.Marshal(out); err == nil {
			s.cache.Store(ctx, gen, endpoint, key, payload)
		}
	}
	return out, nil
}

func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}

func percent(n, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return round2(100 * float64(n) / float64(total))
}

func share(n, total int64) Share {
	return Share{Count: n, Percentage: percent(n, total)}
}

func sumCounts(rows []CategoryCount) int64 {
	var sum int64
	for _, r := range rows {
		sum += r.Count
	}
	return sum
}

func sortByCount(rows []CategoryCount) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Label < rows[j].Label
	})
}

// sortByOrder puts known labels in the given order and the rest after them,
// alphabetically.
func sortByOrder[T any](rows []T, order []string, label func(T) string) {
	rank := make(map[string]int, len(order))
	for i, o := range order {
		rank[o] = i
	}
	sort.SliceStable(rows, func(i, j int) bool {
		li, lj := label(rows[i]), label(rows[j])
		ri, okI := rank[li]
		rj, okJ := rank[lj]
		switch {
		case okI && okJ:
			return ri < rj
		case okI != okJ:
			return okI
		default:
			return li < lj
		}
	})
}
