package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/soaringjerry/awap/internal/config"
	"github.com/soaringjerry/awap/internal/middleware"
	"github.com/soaringjerry/awap/internal/roles"
)

type analyticsRoute struct {
	path       string
	permission string
	handler    http.HandlerFunc
}

func (s *Server) analyticsRoutes() []analyticsRoute {
	a := s.analytics
	return []analyticsRoute{
		{"/api/kpis", roles.ViewDashboard, serveAnalytics(a.KPIs)},
		{"/api/sentiment", roles.ViewSentiment, serveAnalytics(a.Sentiment)},
		{"/api/adoption-by-industry", roles.ViewDashboard, serveAnalytics(a.AdoptionByIndustry)},
		{"/api/adoption-by-company-size", roles.ViewDashboard, serveAnalytics(a.AdoptionByCompanySize)},
		{"/api/org-maturity", roles.ViewOrgMaturity, serveAnalytics(a.OrgMaturity)},
		{"/api/training-impact", roles.ViewTraining, serveAnalytics(a.TrainingImpact)},
		{"/api/usage-demographics", roles.ViewDashboard, serveAnalytics(a.UsageDemographics)},
		{"/api/respondents/count", roles.ViewDashboard, serveAnalytics(a.RespondentCount)},
	}
}

// mountAnalytics registers the dashboard endpoints behind the configured
// access mode.
func (s *Server) mountAnalytics(r chi.Router) {
	for _, rt := range s.analyticsRoutes() {
		switch s.cfg.Analytics.Access {
		case config.AccessPublic:
			r.Get(rt.path, rt.handler)
		case config.AccessRBAC:
			r.With(middleware.RequirePermission(rt.permission)).Get(rt.path, rt.handler)
		default:
			r.With(middleware.RequireAuth).Get(rt.path, rt.handler)
		}
	}
}

func serveAnalytics[T any](fn func(context.Context, url.Values) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := fn(r.Context(), r.URL.Query())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}
