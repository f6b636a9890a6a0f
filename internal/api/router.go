package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/soaringjerry/awap/internal/config"
	"github.com/soaringjerry/awap/internal/middleware"
	"github.com/soaringjerry/awap/internal/progress"
	"github.com/soaringjerry/awap/internal/roles"
	"github.com/soaringjerry/awap/internal/services"
)

type Deps struct {
	Config *config.Config
	Store  Store
	Tokens *middleware.Tokens
	Cache  services.ResponseCache
	Hub    *progress.Hub
}

// Server owns the services behind the HTTP API.
type Server struct {
	cfg    *config.Config
	store  Store
	tokens *middleware.Tokens
	hub    *progress.Hub

	auth      *services.AuthService
	users     *services.UserService
	settings  *services.SettingsService
	audit     *services.AuditService
	analytics *services.AnalyticsService
	imports   *services.ImportService
	data      *services.DataService
}

func NewServer(d Deps) *Server {
	if d.Hub == nil {
		d.Hub = progress.NewHub()
	}
	audit := services.NewAuditService(d.Store)
	analytics := services.NewAnalyticsService(d.Store, d.Cache)
	return &Server{
		cfg:       d.Config,
		store:     d.Store,
		tokens:    d.Tokens,
		hub:       d.Hub,
		auth:      services.NewAuthService(d.Store, d.Tokens.Sign, d.Config.TokenTTL(), d.Config.Auth.AllowSignup),
		users:     services.NewUserService(d.Store, audit),
		settings:  services.NewSettingsService(d.Store, audit),
		audit:     audit,
		analytics: analytics,
		imports: services.NewImportService(d.Store, audit, d.Hub, services.ImportOptions{
			MaxBytes:   d.Config.MaxUploadBytes(),
			BatchSize:  d.Config.Imports.BatchSize,
			OnComplete: analytics.InvalidateCache,
		}),
		data: services.NewDataService(d.Store),
	}
}

func (s *Server) Auth() *services.AuthService { return s.auth }

func (s *Server) Imports() *services.ImportService { return s.imports }

// Handler builds the chi router. Everything except the websocket progress
// stream runs under the request timeout.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.CORS(s.cfg.HTTP.CORSOrigins))
	r.Use(s.tokens.WithAuth)

	r.Get("/health", s.handleHealth)
	r.Get("/version", s.handleVersion)

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(s.cfg.RequestTimeout()))
		r.Use(middleware.NoStore)

		r.Post("/api/auth/signup", s.handleSignup)
		r.Post("/api/auth/login", s.handleLogin)
		r.With(middleware.RequireAuth).Get("/api/auth/me", s.handleMe)
		r.Get("/api/roles", s.handleRoles)

		s.mountAnalytics(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(roles.SuperAdmin))
			r.Get("/api/admin/users", s.handleListUsers)
			r.Post("/api/admin/users", s.handleCreateUser)
			r.Get("/api/admin/users/count", s.handleCountUsers)
			r.Get("/api/admin/users/export", s.handleExportUsers)
			r.Put("/api/admin/users/{id}", s.handleUpdateUser)
			r.Delete("/api/admin/users/{id}", s.handleDeleteUser)
			r.Post("/api/admin/users/{id}/toggle-status", s.handleToggleUser)

			r.Get("/api/admin/settings", s.handleGetSettings)
			r.Put("/api/admin/settings", s.handleUpdateSettings)

			r.Get("/api/admin/logs", s.handleListLogs)
			r.Get("/api/admin/logs/export", s.handleExportLogs)

			r.Get("/api/admin/data", s.handleDataStats)
			r.Get("/api/admin/imports", s.handleListImports)
			r.Post("/api/admin/imports/upload", s.handleUpload)
			r.Get("/api/admin/imports/{id}", s.handleGetImport)
		})
	})

	r.With(middleware.RequireRole(roles.SuperAdmin)).Get("/api/admin/imports/{id}/progress", s.handleImportProgress)

	r.NotFound(s.notFound())
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeErrorMsg(w, http.StatusMethodNotAllowed, "Method not allowed", "")
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "name": "AWAP API", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"name":       "AWAP API",
		"commit":     s.cfg.Commit,
		"build_time": s.cfg.BuildTime,
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"commit":     s.cfg.Commit,
		"build_time": s.cfg.BuildTime,
	})
}
