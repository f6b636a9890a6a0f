package api

import (
	"context"

	"github.com/soaringjerry/awap/internal/services"
)

// Store is everything the HTTP layer needs from persistence. *db.Store
// satisfies it for both Postgres and SQLite.
type Store interface {
	services.AnalyticsStore
	services.AuthStore
	services.UserStore
	services.AuditStore
	services.SettingsStore
	services.ImportStore
	services.StatsStore

	Ping(ctx context.Context) error
}
