package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/soaringjerry/awap/internal/query"
)

// Open connects to the database named by url and reports its dialect.
// postgres:// and postgresql:// URLs use pgx; sqlite://path, sqlite:path and
// bare *.db paths use the SQLite driver compiled into this build.
func Open(ctx context.Context, url string) (*sql.DB, query.Dialect, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		db, err := sql.Open("pgx", url)
		if err != nil {
			return nil, "", fmt.Errorf("open postgres: %w", err)
		}
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(5)
		db.SetConnMaxIdleTime(5 * time.Minute)
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, "", fmt.Errorf("ping postgres: %w", err)
		}
		return db, query.Postgres, nil
	default:
		file, err := sqlitePath(url)
		if err != nil {
			return nil, "", err
		}
		if dir := filepath.Dir(file); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, "", fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		db, err := sql.Open(sqliteDriver, sqliteDSN(file))
		if err != nil {
			return nil, "", fmt.Errorf("open sqlite: %w", err)
		}
		// SQLite has a single writer; one connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, "", fmt.Errorf("ping sqlite: %w", err)
		}
		return db, query.SQLite, nil
	}
}

func sqlitePath(url string) (string, error) {
	switch {
	case strings.HasPrefix(url, "sqlite://"):
		return strings.TrimPrefix(url, "sqlite://"), nil
	case strings.HasPrefix(url, "sqlite:"):
		return strings.TrimPrefix(url, "sqlite:"), nil
	case strings.HasSuffix(url, ".db"), strings.HasSuffix(url, ".sqlite"):
		return url, nil
	default:
		return "", fmt.Errorf("unsupported DATABASE_URL scheme: %q", redact(url))
	}
}

func redact(url string) string {
	if i := strings.Index(url, "@"); i >= 0 {
		if j := strings.Index(url, "://"); j >= 0 && j < i {
			return url[:j+3] + "***" + url[i:]
		}
	}
	return url
}
