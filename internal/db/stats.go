package db

import (
	"context"
	"fmt"

	"github.com/soaringjerry/awap/internal/models"
)

var statTables = []string{"survey_respondents", "users", "audit_logs", "system_settings", "import_history"}

// TableStats counts rows in every application table.
func (s *Store) TableStats(ctx context.Context) ([]models.TableStat, error) {
	out := make([]models.TableStat, 0, len(statTables))
	for _, table := range statTables {
		var n int64
		// Table names come from the fixed list above.
		if err := s.queryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		out = append(out, models.TableStat{Name: table, Rows: n})
	}
	return out, nil
}
