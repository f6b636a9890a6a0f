package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/soaringjerry/awap/internal/models"
)

func (s *Store) ListSettings(ctx context.Context) ([]models.Setting, error) {
	rows, err := s.query(ctx, `SELECT setting_key, setting_value, setting_type, category, updated_by, updated_at
		FROM system_settings ORDER BY category, setting_key`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()
	out := []models.Setting{}
	for rows.Next() {
		var (
			st models.Setting
			by sql.NullInt64
		)
		if err := rows.Scan(&st.Key, &st.Value, &st.Type, &st.Category, &by, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		st.UpdatedBy = fromNullInt64(by)
		st.UpdatedAt = st.UpdatedAt.UTC()
		out = append(out, st)
	}
	return out, rows.Err()
}

// UpsertSettings writes every setting in one transaction.
func (s *Store) UpsertSettings(ctx context.Context, settings []models.Setting) error {
	stmt := s.rebind(`INSERT INTO system_settings (setting_key, setting_value, setting_type, category, updated_by, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (setting_key) DO UPDATE SET
		  setting_value = excluded.setting_value, setting_type = excluded.setting_type,
		  category = excluded.category, updated_by = excluded.updated_by, updated_at = excluded.updated_at`)
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, st := range settings {
			if _, err := tx.ExecContext(ctx, stmt, st.Key, st.Value, st.Type, st.Category, toNullInt64(st.UpdatedBy), st.UpdatedAt.UTC()); err != nil {
				return fmt.Errorf("upsert setting %s: %w", st.Key, err)
			}
		}
		return nil
	})
}
