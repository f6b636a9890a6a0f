package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/soaringjerry/awap/internal/models"
)

func (s *Store) AddAudit(ctx context.Context, e models.AuditEntry) error {
	status := e.Status
	if status == "" {
		status = "success"
	}
	_, err := s.exec(ctx,
		`INSERT INTO audit_logs (admin_user_id, action_type, target_type, target_id, details, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		toNullInt64(e.AdminUserID), e.ActionType, toNullString(e.TargetType), toNullString(e.TargetID),
		toNullString(e.Details), status, e.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("add audit: %w", err)
	}
	return nil
}

// ListAudit returns the newest entries first, joined with the acting admin's
// name. A non-positive limit returns everything.
func (s *Store) ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	q := `SELECT a.id, a.admin_user_id, COALESCE(u.name, ''), a.action_type, COALESCE(a.target_type, ''),
	        COALESCE(a.target_id, ''), COALESCE(a.details, ''), a.status, a.created_at
	      FROM audit_logs a
	      LEFT JOIN users u ON u.id = a.admin_user_id
	      ORDER BY a.created_at DESC, a.id DESC`
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()
	out := []models.AuditEntry{}
	for rows.Next() {
		var (
			e     models.AuditEntry
			admin sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &admin, &e.AdminName, &e.ActionType, &e.TargetType, &e.TargetID, &e.Details, &e.Status, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		e.AdminUserID = fromNullInt64(admin)
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) CountAudit(ctx context.Context) (int64, error) {
	var n int64
	if err := s.queryRow(ctx, "SELECT COUNT(*) FROM audit_logs").Scan(&n); err != nil {
		return 0, fmt.Errorf("count audit: %w", err)
	}
	return n, nil
}
