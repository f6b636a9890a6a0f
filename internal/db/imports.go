package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/soaringjerry/awap/internal/models"
)

const importColumns = "id, file_name, uploader_id, status, total_rows, inserted_rows, skipped_rows, failed_rows, error_message, created_at, completed_at"

func scanImport(r rowScanner) (*models.ImportRecord, error) {
	var (
		rec       models.ImportRecord
		uploader  sql.NullInt64
		errMsg    sql.NullString
		completed sql.NullTime
	)
	if err := r.Scan(&rec.ID, &rec.FileName, &uploader, &rec.Status, &rec.TotalRows, &rec.InsertedRows,
		&rec.SkippedRows, &rec.FailedRows, &errMsg, &rec.CreatedAt, &completed); err != nil {
		return nil, err
	}
	rec.UploaderID = fromNullInt64(uploader)
	rec.ErrorMessage = errMsg.String
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.CompletedAt = fromNullTime(completed)
	return &rec, nil
}

func (s *Store) CreateImport(ctx context.Context, rec *models.ImportRecord) error {
	_, err := s.exec(ctx,
		`INSERT INTO import_history (id, file_name, uploader_id, status, total_rows, inserted_rows, skipped_rows, failed_rows, error_message, created_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.FileName, toNullInt64(rec.UploaderID), rec.Status, rec.TotalRows, rec.InsertedRows,
		rec.SkippedRows, rec.FailedRows, toNullString(rec.ErrorMessage), rec.CreatedAt.UTC(), toNullTime(rec.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("create import: %w", err)
	}
	return nil
}

func (s *Store) UpdateImport(ctx context.Context, rec *models.ImportRecord) error {
	_, err := s.exec(ctx,
		`UPDATE import_history SET status = ?, total_rows = ?, inserted_rows = ?, skipped_rows = ?, failed_rows = ?,
		   error_message = ?, completed_at = ? WHERE id = ?`,
		rec.Status, rec.TotalRows, rec.InsertedRows, rec.SkippedRows, rec.FailedRows,
		toNullString(rec.ErrorMessage), toNullTime(rec.CompletedAt), rec.ID,
	)
	if err != nil {
		return fmt.Errorf("update import: %w", err)
	}
	return nil
}

func (s *Store) GetImport(ctx context.Context, id string) (*models.ImportRecord, error) {
	rec, err := scanImport(s.queryRow(ctx, "SELECT "+importColumns+" FROM import_history WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get import: %w", err)
	}
	return rec, nil
}

func (s *Store) ListImports(ctx context.Context, limit int) ([]models.ImportRecord, error) {
	q := "SELECT " + importColumns + " FROM import_history ORDER BY created_at DESC, id DESC"
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	defer rows.Close()
	out := []models.ImportRecord{}
	for rows.Next() {
		rec, err := scanImport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}
