package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/soaringjerry/awap/internal/models"
)

const userColumns = "id, name, email, password, role, department, status, last_login, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(r rowScanner) (*models.User, error) {
	var (
		u         models.User
		lastLogin sql.NullTime
	)
	if err := r.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Department, &u.Status, &lastLogin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.LastLogin = fromNullTime(lastLogin)
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.query(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	out := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (s *Store) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(s.queryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(s.queryRow(ctx, "SELECT "+userColumns+" FROM users WHERE LOWER(email) = LOWER(?)", email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

// CreateUser inserts u and fills in its ID.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	err := s.queryRow(ctx,
		`INSERT INTO users (name, email, password, role, department, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		u.Name, u.Email, u.PasswordHash, u.Role, u.Department, u.Status, u.CreatedAt.UTC(), u.UpdatedAt.UTC(),
	).Scan(&u.ID)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UpsertUserByEmail creates the user or resets name, password, role,
// department and status of the existing account with the same email.
func (s *Store) UpsertUserByEmail(ctx context.Context, u *models.User) error {
	err := s.queryRow(ctx,
		`INSERT INTO users (name, email, password, role, department, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (email) DO UPDATE SET
		   name = excluded.name, password = excluded.password, role = excluded.role,
		   department = excluded.department, status = excluded.status, updated_at = excluded.updated_at
		 RETURNING id`,
		u.Name, u.Email, u.PasswordHash, u.Role, u.Department, u.Status, u.CreatedAt.UTC(), u.UpdatedAt.UTC(),
	).Scan(&u.ID)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// UpdateUser writes name, email, role, department and status. It reports
// false when no user has u.ID.
func (s *Store) UpdateUser(ctx context.Context, u *models.User) (bool, error) {
	res, err := s.exec(ctx,
		`UPDATE users SET name = ?, email = ?, role = ?, department = ?, status = ?, updated_at = ? WHERE id = ?`,
		u.Name, u.Email, u.Role, u.Department, u.Status, u.UpdatedAt.UTC(), u.ID,
	)
	if err != nil {
		return false, fmt.Errorf("update user: %w", err)
	}
	return affected(res)
}

func (s *Store) DeleteUser(ctx context.Context, id int64) (bool, error) {
	res, err := s.exec(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}
	return affected(res)
}

func (s *Store) SetUserStatus(ctx context.Context, id int64, status string, at time.Time) (bool, error) {
	res, err := s.exec(ctx, "UPDATE users SET status = ?, updated_at = ? WHERE id = ?", status, at.UTC(), id)
	if err != nil {
		return false, fmt.Errorf("set user status: %w", err)
	}
	return affected(res)
}

func (s *Store) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	if _, err := s.exec(ctx, "UPDATE users SET last_login = ? WHERE id = ?", at.UTC(), id); err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}
	return nil
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := s.queryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
