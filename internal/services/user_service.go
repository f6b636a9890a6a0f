package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/soaringjerry/awap/internal/models"
	"github.com/soaringjerry/awap/internal/roles"
)

type UserStore interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	UpdateUser(ctx context.Context, u *models.User) (bool, error)
	DeleteUser(ctx context.Context, id int64) (bool, error)
	SetUserStatus(ctx context.Context, id int64, status string, at time.Time) (bool, error)
	CountUsers(ctx context.Context) (int64, error)
}

// UserService implements the super-admin user management screens.
type UserService struct {
	store  UserStore
	audit  *AuditService
	now    func() time.Time
	hasher passwordHasher
}

type CreateUserInput struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	Department string `json:"department"`
}

type UpdateUserInput struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Department string `json:"department"`
	Status     string `json:"status"`
}

func NewUserService(store UserStore, audit *AuditService) *UserService {
	return &UserService{store: store, audit: audit, now: func() time.Time { return time.Now().UTC() }}
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	return s.store.ListUsers(ctx)
}

func (s *UserService) Count(ctx context.Context) (int64, error) {
	return s.store.CountUsers(ctx)
}

func (s *UserService) Create(ctx context.Context, actorID int64, in CreateUserInput) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	role := strings.TrimSpace(in.Role)
	department := strings.TrimSpace(in.Department)
	if name == "" || email == "" || in.Password == "" || role == "" || department == "" {
		return nil, NewInvalidError("Missing required fields")
	}
	if !roles.Valid(role) {
		return nil, NewInvalidError("Invalid role")
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	existing, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, NewInvalidError("User already exists")
	}
	hash, err := s.hasher.hash(in.Password)
	if err != nil {
		return nil, err
	}
	now := s.now()
	u := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Department:   department,
		Status:       models.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, AuditEntry{
		Time: now, ActorID: actorID, Action: ActionUserCreate,
		TargetType: "user", TargetID: strconv.FormatInt(u.ID, 10),
		Details: fmt.Sprintf("Created user %s with role %s", u.Email, u.Role),
	})
	return u, nil
}

func (s *UserService) Update(ctx context.Context, actorID, id int64, in UpdateUserInput) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	role := strings.TrimSpace(in.Role)
	department := strings.TrimSpace(in.Department)
	if name == "" || role == "" || department == "" {
		return nil, NewInvalidError("Missing required fields")
	}
	if !roles.Valid(role) {
		return nil, NewInvalidError("Invalid role")
	}
	current, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, NewNotFoundError("User not found")
	}
	status := strings.TrimSpace(in.Status)
	if status == "" {
		status = current.Status
	}
	if status != models.StatusActive && status != models.StatusDisabled {
		return nil, NewInvalidError("Invalid status")
	}
	if actorID == id {
		if status == models.StatusDisabled {
			return nil, NewInvalidError("Cannot disable your own account")
		}
		if current.Role == roles.SuperAdmin && role != roles.SuperAdmin {
			return nil, NewInvalidError("Cannot remove your own super admin role")
		}
	}
	email := normalizeEmail(in.Email)
	if email == "" {
		email = current.Email
	}
	if email != current.Email {
		other, err := s.store.FindUserByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if other != nil && other.ID != id {
			return nil, NewInvalidError("Email already in use")
		}
	}
	updated := *current
	updated.Name = name
	updated.Email = email
	updated.Role = role
	updated.Department = department
	updated.Status = status
	updated.UpdatedAt = s.now()
	ok, err := s.store.UpdateUser(ctx, &updated)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewNotFoundError("User not found")
	}
	s.audit.Record(ctx, AuditEntry{
		Time: updated.UpdatedAt, ActorID: actorID, Action: ActionUserUpdate,
		TargetType: "user", TargetID: strconv.FormatInt(id, 10),
		Details: fmt.Sprintf("Updated user %s (role %s, status %s)", updated.Email, updated.Role, updated.Status),
	})
	return &updated, nil
}

// Delete removes a user other than the caller.
func (s *UserService) Delete(ctx context.Context, actorID, id int64) error {
	if actorID == id {
		return NewInvalidError("Cannot delete your own account")
	}
	target, err := s.store.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if target == nil {
		return NewNotFoundError("User not found")
	}
	ok, err := s.store.DeleteUser(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return NewNotFoundError("User not found")
	}
	s.audit.Record(ctx, AuditEntry{
		Time: s.now(), ActorID: actorID, Action: ActionUserDelete,
		TargetType: "user", TargetID: strconv.FormatInt(id, 10),
		Details: "Deleted user " + target.Email,
	})
	return nil
}

// ToggleStatus flips a user between active and disabled.
func (s *UserService) ToggleStatus(ctx context.Context, actorID, id int64) (*models.User, error) {
	target, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, NewNotFoundError("User not found")
	}
	next := models.StatusDisabled
	if target.Status == models.StatusDisabled {
		next = models.StatusActive
	}
	if actorID == id && next == models.StatusDisabled {
		return nil, NewInvalidError("Cannot disable your own account")
	}
	now := s.now()
	ok, err := s.store.SetUserStatus(ctx, id, next, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewNotFoundError("User not found")
	}
	target.Status = next
	target.UpdatedAt = now
	s.audit.Record(ctx, AuditEntry{
		Time: now, ActorID: actorID, Action: ActionUserStatusChange,
		TargetType: "user", TargetID: strconv.FormatInt(id, 10),
		Details: fmt.Sprintf("Set %s to %s", target.Email, next),
	})
	return target, nil
}

// Export renders every user as CSV.
func (s *UserService) Export(ctx context.Context, actorID int64) (*ExportResult, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	data, err := ExportUsersCSV(users)
	if err != nil {
		return nil, err
	}
	now := s.now()
	s.audit.Record(ctx, AuditEntry{
		Time: now, ActorID: actorID, Action: ActionUsersExport,
		TargetType: "users", Details: fmt.Sprintf("Exported %d users", len(users)),
	})
	return &ExportResult{Filename: exportFilename("users_export", now), ContentType: csvContentType, Data: data}, nil
}
