package services

import (
	"context"
	"strings"
	"time"

	"github.com/soaringjerry/awap/internal/models"
	"github.com/soaringjerry/awap/internal/roles"
	"github.com/soaringjerry/awap/internal/utils"
)

type AuthStore interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	UpsertUserByEmail(ctx context.Context, u *models.User) error
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
}

type TokenSigner func(u models.User, ttl time.Duration) (string, error)

type AuthService struct {
	store       AuthStore
	now         func() time.Time
	signToken   TokenSigner
	tokenTTL    time.Duration
	allowSignup bool
	hasher      passwordHasher
}

type AuthResult struct {
	Token        string      `json:"token"`
	ExpiresAt    time.Time   `json:"expiresAt"`
	User         models.User `json:"user"`
	DefaultRoute string      `json:"defaultRoute"`
}

type SignupInput struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	Department string `json:"department"`
}

func NewAuthService(store AuthStore, signer TokenSigner, ttl time.Duration, allowSignup bool) *AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{
		store:       store,
		now:         func() time.Time { return time.Now().UTC() },
		signToken:   signer,
		tokenTTL:    ttl,
		allowSignup: allowSignup,
	}
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	if !s.allowSignup {
		return nil, NewForbiddenError("Signup is disabled")
	}
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if name == "" || email == "" || in.Password == "" {
		return nil, NewInvalidError("Missing required fields")
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	role := strings.TrimSpace(in.Role)
	if role == "" {
		role = roles.HR
	}
	if !roles.Valid(role) {
		return nil, NewInvalidError("Invalid role")
	}
	if role == roles.SuperAdmin {
		return nil, NewInvalidError("Super admin accounts cannot be self-registered")
	}
	department := strings.TrimSpace(in.Department)
	if department == "" {
		department = "General"
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
	return u, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, NewInvalidError("Email and password are required")
	}
	u, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil || !checkPassword(u.PasswordHash, password) {
		return nil, NewUnauthorizedError("Invalid credentials")
	}
	if u.Status == models.StatusDisabled {
		return nil, NewUnauthorizedError("Account disabled")
	}
	if s.signToken == nil {
		return nil, NewInvalidError("token signer not configured")
	}
	now := s.now()
	if err := s.store.TouchLastLogin(ctx, u.ID, now); err != nil {
		utils.Warn("failed to record last login", utils.Int64("user_id", u.ID), utils.ErrorField(err))
	} else {
		u.LastLogin = &now
	}
	token, err := s.signToken(*u, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, ExpiresAt: now.Add(s.tokenTTL), User: *u, DefaultRoute: roles.DefaultRoute(u.Role)}, nil
}

// SeedAccount is a demo login created by SeedUsers.
type SeedAccount struct {
	Name       string
	Email      string
	Password   string
	Role       string
	Department string
}

var DefaultSeedAccounts = []SeedAccount{
	{Name: "System Administrator", Email: "admin@awap.com", Password: "admin123", Role: roles.SuperAdmin, Department: "IT"},
	{Name: "Department Manager", Email: "manager@awap.com", Password: "manager123", Role: roles.Manager, Department: "Operations"},
	{Name: "HR Manager", Email: "hr@awap.com", Password: "hr123", Role: roles.HR, Department: "Human Resources"},
	{Name: "L&D Specialist", Email: "lnd@awap.com", Password: "lnd123", Role: roles.LnD, Department: "Learning & Development"},
}

// SeedUsers creates or resets the given accounts to an active state.
func (s *AuthService) SeedUsers(ctx context.Context, accounts []SeedAccount) ([]models.User, error) {
	out := make([]models.User, 0, len(accounts))
	for _, a := range accounts {
		if !roles.Valid(a.Role) {
			return nil, NewInvalidError("Invalid role " + a.Role)
		}
		hash, err := s.hasher.hash(a.Password)
		if err != nil {
			return nil, err
		}
		now := s.now()
		u := &models.User{
			Name:         a.Name,
			Email:        normalizeEmail(a.Email),
			PasswordHash: hash,
			Role:         a.Role,
			Department:   a.Department,
			Status:       models.StatusActive,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.store.UpsertUserByEmail(ctx, u); err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, nil
}

func (s *AuthService) TokenTTL() time.Duration {
	return s.tokenTTL
}
