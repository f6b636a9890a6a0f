package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/soaringjerry/awap/internal/models"
)

// memStore backs the user, auth, audit, settings and import services in tests.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	users    map[int64]*models.User
	audit    []models.AuditEntry
	settings map[string]models.Setting
	imports  map[string]*models.ImportRecord
	rows     map[string]models.Respondent
	auditErr error
	insertFn func(batch []models.Respondent) error
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[int64]*models.User{},
		settings: map[string]models.Setting{},
		imports:  map[string]*models.ImportRecord{},
		rows:     map[string]models.Respondent{},
	}
}

var testHasher = passwordHasher{cost: bcrypt.MinCost}

func (m *memStore) addUser(name, email, password, role, status string) *models.User {
	hash, _ := testHasher.hash(password)
	u := &models.User{Name: name, Email: email, PasswordHash: hash, Role: role, Department: "General", Status: status}
	_ = m.CreateUser(context.Background(), u)
	return u
}

func (m *memStore) ListUsers(context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) GetUser(_ context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return errors.New("duplicate email")
		}
	}
	m.nextID++
	u.ID = m.nextID
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memStore) UpsertUserByEmail(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	for id, existing := range m.users {
		if existing.Email == u.Email {
			u.ID = id
			cp := *u
			m.users[id] = &cp
			m.mu.Unlock()
			return nil
		}
	}
	m.mu.Unlock()
	return m.CreateUser(ctx, u)
}

func (m *memStore) UpdateUser(_ context.Context, u *models.User) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return false, nil
	}
	cp := *u
	m.users[u.ID] = &cp
	return true, nil
}

func (m *memStore) DeleteUser(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return false, nil
	}
	delete(m.users, id)
	return true, nil
}

func (m *memStore) SetUserStatus(_ context.Context, id int64, status string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return false, nil
	}
	u.Status = status
	u.UpdatedAt = at
	return true, nil
}

func (m *memStore) TouchLastLogin(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.LastLogin = &at
	}
	return nil
}

func (m *memStore) CountUsers(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.users)), nil
}

func (m *memStore) AddAudit(_ context.Context, e models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.auditErr != nil {
		return m.auditErr
	}
	e.ID = int64(len(m.audit) + 1)
	m.audit = append(m.audit, e)
	return nil
}

func (m *memStore) ListAudit(_ context.Context, limit int) ([]models.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.AuditEntry, 0, len(m.audit))
	for i := len(m.audit) - 1; i >= 0; i-- {
		out = append(out, m.audit[i])
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) auditActions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.audit))
	for i, e := range m.audit {
		out[i] = e.ActionType
	}
	return out
}

func (m *memStore) ListSettings(context.Context) ([]models.Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Setting, 0, len(m.settings))
	for _, s := range m.settings {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *memStore) UpsertSettings(_ context.Context, settings []models.Setting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range settings {
		m.settings[s.Key] = s
	}
	return nil
}

func (m *memStore) CreateImport(_ context.Context, rec *models.ImportRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.imports[rec.ID] = &cp
	return nil
}

func (m *memStore) UpdateImport(_ context.Context, rec *models.ImportRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.imports[rec.ID] = &cp
	return nil
}

func (m *memStore) GetImport(_ context.Context, id string) (*models.ImportRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.imports[id]; ok {
		cp := *rec
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) ListImports(context.Context, int) ([]models.ImportRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.ImportRecord, 0, len(m.imports))
	for _, rec := range m.imports {
		out = append(out, *rec)
	}
	return out, nil
}

func (m *memStore) InsertRespondents(_ context.Context, batch []models.Respondent) (int, error) {
	if m.insertFn != nil {
		if err := m.insertFn(batch); err != nil {
			return 0, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range batch {
		if _, ok := m.rows[r.RespondentID]; ok {
			continue
		}
		m.rows[r.RespondentID] = r
		n++
	}
	return n, nil
}
