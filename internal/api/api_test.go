package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soaringjerry/awap/internal/cache"
	"github.com/soaringjerry/awap/internal/config"
	"github.com/soaringjerry/awap/internal/db"
	"github.com/soaringjerry/awap/internal/middleware"
	"github.com/soaringjerry/awap/internal/progress"
	"github.com/soaringjerry/awap/internal/services"
)

var _ Store = (*db.Store)(nil)

type testEnv struct {
	srv     *Server
	store   *db.Store
	handler http.Handler
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()
	ctx := context.Background()
	cfg := config.DefaultConfig()
	cfg.DatabaseURL = "sqlite://" + filepath.Join(t.TempDir(), "api.db")
	if mutate != nil {
		mutate(cfg)
	}
	sqlDB, dialect, err := db.Open(ctx, cfg.DatabaseURL)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations(sqlDB, dialect, ""))
	store, err := db.NewStore(sqlDB, dialect)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	srv := NewServer(Deps{
		Config: cfg,
		Store:  store,
		Tokens: middleware.NewTokens([]byte("test-secret")),
		Cache:  cache.Noop{},
		Hub:    progress.NewHub(),
	})
	_, err = srv.Auth().SeedUsers(ctx, services.DefaultSeedAccounts)
	require.NoError(t, err)
	t.Cleanup(func() {
		wctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Imports().Wait(wctx)
	})
	return &testEnv{srv: srv, store: store, handler: srv.Handler()}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	decode(t, rec, &out)
	require.NotEmpty(t, out.Token)
	return out.Token
}

func (e *testEnv) admin(t *testing.T) string {
	return e.login(t, "admin@awap.com", "admin123")
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out map[string]any
	decode(t, rec, &out)
	assert.Equal(t, true, out["ok"])
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestLoginAndMe(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ADMIN@awap.com", "password": "admin123"})
	require.Equal(t, http.StatusOK, rec.Code)
	var login struct {
		Token        string         `json:"token"`
		DefaultRoute string         `json:"defaultRoute"`
		User         map[string]any `json:"user"`
	}
	decode(t, rec, &login)
	assert.Equal(t, "/admin", login.DefaultRoute)
	assert.NotContains(t, login.User, "password")

	rec = env.do(t, http.MethodGet, "/api/auth/me", login.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me struct {
		User         map[string]any `json:"user"`
		Permissions  []string       `json:"permissions"`
		DefaultRoute string         `json:"defaultRoute"`
	}
	decode(t, rec, &me)
	assert.Equal(t, "super_admin", me.User["role"])
	assert.Contains(t, me.Permissions, "manageUsers")
	assert.Equal(t, "/admin", me.DefaultRoute)

	rec = env.do(t, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "hr@awap.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var body errorBody
	decode(t, rec, &body)
	assert.NotEmpty(t, body.Error)
}

func TestSignup(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name": "New Person", "email": "new@awap.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Message string `json:"message"`
		User    struct {
			ID    int64  `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	decode(t, rec, &out)
	assert.Equal(t, "User created successfully", out.Message)
	assert.Equal(t, "new@awap.com", out.User.Email)

	rec = env.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name": "Again", "email": "new@awap.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name": "Boss", "email": "boss@awap.com", "password": "secret1", "role": "super_admin",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.login(t, "new@awap.com", "secret1")
}

func TestSignupDisabled(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Auth.AllowSignup = false })
	rec := env.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name": "New", "email": "new@awap.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAnalyticsAccessModes(t *testing.T) {
	t.Run("authenticated", func(t *testing.T) {
		env := newTestEnv(t, nil)
		assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/kpis", "", nil).Code)
		tok := env.login(t, "lnd@awap.com", "lnd123")
		assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/sentiment", tok, nil).Code)
	})
	t.Run("public", func(t *testing.T) {
		env := newTestEnv(t, func(c *config.Config) { c.Analytics.Access = config.AccessPublic })
		assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/kpis", "", nil).Code)
	})
	t.Run("rbac", func(t *testing.T) {
		env := newTestEnv(t, func(c *config.Config) { c.Analytics.Access = config.AccessRBAC })
		assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/kpis", "", nil).Code)
		lnd := env.login(t, "lnd@awap.com", "lnd123")
		assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/kpis", lnd, nil).Code)
		assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/training-impact", lnd, nil).Code)
		assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, "/api/sentiment", lnd, nil).Code)
		manager := env.login(t, "manager@awap.com", "manager123")
		assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, "/api/org-maturity", manager, nil).Code)
		hr := env.login(t, "hr@awap.com", "hr123")
		assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/org-maturity", hr, nil).Code)
	})
}

func TestAnalyticsEndpointsOnEmptyData(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Analytics.Access = config.AccessPublic })
	for _, path := range []string{
		"/api/kpis", "/api/sentiment", "/api/adoption-by-industry", "/api/adoption-by-company-size",
		"/api/org-maturity", "/api/training-impact", "/api/usage-demographics", "/api/respondents/count",
	} {
		rec := env.do(t, http.MethodGet, path+"?ageGroup=18-29&trained=yes", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := env.do(t, http.MethodGet, "/api/kpis", "", nil)
	var kpis map[string]any
	decode(t, rec, &kpis)
	assert.Equal(t, float64(0), kpis["totalRespondents"])
	assert.Equal(t, float64(0), kpis["adoptionRate"])
}

func TestAnalyticsRejectsUnknownFilterValue(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Analytics.Access = config.AccessPublic })
	rec := env.do(t, http.MethodGet, "/api/kpis?ageGroup=18-29%27%3B+DROP+TABLE+users", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body errorBody
	decode(t, rec, &body)
	assert.NotEmpty(t, body.Error)
	assert.NotEmpty(t, body.Details)
}

func TestAdminRoutesRequireSuperAdmin(t *testing.T) {
	env := newTestEnv(t, nil)
	hr := env.login(t, "hr@awap.com", "hr123")
	for _, path := range []string{"/api/admin/users", "/api/admin/settings", "/api/admin/logs", "/api/admin/data", "/api/admin/imports"} {
		assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, path, hr, nil).Code, path)
		assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, path, "", nil).Code, path)
	}
}

func TestAdminUserLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	tok := env.admin(t)

	rec := env.do(t, http.MethodPost, "/api/admin/users", tok, map[string]string{"name": "Only Name"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	newUser := map[string]string{
		"name": "Dana", "email": "dana@awap.com", "password": "secret1", "role": "manager", "department": "Sales",
	}
	rec = env.do(t, http.MethodPost, "/api/admin/users", tok, newUser)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var created struct {
		Message string `json:"message"`
		User    struct {
			ID int64 `json:"id"`
		} `json:"user"`
	}
	decode(t, rec, &created)
	assert.Equal(t, "User created successfully", created.Message)
	id := created.User.ID

	rec = env.do(t, http.MethodPost, "/api/admin/users", tok, newUser)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var dup errorBody
	decode(t, rec, &dup)
	assert.Equal(t, "User already exists", dup.Error)

	rec = env.do(t, http.MethodGet, "/api/admin/users/count", tok, nil)
	var count struct {
		Count int64 `json:"count"`
	}
	decode(t, rec, &count)
	assert.EqualValues(t, 5, count.Count)

	rec = env.do(t, http.MethodPut, fmt.Sprintf("/api/admin/users/%d", id), tok, map[string]string{
		"name": "Dana R", "role": "hr", "department": "People",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPut, "/api/admin/users/9999", tok, map[string]string{
		"name": "Ghost", "role": "hr", "department": "People",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, fmt.Sprintf("/api/admin/users/%d/toggle-status", id), tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var toggled struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	}
	decode(t, rec, &toggled)
	assert.Equal(t, "disabled", toggled.Status)
	assert.Equal(t, "User disabled successfully", toggled.Message)

	rec = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "dana@awap.com", "password": "secret1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/api/admin/users/%d", id), tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var deleted struct {
		Message string `json:"message"`
	}
	decode(t, rec, &deleted)
	assert.Equal(t, "User deleted successfully", deleted.Message)

	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/api/admin/users/%d", id), tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/admin/users/abc", tok, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminCannotDeleteSelf(t *testing.T) {
	env := newTestEnv(t, nil)
	tok := env.admin(t)
	admin, err := env.store.FindUserByEmail(context.Background(), "admin@awap.com")
	require.NoError(t, err)
	before, err := env.store.CountUsers(context.Background())
	require.NoError(t, err)

	rec := env.do(t, http.MethodDelete, fmt.Sprintf("/api/admin/users/%d", admin.ID), tok, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body errorBody
	decode(t, rec, &body)
	assert.Equal(t, "Cannot delete your own account", body.Error)

	after, err := env.store.CountUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestAdminCannotDisableOrDemoteSelf(t *testing.T) {
	env := newTestEnv(t, nil)
	tok := env.admin(t)
	admin, err := env.store.FindUserByEmail(context.Background(), "admin@awap.com")
	require.NoError(t, err)
	path := fmt.Sprintf("/api/admin/users/%d", admin.ID)

	for _, tc := range []struct {
		body map[string]string
		want string
	}{
		{map[string]string{"name": "Admin", "role": "super_admin", "department": "IT", "status": "disabled"}, "Cannot disable your own account"},
		{map[string]string{"name": "Admin", "role": "hr", "department": "IT"}, "Cannot remove your own super admin role"},
	} {
		rec := env.do(t, http.MethodPut, path, tok, tc.body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var body errorBody
		decode(t, rec, &body)
		assert.Equal(t, tc.want, body.Error)
	}

	after, err := env.store.GetUser(context.Background(), admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "super_admin", after.Role)
	assert.Equal(t, "active", after.Status)
	env.admin(t)
}

func TestExportUsersCSV(t *testing.T) {
	env := newTestEnv(t, nil)
	tok := env.admin(t)
	rec := env.do(t, http.MethodGet, "/api/admin/users/export", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment;")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Equal(t, "ID,Name,Email,Role,Department,Status,Last Login,Created At", lines[0])
	n, err := env.store.CountUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, lines, int(n)+1)
}

func TestSettingsRoundTripOverHTTP(t *testing.T) {
	env := newTestEnv(t, nil)
	tok := env.admin(t)

	rec := env.do(t, http.MethodPut, "/api/admin/settings", tok, map[string]any{"nope": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/admin/settings", tok, map[string]any{
		"settings": map[string]any{"maintenance_mode": "true", "data_retention_days": "30"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/admin/settings", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Settings map[string]struct {
			Value any    `json:"value"`
			Type  string `json:"type"`
		} `json:"settings"`
	}
	decode(t, rec, &out)
	assert.Equal(t, true, out.Settings["maintenance_mode"].Value)
	assert.Equal(t, float64(30), out.Settings["data_retention_days"].Value)
	assert.Equal(t, "number", out.Settings["data_retention_days"].Type)
}

func TestLogsListAndExport(t *testing.T) {
	env := newTestEnv(t, nil)
	tok := env.admin(t)
	env.do(t, http.MethodPost, "/api/admin/users", tok, map[string]string{
		"name": "Eli", "email": "eli@awap.com", "password": "secret1", "role": "lnd", "department": "L&D",
	})

	rec := env.do(t, http.MethodGet, "/api/admin/logs", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Logs []struct {
			ActionType string `json:"actionType"`
			AdminName  string `json:"adminName"`
		} `json:"logs"`
	}
	decode(t, rec, &out)
	require.NotEmpty(t, out.Logs)
	assert.Equal(t, "user_create", out.Logs[0].ActionType)
	assert.Equal(t, "System Administrator", out.Logs[0].AdminName)

	rec = env.do(t, http.MethodGet, "/api/admin/logs/export", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "ID,Timestamp,Admin User,Action Type,Target Type,Target ID,Details,Status"))
}

func TestDataStats(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/api/admin/data", env.admin(t), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Tables []struct {
			Name string `json:"name"`
			Rows int64  `json:"rows"`
		} `json:"tables"`
	}
	decode(t, rec, &out)
	require.Len(t, out.Tables, 5)
	assert.Equal(t, "users", out.Tables[1].Name)
	assert.EqualValues(t, 4, out.Tables[1].Rows)
}

func TestUnknownAPIPathIsJSON404(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/api/does-not-exist", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body errorBody
	decode(t, rec, &body)
	assert.Equal(t, "Endpoint not found", body.Error)
}

const sampleCSV = `respondent_id,age_group,industry_sector,job_role,company_size,is_ai_user,ai_usage_frequency,ai_comfort_level,ai_training_received
R1,18-29,Technology,ic,small,yes,daily,4,yes
R2,30-49,Finance,Manager,1000+,no,never,2,no
R3,50+,Retail,exec,micro,true,weekly,5,1
`

func (e *testEnv) upload(t *testing.T, token, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/imports/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) waitImports(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, e.srv.Imports().Wait(ctx))
}

type importBody struct {
	Import struct {
		ID           string `json:"id"`
		Status       string `json:"status"`
		TotalRows    int    `json:"totalRows"`
		InsertedRows int    `json:"insertedRows"`
		SkippedRows  int    `json:"skippedRows"`
	} `json:"import"`
}

func TestUploadImportsAndReimportSkips(t *testing.T) {
	env := newTestEnv(t, nil)
	tok := env.admin(t)

	rec := env.upload(t, tok, "survey.csv", []byte(sampleCSV))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var first importBody
	decode(t, rec, &first)
	require.NotEmpty(t, first.Import.ID)
	env.waitImports(t)

	rec = env.do(t, http.MethodGet, "/api/admin/imports/"+first.Import.ID, tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var done importBody
	decode(t, rec, &done)
	assert.Equal(t, "completed", done.Import.Status)
	assert.Equal(t, 3, done.Import.TotalRows)
	assert.Equal(t, 3, done.Import.InsertedRows)

	rec = env.do(t, http.MethodGet, "/api/kpis", tok, nil)
	var kpis struct {
		TotalRespondents int64   `json:"totalRespondents"`
		AdoptionRate     float64 `json:"adoptionRate"`
	}
	decode(t, rec, &kpis)
	assert.EqualValues(t, 3, kpis.TotalRespondents)
	assert.Equal(t, 66.67, kpis.AdoptionRate)

	rec = env.upload(t, tok, "survey-again.csv", []byte(sampleCSV))
	require.Equal(t, http.StatusAccepted, rec.Code)
	var second importBody
	decode(t, rec, &second)
	env.waitImports(t)

	rec = env.do(t, http.MethodGet, "/api/admin/imports/"+second.Import.ID, tok, nil)
	decode(t, rec, &done)
	assert.Equal(t, 0, done.Import.InsertedRows)
	assert.Equal(t, 3, done.Import.SkippedRows)

	rec = env.do(t, http.MethodGet, "/api/admin/imports", tok, nil)
	var list struct {
		Imports []json.RawMessage `json:"imports"`
	}
	decode(t, rec, &list)
	assert.Len(t, list.Imports, 2)
}

func TestUploadRejectsBadFiles(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Imports.MaxUploadMB = 1 })
	tok := env.admin(t)

	assert.Equal(t, http.StatusBadRequest, env.upload(t, tok, "notes.txt", []byte("hello")).Code)
	assert.Equal(t, http.StatusBadRequest, env.upload(t, tok, "empty.csv", nil).Code)

	big := bytes.Repeat([]byte("a"), (1<<20)+(1<<19))
	rec := env.upload(t, tok, "big.csv", big)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body errorBody
	decode(t, rec, &body)
	assert.Equal(t, "File too large", body.Error)

	rec = env.do(t, http.MethodGet, "/api/admin/imports/missing", tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestImportProgressWebsocket(t *testing.T) {
	env := newTestEnv(t, nil)
	tok := env.admin(t)
	ts := httptest.NewServer(env.handler)
	defer ts.Close()

	rec := env.upload(t, tok, "survey.csv", []byte(sampleCSV))
	require.Equal(t, http.StatusAccepted, rec.Code)
	var up importBody
	decode(t, rec, &up)
	env.waitImports(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/admin/imports/" + up.Import.ID + "/progress?token=" + tok
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var ev progress.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, up.Import.ID, ev.ImportID)
	assert.Equal(t, "completed", ev.Status)
	assert.True(t, ev.Done)
	assert.Equal(t, 3, ev.InsertedRows)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL[:strings.Index(wsURL, "?")], nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
