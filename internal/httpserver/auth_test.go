package httpserver

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hotelworks/backoffice/internal/middleware"
	"github.com/hotelworks/backoffice/internal/models"
	"github.com/hotelworks/backoffice/internal/repo"
	"github.com/hotelworks/backoffice/internal/service"
	"github.com/hotelworks/backoffice/internal/tokens"
)

type httpEnv struct {
	e      *echo.Echo
	issuer *tokens.Issuer
}

func newHTTPEnv(t *testing.T) *httpEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Permission{},
		&models.Role{},
		&models.Account{},
		&models.RefreshToken{},
	))
	require.NoError(t, db.Create(&models.Role{Name: "staff"}).Error)

	issuer := &tokens.Issuer{
		AccessSecret:  []byte("test-access-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
	}

	e := echo.New()
	Register(e, &Deps{
		AuthHandler: &AuthHTTP{Svc: &service.AuthService{
			Repo:   &repo.GormRepo{DB: db},
			Issuer: issuer,
		}},
		Auth:   middleware.NewBearerAuth(issuer, nil),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	return &httpEnv{e: e, issuer: issuer}
}

func (env *httpEnv) do(t *testing.T, method, path string, body map[string]any, bearer string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *httpEnv) signup(t *testing.T, username, password string) {
	t.Helper()

	rec := env.do(t, http.MethodPost, "/auth/signup", map[string]any{
		"username":  username,
		"password":  password,
		"full_name": "Alice Example",
		"email":     username + "@example.com",
		"role_id":   1,
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (env *httpEnv) login(t *testing.T, username, password string) map[string]any {
	t.Helper()

	rec := env.do(t, http.MethodPost, "/auth/login", map[string]any{
		"username": username,
		"password": password,
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestSignup_CreatedWithoutHash(t *testing.T) {
	env := newHTTPEnv(t)

	rec := env.do(t, http.MethodPost, "/auth/signup", map[string]any{
		"username":  "alice",
		"password":  "p@ss1234",
		"full_name": "Alice Example",
		"email":     "alice@example.com",
		"role_id":   1,
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var account map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &account))
	assert.Equal(t, "alice", account["username"])
	assert.NotContains(t, rec.Body.String(), "p@ss1234")
	assert.NotContains(t, rec.Body.String(), "password_hash")
}

func TestSignup_DuplicateIsConflict(t *testing.T) {
	env := newHTTPEnv(t)
	env.signup(t, "alice", "p@ss1234")

	rec := env.do(t, http.MethodPost, "/auth/signup", map[string]any{
		"username": "alice",
		"password": "other",
		"email":    "elsewhere@example.com",
	}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLogin_SuccessAndUniformFailure(t *testing.T) {
	env := newHTTPEnv(t)
	env.signup(t, "alice", "p@ss1234")

	resp := env.login(t, "alice", "p@ss1234")
	assert.NotEmpty(t, resp["access_token"])
	assert.NotEmpty(t, resp["refresh_token"])

	wrongPassword := env.do(t, http.MethodPost, "/auth/login", map[string]any{
		"username": "alice", "password": "wrong",
	}, "")
	unknownUser := env.do(t, http.MethodPost, "/auth/login", map[string]any{
		"username": "nobody", "password": "p@ss1234",
	}, "")

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownUser.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownUser.Body.String())
}

func TestRefresh_IssuesNewPair(t *testing.T) {
	env := newHTTPEnv(t)
	env.signup(t, "alice", "p@ss1234")
	resp := env.login(t, "alice", "p@ss1234")

	rec := env.do(t, http.MethodPost, "/auth/refresh", map[string]any{
		"refresh_token": resp["refresh_token"],
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var pair tokenPairResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pair))
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, resp["refresh_token"], pair.RefreshToken)

	// The rotated-out token no longer works.
	replay := env.do(t, http.MethodPost, "/auth/refresh", map[string]any{
		"refresh_token": resp["refresh_token"],
	}, "")
	assert.Equal(t, http.StatusUnauthorized, replay.Code)
}

func TestRefresh_GarbageToken(t *testing.T) {
	env := newHTTPEnv(t)

	rec := env.do(t, http.MethodPost, "/auth/refresh", map[string]any{
		"refresh_token": "not-a-jwt",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout_RequiresAuthAndRevokes(t *testing.T) {
	env := newHTTPEnv(t)
	env.signup(t, "alice", "p@ss1234")
	resp := env.login(t, "alice", "p@ss1234")

	noAuth := env.do(t, http.MethodPost, "/auth/logout", nil, "")
	assert.Equal(t, http.StatusUnauthorized, noAuth.Code)

	access := resp["access_token"].(string)
	rec := env.do(t, http.MethodPost, "/auth/logout", map[string]any{
		"refresh_token": resp["refresh_token"],
	}, access)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	replay := env.do(t, http.MethodPost, "/auth/refresh", map[string]any{
		"refresh_token": resp["refresh_token"],
	}, "")
	assert.Equal(t, http.StatusUnauthorized, replay.Code)
}

func TestLogout_WithoutToken_RevokesAllSessions(t *testing.T) {
	env := newHTTPEnv(t)
	env.signup(t, "alice", "p@ss1234")
	first := env.login(t, "alice", "p@ss1234")
	second := env.login(t, "alice", "p@ss1234")

	access := first["access_token"].(string)
	rec := env.do(t, http.MethodPost, "/auth/logout", nil, access)
	require.Equal(t, http.StatusOK, rec.Code)

	for _, resp := range []map[string]any{first, second} {
		replay := env.do(t, http.MethodPost, "/auth/refresh", map[string]any{
			"refresh_token": resp["refresh_token"],
		}, "")
		assert.Equal(t, http.StatusUnauthorized, replay.Code)
	}
}

func TestProfile_ProjectionAndAuth(t *testing.T) {
	env := newHTTPEnv(t)
	env.signup(t, "alice", "p@ss1234")
	resp := env.login(t, "alice", "p@ss1234")

	missing := env.do(t, http.MethodGet, "/auth/profile", nil, "")
	assert.Equal(t, http.StatusUnauthorized, missing.Code)

	invalid := env.do(t, http.MethodGet, "/auth/profile", nil, "garbage-token")
	assert.Equal(t, http.StatusUnauthorized, invalid.Code)

	rec := env.do(t, http.MethodGet, "/auth/profile", nil, resp["access_token"].(string))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var profile map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, "alice", profile["username"])
	assert.Equal(t, "Alice Example", profile["full_name"])
	assert.Equal(t, "alice@example.com", profile["email"])
	assert.Equal(t, "staff", profile["role"])
	assert.Equal(t, "active", profile["status"])
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestHealthEndpoints(t *testing.T) {
	env := newHTTPEnv(t)

	for _, path := range []string{"/health/live", "/health/ready"} {
		rec := env.do(t, http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusNoContent, rec.Code, path)
	}
}
