package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stijnblommerde/restaurant-menu/internal/config"
	"github.com/stijnblommerde/restaurant-menu/internal/handlers"
	"github.com/stijnblommerde/restaurant-menu/internal/mail"
	"github.com/stijnblommerde/restaurant-menu/internal/repository"
	"github.com/stijnblommerde/restaurant-menu/internal/service"
)

type memorySender struct {
	mu       sync.Mutex
	messages []mail.Message
}

func (s *memorySender) Send(_ context.Context, msg mail.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return nil
}

func (s *memorySender) lastToken(t *testing.T) string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.messages)
	return s.messages[len(s.messages)-1].Data["token"]
}

func (s *memorySender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

type testAPI struct {
	engine *gin.Engine
	sender *memorySender
	store  *repository.MemoryStore
}

func newTestAPI(t *testing.T) testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.AppConfig{
		Environment: "testing",
		Security: config.SecurityConfig{
			SecretKey:       "test-signing-secret",
			AccessTokenTTL:  15 * time.Minute,
			AccountTokenTTL: time.Hour,
			AdminEmail:      "admin@example.com",
		},
	}

	store := repository.NewMemoryStore()
	sender := &memorySender{}
	accounts := service.NewAccountService(store, store, sender, cfg, zerolog.Nop())
	require.NoError(t, accounts.SeedRoles(context.Background()))

	handlerSet := handlers.NewHandlerSet(zerolog.Nop(), cfg, accounts, nil, nil, nil)

	engine := gin.New()
	handlerSet.Register(engine.Group("/api"))

	return testAPI{engine: engine, sender: sender, store: store}
}

func (a testAPI) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	a.engine.ServeHTTP(rec, req)
	return rec
}

func (a testAPI) registerAndLogin(t *testing.T, username, email, password string) string {
	t.Helper()

	rec := a.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": username, "email": email, "password": password,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email": email, "password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func TestRegisterConfirmFlow(t *testing.T) {
	api := newTestAPI(t)

	token := api.registerAndLogin(t, "alice", "alice@x.com", "correct horse")
	confirmToken := api.sender.lastToken(t)

	rec := api.do(t, http.MethodGet, "/api/v1/account/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"confirmed":false`)

	rec = api.do(t, http.MethodPost, "/api/v1/auth/confirm", token, gin.H{"token": confirmToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/api/v1/account/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"confirmed":true`)
}

func TestConfirm_BadTokenRejected(t *testing.T) {
	api := newTestAPI(t)
	token := api.registerAndLogin(t, "alice", "alice@x.com", "correct horse")

	rec := api.do(t, http.MethodPost, "/api/v1/auth/confirm", token, gin.H{"token": "garbage"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestLogin_WrongPassword(t *testing.T) {
	api := newTestAPI(t)
	api.registerAndLogin(t, "alice", "alice@x.com", "correct horse")

	rec := api.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email": "alice@x.com", "password": "wrong password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	// no hint whether the account exists
	assert.Contains(t, rec.Body.String(), "invalid email or password")
}

func TestForgotPassword_GenericResponseForUnknownEmail(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/auth/password/forgot", "", gin.H{
		"email": "ghost@x.com",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "If that address is registered")
	assert.Equal(t, 0, api.sender.count())
}

func TestPasswordResetFlow(t *testing.T) {
	api := newTestAPI(t)
	api.registerAndLogin(t, "alice", "alice@x.com", "old password99")

	rec := api.do(t, http.MethodPost, "/api/v1/auth/password/forgot", "", gin.H{"email": "alice@x.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	resetToken := api.sender.lastToken(t)

	rec = api.do(t, http.MethodPost, "/api/v1/auth/password/reset", "", gin.H{
		"email": "alice@x.com", "token": resetToken, "password": "new password99",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email": "alice@x.com", "password": "new password99",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEmailChangeFlow(t *testing.T) {
	api := newTestAPI(t)
	token := api.registerAndLogin(t, "alice", "alice@x.com", "correct horse")

	rec := api.do(t, http.MethodPost, "/api/v1/auth/email/change", token, gin.H{
		"newEmail": "new@example.com", "password": "correct horse",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	changeToken := api.sender.lastToken(t)
	rec = api.do(t, http.MethodPost, "/api/v1/auth/email/confirm", token, gin.H{"token": changeToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/api/v1/account/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "new@example.com")
}

func TestAdminRoute_PermissionGate(t *testing.T) {
	api := newTestAPI(t)

	userToken := api.registerAndLogin(t, "alice", "alice@x.com", "correct horse")
	adminToken := api.registerAndLogin(t, "root", "admin@example.com", "correct horse")

	rec := api.do(t, http.MethodGet, "/api/v1/admin/users", userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/admin/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/admin/users", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alice")
}

func TestProfileUpdate(t *testing.T) {
	api := newTestAPI(t)
	token := api.registerAndLogin(t, "alice", "alice@x.com", "correct horse")

	rec := api.do(t, http.MethodPut, "/api/v1/account/profile", token, gin.H{
		"name": "Alice", "location": "Amsterdam", "aboutMe": "I review restaurants.",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/account/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Amsterdam")
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), fmt.Sprintf("%q", "testing"))
}
