package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	httptransport "github.com/spec-kit/tour-service/internal/api/http"
	"github.com/spec-kit/tour-service/internal/api/http/handlers"
	"github.com/spec-kit/tour-service/internal/auth"
	"github.com/spec-kit/tour-service/internal/config"
	"github.com/spec-kit/tour-service/internal/domain"
	"github.com/spec-kit/tour-service/internal/mail"
	"github.com/spec-kit/tour-service/internal/observability"
	"github.com/spec-kit/tour-service/internal/persistence"
	"github.com/spec-kit/tour-service/internal/repository"
	"github.com/spec-kit/tour-service/internal/service"
)

type memMailer struct {
	sent    []mail.Message
	failing bool
}

func (m *memMailer) Send(_ context.Context, msg mail.Message) error {
	if m.failing {
		return errors.New("relay down")
	}
	m.sent = append(m.sent, msg)
	return nil
}

type testEnv struct {
	app    *fiber.App
	store  *repository.MemoryStore
	auth   *service.AuthService
	mailer *memMailer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.Config{
		App: config.AppConfig{
			Name:          "tour-service-test",
			Env:           "test",
			PublicBaseURL: "http://test.local",
		},
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret",
			AccessTokenTTLMinutes:   60,
			PasswordResetTTLMinutes: 10,
			BcryptCost:              bcrypt.MinCost,
		},
	}

	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	store := repository.NewMemoryStore(hasher)
	mailer := &memMailer{}

	authService := service.NewAuthService(cfg, service.AuthDependencies{
		UserStore: store,
		Mailer:    mailer,
		Hasher:    hasher,
		Logger:    zap.NewNop(),
	})
	userService := service.NewUserService(store)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, httptransport.MiddlewareConfig{
		Logger:  zap.NewNop(),
		Metrics: observability.NewMetrics(),
	})
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, "test", &persistence.Postgres{}, &persistence.Redis{}),
		Auth:           handlers.NewAuthHandler(authService, false),
		Users:          handlers.NewUsersHandler(userService),
		AuthMiddleware: auth.NewMiddleware(authService.TokenManager(), store),
	})

	return &testEnv{app: app, store: store, auth: authService, mailer: mailer}
}

type sessionEnvelope struct {
	Data struct {
		User struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"user"`
		Auth struct {
			Token string `json:"token"`
		} `json:"auth"`
	} `json:"data"`
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func (e *testEnv) signup(t *testing.T, name, email, password string) sessionEnvelope {
	t.Helper()
	resp, raw := e.do(t, http.MethodPost, "/api/v1/users/signup", "", fiber.Map{
		"name": name, "email": email, "password": password, "passwordConfirm": password,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	var env sessionEnvelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return env
}

func TestSignupEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, raw := env.do(t, http.MethodPost, "/api/v1/users/signup", "", fiber.Map{
		"name": "Ada", "email": "A@X.com", "password": "Secret123", "passwordConfirm": "Secret123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	var session sessionEnvelope
	require.NoError(t, json.Unmarshal(raw, &session))
	assert.NotEmpty(t, session.Data.Auth.Token)
	assert.Equal(t, "a@x.com", session.Data.User.Email)
	assert.Equal(t, "user", session.Data.User.Role)
	assert.NotContains(t, string(raw), "password")

	var sessionCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "jwt" {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie, "session cookie must be set")
	assert.Equal(t, session.Data.Auth.Token, sessionCookie.Value)
	assert.True(t, sessionCookie.HttpOnly)
	assert.False(t, sessionCookie.Secure, "secure flag is reserved for production")
}

func TestLoginEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "Ada", "a@x.com", "Secret123")

	resp, raw := env.do(t, http.MethodPost, "/api/v1/users/login", "", fiber.Map{
		"email": "a@x.com", "password": "Secret123",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	resp, raw = env.do(t, http.MethodPost, "/api/v1/users/login", "", fiber.Map{
		"email": "a@x.com", "password": "WrongPass1",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var failure errorEnvelope
	require.NoError(t, json.Unmarshal(raw, &failure))
	assert.Equal(t, "INVALID_CREDENTIALS", failure.Error.Code)
}

func TestForgotAndResetPasswordFlow(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "Ada", "a@x.com", "Secret123")

	resp, raw := env.do(t, http.MethodPost, "/api/v1/users/forgotPassword", "", fiber.Map{
		"email": "a@x.com",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	require.Len(t, env.mailer.sent, 1)

	secret := extractSecret(env.mailer.sent[0].Body)
	require.NotEmpty(t, secret)

	resp, raw = env.do(t, http.MethodPatch, "/api/v1/users/resetPassword/"+secret, "", fiber.Map{
		"password": "NewSecret9", "passwordConfirm": "NewSecret9",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var session sessionEnvelope
	require.NoError(t, json.Unmarshal(raw, &session))
	assert.NotEmpty(t, session.Data.Auth.Token)

	// The consumed secret no longer works.
	resp, raw = env.do(t, http.MethodPatch, "/api/v1/users/resetPassword/"+secret, "", fiber.Map{
		"password": "YetAnother1", "passwordConfirm": "YetAnother1",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var failure errorEnvelope
	require.NoError(t, json.Unmarshal(raw, &failure))
	assert.Equal(t, "RESET_TOKEN_INVALID", failure.Error.Code)

	// And the new password logs in.
	resp, _ = env.do(t, http.MethodPost, "/api/v1/users/login", "", fiber.Map{
		"email": "a@x.com", "password": "NewSecret9",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestForgotPasswordUnknownEmailEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodPost, "/api/v1/users/forgotPassword", "", fiber.Map{
		"email": "nobody@x.com",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateMyPasswordEndpoint(t *testing.T) {
	env := newTestEnv(t)
	session := env.signup(t, "Ada", "a@x.com", "Secret123")

	resp, raw := env.do(t, http.MethodPatch, "/api/v1/users/updateMyPassword", session.Data.Auth.Token, fiber.Map{
		"passwordCurrent": "WrongPass1", "password": "NewSecret9", "passwordConfirm": "NewSecret9",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, string(raw))

	resp, raw = env.do(t, http.MethodPatch, "/api/v1/users/updateMyPassword", session.Data.Auth.Token, fiber.Map{
		"passwordCurrent": "Secret123", "password": "NewSecret9", "passwordConfirm": "NewSecret9",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var renewed sessionEnvelope
	require.NoError(t, json.Unmarshal(raw, &renewed))
	assert.NotEmpty(t, renewed.Data.Auth.Token)
}

func TestMeAndUpdateMeEndpoints(t *testing.T) {
	env := newTestEnv(t)
	session := env.signup(t, "Ada", "a@x.com", "Secret123")

	resp, raw := env.do(t, http.MethodGet, "/api/v1/users/me", session.Data.Auth.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	// Password traffic on the profile route is refused.
	resp, raw = env.do(t, http.MethodPatch, "/api/v1/users/updateMe", session.Data.Auth.Token, fiber.Map{
		"password": "NewSecret9", "passwordConfirm": "NewSecret9",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(raw))

	resp, raw = env.do(t, http.MethodPatch, "/api/v1/users/updateMe", session.Data.Auth.Token, fiber.Map{
		"name": "Ada Lovelace",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var updated sessionEnvelope
	require.NoError(t, json.Unmarshal(raw, &updated))
	assert.Equal(t, "Ada Lovelace", updated.Data.User.Name)
}

func TestDeleteMeEndpoint(t *testing.T) {
	env := newTestEnv(t)
	session := env.signup(t, "Ada", "a@x.com", "Secret123")

	resp, _ := env.do(t, http.MethodDelete, "/api/v1/users/deleteMe", session.Data.Auth.Token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// The session dies with the account.
	resp, _ = env.do(t, http.MethodGet, "/api/v1/users/me", session.Data.Auth.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminRoutesAreRoleGated(t *testing.T) {
	env := newTestEnv(t)
	session := env.signup(t, "Ada", "a@x.com", "Secret123")

	resp, raw := env.do(t, http.MethodGet, "/api/v1/users", session.Data.Auth.Token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	var failure errorEnvelope
	require.NoError(t, json.Unmarshal(raw, &failure))
	assert.Equal(t, "FORBIDDEN", failure.Error.Code)

	admin := &domain.User{ID: "admin-1", Name: "Root", Email: "root@x.com", Role: domain.RoleAdmin, Active: true}
	env.store.Seed(admin)
	adminToken, _, err := env.auth.TokenManager().Issue(admin.ID)
	require.NoError(t, err)

	resp, _ = env.do(t, http.MethodGet, "/api/v1/users", adminToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Unauthenticated requests never reach the role check.
	resp, _ = env.do(t, http.MethodGet, "/api/v1/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// extractSecret pulls the raw reset secret out of a delivered email body.
func extractSecret(body string) string {
	_, after, found := strings.Cut(body, "/resetPassword/")
	if !found {
		return ""
	}
	if idx := strings.IndexAny(after, " \n\r\t"); idx >= 0 {
		return after[:idx]
	}
	return after
}
