package http

import (
	"context"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/jwt-auth-service/internal/api/http/handlers"
	"github.com/spec-kit/jwt-auth-service/internal/auth"
	"github.com/spec-kit/jwt-auth-service/internal/config"
	"github.com/spec-kit/jwt-auth-service/internal/domain"
	"github.com/spec-kit/jwt-auth-service/internal/events"
	"github.com/spec-kit/jwt-auth-service/internal/observability"
	"github.com/spec-kit/jwt-auth-service/internal/repository"
	"github.com/spec-kit/jwt-auth-service/internal/service"
)

type memoryUsers struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func (m *memoryUsers) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username {
			return repository.ErrDuplicateUsername
		}
	}
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *memoryUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, pgx.ErrNoRows
}

func (m *memoryUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memoryUsers) grant(username string, authority domain.Authority) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			u.Roles = append(u.Roles, string(authority))
		}
	}
}

type testServer struct {
	app     *fiber.App
	users   *memoryUsers
	metrics *observability.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	users := &memoryUsers{users: make(map[string]*domain.User)}

	tokens, err := auth.NewTokenProvider([]byte("router-test-secret"), 30*time.Minute,
		auth.WithLogger(logger), auth.WithMetrics(metrics))
	require.NoError(t, err)

	dispatcher := events.NewInMemoryDispatcher()
	service.NewAuditService(dispatcher, logger).RegisterHandlers()

	authService := service.NewAuthService(config.AuthConfig{BcryptCost: 4}, service.AuthDependencies{
		UserRepo:   users,
		Tokens:     tokens,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	resolver := service.NewUserDetailsService(users, nil, 0, logger)

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Users:          handlers.NewUsersHandler(authService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, resolver, logger),
	})
	return &testServer{app: app, users: users, metrics: metrics}
}

func (s *testServer) do(t *testing.T, method, path, body string, headers map[string]string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	}
	return resp.StatusCode, decoded
}

func (s *testServer) signUpAndIn(t *testing.T, username string) string {
	t.Helper()
	status, _ := s.do(t, nethttp.MethodPost, "/v1/signup",
		`{"username":"`+username+`","name":"Test","password":"pa55word"}`, nil)
	require.Equal(t, nethttp.StatusCreated, status)

	return s.signIn(t, username)
}

func (s *testServer) signIn(t *testing.T, username string) string {
	t.Helper()
	status, body := s.do(t, nethttp.MethodPost, "/v1/signin",
		`{"username":"`+username+`","password":"pa55word"}`, nil)
	require.Equal(t, nethttp.StatusOK, status)
	authBody := body["data"].(map[string]any)["auth"].(map[string]any)
	token := authBody["token"].(string)
	require.NotEmpty(t, token)
	require.NotEmpty(t, authBody["expires_at"])
	return token
}

func TestFlow_SignUpSignInMe(t *testing.T) {
	s := newTestServer(t)
	token := s.signUpAndIn(t, "alice")

	status, body := s.do(t, nethttp.MethodGet, "/v1/me", "", map[string]string{auth.HeaderAuthToken: token})
	require.Equal(t, nethttp.StatusOK, status)
	data := body["data"].(map[string]any)
	require.Equal(t, "alice", data["user"].(map[string]any)["username"])
	require.Equal(t, []any{"ROLE_USER"}, data["authorities"])

	require.EqualValues(t, 1, s.metrics.Snapshot().TokensIssued)
}

func TestMe_RejectsMissingAndBearerScheme(t *testing.T) {
	s := newTestServer(t)
	token := s.signUpAndIn(t, "alice")

	status, body := s.do(t, nethttp.MethodGet, "/v1/me", "", nil)
	require.Equal(t, nethttp.StatusUnauthorized, status)
	require.Equal(t, "UNAUTHORIZED", body["error"].(map[string]any)["code"])

	status, _ = s.do(t, nethttp.MethodGet, "/v1/me", "", map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, nethttp.StatusUnauthorized, status)

	status, _ = s.do(t, nethttp.MethodGet, "/v1/me", "", map[string]string{auth.HeaderAuthToken: "not-a-token"})
	require.Equal(t, nethttp.StatusUnauthorized, status)
	require.EqualValues(t, 1, s.metrics.Snapshot().TokensRejected["malformed"])
}

func TestAdminPing_RequiresAuthority(t *testing.T) {
	s := newTestServer(t)
	token := s.signUpAndIn(t, "alice")

	status, body := s.do(t, nethttp.MethodGet, "/v1/admin/ping", "", map[string]string{auth.HeaderAuthToken: token})
	require.Equal(t, nethttp.StatusForbidden, status)
	require.Equal(t, "FORBIDDEN", body["error"].(map[string]any)["code"])

	s.users.grant("alice", domain.AuthorityAdmin)
	status, _ = s.do(t, nethttp.MethodGet, "/v1/admin/ping", "", map[string]string{auth.HeaderAuthToken: token})
	require.Equal(t, nethttp.StatusOK, status)
}

func TestSignUp_Errors(t *testing.T) {
	s := newTestServer(t)
	s.signUpAndIn(t, "alice")

	status, body := s.do(t, nethttp.MethodPost, "/v1/signup", `{"username":"alice","name":"A","password":"x"}`, nil)
	require.Equal(t, nethttp.StatusConflict, status)
	require.Equal(t, "CONFLICT", body["error"].(map[string]any)["code"])

	status, _ = s.do(t, nethttp.MethodPost, "/v1/signup", `{"username":"bob"}`, nil)
	require.Equal(t, nethttp.StatusBadRequest, status)
}

func TestSignIn_BadCredentials(t *testing.T) {
	s := newTestServer(t)
	s.signUpAndIn(t, "alice")

	status, body := s.do(t, nethttp.MethodPost, "/v1/signin", `{"username":"alice","password":"nope"}`, nil)
	require.Equal(t, nethttp.StatusUnauthorized, status)
	require.Equal(t, "invalid credentials", body["error"].(map[string]any)["message"])

	status, _ = s.do(t, nethttp.MethodPost, "/v1/signin", `{"username":""}`, nil)
	require.Equal(t, nethttp.StatusBadRequest, status)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)
	status, body := s.do(t, nethttp.MethodGet, "/nope", "", nil)
	require.Equal(t, nethttp.StatusNotFound, status)
	require.Equal(t, "NOT_FOUND", body["error"].(map[string]any)["code"])
}
