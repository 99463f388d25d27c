package account_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-account"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	app   *fiber.App
	repo  account.RepositoryManager
	clock *testClock
}

func newTestServer(t *testing.T, opts ...account.UserControllerOption) *testServer {
	t.Helper()

	clock := newTestClock(time.Now().UTC())
	repo := account.NewRepositoryManager(newTestDB(t))

	srv, app := newRouterServer(t, nopLogger{})

	base := []account.UserControllerOption{
		account.WithRepo(repo),
		account.WithConfig(newMockConfig()),
		account.WithHasher(newTestHasher()),
		account.WithLogger(nopLogger{}),
		account.WithClock(clock.Now),
	}

	account.RegisterUserRoutes(srv.Router().Group("/api/users"), append(base, opts...)...)
	mountRoutes(srv)

	return &testServer{app: app, repo: repo, clock: clock}
}

func (s *testServer) do(t *testing.T, req *http.Request) (int, map[string]any, string) {
	t.Helper()

	res, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	body := map[string]any{}
	_ = json.Unmarshal(raw, &body)
	return res.StatusCode, body, string(raw)
}

func jsonRequest(method, path string, payload any) *http.Request {
	var body io.Reader
	if payload != nil {
		b, _ := json.Marshal(payload)
		body = strings.NewReader(string(b))
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

func (s *testServer) register(t *testing.T, name, email, password string) (int, map[string]any) {
	code, body, _ := s.do(t, jsonRequest(http.MethodPost, "/api/users/register", map[string]string{
		"name":      name,
		"email":     email,
		"password":  password,
		"password2": password,
	}))
	return code, body
}

func (s *testServer) login(t *testing.T, email, password string) (int, map[string]any) {
	code, body, _ := s.do(t, jsonRequest(http.MethodPost, "/api/users/login", map[string]string{
		"email":    email,
		"password": password,
	}))
	return code, body
}

func (s *testServer) current(t *testing.T, authorization string) (int, map[string]any, string) {
	req := httptest.NewRequest(http.MethodGet, "/api/users/current", nil)
	if authorization != "" {
		req.Header.Set(fiber.HeaderAuthorization, authorization)
	}
	return s.do(t, req)
}

func TestUserRoutes_Test(t *testing.T) {
	srv := newTestServer(t)

	code, body, _ := srv.do(t, httptest.NewRequest(http.MethodGet, "/api/users/test", nil))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"msg": "Users Works"}, body)
}

func TestUserRoutes_Register(t *testing.T) {
	srv := newTestServer(t)

	t.Run("creates the user", func(t *testing.T) {
		code, body := srv.register(t, "Jane", "jane@example.com", "secret1")
		require.Equal(t, http.StatusOK, code)

		assert.Equal(t, "Jane", body["name"])
		assert.Equal(t, "jane@example.com", body["email"])
		assert.Equal(t, account.AvatarURL("jane@example.com", account.DefaultAvatarOptions), body["avatar"])
		assert.NotEmpty(t, body["id"])
		assert.NotEmpty(t, body["date"])
		assert.NotContains(t, body, "password")
	})

	t.Run("duplicate email", func(t *testing.T) {
		code, body := srv.register(t, "Other", "jane@example.com", "secret2")
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, map[string]any{
			"errors": map[string]any{"email": "Email already exists"},
		}, body)
	})

	t.Run("validation errors", func(t *testing.T) {
		code, body, _ := srv.do(t, jsonRequest(http.MethodPost, "/api/users/register", map[string]string{
			"name":      "J",
			"email":     "nope",
			"password":  "secret1",
			"password2": "secret2",
		}))
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, map[string]any{
			"name":      "Name must be between 2 and 30 characters",
			"email":     "Email is invalid",
			"password2": "Passwords must match",
		}, body)
	})

	t.Run("empty body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/users/register", nil)
		code, body, _ := srv.do(t, req)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "Name field is required", body["name"])
		assert.Equal(t, "Confirm Password field is required", body["password2"])
	})

	t.Run("unparseable body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/users/register", strings.NewReader("{"))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		code, body, _ := srv.do(t, req)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Contains(t, body, "error")
	})

	t.Run("form encoded body", func(t *testing.T) {
		form := url.Values{}
		form.Set("name", "Form User")
		form.Set("email", "form@example.com")
		form.Set("password", "secret1")
		form.Set("password2", "secret1")

		req := httptest.NewRequest(http.MethodPost, "/api/users/register", strings.NewReader(form.Encode()))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)

		code, body, _ := srv.do(t, req)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "form@example.com", body["email"])
	})
}

func TestUserRoutes_RegisterLegacyResponse(t *testing.T) {
	srv := newTestServer(t, account.WithLegacyRegisterResponse(true))

	code, body := srv.register(t, "Jane", "jane@example.com", "secret1")
	require.Equal(t, http.StatusOK, code)

	hash, ok := body["password"].(string)
	require.True(t, ok)
	assert.NotEqual(t, "secret1", hash)
	assert.NoError(t, account.ComparePasswordAndHash("secret1", hash))
}

func TestUserRoutes_Login(t *testing.T) {
	srv := newTestServer(t)
	code, _ := srv.register(t, "Jane", "jane@example.com", "secret1")
	require.Equal(t, http.StatusOK, code)

	t.Run("unknown email", func(t *testing.T) {
		code, body := srv.login(t, "nobody@example.com", "secret1")
		assert.Equal(t, http.StatusNotFound, code)
		assert.Equal(t, map[string]any{"email": "User not found"}, body)
	})

	t.Run("wrong password", func(t *testing.T) {
		code, body := srv.login(t, "jane@example.com", "wrong-password")
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, map[string]any{"password": "Password incorrect"}, body)
	})

	t.Run("validation errors", func(t *testing.T) {
		code, body := srv.login(t, "", "")
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, map[string]any{
			"email":    "Email field is required",
			"password": "Password field is required",
		}, body)
	})

	t.Run("success", func(t *testing.T) {
		code, body := srv.login(t, "jane@example.com", "secret1")
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, true, body["success"])

		token, _ := body["token"].(string)
		assert.True(t, strings.HasPrefix(token, "Bearer "))
		assert.Greater(t, len(token), len("Bearer "))
	})
}

func TestUserRoutes_LoginThrottled(t *testing.T) {
	srv := newTestServer(t, account.WithLoginLimiter(
		account.NewMemoryLoginLimiter(account.LimiterConfig{MaxAttempts: 1, Cooldown: time.Hour}, nil),
	))
	code, _ := srv.register(t, "Jane", "jane@example.com", "secret1")
	require.Equal(t, http.StatusOK, code)

	code, _ = srv.login(t, "jane@example.com", "wrong")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body := srv.login(t, "jane@example.com", "secret1")
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, account.MsgTooManyAttempts, body["email"])
}

func TestUserRoutes_Current(t *testing.T) {
	srv := newTestServer(t)
	code, registered := srv.register(t, "Jane", "jane@example.com", "secret1")
	require.Equal(t, http.StatusOK, code)

	code, body := srv.login(t, "jane@example.com", "secret1")
	require.Equal(t, http.StatusOK, code)
	token := body["token"].(string)

	t.Run("valid token", func(t *testing.T) {
		code, body, _ := srv.current(t, token)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, map[string]any{
			"id":    registered["id"],
			"name":  "Jane",
			"email": "jane@example.com",
		}, body)
	})

	t.Run("missing token", func(t *testing.T) {
		code, _, raw := srv.current(t, "")
		assert.Equal(t, http.StatusUnauthorized, code)
		assert.Equal(t, "Unauthorized", raw)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		code, _, _ := srv.current(t, "Token "+strings.TrimPrefix(token, "Bearer "))
		assert.Equal(t, http.StatusUnauthorized, code)
	})

	t.Run("scheme only", func(t *testing.T) {
		code, _, _ := srv.current(t, "Bearer ")
		assert.Equal(t, http.StatusUnauthorized, code)
	})

	t.Run("tampered token", func(t *testing.T) {
		parts := strings.Split(strings.TrimPrefix(token, "Bearer "), ".")
		require.Len(t, parts, 3)
		parts[1] = parts[1] + "x"
		code, _, raw := srv.current(t, "Bearer "+strings.Join(parts, "."))
		assert.Equal(t, http.StatusUnauthorized, code)
		assert.NotContains(t, raw, "jane@example.com")
	})

	t.Run("user no longer exists", func(t *testing.T) {
		tokens := account.NewTokenService(newMockConfig(), account.WithTokenClock(srv.clock.Now))
		ghost := &account.User{ID: uuid.New(), Name: "Ghost"}
		signed, err := tokens.SignClaims(tokens.NewClaims(ghost))
		require.NoError(t, err)

		code, _, _ := srv.current(t, "Bearer "+signed)
		assert.Equal(t, http.StatusUnauthorized, code)
	})

	t.Run("expired token", func(t *testing.T) {
		srv.clock.Advance(time.Hour + time.Second)
		code, _, _ := srv.current(t, token)
		assert.Equal(t, http.StatusUnauthorized, code)
	})
}

func TestRegisterUserRoutes_PanicsWithoutRepo(t *testing.T) {
	srv, _ := newRouterServer(t, nopLogger{})
	assert.Panics(t, func() {
		account.RegisterUserRoutes(srv.Router().Group("/api/users"), account.WithConfig(newMockConfig()))
	})
}

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: account.ErrorHandler(nopLogger{})})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return account.ErrUserNotFound
	})
	app.Get("/fiber", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res, err = app.Test(httptest.NewRequest(http.MethodGet, "/fiber", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, res.StatusCode)

	res, err = app.Test(httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}
