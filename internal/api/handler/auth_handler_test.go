package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/taskhive/taskhive-api/internal/core/domain"
	"github.com/taskhive/taskhive-api/internal/core/ports"
)

type stubAuthService struct {
	registerFn func(ctx context.Context, in ports.RegisterInput) (string, *domain.User, error)
	loginFn    func(ctx context.Context, usernameOrEmail, password string) (string, *domain.User, error)
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (string, *domain.User, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, usernameOrEmail, password string) (string, *domain.User, error) {
	return s.loginFn(ctx, usernameOrEmail, password)
}

func newTestContext(t *testing.T, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestAuthHandler_Register_Success(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(_ context.Context, in ports.RegisterInput) (string, *domain.User, error) {
			if in.Username != "alice" || in.Email != "alice@example.com" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return "token-123", &domain.User{ID: "u1", Name: in.Name, Username: in.Username, Email: in.Email, Role: domain.RoleUser}, nil
		},
	}
	h := NewAuthHandler(stub)

	c, rec := newTestContext(t, http.MethodPost, "/api/auth/register",
		`{"name":"Alice","username":"alice","email":"alice@example.com","password":"s3cret1"}`)

	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["token"] != "token-123" {
		t.Fatalf("expected token in response, got %v", resp["token"])
	}
	user, ok := resp["user"].(map[string]any)
	if !ok || user["username"] != "alice" || user["role"] != domain.RoleUser {
		t.Fatalf("unexpected user payload: %+v", resp["user"])
	}
	if _, leaked := user["passwordHash"]; leaked {
		t.Fatalf("password hash must never be serialized")
	}
}

func TestAuthHandler_Register_Duplicate(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(context.Context, ports.RegisterInput) (string, *domain.User, error) {
			return "", nil, domain.ErrUserExists
		},
	}
	h := NewAuthHandler(stub)

	c, rec := newTestContext(t, http.MethodPost, "/api/auth/register",
		`{"name":"Bob","username":"bob","email":"bob@example.com","password":"s3cret1"}`)

	_ = h.Register(c)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAuthHandler_Register_InvalidBody(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(context.Context, ports.RegisterInput) (string, *domain.User, error) {
			t.Fatalf("should not be called")
			return "", nil, nil
		},
	}
	h := NewAuthHandler(stub)

	cases := []struct {
		name string
		body string
	}{
		{"not json", "not-json"},
		{"missing email", `{"name":"Bob","username":"bob","password":"s3cret1"}`},
		{"short password", `{"name":"Bob","username":"bob","email":"bob@example.com","password":"abc"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newTestContext(t, http.MethodPost, "/api/auth/register", tc.body)
			_ = h.Register(c)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestAuthHandler_Login_IdentifierAliases(t *testing.T) {
	var gotIdentifier string
	stub := &stubAuthService{
		loginFn: func(_ context.Context, usernameOrEmail, password string) (string, *domain.User, error) {
			gotIdentifier = usernameOrEmail
			return "token-123", &domain.User{ID: "u1", Username: "carol", Role: domain.RoleUser}, nil
		},
	}
	h := NewAuthHandler(stub)

	cases := []struct {
		name string
		body string
		want string
	}{
		{"canonical field", `{"usernameOrEmail":"carol","password":"s3cret1"}`, "carol"},
		{"legacy username", `{"username":"carol","password":"s3cret1"}`, "carol"},
		{"legacy email", `{"email":"carol@example.com","password":"s3cret1"}`, "carol@example.com"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newTestContext(t, http.MethodPost, "/api/auth/login", tc.body)
			if err := h.Login(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			if gotIdentifier != tc.want {
				t.Fatalf("expected identifier %q, got %q", tc.want, gotIdentifier)
			}
		})
	}
}

func TestAuthHandler_Login_Failures(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(context.Context, string, string) (string, *domain.User, error) {
			return "", nil, domain.ErrInvalidCredentials
		},
	}
	h := NewAuthHandler(stub)

	// Bad credentials and missing fields both answer 400.
	c, rec := newTestContext(t, http.MethodPost, "/api/auth/login", `{"usernameOrEmail":"carol","password":"wrong"}`)
	_ = h.Login(c)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad credentials, got %d", rec.Code)
	}

	c, rec = newTestContext(t, http.MethodPost, "/api/auth/login", `{"usernameOrEmail":"carol"}`)
	_ = h.Login(c)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing password, got %d", rec.Code)
	}
}
