package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/userdirectory/userdir-api/internal/api/middleware"
	"github.com/userdirectory/userdir-api/internal/core/domain"
	"github.com/userdirectory/userdir-api/internal/core/service"
	"github.com/userdirectory/userdir-api/internal/infrastructure/password"
	"github.com/userdirectory/userdir-api/internal/infrastructure/token"
)

type memRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
	seq   int
}

func (r *memRepo) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == domain.NormalizeEmail(u.Email) {
			return nil, domain.ErrUserExists
		}
	}
	r.seq++
	stored := *u
	stored.ID = fmt.Sprintf("u%d", r.seq)
	stored.Email = domain.NormalizeEmail(u.Email)
	r.users[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (r *memRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == domain.NormalizeEmail(email) {
			out := *u
			return &out, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (r *memRepo) UpdatePassword(_ context.Context, id, hash string, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash, u.UpdatedAt = hash, updatedAt
	return nil
}

func (r *memRepo) List(_ context.Context) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u.Sanitized())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func newTestRouter(t *testing.T, strict bool) *echo.Echo {
	t.Helper()
	tokens, err := token.NewService("router-secret", time.Hour)
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	repo := &memRepo{users: make(map[string]*domain.User)}
	hasher := password.NewBcryptHasher(bcrypt.MinCost)

	return NewRouter(Deps{
		AuthService: service.NewAuthService(repo, hasher, tokens, nil, zerolog.Nop()),
		UserService: service.NewUserService(repo, nil, zerolog.Nop()),
		Tokens:      tokens,
		Guard:       middleware.GuardPolicy{Prefixes: middleware.DefaultProtectedPrefixes, Strict: strict},
		Logger:      zerolog.Nop(),
		Registry:    prometheus.NewRegistry(),
	})
}

func do(t *testing.T, e *echo.Echo, method, path, bearer, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return rec.Code, out
}

const janeForm = `{"firstName":"Jane","lastName":"Doe","email":"Jane@X.com","password":"secret1","confirmPassword":"secret1","terms":true}`

func TestRouter_AuthFlow(t *testing.T) {
	e := newTestRouter(t, false)

	code, body := do(t, e, http.MethodPost, "/auth/signup", "", janeForm)
	if code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d (%v)", code, body)
	}

	code, body = do(t, e, http.MethodPost, "/auth/signup", "", janeForm)
	if code != http.StatusBadRequest || body["error"] != "user with this email already exists" {
		t.Fatalf("duplicate signup: got %d (%v)", code, body)
	}

	code, body = do(t, e, http.MethodPost, "/auth/login", "", `{"email":"jane@x.com","password":"nope"}`)
	if code != http.StatusUnauthorized || body["error"] != "invalid credentials" {
		t.Fatalf("bad login: got %d (%v)", code, body)
	}

	code, body = do(t, e, http.MethodPost, "/auth/login", "", `{"email":"jane@x.com","password":"secret1"}`)
	if code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d (%v)", code, body)
	}
	first, _ := body["token"].(string)
	if first == "" {
		t.Fatalf("login returned no token: %v", body)
	}

	code, body = do(t, e, http.MethodGet, "/users", first, "")
	if code != http.StatusOK || body["count"] != float64(1) {
		t.Fatalf("users: got %d (%v)", code, body)
	}
	if strings.Contains(fmt.Sprint(body["users"]), "passwordHash") {
		t.Fatalf("hash leaked: %v", body["users"])
	}

	code, body = do(t, e, http.MethodPut, "/auth/update-password", first, `{"currentPassword":"wrong1","newPassword":"secret2"}`)
	if code != http.StatusUnauthorized || body["error"] != "current password is incorrect" {
		t.Fatalf("wrong current: got %d (%v)", code, body)
	}

	code, body = do(t, e, http.MethodPut, "/auth/update-password", "", `{"currentPassword":"secret1","newPassword":"secret2"}`)
	if code != http.StatusUnauthorized {
		t.Fatalf("no bearer: expected 401, got %d (%v)", code, body)
	}

	code, body = do(t, e, http.MethodPut, "/auth/update-password", first, `{"currentPassword":"secret1","newPassword":"secret2"}`)
	if code != http.StatusOK || body["message"] != "Password updated successfully" {
		t.Fatalf("update: got %d (%v)", code, body)
	}
	if refreshed, _ := body["token"].(string); refreshed == "" || refreshed == first {
		t.Fatalf("expected a fresh token, got %q", refreshed)
	}

	code, _ = do(t, e, http.MethodPost, "/auth/login", "", `{"email":"jane@x.com","password":"secret1"}`)
	if code != http.StatusUnauthorized {
		t.Fatalf("old password still accepted: %d", code)
	}
	code, _ = do(t, e, http.MethodPost, "/auth/login", "", `{"email":"jane@x.com","password":"secret2"}`)
	if code != http.StatusOK {
		t.Fatalf("new password rejected: %d", code)
	}

	code, body = do(t, e, http.MethodPost, "/auth/logout", first, "")
	if code != http.StatusOK || body["message"] != "Logout successful" {
		t.Fatalf("logout: got %d (%v)", code, body)
	}
}

func TestRouter_SignupValidationFields(t *testing.T) {
	e := newTestRouter(t, false)

	code, body := do(t, e, http.MethodPost, "/auth/signup", "",
		`{"firstName":"","lastName":"Doe","email":"not-an-email","password":"123","confirmPassword":"124","terms":false}`)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
	fields, ok := body["fields"].(map[string]any)
	if !ok {
		t.Fatalf("expected field errors, got %v", body)
	}
	for _, name := range []string{"firstName", "email", "password", "confirmPassword", "terms"} {
		if fields[name] == nil {
			t.Errorf("missing error for %s: %v", name, fields)
		}
	}
	if fields["lastName"] != nil {
		t.Errorf("lastName is valid: %v", fields["lastName"])
	}
}

func TestRouter_StrictGuardDeniesDirectory(t *testing.T) {
	e := newTestRouter(t, true)

	code, body := do(t, e, http.MethodGet, "/users", "", "")
	if code != http.StatusUnauthorized || body["error"] != "authentication required" {
		t.Fatalf("expected 401, got %d (%v)", code, body)
	}

	// Auth routes stay reachable.
	code, _ = do(t, e, http.MethodPost, "/auth/signup", "", janeForm)
	if code != http.StatusCreated {
		t.Fatalf("signup under strict guard: %d", code)
	}
}

func TestRouter_SoftGuardAllowsAnonymousDirectory(t *testing.T) {
	e := newTestRouter(t, false)

	code, body := do(t, e, http.MethodGet, "/users?search=zz", "", "")
	if code != http.StatusOK || body["count"] != float64(0) {
		t.Fatalf("expected empty directory, got %d (%v)", code, body)
	}
}

func TestRouter_OpsEndpoints(t *testing.T) {
	e := newTestRouter(t, false)

	code, body := do(t, e, http.MethodGet, "/health", "", "")
	if code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("health: got %d (%v)", code, body)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", rec.Code)
	}
}
