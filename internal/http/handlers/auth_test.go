package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/campusdesk/consulthub/internal/domain/user"
	"github.com/campusdesk/consulthub/internal/security"
	"github.com/gin-gonic/gin"
)

type fakeUserStore struct {
	createErr error
	created   *user.User
	byEmail   map[string]user.User
}

func (f *fakeUserStore) Create(_ context.Context, u user.User) (user.User, error) {
	if f.createErr != nil {
		return user.User{}, f.createErr
	}
	f.created = &u
	return u, nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (user.User, error) {
	u, ok := f.byEmail[strings.ToLower(email)]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

type fakeIssuer struct {
	token string
	err   error
}

func (f *fakeIssuer) GenerateAccessToken(_, _, _ string) (string, error) {
	return f.token, f.err
}

func newAuthTestRouter(store *fakeUserStore, issuer *fakeIssuer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewAuthHandler(store, issuer)
	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v (%s)", err, body)
	}
	return envelope.Error.Code
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		createErr  error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "success",
			body:       `{"name":"Alice","email":"alice@example.com","password":"supersecret","role":"Student"}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "duplicate_email",
			body:       `{"name":"Alice","email":"alice@example.com","password":"supersecret","role":"Student"}`,
			createErr:  user.ErrEmailTaken,
			wantStatus: http.StatusConflict,
			wantCode:   "email_taken",
		},
		{
			name:       "invalid_role",
			body:       `{"name":"Alice","email":"alice@example.com","password":"supersecret","role":"Admin"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_request",
		},
		{
			name:       "short_password",
			body:       `{"name":"Alice","email":"alice@example.com","password":"short","role":"Student"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_request",
		},
		{
			name:       "missing_email",
			body:       `{"name":"Alice","password":"supersecret","role":"Student"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_request",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeUserStore{createErr: tc.createErr}
			r := newAuthTestRouter(store, &fakeIssuer{token: "tok"})

			rec := doJSON(t, r, http.MethodPost, "/auth/register", tc.body)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.wantStatus, rec.Body)
			}
			if tc.wantCode != "" {
				if got := errorCode(t, rec.Body.Bytes()); got != tc.wantCode {
					t.Fatalf("error code = %q, want %q", got, tc.wantCode)
				}
			}
		})
	}
}

func TestRegisterResponseHidesPasswordHash(t *testing.T) {
	store := &fakeUserStore{}
	r := newAuthTestRouter(store, &fakeIssuer{token: "tok"})

	rec := doJSON(t, r, http.MethodPost, "/auth/register",
		`{"name":"Alice","email":"alice@example.com","password":"supersecret","role":"Student"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (%s)", rec.Code, rec.Body)
	}
	if strings.Contains(rec.Body.String(), "passwordHash") || strings.Contains(rec.Body.String(), "supersecret") {
		t.Fatalf("response leaks credentials: %s", rec.Body)
	}
	if store.created == nil {
		t.Fatal("user was not persisted")
	}
	if store.created.PasswordHash == "supersecret" {
		t.Fatal("password stored in plaintext")
	}
}

func TestLogin(t *testing.T) {
	hash, err := security.HashPassword("supersecret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	known := user.User{
		ID:           "u-1",
		Email:        "alice@example.com",
		PasswordHash: hash,
		Role:         user.RoleStudent,
	}

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "success",
			body:       `{"email":"alice@example.com","password":"supersecret"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "wrong_password",
			body:       `{"email":"alice@example.com","password":"not-the-one"}`,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "invalid_credentials",
		},
		{
			name:       "unknown_email",
			body:       `{"email":"nobody@example.com","password":"supersecret"}`,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "invalid_credentials",
		},
		{
			name:       "malformed_body",
			body:       `{"email":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_request",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeUserStore{byEmail: map[string]user.User{known.Email: known}}
			r := newAuthTestRouter(store, &fakeIssuer{token: "signed-token"})

			rec := doJSON(t, r, http.MethodPost, "/auth/login", tc.body)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.wantStatus, rec.Body)
			}
			if tc.wantCode != "" {
				if got := errorCode(t, rec.Body.Bytes()); got != tc.wantCode {
					t.Fatalf("error code = %q, want %q", got, tc.wantCode)
				}
				return
			}

			var resp struct {
				Token string `json:"token"`
				Role  string `json:"role"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if resp.Token != "signed-token" {
				t.Fatalf("token = %q", resp.Token)
			}
			if resp.Role != user.RoleStudent {
				t.Fatalf("role = %q", resp.Role)
			}
		})
	}
}

// Wrong password and unknown email must be byte-for-byte identical so the
// login endpoint cannot be used to probe which emails are registered.
func TestLoginFailureIsIndistinguishable(t *testing.T) {
	hash, err := security.HashPassword("supersecret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	store := &fakeUserStore{byEmail: map[string]user.User{
		"alice@example.com": {ID: "u-1", Email: "alice@example.com", PasswordHash: hash, Role: user.RoleStudent},
	}}
	r := newAuthTestRouter(store, &fakeIssuer{token: "tok"})

	wrongPassword := doJSON(t, r, http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"nope-nope"}`)
	unknownEmail := doJSON(t, r, http.MethodPost, "/auth/login", `{"email":"ghost@example.com","password":"nope-nope"}`)

	if wrongPassword.Code != http.StatusUnauthorized || unknownEmail.Code != http.StatusUnauthorized {
		t.Fatalf("statuses = %d, %d, want 401, 401", wrongPassword.Code, unknownEmail.Code)
	}
	if wrongPassword.Body.String() != unknownEmail.Body.String() {
		t.Fatalf("bodies differ:\n%s\n%s", wrongPassword.Body, unknownEmail.Body)
	}
}
