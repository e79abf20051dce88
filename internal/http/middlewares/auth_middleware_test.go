package middlewares_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/campusdesk/consulthub/internal/auth"
	"github.com/campusdesk/consulthub/internal/domain/user"
	"github.com/campusdesk/consulthub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVerifier struct {
	claims *auth.Claims
	err    error
}

func (f *fakeVerifier) VerifyAccessToken(string) (*auth.Claims, error) {
	return f.claims, f.err
}

type fakeUsers struct {
	user user.User
	err  error
}

func (f *fakeUsers) GetByID(context.Context, string) (user.User, error) {
	return f.user, f.err
}

func TestRequireAuth(t *testing.T) {
	tests := []struct {
		name       string
		authHeader string
		verifier   *fakeVerifier
		users      *fakeUsers
		wantStatus int
		wantRole   string
	}{
		{
			name:       "missing_header",
			authHeader: "",
			verifier:   &fakeVerifier{},
			users:      &fakeUsers{},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "invalid_token",
			authHeader: "Bearer bad",
			verifier:   &fakeVerifier{err: auth.ErrTokenInvalid},
			users:      &fakeUsers{},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "deleted_account",
			authHeader: "Bearer ok",
			verifier:   &fakeVerifier{claims: &auth.Claims{UserID: "gone", Role: user.RoleStudent}},
			users:      &fakeUsers{err: user.ErrNotFound},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "success",
			authHeader: "Bearer ok",
			verifier:   &fakeVerifier{claims: &auth.Claims{UserID: "u1", Role: user.RoleStudent}},
			users:      &fakeUsers{user: user.User{ID: "u1", Email: "a@x.com", Role: user.RoleStudent}},
			wantStatus: http.StatusOK,
			wantRole:   user.RoleStudent,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			m := middlewares.NewAuthMiddleware(tt.verifier, tt.users)

			var gotRole string

			r := gin.New()
			r.GET("/probe", m.RequireAuth(), func(c *gin.Context) {
				gotRole, _ = middlewares.RoleFromContext(c)
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/probe", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.wantRole != "" && gotRole != tt.wantRole {
				t.Fatalf("got role %q, want %q", gotRole, tt.wantRole)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	verifier := &fakeVerifier{claims: &auth.Claims{UserID: "u1"}}
	users := &fakeUsers{user: user.User{ID: "u1", Role: user.RoleTeacher}}

	m := middlewares.NewAuthMiddleware(verifier, users)

	r := gin.New()
	r.GET("/students-only", m.RequireAuth(), m.RequireRole(user.RoleStudent), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/recipients", m.RequireAuth(), m.RequireRole(user.RoleConsultant, user.RoleTeacher), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/students-only", nil)
	req.Header.Set("Authorization", "Bearer ok")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("teacher on student route: got %d, want 403", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/recipients", nil)
	req.Header.Set("Authorization", "Bearer ok")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("teacher on recipient route: got %d, want 200", w.Code)
	}
}
