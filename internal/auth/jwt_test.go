package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/campusdesk/consulthub/internal/auth"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	m := auth.NewManager("test-secret", time.Hour)

	raw, err := m.GenerateAccessToken("user-1", "alice@x.com", "Student")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := m.VerifyAccessToken(raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	if claims.UserID != "user-1" || claims.Role != "Student" || claims.Email != "alice@x.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyAccessTokenFailures(t *testing.T) {
	m := auth.NewManager("test-secret", time.Hour)

	tests := []struct {
		name    string
		token   func(t *testing.T) string
		wantErr error
	}{
		{
			name:    "missing",
			token:   func(t *testing.T) string { return "" },
			wantErr: auth.ErrTokenMissing,
		},
		{
			name:    "malformed",
			token:   func(t *testing.T) string { return "not.a.jwt" },
			wantErr: auth.ErrTokenMalformed,
		},
		{
			name: "expired",
			token: func(t *testing.T) string {
				expired := auth.NewManager("test-secret", -time.Minute)
				raw, err := expired.GenerateAccessToken("user-1", "alice@x.com", "Student")
				if err != nil {
					t.Fatalf("generate: %v", err)
				}
				return raw
			},
			wantErr: auth.ErrTokenInvalid,
		},
		{
			name: "wrong_secret",
			token: func(t *testing.T) string {
				other := auth.NewManager("other-secret", time.Hour)
				raw, err := other.GenerateAccessToken("user-1", "alice@x.com", "Student")
				if err != nil {
					t.Fatalf("generate: %v", err)
				}
				return raw
			},
			wantErr: auth.ErrTokenInvalid,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			_, err := m.VerifyAccessToken(tt.token(t))

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got err %v, want %v", err, tt.wantErr)
			}
		})
	}
}
