package db

import (
	"context"
	"errors"
	"time"

	"github.com/campusdesk/consulthub/internal/config"
	"github.com/campusdesk/consulthub/internal/domain/user"
	"github.com/campusdesk/consulthub/internal/security"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureConsultantUser seeds one consultant account from the environment
// so first-match recipient resolution has somewhere to route requests.
// A no-op when the env vars are unset or the account already exists.
func EnsureConsultantUser(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if cfg.SeedConsultantEmail == "" || cfg.SeedConsultantPassword == "" {
		return nil
	}

	var dummy string

	err := pool.QueryRow(ctx, `SELECT id FROM users WHERE email = lower($1)`, cfg.SeedConsultantEmail).Scan(&dummy)

	if err == nil {
		return nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := security.HashPassword(cfg.SeedConsultantPassword)

	if err != nil {
		return err
	}

	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Name:         cfg.SeedConsultantName,
		Email:        cfg.SeedConsultantEmail,
		PasswordHash: hash,
		Role:         user.RoleConsultant,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO users (id, name, email, password_hash, role, created_at, updated_at)
		 VALUES ($1, $2, lower($3), $4, $5, $6, $7)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.CreatedAt, u.UpdatedAt,
	)

	return err
}
