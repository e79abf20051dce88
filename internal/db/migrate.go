package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate applies the schema idempotently at startup. Two tables only;
// anything past that should move to versioned migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            uuid PRIMARY KEY,
			name          text NOT NULL,
			email         text NOT NULL UNIQUE,
			password_hash text NOT NULL,
			role          text NOT NULL CHECK (role IN ('Student','Consultant','Teacher')),
			created_at    timestamptz NOT NULL,
			updated_at    timestamptz NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS consultations (
			id             uuid PRIMARY KEY,
			student_id     uuid NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			consultant_id  uuid REFERENCES users(id) ON DELETE SET NULL,
			topic          text NOT NULL,
			description    text NOT NULL,
			recipient_type text NOT NULL DEFAULT 'Consultant' CHECK (recipient_type IN ('Consultant','Teacher')),
			status         text NOT NULL DEFAULT 'Pending' CHECK (status IN ('Pending','Approved','Rejected')),
			reply          text NOT NULL DEFAULT '',
			created_at     timestamptz NOT NULL,
			updated_at     timestamptz NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_consultations_student ON consultations (student_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_consultations_recipient ON consultations (consultant_id, recipient_type)`,
		`CREATE INDEX IF NOT EXISTS idx_users_role ON users (role, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}

	return nil
}
