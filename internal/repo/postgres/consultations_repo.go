package postgres

import (
	"context"
	"errors"

	"github.com/campusdesk/consulthub/internal/domain/consultation"
	"github.com/campusdesk/consulthub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ConsultationsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewConsultationsRepo(pool *pgxpool.Pool, prom *observability.Prom) *ConsultationsRepo {
	return &ConsultationsRepo{pool: pool, prom: prom}
}

func (r *ConsultationsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const viewColumns = `
	c.id, c.student_id, c.consultant_id, c.topic, c.description,
	c.recipient_type, c.status, c.reply, c.created_at, c.updated_at,
	s.name, s.email, r.name, r.email`

const viewJoins = `
	FROM consultations c
	JOIN users s ON s.id = c.student_id
	LEFT JOIN users r ON r.id = c.consultant_id`

func scanView(row pgx.Row) (consultation.View, error) {
	var v consultation.View

	err := row.Scan(
		&v.ID, &v.StudentID, &v.ConsultantID, &v.Topic, &v.Description,
		&v.RecipientType, &v.Status, &v.Reply, &v.CreatedAt, &v.UpdatedAt,
		&v.StudentName, &v.StudentEmail, &v.ConsultantName, &v.ConsultantEmail,
	)

	return v, err
}

func (r *ConsultationsRepo) Create(ctx context.Context, c consultation.Consultation) (consultation.Consultation, error) {
	err := r.observe("consultations.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO consultations
			   (id, student_id, consultant_id, topic, description, recipient_type, status, reply, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			c.ID, c.StudentID, c.ConsultantID, c.Topic, c.Description,
			c.RecipientType, c.Status, c.Reply, c.CreatedAt, c.UpdatedAt,
		)
		return err
	})

	if err != nil {
		return consultation.Consultation{}, err
	}

	return c, nil
}

// CreateBatch inserts the fan-out rows in one transaction so a failure
// midway never leaves a partial broadcast behind.
func (r *ConsultationsRepo) CreateBatch(ctx context.Context, records []consultation.Consultation) error {
	return r.observe("consultations.create_batch", func() error {
		tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})

		if err != nil {
			return err
		}

		defer func() { _ = tx.Rollback(ctx) }()

		for _, c := range records {
			_, err = tx.Exec(ctx,
				`INSERT INTO consultations
				   (id, student_id, consultant_id, topic, description, recipient_type, status, reply, created_at, updated_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
				c.ID, c.StudentID, c.ConsultantID, c.Topic, c.Description,
				c.RecipientType, c.Status, c.Reply, c.CreatedAt, c.UpdatedAt,
			)

			if err != nil {
				return err
			}
		}

		return tx.Commit(ctx)
	})
}

func (r *ConsultationsRepo) ListByStudent(ctx context.Context, studentID string) ([]consultation.View, error) {
	return r.list(ctx, "consultations.list_by_student",
		`SELECT `+viewColumns+viewJoins+`
		 WHERE c.student_id = $1
		 ORDER BY c.created_at DESC, c.id DESC`,
		studentID,
	)
}

// ListAll is the consultant-facing broad read: every consultation,
// not just the ones assigned to the caller.
func (r *ConsultationsRepo) ListAll(ctx context.Context) ([]consultation.View, error) {
	return r.list(ctx, "consultations.list_all",
		`SELECT `+viewColumns+viewJoins+`
		 ORDER BY c.created_at DESC, c.id DESC`,
	)
}

func (r *ConsultationsRepo) ListByTeacher(ctx context.Context, teacherID string) ([]consultation.View, error) {
	return r.list(ctx, "consultations.list_by_teacher",
		`SELECT `+viewColumns+viewJoins+`
		 WHERE c.consultant_id = $1 AND c.recipient_type = $2
		 ORDER BY c.created_at DESC, c.id DESC`,
		teacherID, consultation.RecipientTeacher,
	)
}

func (r *ConsultationsRepo) list(ctx context.Context, op, query string, args ...interface{}) ([]consultation.View, error) {
	var out []consultation.View

	err := r.observe(op, func() error {
		rows, err := r.pool.Query(ctx, query, args...)

		if err != nil {
			return err
		}

		defer rows.Close()

		out = make([]consultation.View, 0)

		for rows.Next() {
			v, err := scanView(rows)

			if err != nil {
				return err
			}

			out = append(out, v)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *ConsultationsRepo) GetByID(ctx context.Context, id string) (consultation.View, error) {
	var v consultation.View

	err := r.observe("consultations.get_by_id", func() error {
		var err error
		v, err = scanView(r.pool.QueryRow(ctx,
			`SELECT `+viewColumns+viewJoins+` WHERE c.id = $1`,
			id,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return consultation.View{}, consultation.ErrNotFound
		}

		return consultation.View{}, err
	}

	return v, nil
}

func (r *ConsultationsRepo) UpdateStatusReply(ctx context.Context, id, status string, reply *string) (consultation.Consultation, error) {
	var c consultation.Consultation

	err := r.observe("consultations.update_status_reply", func() error {
		return r.pool.QueryRow(ctx,
			`UPDATE consultations
			    SET status = $2,
			        reply = COALESCE($3, reply),
			        updated_at = NOW()
			  WHERE id = $1
			  RETURNING id, student_id, consultant_id, topic, description,
			            recipient_type, status, reply, created_at, updated_at`,
			id, status, reply,
		).Scan(
			&c.ID, &c.StudentID, &c.ConsultantID, &c.Topic, &c.Description,
			&c.RecipientType, &c.Status, &c.Reply, &c.CreatedAt, &c.UpdatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return consultation.Consultation{}, consultation.ErrNotFound
		}

		return consultation.Consultation{}, err
	}

	return c, nil
}

// UpdateDetails rewrites topic/description only while the request is still
// pending; the status guard lives in the query so a concurrent approval
// cannot race past it.
func (r *ConsultationsRepo) UpdateDetails(ctx context.Context, id, topic, description string) (consultation.Consultation, error) {
	var c consultation.Consultation

	err := r.observe("consultations.update_details", func() error {
		return r.pool.QueryRow(ctx,
			`UPDATE consultations
			    SET topic = $2,
			        description = $3,
			        updated_at = NOW()
			  WHERE id = $1 AND status = $4
			  RETURNING id, student_id, consultant_id, topic, description,
			            recipient_type, status, reply, created_at, updated_at`,
			id, topic, description, consultation.StatusPending,
		).Scan(
			&c.ID, &c.StudentID, &c.ConsultantID, &c.Topic, &c.Description,
			&c.RecipientType, &c.Status, &c.Reply, &c.CreatedAt, &c.UpdatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either the row is gone or it is no longer pending; the
			// caller has already loaded the record and tells them apart.
			return consultation.Consultation{}, consultation.ErrNotPending
		}

		return consultation.Consultation{}, err
	}

	return c, nil
}

func (r *ConsultationsRepo) Delete(ctx context.Context, id string) error {
	return r.observe("consultations.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM consultations WHERE id = $1`, id)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return consultation.ErrNotFound
		}

		return nil
	})
}

func (r *ConsultationsRepo) StatsByStudent(ctx context.Context, studentID string) (consultation.Stats, error) {
	var s consultation.Stats

	err := r.observe("consultations.stats_by_student", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT COUNT(*),
			        COUNT(*) FILTER (WHERE status = $2),
			        COUNT(*) FILTER (WHERE status = $3)
			   FROM consultations
			  WHERE student_id = $1`,
			studentID, consultation.StatusPending, consultation.StatusApproved,
		).Scan(&s.TotalConsultations, &s.PendingRequests, &s.ApprovedConsultations)
	})

	if err != nil {
		return consultation.Stats{}, err
	}

	return s, nil
}
