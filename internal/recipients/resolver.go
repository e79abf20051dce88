// Package recipients decides who a consultation request is routed to.
// The policy lives behind an interface so a load-balancing strategy can
// replace first-match without touching the consultation handlers.
package recipients

import (
	"context"
	"errors"

	"github.com/campusdesk/consulthub/internal/domain/consultation"
	"github.com/campusdesk/consulthub/internal/domain/user"
)

type UserDirectory interface {
	FirstByRole(ctx context.Context, role string) (user.User, error)
	ListByRole(ctx context.Context, role string) ([]user.User, error)
}

type Resolver interface {
	// ResolveOne picks a single recipient for the given recipient type.
	// Returns nil when no matching user exists; the request is still
	// created unassigned.
	ResolveOne(ctx context.Context, recipientType string) (*string, error)

	// ResolveAllTeachers returns every teacher for the broadcast path.
	// Fails with consultation.ErrNoTeachers when none exist.
	ResolveAllTeachers(ctx context.Context) ([]user.User, error)
}

// FirstMatch assigns the oldest registered user of the matching role.
type FirstMatch struct {
	users UserDirectory
}

func NewFirstMatch(users UserDirectory) *FirstMatch {
	return &FirstMatch{users: users}
}

func (f *FirstMatch) ResolveOne(ctx context.Context, recipientType string) (*string, error) {
	role := user.RoleConsultant

	if recipientType == consultation.RecipientTeacher {
		role = user.RoleTeacher
	}

	u, err := f.users.FirstByRole(ctx, role)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, nil
		}

		return nil, err
	}

	id := u.ID

	return &id, nil
}

func (f *FirstMatch) ResolveAllTeachers(ctx context.Context) ([]user.User, error) {
	teachers, err := f.users.ListByRole(ctx, user.RoleTeacher)

	if err != nil {
		return nil, err
	}

	if len(teachers) == 0 {
		return nil, consultation.ErrNoTeachers
	}

	return teachers, nil
}
