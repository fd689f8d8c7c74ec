package checkin

import (
	"context"

	domain "gymdesk/internal/domain/checkin"
)

// Store defines the interface for CheckIn persistence.
type Store interface {
	GetByRegistration(ctx context.Context, registrationID string) (domain.CheckIn, bool, error)
	// Create records the check-in and flips the registration to attended in
	// one transaction. Fails with ErrConcurrentConflict if the registration
	// is no longer in the registered state.
	Create(ctx context.Context, entity domain.CheckIn) error
	// Remove deletes the check-in and returns the registration to the
	// registered state in one transaction.
	Remove(ctx context.Context, registrationID string) error
	CountByCourseInstance(ctx context.Context, courseInstanceID string) (int, error)
}
