package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gymdesk/internal/domain/courseinstance"
	"gymdesk/internal/domain/ledger"
	"gymdesk/internal/domain/registration"

	"github.com/google/uuid"
)

// CancelRegistrationStore defines the registration store interface needed by cancellation.
type CancelRegistrationStore interface {
	GetByID(ctx context.Context, id string) (registration.Registration, error)
	CancelWithCredit(ctx context.Context, reg registration.Registration, entry *ledger.Entry) error
}

// CancelInstanceLookupStore defines the course instance store interface needed by cancellation.
type CancelInstanceLookupStore interface {
	GetByID(ctx context.Context, id string) (courseinstance.CourseInstance, error)
}

// CancelRegistrationInput carries input for the cancellation orchestrator.
type CancelRegistrationInput struct {
	RegistrationID string
	RefundOverride *bool  // admin only; nil means apply the policy
	Actor          string // account ID performing the action, or "self"
}

// CancelRegistrationResult reports what the cancellation did.
type CancelRegistrationResult struct {
	AlreadyCancelled bool
	Late             bool
	Refunded         bool
}

// CancelRegistrationDeps holds dependencies for CancelRegistration.
type CancelRegistrationDeps struct {
	RegistrationStore CancelRegistrationStore
	InstanceStore     CancelInstanceLookupStore
	Policy            registration.CancelPolicy
	GenerateID        func() string
	Now               func() time.Time
}

// ExecuteCancelRegistration cancels a registration and settles the session:
// an in-time cancellation credits it back, a late one forfeits it. Cancelling
// an already-cancelled registration is a no-op.
// PRE: RegistrationID is non-empty; RefundOverride is nil unless the caller is staff
// POST: Registration is cancelled; the pool is credited iff the decision refunds
// INVARIANT: A checked-in (attended) registration cannot be cancelled
func ExecuteCancelRegistration(ctx context.Context, input CancelRegistrationInput, deps CancelRegistrationDeps) (CancelRegistrationResult, error) {
	if deps.GenerateID == nil {
		deps.GenerateID = func() string { return uuid.New().String() }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if input.RegistrationID == "" {
		return CancelRegistrationResult{}, errors.New("registration ID is required")
	}

	reg, err := deps.RegistrationStore.GetByID(ctx, input.RegistrationID)
	if err != nil {
		return CancelRegistrationResult{}, errors.New("registration not found")
	}
	if reg.Status == registration.StatusCancelled {
		return CancelRegistrationResult{AlreadyCancelled: true}, nil
	}
	if reg.Status == registration.StatusAttended {
		return CancelRegistrationResult{}, registration.ErrAlreadyCheckedIn
	}
	if !registration.CanTransition(reg.Status, registration.StatusCancelled) {
		return CancelRegistrationResult{}, registration.ErrConcurrentConflict
	}

	instance, err := deps.InstanceStore.GetByID(ctx, reg.CourseInstanceID)
	if err != nil {
		return CancelRegistrationResult{}, errors.New("course instance not found")
	}
	courseStart, err := instance.StartsAt()
	if err != nil {
		return CancelRegistrationResult{}, err
	}

	now := deps.Now()
	decision := deps.Policy.Decide(now, courseStart, input.RefundOverride)

	// Guests hold no session, so there is never anything to refund.
	var entry *ledger.Entry
	if decision.Refund && reg.GroupSessionID != "" {
		entry = &ledger.Entry{
			ID:             deps.GenerateID(),
			GroupSessionID: reg.GroupSessionID,
			RegistrationID: reg.ID,
			Delta:          1,
			Reason:         ledger.ReasonCancellationCredit,
			Actor:          input.Actor,
			CreatedAt:      now,
		}
	}

	if err := deps.RegistrationStore.CancelWithCredit(ctx, reg, entry); err != nil {
		return CancelRegistrationResult{}, err
	}

	slog.Info("registration_event", "event", "registration_cancelled", "registration_id", reg.ID, "member_id", reg.MemberID, "late", decision.Late, "refunded", entry != nil, "overridden", decision.Overridden)
	return CancelRegistrationResult{Late: decision.Late, Refunded: entry != nil}, nil
}
