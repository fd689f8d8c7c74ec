package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gymdesk/internal/domain/ledger"
	"gymdesk/internal/domain/registration"

	"github.com/google/uuid"
)

// MarkAbsentStore defines the registration store interface needed by marking absences.
type MarkAbsentStore interface {
	GetByID(ctx context.Context, id string) (registration.Registration, error)
	MarkAbsentWithCredit(ctx context.Context, reg registration.Registration, entry *ledger.Entry) error
}

// MarkAbsentInput carries input for the no-show orchestrator.
type MarkAbsentInput struct {
	RegistrationID string
	RefundOverride *bool  // staff only; nil or false forfeits the session
	Actor          string // staff account ID
}

// MarkAbsentDeps holds dependencies for MarkAbsent.
type MarkAbsentDeps struct {
	RegistrationStore MarkAbsentStore
	InstanceStore     CancelInstanceLookupStore
	GenerateID        func() string
	Now               func() time.Time
}

// ExecuteMarkAbsent records a no-show. A member can only be marked absent
// once the class has ended without a check-in; the debited session is
// forfeited unless a staff refund override credits it back.
// PRE: RegistrationID names a registration in the registered state
// POST: Registration status is absent; the pool is credited iff the override refunds
func ExecuteMarkAbsent(ctx context.Context, input MarkAbsentInput, deps MarkAbsentDeps) error {
	if deps.GenerateID == nil {
		deps.GenerateID = func() string { return uuid.New().String() }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if input.RegistrationID == "" {
		return errors.New("registration ID is required")
	}

	reg, err := deps.RegistrationStore.GetByID(ctx, input.RegistrationID)
	if err != nil {
		return errors.New("registration not found")
	}
	if reg.Status == registration.StatusAttended {
		return registration.ErrAlreadyCheckedIn
	}
	if !registration.CanTransition(reg.Status, registration.StatusAbsent) {
		return errors.New("registration is not active")
	}

	instance, err := deps.InstanceStore.GetByID(ctx, reg.CourseInstanceID)
	if err != nil {
		return errors.New("course instance not found")
	}
	now := deps.Now()
	if !instance.HasEnded(now) {
		return registration.ErrCourseNotEnded
	}

	// Guests hold no session, so there is never anything to refund.
	var entry *ledger.Entry
	if input.RefundOverride != nil && *input.RefundOverride && reg.GroupSessionID != "" {
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

	if err := deps.RegistrationStore.MarkAbsentWithCredit(ctx, reg, entry); err != nil {
		return err
	}

	slog.Info("registration_event", "event", "marked_absent", "registration_id", reg.ID, "member_id", reg.MemberID, "refunded", entry != nil, "actor", input.Actor)
	return nil
}
