package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gymdesk/internal/domain/checkin"
	"gymdesk/internal/domain/courseinstance"
	"gymdesk/internal/domain/registration"

	"github.com/google/uuid"
)

// CheckInStoreForOrchestrator defines the check-in store interface needed by validation.
type CheckInStoreForOrchestrator interface {
	GetByRegistration(ctx context.Context, registrationID string) (checkin.CheckIn, bool, error)
	Create(ctx context.Context, c checkin.CheckIn) error
	Remove(ctx context.Context, registrationID string) error
}

// CheckInRegistrationStore defines the registration store interface needed by validation.
type CheckInRegistrationStore interface {
	GetByQRCode(ctx context.Context, qrCode string) (registration.Registration, error)
	GetByID(ctx context.Context, id string) (registration.Registration, error)
}

// CheckInInstanceStore defines the course instance store interface needed by validation.
type CheckInInstanceStore interface {
	GetByID(ctx context.Context, id string) (courseinstance.CourseInstance, error)
}

// ValidateCheckInInput carries input for the check-in orchestrator. Exactly
// one of QRCode or RegistrationID identifies the registration: QRCode for
// kiosk scans, RegistrationID for the staff roster.
type ValidateCheckInInput struct {
	QRCode         string
	RegistrationID string
	ValidatedBy    string // account ID, or "self" for kiosk scans
}

// ValidateCheckInResult carries the recorded check-in.
type ValidateCheckInResult struct {
	CheckInID      string
	RegistrationID string
	Late           bool
}

// ValidateCheckInDeps holds dependencies for ValidateCheckIn.
type ValidateCheckInDeps struct {
	CheckInStore      CheckInStoreForOrchestrator
	RegistrationStore CheckInRegistrationStore
	InstanceStore     CheckInInstanceStore
	GenerateID        func() string
	Now               func() time.Time
}

// ExecuteValidateCheckIn records attendance for a registration. The session
// was already debited at registration time, so checking in consumes nothing
// further; the check-in row marks the debit as honored.
// PRE: Exactly one of QRCode or RegistrationID is set; ValidatedBy is non-empty
// POST: Check-in recorded and registration marked attended, or a guard error
// INVARIANT: A registration can hold at most one check-in
func ExecuteValidateCheckIn(ctx context.Context, input ValidateCheckInInput, deps ValidateCheckInDeps) (ValidateCheckInResult, error) {
	if deps.GenerateID == nil {
		deps.GenerateID = func() string { return uuid.New().String() }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if input.ValidatedBy == "" {
		return ValidateCheckInResult{}, errors.New("check-in must record who validated it")
	}

	reg, err := resolveRegistration(ctx, input, deps.RegistrationStore)
	if err != nil {
		return ValidateCheckInResult{}, err
	}
	switch reg.Status {
	case registration.StatusAttended:
		return ValidateCheckInResult{}, registration.ErrAlreadyCheckedIn
	case registration.StatusRegistered:
		// proceed
	default:
		return ValidateCheckInResult{}, errors.New("registration is not active")
	}

	instance, err := deps.InstanceStore.GetByID(ctx, reg.CourseInstanceID)
	if err != nil {
		return ValidateCheckInResult{}, errors.New("course instance not found")
	}
	// Check-in closes when the class ends. From that point the remaining
	// registered members belong to the no-show flow, which only opens once
	// the class is over.
	now := deps.Now()
	if instance.HasEnded(now) {
		return ValidateCheckInResult{}, errors.New("course instance has already ended")
	}

	c := checkin.CheckIn{
		ID:              deps.GenerateID(),
		RegistrationID:  reg.ID,
		CheckInTime:     now,
		SessionConsumed: !reg.IsGuest,
		Late:            instance.HasStarted(now),
		ValidatedBy:     input.ValidatedBy,
	}
	if err := c.Validate(); err != nil {
		return ValidateCheckInResult{}, err
	}
	if err := deps.CheckInStore.Create(ctx, c); err != nil {
		if errors.Is(err, registration.ErrConcurrentConflict) {
			return ValidateCheckInResult{}, registration.ErrAlreadyCheckedIn
		}
		return ValidateCheckInResult{}, err
	}

	slog.Info("checkin_event", "event", "checkin_validated", "checkin_id", c.ID, "registration_id", reg.ID, "member_id", reg.MemberID, "late", c.Late, "validated_by", input.ValidatedBy)
	return ValidateCheckInResult{CheckInID: c.ID, RegistrationID: reg.ID, Late: c.Late}, nil
}

// UnvalidateCheckInInput carries input for reverting a check-in.
type UnvalidateCheckInInput struct {
	RegistrationID string
	Actor          string // staff account ID
}

// ExecuteUnvalidateCheckIn reverts a mistaken check-in: the check-in row is
// removed and the registration returns to registered. The ledger is
// untouched; the original registration debit still stands.
// PRE: RegistrationID is non-empty and has a recorded check-in
// POST: Registration is back in the registered state
func ExecuteUnvalidateCheckIn(ctx context.Context, input UnvalidateCheckInInput, deps ValidateCheckInDeps) error {
	if input.RegistrationID == "" {
		return errors.New("registration ID is required")
	}

	reg, err := deps.RegistrationStore.GetByID(ctx, input.RegistrationID)
	if err != nil {
		return errors.New("registration not found")
	}
	if _, exists, err := deps.CheckInStore.GetByRegistration(ctx, reg.ID); err != nil {
		return err
	} else if !exists {
		return errors.New("no check-in recorded for this registration")
	}

	if err := deps.CheckInStore.Remove(ctx, reg.ID); err != nil {
		return err
	}

	slog.Info("checkin_event", "event", "checkin_unvalidated", "registration_id", reg.ID, "actor", input.Actor)
	return nil
}

func resolveRegistration(ctx context.Context, input ValidateCheckInInput, store CheckInRegistrationStore) (registration.Registration, error) {
	switch {
	case input.QRCode != "" && input.RegistrationID != "":
		return registration.Registration{}, errors.New("provide either a QR code or a registration ID, not both")
	case input.QRCode != "":
		reg, err := store.GetByQRCode(ctx, input.QRCode)
		if err != nil {
			return registration.Registration{}, errors.New("no registration matches this QR code")
		}
		return reg, nil
	case input.RegistrationID != "":
		reg, err := store.GetByID(ctx, input.RegistrationID)
		if err != nil {
			return registration.Registration{}, errors.New("registration not found")
		}
		return reg, nil
	default:
		return registration.Registration{}, errors.New("a QR code or registration ID is required")
	}
}
