package orchestrators

import (
	"context"
	"errors"
	"testing"

	"gymdesk/internal/domain/courseinstance"
	"gymdesk/internal/domain/ledger"
	"gymdesk/internal/domain/registration"
)

// mockCancelStore simulates the transactional cancel path.
type mockCancelStore struct {
	regs    map[string]registration.Registration
	entries []ledger.Entry
}

func (m *mockCancelStore) GetByID(_ context.Context, id string) (registration.Registration, error) {
	r, ok := m.regs[id]
	if !ok {
		return registration.Registration{}, errors.New("not found")
	}
	return r, nil
}

func (m *mockCancelStore) CancelWithCredit(_ context.Context, reg registration.Registration, entry *ledger.Entry) error {
	stored := m.regs[reg.ID]
	if stored.Status != reg.Status {
		return registration.ErrConcurrentConflict
	}
	stored.Status = registration.StatusCancelled
	m.regs[reg.ID] = stored
	if entry != nil {
		m.entries = append(m.entries, *entry)
	}
	return nil
}

// cancelFixture sets up a registration for a class at the given start time.
func cancelFixture(courseDate, startTime string) (CancelRegistrationDeps, *mockCancelStore) {
	store := &mockCancelStore{regs: map[string]registration.Registration{
		"reg-1": {
			ID: "reg-1", MemberID: "mem-1", CourseInstanceID: "inst-1",
			Status: registration.StatusRegistered, GroupSessionID: "pool-1",
		},
	}}
	deps := CancelRegistrationDeps{
		RegistrationStore: store,
		InstanceStore: &mockInstanceStoreForOrch{instances: map[string]courseinstance.CourseInstance{
			"inst-1": {
				ID: "inst-1", ScheduleID: "sched-1", ClassTypeID: "ct-1",
				CourseDate: courseDate, StartTime: startTime, EndTime: "23:00",
				MaxCapacity: 10, Status: courseinstance.StatusScheduled,
			},
		}},
		Policy:     registration.NewCancelPolicy(0),
		GenerateID: seqID(),
		Now:        fixedNow,
	}
	return deps, store
}

func TestExecuteCancelRegistration_InTimeRefunds(t *testing.T) {
	// fixedTime is 2026-03-01 12:00; class starts 25h later.
	deps, store := cancelFixture("2026-03-02", "13:00")

	result, err := ExecuteCancelRegistration(context.Background(), CancelRegistrationInput{
		RegistrationID: "reg-1",
		Actor:          "self",
	}, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Late {
		t.Error("25h before start must not be late")
	}
	if !result.Refunded {
		t.Error("in-time cancellation must refund the session")
	}
	if store.regs["reg-1"].Status != registration.StatusCancelled {
		t.Errorf("expected status=cancelled, got %s", store.regs["reg-1"].Status)
	}
	if len(store.entries) != 1 {
		t.Fatalf("expected 1 credit entry, got %d", len(store.entries))
	}
	if store.entries[0].Delta != 1 || store.entries[0].Reason != ledger.ReasonCancellationCredit {
		t.Errorf("expected a +1 cancellation_credit entry, got %+v", store.entries[0])
	}
}

func TestExecuteCancelRegistration_LateForfeits(t *testing.T) {
	// Class starts 22h after fixedTime: inside the 24h cutoff.
	deps, store := cancelFixture("2026-03-02", "10:00")

	result, err := ExecuteCancelRegistration(context.Background(), CancelRegistrationInput{
		RegistrationID: "reg-1",
		Actor:          "self",
	}, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Late {
		t.Error("22h before start must be late")
	}
	if result.Refunded {
		t.Error("late cancellation must forfeit the session")
	}
	if len(store.entries) != 0 {
		t.Errorf("late cancellation must not write a credit, got %d entries", len(store.entries))
	}
}

func TestExecuteCancelRegistration_ExactlyAtCutoffIsLate(t *testing.T) {
	// Class starts exactly 24h after fixedTime: the boundary counts as late.
	deps, _ := cancelFixture("2026-03-02", "12:00")

	result, err := ExecuteCancelRegistration(context.Background(), CancelRegistrationInput{
		RegistrationID: "reg-1",
		Actor:          "self",
	}, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Late {
		t.Error("cancelling exactly at the cutoff must be late")
	}
}

func TestExecuteCancelRegistration_AdminOverrideRefundsLate(t *testing.T) {
	deps, store := cancelFixture("2026-03-02", "10:00")
	refund := true

	result, err := ExecuteCancelRegistration(context.Background(), CancelRegistrationInput{
		RegistrationID: "reg-1",
		RefundOverride: &refund,
		Actor:          "admin-1",
	}, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Late || !result.Refunded {
		t.Errorf("expected late=true refunded=true, got %+v", result)
	}
	if len(store.entries) != 1 {
		t.Fatalf("expected the override to write a credit, got %d entries", len(store.entries))
	}
}

func TestExecuteCancelRegistration_AlreadyCancelledIsNoop(t *testing.T) {
	deps, store := cancelFixture("2026-03-02", "13:00")
	reg := store.regs["reg-1"]
	reg.Status = registration.StatusCancelled
	store.regs["reg-1"] = reg

	result, err := ExecuteCancelRegistration(context.Background(), CancelRegistrationInput{
		RegistrationID: "reg-1",
		Actor:          "self",
	}, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.AlreadyCancelled {
		t.Error("expected AlreadyCancelled=true")
	}
	if len(store.entries) != 0 {
		t.Error("repeated cancellation must not credit again")
	}
}

func TestExecuteCancelRegistration_CheckedInBlocked(t *testing.T) {
	deps, store := cancelFixture("2026-03-02", "13:00")
	reg := store.regs["reg-1"]
	reg.Status = registration.StatusAttended
	store.regs["reg-1"] = reg

	_, err := ExecuteCancelRegistration(context.Background(), CancelRegistrationInput{
		RegistrationID: "reg-1",
		Actor:          "self",
	}, deps)
	if !errors.Is(err, registration.ErrAlreadyCheckedIn) {
		t.Fatalf("expected ErrAlreadyCheckedIn, got %v", err)
	}
}

func TestExecuteCancelRegistration_GuestNoCredit(t *testing.T) {
	deps, store := cancelFixture("2026-03-02", "13:00")
	reg := store.regs["reg-1"]
	reg.IsGuest = true
	reg.GroupSessionID = ""
	store.regs["reg-1"] = reg

	result, err := ExecuteCancelRegistration(context.Background(), CancelRegistrationInput{
		RegistrationID: "reg-1",
		Actor:          "self",
	}, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Refunded {
		t.Error("guest cancellation has nothing to refund")
	}
	if len(store.entries) != 0 {
		t.Errorf("guest cancellation must not write entries, got %d", len(store.entries))
	}
}
