package orchestrators

import (
	"context"
	"testing"

	"gymdesk/internal/adapters/email"
	"gymdesk/internal/domain/courseinstance"
	"gymdesk/internal/domain/ledger"
	"gymdesk/internal/domain/member"
	"gymdesk/internal/domain/registration"
)

// UpdateStatus lets the shared instance mock serve class cancellation.
func (m *mockInstanceStoreForOrch) UpdateStatus(_ context.Context, id, status string) error {
	inst := m.instances[id]
	inst.Status = status
	m.instances[id] = inst
	return nil
}

// mockInstanceCancelRegStore lists and cancels an instance's registrations.
type mockInstanceCancelRegStore struct {
	regs    map[string]registration.Registration
	entries []ledger.Entry
}

func (m *mockInstanceCancelRegStore) ListByCourseInstance(_ context.Context, instanceID string) ([]registration.Registration, error) {
	out := []registration.Registration{}
	for _, r := range m.regs {
		if r.CourseInstanceID == instanceID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockInstanceCancelRegStore) CancelWithCredit(_ context.Context, reg registration.Registration, entry *ledger.Entry) error {
	stored := m.regs[reg.ID]
	stored.Status = registration.StatusCancelled
	m.regs[reg.ID] = stored
	if entry != nil {
		m.entries = append(m.entries, *entry)
	}
	return nil
}

// countingSender records notification sends.
type countingSender struct {
	sent []email.SendRequest
}

func (s *countingSender) Send(_ context.Context, req email.SendRequest) (email.SendResult, error) {
	s.sent = append(s.sent, req)
	return email.SendResult{MessageID: "test"}, nil
}

func (s *countingSender) SendBatch(_ context.Context, reqs []email.SendRequest) ([]email.SendResult, error) {
	s.sent = append(s.sent, reqs...)
	return make([]email.SendResult, len(reqs)), nil
}

func TestExecuteCancelInstance_RefundsAndNotifies(t *testing.T) {
	instStore := &mockInstanceStoreForOrch{instances: map[string]courseinstance.CourseInstance{
		"inst-1": {
			ID: "inst-1", ScheduleID: "sched-1", ClassTypeID: "ct-1",
			CourseDate: "2026-03-05", StartTime: "10:00", EndTime: "11:00",
			MaxCapacity: 10, Status: courseinstance.StatusScheduled,
		},
	}}
	regStore := &mockInstanceCancelRegStore{regs: map[string]registration.Registration{
		"reg-1": {ID: "reg-1", MemberID: "mem-1", CourseInstanceID: "inst-1", Status: registration.StatusRegistered, GroupSessionID: "pool-1"},
		"reg-2": {ID: "reg-2", MemberID: "mem-2", CourseInstanceID: "inst-1", Status: registration.StatusRegistered, IsGuest: true},
		"reg-3": {ID: "reg-3", MemberID: "mem-3", CourseInstanceID: "inst-1", Status: registration.StatusCancelled, GroupSessionID: "pool-3"},
	}}
	sender := &countingSender{}
	deps := CancelInstanceDeps{
		InstanceStore:     instStore,
		RegistrationStore: regStore,
		MemberStore: &mockMemberStoreForOrch{members: map[string]member.Member{
			"mem-1": {ID: "mem-1", Name: "Ana Silva", Email: "ana@example.com", Status: member.StatusActive},
			"mem-2": {ID: "mem-2", Name: "Guest", Email: "guest@example.com", Status: member.StatusActive},
		}},
		EmailSender: sender,
		GenerateID:  seqID(),
		Now:         fixedNow,
	}

	result, err := ExecuteCancelInstance(context.Background(), CancelInstanceInput{
		CourseInstanceID: "inst-1",
		Reason:           "trainer unavailable",
		Actor:            "admin-1",
	}, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if instStore.instances["inst-1"].Status != courseinstance.StatusCancelled {
		t.Error("expected the instance to be cancelled")
	}
	// reg-3 was already cancelled and must stay untouched.
	if result.RegistrationsCancelled != 2 {
		t.Errorf("expected 2 registrations cancelled, got %d", result.RegistrationsCancelled)
	}
	// Only reg-1 held a session; refunds ignore the late-cancel policy.
	if result.Refunded != 1 {
		t.Errorf("expected 1 refund, got %d", result.Refunded)
	}
	if len(regStore.entries) != 1 || regStore.entries[0].Delta != 1 {
		t.Errorf("expected one +1 credit entry, got %+v", regStore.entries)
	}
	if result.Notified != 2 {
		t.Errorf("expected 2 notifications, got %d", result.Notified)
	}
}

func TestExecuteCancelInstance_AlreadyCancelledIsNoop(t *testing.T) {
	instStore := &mockInstanceStoreForOrch{instances: map[string]courseinstance.CourseInstance{
		"inst-1": {
			ID: "inst-1", ScheduleID: "sched-1", ClassTypeID: "ct-1",
			CourseDate: "2026-03-05", StartTime: "10:00", EndTime: "11:00",
			MaxCapacity: 10, Status: courseinstance.StatusCancelled,
		},
	}}
	regStore := &mockInstanceCancelRegStore{regs: map[string]registration.Registration{}}

	result, err := ExecuteCancelInstance(context.Background(), CancelInstanceInput{
		CourseInstanceID: "inst-1",
		Actor:            "admin-1",
	}, CancelInstanceDeps{InstanceStore: instStore, RegistrationStore: regStore, GenerateID: seqID(), Now: fixedNow})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RegistrationsCancelled != 0 {
		t.Errorf("repeat cancellation must not touch registrations, got %d", result.RegistrationsCancelled)
	}
}
