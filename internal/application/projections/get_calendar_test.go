package projections

import (
	"context"
	"errors"
	"testing"

	"gymdesk/internal/domain/classtype"
	"gymdesk/internal/domain/courseinstance"
)

// mockCalendarInstanceStore returns a fixed instance list.
type mockCalendarInstanceStore struct {
	instances []courseinstance.CourseInstance
}

func (m *mockCalendarInstanceStore) ListByDateRange(_ context.Context, from, to string) ([]courseinstance.CourseInstance, error) {
	out := []courseinstance.CourseInstance{}
	for _, inst := range m.instances {
		if inst.CourseDate >= from && inst.CourseDate <= to {
			out = append(out, inst)
		}
	}
	return out, nil
}

// mockCalendarClassTypeStore returns a fixed class type list.
type mockCalendarClassTypeStore struct {
	classTypes []classtype.ClassType
}

func (m *mockCalendarClassTypeStore) List(_ context.Context) ([]classtype.ClassType, error) {
	return m.classTypes, nil
}

// mockCalendarRegistrationStore returns per-instance counts.
type mockCalendarRegistrationStore struct {
	counts map[string]int
}

func (m *mockCalendarRegistrationStore) CountActiveByCourseInstance(_ context.Context, id string) (int, error) {
	return m.counts[id], nil
}

func calendarFixture() GetCalendarDeps {
	return GetCalendarDeps{
		InstanceStore: &mockCalendarInstanceStore{instances: []courseinstance.CourseInstance{
			{ID: "inst-1", ScheduleID: "sched-1", ClassTypeID: "ct-1", CourseDate: "2026-03-02", StartTime: "18:00", EndTime: "19:00", MaxCapacity: 20, Status: courseinstance.StatusScheduled},
			{ID: "inst-2", ScheduleID: "sched-2", ClassTypeID: "ct-2", CourseDate: "2026-03-03", StartTime: "07:00", EndTime: "08:00", MaxCapacity: 10, Status: courseinstance.StatusScheduled},
			{ID: "inst-3", ScheduleID: "sched-1", ClassTypeID: "ct-1", CourseDate: "2026-04-01", StartTime: "18:00", EndTime: "19:00", MaxCapacity: 20, Status: courseinstance.StatusScheduled},
		}},
		ClassTypeStore: &mockCalendarClassTypeStore{classTypes: []classtype.ClassType{
			{ID: "ct-1", Name: "Spinning", Category: "cardio"},
			{ID: "ct-2", Name: "Yoga", Category: "mind_body"},
		}},
		RegistrationStore: &mockCalendarRegistrationStore{counts: map[string]int{
			"inst-1": 18,
			"inst-2": 10,
		}},
	}
}

func TestQueryGetCalendar(t *testing.T) {
	entries, err := QueryGetCalendar(context.Background(), "2026-03-01", "2026-03-31", calendarFixture())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries inside the window, got %d", len(entries))
	}

	first := entries[0]
	if first.ClassName != "Spinning" || first.Category != "cardio" {
		t.Errorf("expected class type joined in, got %+v", first)
	}
	if first.Registered != 18 || first.SpotsLeft != 2 {
		t.Errorf("expected 18 registered / 2 left, got %d/%d", first.Registered, first.SpotsLeft)
	}

	full := entries[1]
	if full.SpotsLeft != 0 {
		t.Errorf("a full class has 0 spots left, got %d", full.SpotsLeft)
	}
}

func TestQueryGetCalendar_WindowRequired(t *testing.T) {
	if _, err := QueryGetCalendar(context.Background(), "", "2026-03-31", calendarFixture()); err == nil {
		t.Error("expected error for a missing from date")
	}
}

func TestQueryGetCalendar_StoreError(t *testing.T) {
	deps := calendarFixture()
	deps.InstanceStore = failingInstanceStore{}

	if _, err := QueryGetCalendar(context.Background(), "2026-03-01", "2026-03-31", deps); err == nil {
		t.Error("expected store errors to propagate")
	}
}

type failingInstanceStore struct{}

func (failingInstanceStore) ListByDateRange(_ context.Context, _, _ string) ([]courseinstance.CourseInstance, error) {
	return nil, errors.New("db offline")
}
