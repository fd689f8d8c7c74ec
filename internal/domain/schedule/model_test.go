package schedule_test

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"gymdesk/internal/domain/schedule"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TestSchedule_Validate tests per-repetition validation.
func TestSchedule_Validate(t *testing.T) {
	tests := []struct {
		name    string
		sched   schedule.Schedule
		wantErr bool
	}{
		{
			name:    "valid once",
			sched:   schedule.Schedule{ClassTypeID: "ct-1", Repetition: schedule.RepeatOnce, ScheduleDate: "2026-03-10", StartTime: "18:00", EndTime: "19:00"},
			wantErr: false,
		},
		{
			name:    "valid weekly",
			sched:   schedule.Schedule{ClassTypeID: "ct-1", Repetition: schedule.RepeatWeekly, StartDate: "2026-03-01", EndDate: "2026-04-01", Day: schedule.Tuesday, StartTime: "18:00", EndTime: "19:00"},
			wantErr: false,
		},
		{
			name:    "unknown repetition",
			sched:   schedule.Schedule{ClassTypeID: "ct-1", Repetition: "fortnightly", StartDate: "2026-03-01", EndDate: "2026-04-01", StartTime: "18:00", EndTime: "19:00"},
			wantErr: true,
		},
		{
			name:    "inverted range",
			sched:   schedule.Schedule{ClassTypeID: "ct-1", Repetition: schedule.RepeatDaily, StartDate: "2026-04-01", EndDate: "2026-03-01", StartTime: "18:00", EndTime: "19:00"},
			wantErr: true,
		},
		{
			name:    "weekly without day",
			sched:   schedule.Schedule{ClassTypeID: "ct-1", Repetition: schedule.RepeatWeekly, StartDate: "2026-03-01", EndDate: "2026-04-01", StartTime: "18:00", EndTime: "19:00"},
			wantErr: true,
		},
		{
			name:    "once without date",
			sched:   schedule.Schedule{ClassTypeID: "ct-1", Repetition: schedule.RepeatOnce, StartTime: "18:00", EndTime: "19:00"},
			wantErr: true,
		},
		{
			name:    "missing class type",
			sched:   schedule.Schedule{Repetition: schedule.RepeatOnce, ScheduleDate: "2026-03-10", StartTime: "18:00", EndTime: "19:00"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sched.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Schedule.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestSchedule_Validate_ErrorKind tests that config failures wrap the
// sentinel so callers can classify them.
func TestSchedule_Validate_ErrorKind(t *testing.T) {
	s := schedule.Schedule{ClassTypeID: "ct-1", Repetition: "fortnightly", StartTime: "18:00", EndTime: "19:00"}
	if err := s.Validate(); !errors.Is(err, schedule.ErrInvalidScheduleConfig) {
		t.Errorf("expected ErrInvalidScheduleConfig, got %v", err)
	}
}

// TestSchedule_Occurrences_Once tests single-date expansion.
func TestSchedule_Occurrences_Once(t *testing.T) {
	s := schedule.Schedule{ClassTypeID: "ct-1", Repetition: schedule.RepeatOnce, ScheduleDate: "2026-03-10", StartTime: "18:00", EndTime: "19:00"}

	got, err := s.Occurrences(date(2026, 3, 1), date(2026, 3, 31))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"2026-03-10"}) {
		t.Errorf("expected single occurrence on 2026-03-10, got %v", got)
	}

	// Outside the window: no occurrences
	got, err = s.Occurrences(date(2026, 4, 1), date(2026, 4, 30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no occurrences outside window, got %v", got)
	}
}

// TestSchedule_Occurrences_Daily tests that daily expansion is clipped to
// both the schedule's own range and the requested window.
func TestSchedule_Occurrences_Daily(t *testing.T) {
	s := schedule.Schedule{ClassTypeID: "ct-1", Repetition: schedule.RepeatDaily, StartDate: "2026-03-05", EndDate: "2026-03-08", StartTime: "06:00", EndTime: "07:00"}

	got, err := s.Occurrences(date(2026, 3, 1), date(2026, 3, 31))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"2026-03-05", "2026-03-06", "2026-03-07", "2026-03-08"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("daily expansion = %v, want %v", got, want)
	}

	got, err = s.Occurrences(date(2026, 3, 7), date(2026, 3, 31))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want = []string{"2026-03-07", "2026-03-08"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("clipped daily expansion = %v, want %v", got, want)
	}
}

// TestSchedule_Occurrences_Weekly tests day-of-week matching.
func TestSchedule_Occurrences_Weekly(t *testing.T) {
	// March 2026: Tuesdays fall on 3, 10, 17, 24, 31
	s := schedule.Schedule{ClassTypeID: "ct-1", Repetition: schedule.RepeatWeekly, StartDate: "2026-03-01", EndDate: "2026-03-31", Day: schedule.Tuesday, StartTime: "18:00", EndTime: "19:00"}

	got, err := s.Occurrences(date(2026, 3, 1), date(2026, 3, 31))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"2026-03-03", "2026-03-10", "2026-03-17", "2026-03-24", "2026-03-31"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("weekly expansion = %v, want %v", got, want)
	}
}

// TestSchedule_Occurrences_Monthly tests same-day-of-month expansion,
// including the skip policy for short months.
func TestSchedule_Occurrences_Monthly(t *testing.T) {
	// Starts on the 31st: February and April lack a 31st and are skipped.
	s := schedule.Schedule{ClassTypeID: "ct-1", Repetition: schedule.RepeatMonthly, StartDate: "2026-01-31", EndDate: "2026-05-31", StartTime: "18:00", EndTime: "19:00"}

	got, err := s.Occurrences(date(2026, 1, 1), date(2026, 12, 31))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"2026-01-31", "2026-03-31", "2026-05-31"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("monthly expansion = %v, want %v", got, want)
	}
}

// TestSchedule_Occurrences_InvertedWindow tests the window sanity check.
func TestSchedule_Occurrences_InvertedWindow(t *testing.T) {
	s := schedule.Schedule{ClassTypeID: "ct-1", Repetition: schedule.RepeatDaily, StartDate: "2026-03-01", EndDate: "2026-03-31", StartTime: "06:00", EndTime: "07:00"}
	if _, err := s.Occurrences(date(2026, 3, 31), date(2026, 3, 1)); !errors.Is(err, schedule.ErrInvalidScheduleConfig) {
		t.Errorf("expected ErrInvalidScheduleConfig for inverted window, got %v", err)
	}
}

// TestSchedule_DurationHours tests duration computation.
func TestSchedule_DurationHours(t *testing.T) {
	s := schedule.Schedule{ClassTypeID: "ct-1", Repetition: schedule.RepeatOnce, ScheduleDate: "2026-03-10", StartTime: "18:00", EndTime: "19:30"}
	hours, err := s.DurationHours()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hours != 1.5 {
		t.Errorf("expected 1.5 hours, got %v", hours)
	}
}
