package subscription_test

import (
	"testing"
	"time"

	"gymdesk/internal/domain/subscription"
)

var (
	subStart = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	subEnd   = time.Date(2026, 6, 30, 23, 59, 59, 0, time.UTC)
)

func validSubscription() subscription.Subscription {
	return subscription.Subscription{
		ID:        "sub-1",
		MemberID:  "mem-1",
		PlanID:    "plan-1",
		StartDate: subStart,
		EndDate:   subEnd,
		Status:    subscription.StatusActive,
	}
}

// TestSubscription_Validate tests validation of Subscription.
func TestSubscription_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *subscription.Subscription)
		wantErr bool
	}{
		{"valid", func(s *subscription.Subscription) {}, false},
		{"missing member", func(s *subscription.Subscription) { s.MemberID = "" }, true},
		{"missing plan", func(s *subscription.Subscription) { s.PlanID = "" }, true},
		{"zero start", func(s *subscription.Subscription) { s.StartDate = time.Time{} }, true},
		{"end before start", func(s *subscription.Subscription) { s.EndDate = subStart.AddDate(0, 0, -1) }, true},
		{"unknown status", func(s *subscription.Subscription) { s.Status = "paused" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSubscription()
			tt.mutate(&s)
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Subscription.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestSubscription_IsActiveOn tests the entitlement window.
func TestSubscription_IsActiveOn(t *testing.T) {
	s := validSubscription()

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"before start", subStart.Add(-time.Hour), false},
		{"at start", subStart, true},
		{"mid term", time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC), true},
		{"at end", subEnd, true},
		{"after end", subEnd.Add(time.Second), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.IsActiveOn(tt.at); got != tt.want {
				t.Errorf("IsActiveOn(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}

	cancelled := validSubscription()
	cancelled.Status = subscription.StatusCancelled
	if cancelled.IsActiveOn(time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)) {
		t.Error("cancelled subscription must not be active inside its date range")
	}
}
