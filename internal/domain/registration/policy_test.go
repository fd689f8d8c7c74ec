package registration_test

import (
	"testing"
	"time"

	"gymdesk/internal/domain/registration"
)

var courseStart = time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)

// TestCancelPolicy_IsLate tests the inclusive cutoff boundary: a cancellation
// at exactly start - cutoff is late, one second earlier is not.
func TestCancelPolicy_IsLate(t *testing.T) {
	policy := registration.NewCancelPolicy(24 * time.Hour)

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"well before cutoff", courseStart.Add(-48 * time.Hour), false},
		{"one second outside cutoff", courseStart.Add(-24*time.Hour - time.Second), false},
		{"exactly at cutoff", courseStart.Add(-24 * time.Hour), true},
		{"inside cutoff", courseStart.Add(-2 * time.Hour), true},
		{"after start", courseStart.Add(time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.IsLate(tt.now, courseStart); got != tt.want {
				t.Errorf("IsLate(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

// TestCancelPolicy_Decide tests default outcomes and admin override.
func TestCancelPolicy_Decide(t *testing.T) {
	policy := registration.NewCancelPolicy(24 * time.Hour)
	refund := true
	forfeit := false

	tests := []struct {
		name           string
		now            time.Time
		override       *bool
		wantRefund     bool
		wantLate       bool
		wantOverridden bool
	}{
		{"early cancel refunds", courseStart.Add(-30 * time.Hour), nil, true, false, false},
		{"late cancel forfeits", courseStart.Add(-2 * time.Hour), nil, false, true, false},
		{"admin forces refund when late", courseStart.Add(-2 * time.Hour), &refund, true, true, true},
		{"admin forces forfeit when early", courseStart.Add(-30 * time.Hour), &forfeit, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := policy.Decide(tt.now, courseStart, tt.override)
			if d.Refund != tt.wantRefund {
				t.Errorf("Decide() refund = %v, want %v", d.Refund, tt.wantRefund)
			}
			if d.Late != tt.wantLate {
				t.Errorf("Decide() late = %v, want %v", d.Late, tt.wantLate)
			}
			if d.Overridden != tt.wantOverridden {
				t.Errorf("Decide() overridden = %v, want %v", d.Overridden, tt.wantOverridden)
			}
		})
	}
}

// TestNewCancelPolicy_Default tests the fallback cutoff.
func TestNewCancelPolicy_Default(t *testing.T) {
	if p := registration.NewCancelPolicy(0); p.Cutoff != registration.DefaultCancelCutoff {
		t.Errorf("expected default cutoff %v, got %v", registration.DefaultCancelCutoff, p.Cutoff)
	}
	if p := registration.NewCancelPolicy(12 * time.Hour); p.Cutoff != 12*time.Hour {
		t.Errorf("expected configured cutoff 12h, got %v", p.Cutoff)
	}
}
