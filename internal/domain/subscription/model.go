package subscription

import (
	"errors"
	"time"
)

// Subscription status constants.
const (
	StatusActive    = "active"
	StatusExpired   = "expired"
	StatusCancelled = "cancelled"
)

// ValidStatuses contains all valid status values.
var ValidStatuses = []string{StatusActive, StatusExpired, StatusCancelled}

// Domain errors
var (
	ErrInvalidStatus = errors.New("subscription status is not recognized")
	ErrInvalidDates  = errors.New("subscription start date must be before end date")
)

// Subscription ties a member to a plan for a date range. Its session pools
// live in the ledger as one GroupSession per plan group.
type Subscription struct {
	ID        string
	MemberID  string
	PlanID    string
	StartDate time.Time
	EndDate   time.Time
	Status    string
}

// Validate checks if the Subscription has valid data.
// PRE: Subscription struct is populated
// POST: Returns nil if valid, error otherwise
func (s *Subscription) Validate() error {
	if s.MemberID == "" {
		return errors.New("subscription must be associated with a member")
	}
	if s.PlanID == "" {
		return errors.New("subscription must reference a plan")
	}
	if s.StartDate.IsZero() || s.EndDate.IsZero() {
		return errors.New("subscription dates must be set")
	}
	if !s.StartDate.Before(s.EndDate) {
		return ErrInvalidDates
	}
	if !isValidStatus(s.Status) {
		return ErrInvalidStatus
	}
	return nil
}

// IsActiveOn reports whether the subscription grants entitlements at the
// given moment.
// INVARIANT: Subscription fields are not mutated
func (s *Subscription) IsActiveOn(at time.Time) bool {
	if s.Status != StatusActive {
		return false
	}
	return !at.Before(s.StartDate) && !at.After(s.EndDate)
}

func isValidStatus(status string) bool {
	for _, v := range ValidStatuses {
		if v == status {
			return true
		}
	}
	return false
}
