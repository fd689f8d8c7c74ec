package checkin

import (
	"errors"
	"time"
)

// ValidatedBySelf marks a member-initiated (kiosk/QR) check-in.
const ValidatedBySelf = "self"

// CheckIn records the moment a registration transitioned to attended.
// Exactly one check-in exists per registration; unvalidating deletes it.
type CheckIn struct {
	ID              string
	RegistrationID  string
	CheckInTime     time.Time
	SessionConsumed bool // false for guest registrations
	Late            bool // informational: the member arrived after class start
	ValidatedBy     string
}

// Validate checks if the CheckIn has valid data.
// PRE: CheckIn struct is initialized
// POST: Returns error if validation fails, nil otherwise
func (c *CheckIn) Validate() error {
	if c.RegistrationID == "" {
		return errors.New("check-in must reference a registration")
	}
	if c.CheckInTime.IsZero() {
		return errors.New("check-in time must be set")
	}
	if c.ValidatedBy == "" {
		return errors.New("check-in must record who validated it")
	}
	return nil
}
