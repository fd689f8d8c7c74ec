package registration

import (
	"errors"
	"strings"
	"time"
)

// Registration status constants.
const (
	StatusRegistered = "registered"
	StatusAttended   = "attended"
	StatusAbsent     = "absent"
	StatusCancelled  = "cancelled"
)

// ValidStatuses contains all valid status values.
var ValidStatuses = []string{StatusRegistered, StatusAttended, StatusAbsent, StatusCancelled}

// Max length constants for user-editable fields.
const (
	MaxNotesLength = 1000
)

// Domain errors
var (
	ErrInvalidStatus     = errors.New("registration status is not recognized")
	ErrInvalidTransition = errors.New("registration status transition is not allowed")
)

// transitions is the closed table of legal status transitions.
// registered is the only non-terminal state; the attended -> registered
// edge exists solely for the explicit check-in/unvalidate pair.
var transitions = map[string][]string{
	StatusRegistered: {StatusAttended, StatusAbsent, StatusCancelled},
	StatusAttended:   {StatusRegistered},
	StatusAbsent:     {},
	StatusCancelled:  {},
}

// CanTransition reports whether moving a registration from one status to
// another is legal.
// PRE: none
// POST: Returns true only for edges in the transition table
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Registration is one member's claim on one course instance.
type Registration struct {
	ID               string
	MemberID         string
	CourseInstanceID string
	Status           string
	RegisteredAt     time.Time
	QRCode           string // opaque unique token presented at check-in
	IsGuest          bool
	Notes            string
	GroupSessionID   string // the pool debited at registration time; empty for guests
}

// Validate checks if the Registration has valid data.
// PRE: Registration struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: guest registrations never reference a group session
func (r *Registration) Validate() error {
	if r.MemberID == "" {
		return errors.New("registration must be associated with a member")
	}
	if r.CourseInstanceID == "" {
		return errors.New("registration must reference a course instance")
	}
	if !isValidStatus(r.Status) {
		return ErrInvalidStatus
	}
	if r.RegisteredAt.IsZero() {
		return errors.New("registration time must be set")
	}
	if strings.TrimSpace(r.QRCode) == "" {
		return errors.New("registration QR code must be set")
	}
	if len(r.Notes) > MaxNotesLength {
		return errors.New("registration notes cannot exceed 1000 characters")
	}
	if r.IsGuest && r.GroupSessionID != "" {
		return errors.New("guest registrations cannot hold a group session")
	}
	return nil
}

// IsActive returns true while the registration counts against capacity.
// INVARIANT: Status field is not mutated
func (r *Registration) IsActive() bool {
	return r.Status == StatusRegistered || r.Status == StatusAttended
}

// IsTerminal returns true once the registration has left the registered state
// for good (absent and cancelled have no outgoing transitions).
// INVARIANT: Status field is not mutated
func (r *Registration) IsTerminal() bool {
	return r.Status == StatusAbsent || r.Status == StatusCancelled
}

// Transition moves the registration to a new status.
// PRE: the transition is legal per CanTransition
// POST: Status is updated, or ErrInvalidTransition
func (r *Registration) Transition(to string) error {
	if !isValidStatus(to) {
		return ErrInvalidStatus
	}
	if !CanTransition(r.Status, to) {
		return ErrInvalidTransition
	}
	r.Status = to
	return nil
}

func isValidStatus(status string) bool {
	for _, s := range ValidStatuses {
		if s == status {
			return true
		}
	}
	return false
}
