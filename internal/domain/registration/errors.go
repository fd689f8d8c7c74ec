package registration

import (
	"errors"
	"fmt"
)

// Admission guard errors. All are recovered at the operation boundary and
// returned as typed results; only storage failures propagate as-is.
var (
	ErrCapacityExceeded     = errors.New("course instance is at capacity")
	ErrAlreadyRegistered    = errors.New("member already holds an active registration for this course")
	ErrCourseAlreadyStarted = errors.New("course instance has already started")
	ErrCourseNotEnded       = errors.New("course instance has not ended yet")
	ErrNoActiveSubscription = errors.New("member has no active subscription covering this class")
	ErrAlreadyCheckedIn     = errors.New("registration has already been checked in")
	ErrConcurrentConflict   = errors.New("registration was modified by a concurrent operation")
)

// OverlapConflict describes one existing registration that collides with the
// attempted time window. Carried on OverlapError so the caller can render the
// conflict list and decide whether to retry with force.
type OverlapConflict struct {
	CourseInstanceID string
	ClassName        string
	CourseDate       string // YYYY-MM-DD
	StartTime        string // HH:MM
	EndTime          string // HH:MM
	TrainerID        string
}

// OverlapError is the recoverable admission failure for same-day time
// collisions. Retrying the registration with the force flag bypasses only
// this check.
type OverlapError struct {
	Conflicts []OverlapConflict
}

// Error implements the error interface.
func (e *OverlapError) Error() string {
	return fmt.Sprintf("registration overlaps %d existing registration(s)", len(e.Conflicts))
}

// AsOverlapError unwraps err into an OverlapError if it is one.
// PRE: none
// POST: Returns the typed error and true, or nil and false
func AsOverlapError(err error) (*OverlapError, bool) {
	var oe *OverlapError
	if errors.As(err, &oe) {
		return oe, true
	}
	return nil, false
}
