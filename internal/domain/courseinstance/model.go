package courseinstance

import (
	"errors"
	"fmt"
	"time"
)

// Course instance status constants.
const (
	StatusScheduled  = "scheduled"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// ValidStatuses contains all valid status values.
var ValidStatuses = []string{StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled}

// Domain errors
var (
	ErrInvalidStatus = errors.New("course instance status is not recognized")
	ErrNotOpen       = errors.New("course instance is not open for registration")
)

// DateTimeLayout combines the stored date and time columns into one parseable
// timestamp.
const DateTimeLayout = "2006-01-02 15:04"

// CourseInstance is one concrete dated occurrence of a scheduled class.
// Immutable once materialized except for Status and admin edits.
type CourseInstance struct {
	ID          string
	ScheduleID  string
	ClassTypeID string
	TrainerID   string
	CourseDate  string // YYYY-MM-DD
	StartTime   string // HH:MM
	EndTime     string // HH:MM
	MaxCapacity int
	Status      string
}

// Validate checks if the CourseInstance has valid data.
// PRE: CourseInstance struct is populated
// POST: Returns nil if valid, error otherwise
func (c *CourseInstance) Validate() error {
	if c.ScheduleID == "" {
		return errors.New("course instance must reference a schedule")
	}
	if c.ClassTypeID == "" {
		return errors.New("course instance must reference a class type")
	}
	if _, err := time.Parse("2006-01-02", c.CourseDate); err != nil {
		return fmt.Errorf("invalid course date %q: %w", c.CourseDate, err)
	}
	if _, err := c.StartsAt(); err != nil {
		return err
	}
	if _, err := c.EndsAt(); err != nil {
		return err
	}
	if c.MaxCapacity <= 0 {
		return errors.New("course instance capacity must be positive")
	}
	if !isValidStatus(c.Status) {
		return ErrInvalidStatus
	}
	return nil
}

// StartsAt returns the instance's start as a single timestamp.
// PRE: CourseDate and StartTime are in storage format
// POST: Returns the combined time, or a parse error
func (c *CourseInstance) StartsAt() (time.Time, error) {
	t, err := time.Parse(DateTimeLayout, c.CourseDate+" "+c.StartTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start time %q: %w", c.StartTime, err)
	}
	return t, nil
}

// EndsAt returns the instance's end as a single timestamp.
// PRE: CourseDate and EndTime are in storage format
// POST: Returns the combined time, or a parse error
func (c *CourseInstance) EndsAt() (time.Time, error) {
	t, err := time.Parse(DateTimeLayout, c.CourseDate+" "+c.EndTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid end time %q: %w", c.EndTime, err)
	}
	if start, serr := c.StartsAt(); serr == nil && !t.After(start) {
		t = t.AddDate(0, 0, 1) // overnight class
	}
	return t, nil
}

// HasStarted reports whether the class start has passed.
// INVARIANT: CourseInstance fields are not mutated
func (c *CourseInstance) HasStarted(now time.Time) bool {
	start, err := c.StartsAt()
	if err != nil {
		return false
	}
	return !now.Before(start)
}

// HasEnded reports whether the class end has passed.
// INVARIANT: CourseInstance fields are not mutated
func (c *CourseInstance) HasEnded(now time.Time) bool {
	end, err := c.EndsAt()
	if err != nil {
		return false
	}
	return now.After(end)
}

// IsOpen returns true while new registrations may target this instance.
// INVARIANT: Status field is not mutated
func (c *CourseInstance) IsOpen() bool {
	return c.Status == StatusScheduled
}

// Overlaps reports whether two instances on the same date have intersecting
// [start, end) windows.
// PRE: both instances have parseable times
// POST: Returns true on any intersection, false otherwise or on parse failure
func (c *CourseInstance) Overlaps(other *CourseInstance) bool {
	if c.CourseDate != other.CourseDate {
		return false
	}
	aStart, err := c.StartsAt()
	if err != nil {
		return false
	}
	aEnd, err := c.EndsAt()
	if err != nil {
		return false
	}
	bStart, err := other.StartsAt()
	if err != nil {
		return false
	}
	bEnd, err := other.EndsAt()
	if err != nil {
		return false
	}
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

func isValidStatus(status string) bool {
	for _, s := range ValidStatuses {
		if s == status {
			return true
		}
	}
	return false
}
