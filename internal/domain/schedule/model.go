package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repetition type constants.
const (
	RepeatOnce    = "once"
	RepeatDaily   = "daily"
	RepeatWeekly  = "weekly"
	RepeatMonthly = "monthly"
)

// Day of week constants
const (
	Monday    = "monday"
	Tuesday   = "tuesday"
	Wednesday = "wednesday"
	Thursday  = "thursday"
	Friday    = "friday"
	Saturday  = "saturday"
	Sunday    = "sunday"
)

// ValidDays contains all valid day values.
var ValidDays = []string{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// DateLayout is the storage format for calendar dates.
const DateLayout = "2006-01-02"

// Domain errors
var (
	ErrEmptyClassTypeID      = errors.New("class type ID cannot be empty")
	ErrInvalidScheduleConfig = errors.New("schedule configuration is invalid")
	ErrInvalidDay            = errors.New("day must be a valid day of the week")
	ErrEmptyStartTime        = errors.New("start time cannot be empty")
	ErrEmptyEndTime          = errors.New("end time cannot be empty")
)

// Schedule defines when a class runs. Once schedules carry a single
// ScheduleDate; recurring schedules carry a StartDate/EndDate range and are
// expanded into dated course instances by Occurrences.
type Schedule struct {
	ID           string
	ClassTypeID  string
	TrainerID    string
	Repetition   string // once, daily, weekly, monthly
	ScheduleDate string // YYYY-MM-DD, once only
	StartDate    string // YYYY-MM-DD, recurring only
	EndDate      string // YYYY-MM-DD, recurring only
	Day          string // monday..sunday, weekly only
	StartTime    string // HH:MM format
	EndTime      string // HH:MM format
}

// expand is the per-variant date generator. Each repetition type owns its own
// expansion function; adding a variant means adding a row here.
var expand = map[string]func(s *Schedule, from, to time.Time) []string{
	RepeatOnce:    expandOnce,
	RepeatDaily:   expandDaily,
	RepeatWeekly:  expandWeekly,
	RepeatMonthly: expandMonthly,
}

// Validate checks if the Schedule has valid data for its repetition type.
// PRE: Schedule struct is populated
// POST: Returns nil if valid, ErrInvalidScheduleConfig (wrapped) otherwise
func (s *Schedule) Validate() error {
	if strings.TrimSpace(s.ClassTypeID) == "" {
		return ErrEmptyClassTypeID
	}
	if strings.TrimSpace(s.StartTime) == "" {
		return ErrEmptyStartTime
	}
	if strings.TrimSpace(s.EndTime) == "" {
		return ErrEmptyEndTime
	}
	if _, ok := expand[s.Repetition]; !ok {
		return fmt.Errorf("%w: unrecognized repetition type %q", ErrInvalidScheduleConfig, s.Repetition)
	}
	if s.Repetition == RepeatOnce {
		if _, err := time.Parse(DateLayout, s.ScheduleDate); err != nil {
			return fmt.Errorf("%w: once schedules need a valid schedule date", ErrInvalidScheduleConfig)
		}
		return nil
	}
	start, err := time.Parse(DateLayout, s.StartDate)
	if err != nil {
		return fmt.Errorf("%w: recurring schedules need a valid start date", ErrInvalidScheduleConfig)
	}
	end, err := time.Parse(DateLayout, s.EndDate)
	if err != nil {
		return fmt.Errorf("%w: recurring schedules need a valid end date", ErrInvalidScheduleConfig)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: end date is before start date", ErrInvalidScheduleConfig)
	}
	if s.Repetition == RepeatWeekly && !isValidDay(s.Day) {
		return ErrInvalidDay
	}
	return nil
}

// Occurrences expands the schedule into concrete class dates within
// [from, to], intersected with the schedule's own date range.
// PRE: the schedule validates
// POST: Returns dates in YYYY-MM-DD format, ascending, possibly empty
func (s *Schedule) Occurrences(from, to time.Time) ([]string, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: occurrence range end is before start", ErrInvalidScheduleConfig)
	}
	return expand[s.Repetition](s, truncateDay(from), truncateDay(to)), nil
}

// DurationHours returns the session duration in hours.
// PRE: StartTime and EndTime are in HH:MM format
// POST: Returns duration as float64 hours, or error if times can't be parsed
func (s *Schedule) DurationHours() (float64, error) {
	start, err := time.Parse("15:04", s.StartTime)
	if err != nil {
		return 0, fmt.Errorf("invalid start time %q: %w", s.StartTime, err)
	}
	end, err := time.Parse("15:04", s.EndTime)
	if err != nil {
		return 0, fmt.Errorf("invalid end time %q: %w", s.EndTime, err)
	}
	dur := end.Sub(start)
	if dur <= 0 {
		dur += 24 * time.Hour // handle overnight classes
	}
	return dur.Hours(), nil
}

func expandOnce(s *Schedule, from, to time.Time) []string {
	d, _ := time.Parse(DateLayout, s.ScheduleDate)
	if d.Before(from) || d.After(to) {
		return nil
	}
	return []string{s.ScheduleDate}
}

func expandDaily(s *Schedule, from, to time.Time) []string {
	var dates []string
	for d := rangeStart(s, from); !d.After(rangeEnd(s, to)); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(DateLayout))
	}
	return dates
}

func expandWeekly(s *Schedule, from, to time.Time) []string {
	var dates []string
	for d := rangeStart(s, from); !d.After(rangeEnd(s, to)); d = d.AddDate(0, 0, 1) {
		if strings.ToLower(d.Weekday().String()) == s.Day {
			dates = append(dates, d.Format(DateLayout))
		}
	}
	return dates
}

// expandMonthly emits one date per month on the start date's day-of-month.
// Months without that day (e.g. the 31st in February) are skipped, never
// rolled over.
func expandMonthly(s *Schedule, from, to time.Time) []string {
	start, _ := time.Parse(DateLayout, s.StartDate)
	dayOfMonth := start.Day()
	first := rangeStart(s, from)
	last := rangeEnd(s, to)

	var dates []string
	for month := time.Date(first.Year(), first.Month(), 1, 0, 0, 0, 0, time.UTC); !month.After(last); month = month.AddDate(0, 1, 0) {
		d := time.Date(month.Year(), month.Month(), dayOfMonth, 0, 0, 0, 0, time.UTC)
		if d.Month() != month.Month() {
			continue // month has no such day
		}
		if d.Before(first) || d.After(last) {
			continue
		}
		dates = append(dates, d.Format(DateLayout))
	}
	return dates
}

// rangeStart returns the later of the schedule's start date and from.
func rangeStart(s *Schedule, from time.Time) time.Time {
	start, _ := time.Parse(DateLayout, s.StartDate)
	if start.After(from) {
		return start
	}
	return from
}

// rangeEnd returns the earlier of the schedule's end date and to.
func rangeEnd(s *Schedule, to time.Time) time.Time {
	end, _ := time.Parse(DateLayout, s.EndDate)
	if end.Before(to) {
		return end
	}
	return to
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func isValidDay(day string) bool {
	for _, d := range ValidDays {
		if d == day {
			return true
		}
	}
	return false
}
