package projections

import (
	"context"
	"errors"

	"gymdesk/internal/domain/classtype"
	"gymdesk/internal/domain/courseinstance"
)

// CalendarInstanceStore defines the store interface needed by this projection.
type CalendarInstanceStore interface {
	ListByDateRange(ctx context.Context, from, to string) ([]courseinstance.CourseInstance, error)
}

// CalendarClassTypeStore defines the store interface needed by this projection.
type CalendarClassTypeStore interface {
	List(ctx context.Context) ([]classtype.ClassType, error)
}

// CalendarRegistrationStore defines the store interface needed by this projection.
type CalendarRegistrationStore interface {
	CountActiveByCourseInstance(ctx context.Context, courseInstanceID string) (int, error)
}

// GetCalendarDeps holds dependencies for the projection.
type GetCalendarDeps struct {
	InstanceStore     CalendarInstanceStore
	ClassTypeStore    CalendarClassTypeStore
	RegistrationStore CalendarRegistrationStore
}

// CalendarEntry is one class occurrence with its fill state.
type CalendarEntry struct {
	CourseInstanceID string
	ClassTypeID      string
	ClassName        string
	Category         string
	TrainerID        string
	CourseDate       string
	StartTime        string
	EndTime          string
	Status           string
	MaxCapacity      int
	Registered       int
	SpotsLeft        int
}

// QueryGetCalendar returns the class calendar for a date window, each entry
// carrying its live registration count.
// PRE: from <= to, both YYYY-MM-DD
// POST: Entries ordered by date then start time
func QueryGetCalendar(ctx context.Context, from, to string, deps GetCalendarDeps) ([]CalendarEntry, error) {
	if from == "" || to == "" {
		return nil, errors.New("calendar window requires from and to dates")
	}

	instances, err := deps.InstanceStore.ListByDateRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	classTypes, err := deps.ClassTypeStore.List(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]classtype.ClassType, len(classTypes))
	for _, ct := range classTypes {
		byID[ct.ID] = ct
	}

	entries := make([]CalendarEntry, 0, len(instances))
	for _, inst := range instances {
		count, err := deps.RegistrationStore.CountActiveByCourseInstance(ctx, inst.ID)
		if err != nil {
			return nil, err
		}
		entry := CalendarEntry{
			CourseInstanceID: inst.ID,
			ClassTypeID:      inst.ClassTypeID,
			TrainerID:        inst.TrainerID,
			CourseDate:       inst.CourseDate,
			StartTime:        inst.StartTime,
			EndTime:          inst.EndTime,
			Status:           inst.Status,
			MaxCapacity:      inst.MaxCapacity,
			Registered:       count,
			SpotsLeft:        inst.MaxCapacity - count,
		}
		if ct, ok := byID[inst.ClassTypeID]; ok {
			entry.ClassName = ct.Name
			entry.Category = ct.Category
		}
		if entry.SpotsLeft < 0 {
			entry.SpotsLeft = 0
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
