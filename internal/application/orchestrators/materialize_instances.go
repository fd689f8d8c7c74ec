package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gymdesk/internal/domain/classtype"
	"gymdesk/internal/domain/courseinstance"
	"gymdesk/internal/domain/schedule"

	"github.com/google/uuid"
)

// MaterializeScheduleStore defines the schedule store interface needed by materialization.
type MaterializeScheduleStore interface {
	List(ctx context.Context) ([]schedule.Schedule, error)
}

// MaterializeClassTypeStore defines the class type store interface needed by materialization.
type MaterializeClassTypeStore interface {
	GetByID(ctx context.Context, id string) (classtype.ClassType, error)
}

// MaterializeInstanceStore defines the course instance store interface needed by materialization.
type MaterializeInstanceStore interface {
	SaveAll(ctx context.Context, entities []courseinstance.CourseInstance) (int, error)
	MarkCompletedBefore(ctx context.Context, cutoff string) (int, error)
}

// MaterializeInstancesInput carries the window to materialize.
type MaterializeInstancesInput struct {
	From string // YYYY-MM-DD
	To   string // YYYY-MM-DD
}

// MaterializeInstancesResult reports what materialization did.
type MaterializeInstancesResult struct {
	Created   int
	Completed int // past instances transitioned to completed
}

// MaterializeInstancesDeps holds dependencies for MaterializeInstances.
type MaterializeInstancesDeps struct {
	ScheduleStore  MaterializeScheduleStore
	ClassTypeStore MaterializeClassTypeStore
	InstanceStore  MaterializeInstanceStore
	GenerateID     func() string
	Now            func() time.Time
}

// ExecuteMaterializeInstances expands every schedule over the window into
// concrete course instances. Dates that already have an instance for the
// schedule are left untouched, so the operation can run repeatedly; it also
// sweeps scheduled instances whose date has passed into completed.
// PRE: From and To are YYYY-MM-DD with From <= To
// POST: One instance per (schedule, occurrence date) exists across the window
func ExecuteMaterializeInstances(ctx context.Context, input MaterializeInstancesInput, deps MaterializeInstancesDeps) (MaterializeInstancesResult, error) {
	if deps.GenerateID == nil {
		deps.GenerateID = func() string { return uuid.New().String() }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	from, err := time.Parse(schedule.DateLayout, input.From)
	if err != nil {
		return MaterializeInstancesResult{}, errors.New("from date must be YYYY-MM-DD")
	}
	to, err := time.Parse(schedule.DateLayout, input.To)
	if err != nil {
		return MaterializeInstancesResult{}, errors.New("to date must be YYYY-MM-DD")
	}
	if to.Before(from) {
		return MaterializeInstancesResult{}, errors.New("materialization window is inverted")
	}

	schedules, err := deps.ScheduleStore.List(ctx)
	if err != nil {
		return MaterializeInstancesResult{}, err
	}

	instances := []courseinstance.CourseInstance{}
	for _, sched := range schedules {
		dates, err := sched.Occurrences(from, to)
		if err != nil {
			slog.Warn("materialize_event", "event", "schedule_skipped", "schedule_id", sched.ID, "error", err)
			continue
		}
		if len(dates) == 0 {
			continue
		}
		classType, err := deps.ClassTypeStore.GetByID(ctx, sched.ClassTypeID)
		if err != nil {
			slog.Warn("materialize_event", "event", "schedule_skipped", "schedule_id", sched.ID, "error", "class type not found")
			continue
		}
		trainerID := sched.TrainerID
		if trainerID == "" {
			trainerID = classType.TrainerID
		}
		for _, date := range dates {
			instances = append(instances, courseinstance.CourseInstance{
				ID:          deps.GenerateID(),
				ScheduleID:  sched.ID,
				ClassTypeID: sched.ClassTypeID,
				TrainerID:   trainerID,
				CourseDate:  date,
				StartTime:   sched.StartTime,
				EndTime:     sched.EndTime,
				MaxCapacity: classType.MaxCapacity,
				Status:      courseinstance.StatusScheduled,
			})
		}
	}

	created, err := deps.InstanceStore.SaveAll(ctx, instances)
	if err != nil {
		return MaterializeInstancesResult{Created: created}, err
	}

	today := deps.Now().Format(schedule.DateLayout)
	completed, err := deps.InstanceStore.MarkCompletedBefore(ctx, today)
	if err != nil {
		return MaterializeInstancesResult{Created: created}, err
	}

	slog.Info("materialize_event", "event", "instances_materialized", "from", input.From, "to", input.To, "created", created, "completed", completed)
	return MaterializeInstancesResult{Created: created, Completed: completed}, nil
}
