package courseinstance

import (
	"context"

	domain "gymdesk/internal/domain/courseinstance"
)

// Store defines the interface for CourseInstance persistence.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.CourseInstance, error)
	Save(ctx context.Context, entity domain.CourseInstance) error
	// SaveAll inserts instances, silently skipping any (schedule, date) pair
	// that already exists so materialization can be re-run safely.
	SaveAll(ctx context.Context, entities []domain.CourseInstance) (int, error)
	ListByDateRange(ctx context.Context, from, to string) ([]domain.CourseInstance, error)
	ListByMemberOnDate(ctx context.Context, memberID, date string) ([]domain.CourseInstance, error)
	MarkCompletedBefore(ctx context.Context, cutoff string) (int, error)
	UpdateStatus(ctx context.Context, id, status string) error
}
