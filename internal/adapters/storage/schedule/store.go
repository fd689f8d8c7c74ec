package schedule

import (
	"context"

	domain "gymdesk/internal/domain/schedule"
)

// Store defines the interface for Schedule persistence.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Schedule, error)
	Save(ctx context.Context, entity domain.Schedule) error
	List(ctx context.Context) ([]domain.Schedule, error)
	Delete(ctx context.Context, id string) error
}
