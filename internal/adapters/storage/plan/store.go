package plan

import (
	"context"

	domain "gymdesk/internal/domain/plan"
)

// Store defines the interface for Plan persistence. Plans are always loaded
// and saved together with their session groups.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Plan, error)
	Save(ctx context.Context, entity domain.Plan) error
	List(ctx context.Context) ([]domain.Plan, error)
}
