package classtype

import (
	"context"

	domain "gymdesk/internal/domain/classtype"
)

// Store defines the interface for ClassType persistence.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.ClassType, error)
	Save(ctx context.Context, entity domain.ClassType) error
	List(ctx context.Context) ([]domain.ClassType, error)
}
