package subscription

import (
	"context"

	domain "gymdesk/internal/domain/subscription"
)

// Store defines the interface for Subscription persistence.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Subscription, error)
	Save(ctx context.Context, entity domain.Subscription) error
	ListByMember(ctx context.Context, memberID string) ([]domain.Subscription, error)
}
