package ledger

import (
	"context"

	domain "gymdesk/internal/domain/ledger"
)

// Store defines the interface for session pool and ledger persistence.
type Store interface {
	GetGroupSession(ctx context.Context, id string) (domain.GroupSession, error)
	SaveGroupSession(ctx context.Context, entity domain.GroupSession) error
	ListBySubscription(ctx context.Context, subscriptionID string) ([]domain.GroupSession, error)
	// ListEligible returns the member's debitable pools for a class category
	// on a given date, soonest-expiring subscription first.
	ListEligible(ctx context.Context, memberID, category, onDate string) ([]domain.GroupSession, error)
	// AdjustWithEntry applies a balance change guarded against concurrent
	// writers and records the ledger entry atomically.
	AdjustWithEntry(ctx context.Context, session domain.GroupSession, entry domain.Entry) error
	ListEntries(ctx context.Context, groupSessionID string) ([]domain.Entry, error)
}
