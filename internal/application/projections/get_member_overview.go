package projections

import (
	"context"
	"errors"

	"gymdesk/internal/domain/ledger"
	"gymdesk/internal/domain/member"
	"gymdesk/internal/domain/registration"
	"gymdesk/internal/domain/subscription"
)

// OverviewMemberStore defines the store interface needed by this projection.
type OverviewMemberStore interface {
	GetByID(ctx context.Context, id string) (member.Member, error)
}

// OverviewSubscriptionStore defines the store interface needed by this projection.
type OverviewSubscriptionStore interface {
	ListByMember(ctx context.Context, memberID string) ([]subscription.Subscription, error)
}

// OverviewLedgerStore defines the store interface needed by this projection.
type OverviewLedgerStore interface {
	ListBySubscription(ctx context.Context, subscriptionID string) ([]ledger.GroupSession, error)
}

// OverviewRegistrationStore defines the store interface needed by this projection.
type OverviewRegistrationStore interface {
	ListByMember(ctx context.Context, memberID string, limit int) ([]registration.Registration, error)
}

// GetMemberOverviewDeps holds dependencies for the projection.
type GetMemberOverviewDeps struct {
	MemberStore       OverviewMemberStore
	SubscriptionStore OverviewSubscriptionStore
	LedgerStore       OverviewLedgerStore
	RegistrationStore OverviewRegistrationStore
}

// SubscriptionBalance is one subscription with its pool balances.
type SubscriptionBalance struct {
	Subscription subscription.Subscription
	Pools        []ledger.GroupSession
}

// MemberOverviewResult is the member profile snapshot: identity,
// subscriptions with balances, and recent registrations.
type MemberOverviewResult struct {
	Member              member.Member
	Subscriptions       []SubscriptionBalance
	RecentRegistrations []registration.Registration
}

// QueryGetMemberOverview assembles a member's profile view.
// PRE: memberID is non-empty
// POST: Returns the member with balances and up to 20 recent registrations
func QueryGetMemberOverview(ctx context.Context, memberID string, deps GetMemberOverviewDeps) (MemberOverviewResult, error) {
	if memberID == "" {
		return MemberOverviewResult{}, errors.New("member ID is required")
	}

	m, err := deps.MemberStore.GetByID(ctx, memberID)
	if err != nil {
		return MemberOverviewResult{}, errors.New("member not found")
	}

	subs, err := deps.SubscriptionStore.ListByMember(ctx, memberID)
	if err != nil {
		return MemberOverviewResult{}, err
	}
	balances := make([]SubscriptionBalance, 0, len(subs))
	for _, sub := range subs {
		pools, err := deps.LedgerStore.ListBySubscription(ctx, sub.ID)
		if err != nil {
			return MemberOverviewResult{}, err
		}
		balances = append(balances, SubscriptionBalance{Subscription: sub, Pools: pools})
	}

	recent, err := deps.RegistrationStore.ListByMember(ctx, memberID, 20)
	if err != nil {
		return MemberOverviewResult{}, err
	}

	return MemberOverviewResult{Member: m, Subscriptions: balances, RecentRegistrations: recent}, nil
}
