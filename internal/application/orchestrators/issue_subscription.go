package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gymdesk/internal/domain/ledger"
	"gymdesk/internal/domain/member"
	"gymdesk/internal/domain/plan"
	"gymdesk/internal/domain/subscription"

	"github.com/google/uuid"
)

// SubscriptionMemberStore defines the member store interface needed by issuance.
type SubscriptionMemberStore interface {
	GetByID(ctx context.Context, id string) (member.Member, error)
}

// SubscriptionPlanStore defines the plan store interface needed by issuance.
type SubscriptionPlanStore interface {
	GetByID(ctx context.Context, id string) (plan.Plan, error)
}

// SubscriptionStoreForOrchestrator defines the subscription store interface needed by issuance.
type SubscriptionStoreForOrchestrator interface {
	Save(ctx context.Context, s subscription.Subscription) error
}

// SubscriptionLedgerStore defines the ledger store interface needed by issuance.
type SubscriptionLedgerStore interface {
	SaveGroupSession(ctx context.Context, g ledger.GroupSession) error
}

// IssueSubscriptionInput carries input for the issuance orchestrator.
type IssueSubscriptionInput struct {
	MemberID  string
	PlanID    string
	StartDate string // YYYY-MM-DD
	EndDate   string // YYYY-MM-DD
	Actor     string
}

// IssueSubscriptionResult carries the created subscription and its pools.
type IssueSubscriptionResult struct {
	SubscriptionID  string
	GroupSessionIDs []string
}

// IssueSubscriptionDeps holds dependencies for IssueSubscription.
type IssueSubscriptionDeps struct {
	MemberStore       SubscriptionMemberStore
	PlanStore         SubscriptionPlanStore
	SubscriptionStore SubscriptionStoreForOrchestrator
	LedgerStore       SubscriptionLedgerStore
	GenerateID        func() string
}

// ExecuteIssueSubscription creates an active subscription and seeds one full
// session pool per group of the plan.
// PRE: Member exists and is active; plan exists; dates are a valid range
// POST: Subscription active with one GroupSession per plan group, Remaining=Total
func ExecuteIssueSubscription(ctx context.Context, input IssueSubscriptionInput, deps IssueSubscriptionDeps) (IssueSubscriptionResult, error) {
	if deps.GenerateID == nil {
		deps.GenerateID = func() string { return uuid.New().String() }
	}
	if input.MemberID == "" {
		return IssueSubscriptionResult{}, errors.New("member ID is required")
	}
	if input.PlanID == "" {
		return IssueSubscriptionResult{}, errors.New("plan ID is required")
	}

	m, err := deps.MemberStore.GetByID(ctx, input.MemberID)
	if err != nil {
		return IssueSubscriptionResult{}, errors.New("member not found")
	}
	if !m.CanRegister() {
		return IssueSubscriptionResult{}, errors.New("member is not active")
	}

	p, err := deps.PlanStore.GetByID(ctx, input.PlanID)
	if err != nil {
		return IssueSubscriptionResult{}, errors.New("plan not found")
	}

	start, err := time.Parse("2006-01-02", input.StartDate)
	if err != nil {
		return IssueSubscriptionResult{}, errors.New("start date must be YYYY-MM-DD")
	}
	end, err := time.Parse("2006-01-02", input.EndDate)
	if err != nil {
		return IssueSubscriptionResult{}, errors.New("end date must be YYYY-MM-DD")
	}

	sub := subscription.Subscription{
		ID:        deps.GenerateID(),
		MemberID:  input.MemberID,
		PlanID:    input.PlanID,
		StartDate: start,
		EndDate:   end,
		Status:    subscription.StatusActive,
	}
	if err := sub.Validate(); err != nil {
		return IssueSubscriptionResult{}, err
	}
	if err := deps.SubscriptionStore.Save(ctx, sub); err != nil {
		return IssueSubscriptionResult{}, err
	}

	poolIDs := make([]string, 0, len(p.Groups))
	for _, g := range p.Groups {
		pool := ledger.GroupSession{
			ID:             deps.GenerateID(),
			SubscriptionID: sub.ID,
			GroupID:        g.ID,
			Remaining:      g.Sessions,
			Total:          g.Sessions,
		}
		if err := pool.Validate(); err != nil {
			return IssueSubscriptionResult{}, err
		}
		if err := deps.LedgerStore.SaveGroupSession(ctx, pool); err != nil {
			return IssueSubscriptionResult{}, err
		}
		poolIDs = append(poolIDs, pool.ID)
	}

	slog.Info("subscription_event", "event", "subscription_issued", "subscription_id", sub.ID, "member_id", input.MemberID, "plan_id", input.PlanID, "pools", len(poolIDs), "actor", input.Actor)
	return IssueSubscriptionResult{SubscriptionID: sub.ID, GroupSessionIDs: poolIDs}, nil
}
