package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gymdesk/internal/domain/ledger"

	"github.com/google/uuid"
)

// AdjustLedgerStore defines the ledger store interface needed by manual adjustments.
type AdjustLedgerStore interface {
	GetGroupSession(ctx context.Context, id string) (ledger.GroupSession, error)
	AdjustWithEntry(ctx context.Context, session ledger.GroupSession, entry ledger.Entry) error
}

// AdjustSessionsInput carries input for a manual balance correction.
type AdjustSessionsInput struct {
	GroupSessionID string
	Delta          int    // signed; negative removes sessions
	Actor          string // staff account ID
}

// AdjustSessionsResult carries the balance after the adjustment.
type AdjustSessionsResult struct {
	Remaining int
	Total     int
}

// AdjustSessionsDeps holds dependencies for AdjustSessions.
type AdjustSessionsDeps struct {
	LedgerStore AdjustLedgerStore
	GenerateID  func() string
	Now         func() time.Time
}

// ExecuteAdjustSessions applies a staff correction to a session pool. The
// change is validated against the pool's bounds and recorded in the ledger
// like any other movement.
// PRE: Delta is non-zero; Actor is a staff account ID
// POST: Pool balance moved by Delta with a manual_adjust ledger entry
func ExecuteAdjustSessions(ctx context.Context, input AdjustSessionsInput, deps AdjustSessionsDeps) (AdjustSessionsResult, error) {
	if deps.GenerateID == nil {
		deps.GenerateID = func() string { return uuid.New().String() }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if input.GroupSessionID == "" {
		return AdjustSessionsResult{}, errors.New("group session ID is required")
	}
	if input.Actor == "" {
		return AdjustSessionsResult{}, errors.New("adjustments must record the acting account")
	}

	pool, err := deps.LedgerStore.GetGroupSession(ctx, input.GroupSessionID)
	if err != nil {
		return AdjustSessionsResult{}, errors.New("group session not found")
	}
	if err := pool.Adjust(input.Delta); err != nil {
		return AdjustSessionsResult{}, err
	}

	entry := ledger.Entry{
		ID:             deps.GenerateID(),
		GroupSessionID: pool.ID,
		Delta:          input.Delta,
		Reason:         ledger.ReasonManualAdjust,
		Actor:          input.Actor,
		CreatedAt:      deps.Now(),
	}
	if err := entry.Validate(); err != nil {
		return AdjustSessionsResult{}, err
	}
	if err := deps.LedgerStore.AdjustWithEntry(ctx, pool, entry); err != nil {
		return AdjustSessionsResult{}, err
	}

	slog.Info("ledger_event", "event", "sessions_adjusted", "group_session_id", pool.ID, "delta", input.Delta, "remaining", pool.Remaining, "actor", input.Actor)
	return AdjustSessionsResult{Remaining: pool.Remaining, Total: pool.Total}, nil
}
