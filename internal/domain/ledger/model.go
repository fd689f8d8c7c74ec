package ledger

import (
	"errors"
	"time"
)

// Ledger entry reasons.
const (
	ReasonRegistrationDebit  = "registration_debit"
	ReasonCancellationCredit = "cancellation_credit"
	ReasonManualAdjust       = "manual_adjust"
)

// ValidReasons contains all valid entry reason values.
var ValidReasons = []string{ReasonRegistrationDebit, ReasonCancellationCredit, ReasonManualAdjust}

// Domain errors
var (
	ErrInsufficientSessions = errors.New("no sessions remaining in this group")
	ErrOverRefund           = errors.New("refund would exceed the group's total sessions")
	ErrZeroDelta            = errors.New("adjustment delta cannot be zero")
	ErrInvalidReason        = errors.New("ledger entry reason is not recognized")
)

// GroupSession is one subscription's session pool for a single plan group.
// It is the unit of truth for "can this member attend": Remaining only
// changes through Debit, Credit, or Adjust.
// INVARIANT: 0 <= Remaining <= Total
type GroupSession struct {
	ID             string
	SubscriptionID string
	GroupID        string
	Remaining      int
	Total          int
}

// Validate checks if the GroupSession has valid data.
// PRE: GroupSession struct is populated
// POST: Returns nil if valid, error otherwise
func (g *GroupSession) Validate() error {
	if g.SubscriptionID == "" {
		return errors.New("group session must belong to a subscription")
	}
	if g.GroupID == "" {
		return errors.New("group session must reference a plan group")
	}
	if g.Total < 0 {
		return errors.New("total sessions cannot be negative")
	}
	if g.Remaining < 0 {
		return errors.New("remaining sessions cannot be negative")
	}
	if g.Remaining > g.Total {
		return errors.New("remaining sessions cannot exceed total sessions")
	}
	return nil
}

// Debit consumes one session from the pool.
// PRE: none
// POST: Remaining is decremented, or ErrInsufficientSessions if the pool is empty
func (g *GroupSession) Debit() error {
	if g.Remaining <= 0 {
		return ErrInsufficientSessions
	}
	g.Remaining--
	return nil
}

// Credit returns one session to the pool.
// PRE: none
// POST: Remaining is incremented, or ErrOverRefund if the pool is already full
func (g *GroupSession) Credit() error {
	if g.Remaining >= g.Total {
		return ErrOverRefund
	}
	g.Remaining++
	return nil
}

// Adjust applies a signed delta to the pool, clamped to [0, Total].
// PRE: delta is non-zero
// POST: Remaining is moved by delta, or the boundary error if it would leave [0, Total]
func (g *GroupSession) Adjust(delta int) error {
	if delta == 0 {
		return ErrZeroDelta
	}
	next := g.Remaining + delta
	if next < 0 {
		return ErrInsufficientSessions
	}
	if next > g.Total {
		return ErrOverRefund
	}
	g.Remaining = next
	return nil
}

// Entry is one append-only ledger transaction. Every change to a
// GroupSession's Remaining is recorded as an Entry so the balance can be
// audited back to the registrations and adjustments that produced it.
type Entry struct {
	ID             string
	GroupSessionID string
	RegistrationID string // empty for manual adjustments
	Delta          int    // negative = debit, positive = credit
	Reason         string
	Actor          string // account ID, or "self" for member-initiated actions
	CreatedAt      time.Time
}

// Validate checks if the Entry has valid data.
// PRE: Entry struct is populated
// POST: Returns nil if valid, error otherwise
func (e *Entry) Validate() error {
	if e.GroupSessionID == "" {
		return errors.New("ledger entry must reference a group session")
	}
	if e.Delta == 0 {
		return ErrZeroDelta
	}
	if !isValidReason(e.Reason) {
		return ErrInvalidReason
	}
	if e.CreatedAt.IsZero() {
		return errors.New("ledger entry timestamp must be set")
	}
	return nil
}

func isValidReason(reason string) bool {
	for _, r := range ValidReasons {
		if r == reason {
			return true
		}
	}
	return false
}
