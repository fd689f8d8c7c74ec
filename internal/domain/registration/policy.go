package registration

import "time"

// DefaultCancelCutoff is how close to class start a cancellation counts as
// late when no cutoff is configured.
const DefaultCancelCutoff = 24 * time.Hour

// CancelPolicy decides whether a cancellation refunds the debited session or
// forfeits it.
type CancelPolicy struct {
	Cutoff time.Duration
}

// NewCancelPolicy returns a policy with the given cutoff, falling back to the
// default when cutoff is not positive.
func NewCancelPolicy(cutoff time.Duration) CancelPolicy {
	if cutoff <= 0 {
		cutoff = DefaultCancelCutoff
	}
	return CancelPolicy{Cutoff: cutoff}
}

// CancelDecision is the policy outcome for one cancellation.
type CancelDecision struct {
	Late       bool
	Refund     bool
	Overridden bool // an admin override replaced the computed default
}

// IsLate reports whether a cancellation at now falls inside the cutoff window
// before the course start. The boundary is inclusive: cancelling at exactly
// start - cutoff is late.
// PRE: courseStart is set
// INVARIANT: policy fields are not mutated
func (p CancelPolicy) IsLate(now, courseStart time.Time) bool {
	return !now.Before(courseStart.Add(-p.Cutoff))
}

// Decide computes the refund outcome for a cancellation. A non-nil override
// replaces the computed default outright; self-service cancellations must
// pass nil.
// PRE: courseStart is set
// POST: Returns the decision; not late defaults to refund, late to forfeit
func (p CancelPolicy) Decide(now, courseStart time.Time, override *bool) CancelDecision {
	d := CancelDecision{Late: p.IsLate(now, courseStart)}
	d.Refund = !d.Late
	if override != nil {
		d.Refund = *override
		d.Overridden = true
	}
	return d
}
