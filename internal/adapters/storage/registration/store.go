package registration

import (
	"context"

	ledgerDomain "gymdesk/internal/domain/ledger"
	domain "gymdesk/internal/domain/registration"
)

// Store defines the interface for Registration persistence, including the
// transactional operations that keep registrations and session pools in step.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Registration, error)
	GetByQRCode(ctx context.Context, qrCode string) (domain.Registration, error)
	GetActiveByMemberAndInstance(ctx context.Context, memberID, courseInstanceID string) (domain.Registration, bool, error)
	CountActiveByCourseInstance(ctx context.Context, courseInstanceID string) (int, error)
	ListByCourseInstance(ctx context.Context, courseInstanceID string) ([]domain.Registration, error)
	ListByMember(ctx context.Context, memberID string, limit int) ([]domain.Registration, error)
	// RegisterWithDebit inserts the registration and debits one session from
	// its pool in a single transaction. The insert is guarded against the
	// instance's capacity and the debit against an empty pool. entry is nil
	// for guest registrations, which consume no session.
	RegisterWithDebit(ctx context.Context, reg domain.Registration, entry *ledgerDomain.Entry) error
	// CancelWithCredit transitions the registration to cancelled and, when
	// entry is non-nil, credits the session back in the same transaction.
	CancelWithCredit(ctx context.Context, reg domain.Registration, entry *ledgerDomain.Entry) error
	// MarkAbsentWithCredit transitions the registration to absent and, when
	// entry is non-nil, credits the forfeited session back in the same
	// transaction.
	MarkAbsentWithCredit(ctx context.Context, reg domain.Registration, entry *ledgerDomain.Entry) error
	// UpdateStatusIf transitions status from -> to, failing with
	// ErrConcurrentConflict when the stored status no longer matches.
	UpdateStatusIf(ctx context.Context, id, from, to string) error
}
