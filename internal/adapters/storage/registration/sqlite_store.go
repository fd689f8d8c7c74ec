package registration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gymdesk/internal/adapters/storage"
	ledgerDomain "gymdesk/internal/domain/ledger"
	domain "gymdesk/internal/domain/registration"
)

const registrationColumns = "id, member_id, course_instance_id, status, registered_at, qr_code, is_guest, notes, COALESCE(group_session_id, '')"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new registration store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a Registration by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Registration, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+registrationColumns+" FROM registration WHERE id = ?", id)
	return scanRegistration(row.Scan)
}

// GetByQRCode retrieves a Registration by its check-in token.
// PRE: qrCode is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByQRCode(ctx context.Context, qrCode string) (domain.Registration, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+registrationColumns+" FROM registration WHERE qr_code = ?", qrCode)
	return scanRegistration(row.Scan)
}

// GetActiveByMemberAndInstance finds a member's active (registered or
// attended) registration for a course instance, if any.
// POST: Returns the entity and true when found, false when absent
func (s *SQLiteStore) GetActiveByMemberAndInstance(ctx context.Context, memberID, courseInstanceID string) (domain.Registration, bool, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+registrationColumns+` FROM registration
		WHERE member_id = ? AND course_instance_id = ? AND status IN (?, ?)`,
		memberID, courseInstanceID, domain.StatusRegistered, domain.StatusAttended)
	entity, err := scanRegistration(row.Scan)
	if err != nil {
		if isNotFound(err) {
			return domain.Registration{}, false, nil
		}
		return domain.Registration{}, false, err
	}
	return entity, true, nil
}

// CountActiveByCourseInstance counts registrations holding a spot.
// POST: Returns count of registered and attended registrations
func (s *SQLiteStore) CountActiveByCourseInstance(ctx context.Context, courseInstanceID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM registration WHERE course_instance_id = ? AND status IN (?, ?)",
		courseInstanceID, domain.StatusRegistered, domain.StatusAttended).Scan(&n)
	return n, err
}

// ListByCourseInstance returns all registrations for an instance, including
// cancelled and absent ones, oldest first.
// POST: Returns matching entities, empty slice if none
func (s *SQLiteStore) ListByCourseInstance(ctx context.Context, courseInstanceID string) ([]domain.Registration, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+registrationColumns+" FROM registration WHERE course_instance_id = ? ORDER BY registered_at ASC",
		courseInstanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRegistrations(rows)
}

// ListByMember returns a member's registrations, newest first.
// PRE: limit > 0
// POST: Returns up to limit entities, empty slice if none
func (s *SQLiteStore) ListByMember(ctx context.Context, memberID string, limit int) ([]domain.Registration, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+registrationColumns+" FROM registration WHERE member_id = ? ORDER BY registered_at DESC LIMIT ?",
		memberID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRegistrations(rows)
}

// RegisterWithDebit inserts the registration and debits its session pool in
// one transaction. The insert only lands while the instance still has
// capacity, and the debit only lands while the pool still has sessions, so
// two racing registrations can never oversell a class or overdraw a pool.
// PRE: reg has been validated; entry is nil iff reg.GroupSessionID is empty
// POST: Registration, debit and ledger entry are all persisted, or none are
func (s *SQLiteStore) RegisterWithDebit(ctx context.Context, reg domain.Registration, entry *ledgerDomain.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Capacity-guarded insert: the row materializes only if the live count
	// is still below the instance's max_capacity.
	res, err := tx.ExecContext(ctx, `
		INSERT INTO registration (id, member_id, course_instance_id, status, registered_at, qr_code, is_guest, notes, group_session_id)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?
		WHERE (SELECT COUNT(*) FROM registration WHERE course_instance_id = ? AND status IN (?, ?))
		    < (SELECT max_capacity FROM course_instance WHERE id = ?)`,
		reg.ID, reg.MemberID, reg.CourseInstanceID, reg.Status,
		reg.RegisteredAt.Format(time.RFC3339Nano), reg.QRCode, reg.IsGuest, reg.Notes,
		nullable(reg.GroupSessionID),
		reg.CourseInstanceID, domain.StatusRegistered, domain.StatusAttended, reg.CourseInstanceID)
	if err != nil {
		// The partial unique index on active (member, instance) pairs
		// backstops the orchestrator's duplicate pre-read under races.
		if isDuplicateActive(err) {
			return domain.ErrAlreadyRegistered
		}
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrCapacityExceeded
	}

	if entry != nil {
		res, err := tx.ExecContext(ctx,
			"UPDATE group_session SET remaining = remaining - 1 WHERE id = ? AND remaining > 0",
			reg.GroupSessionID)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ledgerDomain.ErrInsufficientSessions
		}
		if err := insertEntry(ctx, tx, *entry); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// CancelWithCredit transitions the registration to cancelled and, when a
// refund applies, credits the session back with its ledger entry in the same
// transaction. The status update is guarded so a racing check-in or cancel
// loses cleanly instead of double-crediting.
// PRE: reg.Status is the status observed by the caller
// POST: Cancellation and any credit are both persisted, or neither is
func (s *SQLiteStore) CancelWithCredit(ctx context.Context, reg domain.Registration, entry *ledgerDomain.Entry) error {
	return s.transitionWithCredit(ctx, reg, domain.StatusCancelled, entry)
}

// MarkAbsentWithCredit transitions the registration to absent and, when a
// staff refund override applies, credits the forfeited session back with its
// ledger entry in the same transaction.
// PRE: reg.Status is the status observed by the caller
// POST: Absence and any credit are both persisted, or neither is
func (s *SQLiteStore) MarkAbsentWithCredit(ctx context.Context, reg domain.Registration, entry *ledgerDomain.Entry) error {
	return s.transitionWithCredit(ctx, reg, domain.StatusAbsent, entry)
}

func (s *SQLiteStore) transitionWithCredit(ctx context.Context, reg domain.Registration, to string, entry *ledgerDomain.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE registration SET status = ? WHERE id = ? AND status = ?",
		to, reg.ID, reg.Status)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrConcurrentConflict
	}

	if entry != nil {
		res, err := tx.ExecContext(ctx,
			"UPDATE group_session SET remaining = remaining + 1 WHERE id = ? AND remaining < total",
			reg.GroupSessionID)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ledgerDomain.ErrOverRefund
		}
		if err := insertEntry(ctx, tx, *entry); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UpdateStatusIf transitions status from -> to with a guard on the current
// value.
// POST: Status is updated, or ErrConcurrentConflict if it had moved
func (s *SQLiteStore) UpdateStatusIf(ctx context.Context, id, from, to string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE registration SET status = ? WHERE id = ? AND status = ?", to, id, from)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrConcurrentConflict
	}
	return nil
}

func insertEntry(ctx context.Context, tx *sql.Tx, entry ledgerDomain.Entry) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO ledger_entry (id, group_session_id, registration_id, delta, reason, actor, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.GroupSessionID, nullable(entry.RegistrationID),
		entry.Delta, entry.Reason, entry.Actor, entry.CreatedAt.Format(time.RFC3339Nano))
	return err
}

func scanRegistration(scan func(...any) error) (domain.Registration, error) {
	var entity domain.Registration
	var registeredAt string
	err := scan(&entity.ID, &entity.MemberID, &entity.CourseInstanceID, &entity.Status,
		&registeredAt, &entity.QRCode, &entity.IsGuest, &entity.Notes, &entity.GroupSessionID)
	if err == sql.ErrNoRows {
		return domain.Registration{}, fmt.Errorf("registration not found: %w", err)
	}
	if err != nil {
		return domain.Registration{}, err
	}
	if parsed, perr := time.Parse(time.RFC3339Nano, registeredAt); perr == nil {
		entity.RegisteredAt = parsed
	}
	return entity, nil
}

func collectRegistrations(rows *sql.Rows) ([]domain.Registration, error) {
	entities := []domain.Registration{}
	for rows.Next() {
		var entity domain.Registration
		var registeredAt string
		if err := rows.Scan(&entity.ID, &entity.MemberID, &entity.CourseInstanceID, &entity.Status,
			&registeredAt, &entity.QRCode, &entity.IsGuest, &entity.Notes, &entity.GroupSessionID); err != nil {
			return nil, err
		}
		if parsed, perr := time.Parse(time.RFC3339Nano, registeredAt); perr == nil {
			entity.RegisteredAt = parsed
		}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// isDuplicateActive matches the UNIQUE violation raised by
// idx_registration_active_unique. The qr_code constraint names a different
// column, so the message check cannot confuse the two.
func isDuplicateActive(err error) bool {
	return err != nil && strings.Contains(err.Error(), "registration.member_id")
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
