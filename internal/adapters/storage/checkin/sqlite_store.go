package checkin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gymdesk/internal/adapters/storage"
	domain "gymdesk/internal/domain/checkin"
	registrationDomain "gymdesk/internal/domain/registration"
)

const checkInColumns = "id, registration_id, checkin_time, session_consumed, late, validated_by"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new check-in store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByRegistration retrieves the check-in for a registration, if any.
// POST: Returns the entity and true when found, false when absent
func (s *SQLiteStore) GetByRegistration(ctx context.Context, registrationID string) (domain.CheckIn, bool, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+checkInColumns+" FROM check_in WHERE registration_id = ?", registrationID)
	var entity domain.CheckIn
	var checkInTime string
	err := row.Scan(&entity.ID, &entity.RegistrationID, &checkInTime,
		&entity.SessionConsumed, &entity.Late, &entity.ValidatedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CheckIn{}, false, nil
	}
	if err != nil {
		return domain.CheckIn{}, false, err
	}
	if parsed, perr := time.Parse(time.RFC3339Nano, checkInTime); perr == nil {
		entity.CheckInTime = parsed
	}
	return entity, true, nil
}

// Create records the check-in and flips the registration to attended in one
// transaction. The registration update is guarded on the registered status
// so a racing cancel or duplicate check-in loses cleanly; the UNIQUE
// constraint on registration_id backstops the duplicate case.
// PRE: entity has been validated
// POST: Check-in row and attended status are both persisted, or neither is
func (s *SQLiteStore) Create(ctx context.Context, entity domain.CheckIn) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE registration SET status = ? WHERE id = ? AND status = ?",
		registrationDomain.StatusAttended, entity.RegistrationID, registrationDomain.StatusRegistered)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return registrationDomain.ErrConcurrentConflict
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO check_in (id, registration_id, checkin_time, session_consumed, late, validated_by)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entity.ID, entity.RegistrationID, entity.CheckInTime.Format(time.RFC3339Nano),
		entity.SessionConsumed, entity.Late, entity.ValidatedBy)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// Remove deletes the check-in and returns the registration to registered in
// one transaction.
// PRE: registrationID has an existing check-in
// POST: Check-in row is removed and status restored, or neither changes
func (s *SQLiteStore) Remove(ctx context.Context, registrationID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"DELETE FROM check_in WHERE registration_id = ?", registrationID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("no check-in recorded for registration %s", registrationID)
	}

	res, err = tx.ExecContext(ctx,
		"UPDATE registration SET status = ? WHERE id = ? AND status = ?",
		registrationDomain.StatusRegistered, registrationID, registrationDomain.StatusAttended)
	if err != nil {
		return err
	}
	affected, err = res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return registrationDomain.ErrConcurrentConflict
	}
	return tx.Commit()
}

// CountByCourseInstance counts check-ins for an instance's registrations.
// POST: Returns the number of validated attendees
func (s *SQLiteStore) CountByCourseInstance(ctx context.Context, courseInstanceID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM check_in c
		JOIN registration r ON r.id = c.registration_id
		WHERE r.course_instance_id = ?`, courseInstanceID).Scan(&n)
	return n, err
}
