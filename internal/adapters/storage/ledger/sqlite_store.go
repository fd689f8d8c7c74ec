package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gymdesk/internal/adapters/storage"
	domain "gymdesk/internal/domain/ledger"
	subscriptionDomain "gymdesk/internal/domain/subscription"
)

const groupSessionColumns = "id, subscription_id, group_id, remaining, total"
const entryColumns = "id, group_session_id, COALESCE(registration_id, ''), delta, reason, actor, created_at"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new ledger store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetGroupSession retrieves a GroupSession by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetGroupSession(ctx context.Context, id string) (domain.GroupSession, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+groupSessionColumns+" FROM group_session WHERE id = ?", id)
	var entity domain.GroupSession
	err := row.Scan(&entity.ID, &entity.SubscriptionID, &entity.GroupID, &entity.Remaining, &entity.Total)
	if err == sql.ErrNoRows {
		return domain.GroupSession{}, fmt.Errorf("group session not found: %w", err)
	}
	return entity, err
}

// SaveGroupSession persists a GroupSession to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) SaveGroupSession(ctx context.Context, entity domain.GroupSession) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO group_session (id, subscription_id, group_id, remaining, total)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET remaining=excluded.remaining, total=excluded.total`,
		entity.ID, entity.SubscriptionID, entity.GroupID, entity.Remaining, entity.Total)
	return err
}

// ListBySubscription returns a subscription's session pools.
// POST: Returns all entities for the subscription, empty slice if none
func (s *SQLiteStore) ListBySubscription(ctx context.Context, subscriptionID string) ([]domain.GroupSession, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+groupSessionColumns+" FROM group_session WHERE subscription_id = ?", subscriptionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGroupSessions(rows)
}

// ListEligible returns the member's debitable pools for a class category on
// a given date. A pool is eligible when its subscription is active and covers
// the date, its plan group's categories include the class category, and it
// has sessions left. Pools from the soonest-expiring subscription come first.
// PRE: onDate is a YYYY-MM-DD string
// POST: Returns eligible pools in consumption order, empty slice if none
func (s *SQLiteStore) ListEligible(ctx context.Context, memberID, category, onDate string) ([]domain.GroupSession, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT gs.id, gs.subscription_id, gs.group_id, gs.remaining, gs.total
		FROM group_session gs
		JOIN subscription sub ON sub.id = gs.subscription_id
		JOIN plan_group pg ON pg.id = gs.group_id
		WHERE sub.member_id = ?
		  AND sub.status = ?
		  AND sub.start_date <= ?
		  AND sub.end_date >= ?
		  AND gs.remaining > 0
		  AND ',' || pg.categories || ',' LIKE '%,' || ? || ',%'
		ORDER BY sub.end_date ASC, gs.id ASC`,
		memberID, subscriptionDomain.StatusActive, onDate, onDate, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGroupSessions(rows)
}

// AdjustWithEntry applies entry.Delta to the stored pool and records the
// ledger entry in one transaction. The UPDATE is guarded so a concurrent
// writer cannot push the balance outside [0, total]; if the guard rejects
// the change the transaction rolls back and the boundary error is returned.
// PRE: entry has been validated, entry.GroupSessionID == session.ID
// POST: Balance and entry are both persisted, or neither is
func (s *SQLiteStore) AdjustWithEntry(ctx context.Context, session domain.GroupSession, entry domain.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE group_session SET remaining = remaining + ?
		WHERE id = ? AND remaining + ? >= 0 AND remaining + ? <= total`,
		entry.Delta, session.ID, entry.Delta, entry.Delta)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if entry.Delta < 0 {
			return domain.ErrInsufficientSessions
		}
		return domain.ErrOverRefund
	}

	if err := insertEntry(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit()
}

// ListEntries returns a pool's ledger entries, oldest first.
// POST: Returns all entries for the pool, empty slice if none
func (s *SQLiteStore) ListEntries(ctx context.Context, groupSessionID string) ([]domain.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+entryColumns+" FROM ledger_entry WHERE group_session_id = ? ORDER BY created_at ASC, id ASC",
		groupSessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []domain.Entry{}
	for rows.Next() {
		var e domain.Entry
		var createdAt string
		if err := rows.Scan(&e.ID, &e.GroupSessionID, &e.RegistrationID, &e.Delta, &e.Reason, &e.Actor, &createdAt); err != nil {
			return nil, err
		}
		if parsed, perr := time.Parse(time.RFC3339Nano, createdAt); perr == nil {
			e.CreatedAt = parsed
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func insertEntry(ctx context.Context, tx *sql.Tx, entry domain.Entry) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO ledger_entry (id, group_session_id, registration_id, delta, reason, actor, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.GroupSessionID, nullable(entry.RegistrationID),
		entry.Delta, entry.Reason, entry.Actor, entry.CreatedAt.Format(time.RFC3339Nano))
	return err
}

func collectGroupSessions(rows *sql.Rows) ([]domain.GroupSession, error) {
	entities := []domain.GroupSession{}
	for rows.Next() {
		var entity domain.GroupSession
		if err := rows.Scan(&entity.ID, &entity.SubscriptionID, &entity.GroupID, &entity.Remaining, &entity.Total); err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
