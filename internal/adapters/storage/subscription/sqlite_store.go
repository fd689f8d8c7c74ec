package subscription

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gymdesk/internal/adapters/storage"
	domain "gymdesk/internal/domain/subscription"
)

const subscriptionColumns = "id, member_id, plan_id, start_date, end_date, status"

const dateLayout = "2006-01-02"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new subscription store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a Subscription by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Subscription, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+subscriptionColumns+" FROM subscription WHERE id = ?", id)
	return scanSubscription(row.Scan)
}

// Save persists a Subscription to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Subscription) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO subscription (id, member_id, plan_id, start_date, end_date, status)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET start_date=excluded.start_date,
			end_date=excluded.end_date, status=excluded.status`,
		entity.ID, entity.MemberID, entity.PlanID,
		entity.StartDate.Format(dateLayout), entity.EndDate.Format(dateLayout),
		entity.Status)
	return err
}

// ListByMember returns a member's subscriptions, most recent first.
// POST: Returns all entities for the member, empty slice if none
func (s *SQLiteStore) ListByMember(ctx context.Context, memberID string) ([]domain.Subscription, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+subscriptionColumns+" FROM subscription WHERE member_id = ? ORDER BY end_date DESC", memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entities := []domain.Subscription{}
	for rows.Next() {
		entity, err := scanSubscription(rows.Scan)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

func scanSubscription(scan func(...any) error) (domain.Subscription, error) {
	var entity domain.Subscription
	var startDate, endDate string
	err := scan(&entity.ID, &entity.MemberID, &entity.PlanID, &startDate, &endDate, &entity.Status)
	if err == sql.ErrNoRows {
		return domain.Subscription{}, fmt.Errorf("subscription not found: %w", err)
	}
	if err != nil {
		return domain.Subscription{}, err
	}
	if entity.StartDate, err = time.Parse(dateLayout, startDate); err != nil {
		return domain.Subscription{}, fmt.Errorf("invalid subscription start date %q: %w", startDate, err)
	}
	if entity.EndDate, err = time.Parse(dateLayout, endDate); err != nil {
		return domain.Subscription{}, fmt.Errorf("invalid subscription end date %q: %w", endDate, err)
	}
	return entity, nil
}
