package member

import (
	"context"
	"database/sql"
	"fmt"

	"gymdesk/internal/adapters/storage"
	domain "gymdesk/internal/domain/member"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new member store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const memberColumns = "id, account_id, email, name, status"

// GetByID retrieves a Member by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Member, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+memberColumns+" FROM member WHERE id = ?", id)
	return scanMember(row)
}

// GetByEmail retrieves a Member by email.
// PRE: email is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByEmail(ctx context.Context, email string) (domain.Member, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+memberColumns+" FROM member WHERE email = ?", email)
	return scanMember(row)
}

// GetByAccountID retrieves the Member linked to a login account.
// PRE: accountID is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByAccountID(ctx context.Context, accountID string) (domain.Member, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+memberColumns+" FROM member WHERE account_id = ?", accountID)
	return scanMember(row)
}

// Save persists a Member to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Member) error {
	var accountID interface{}
	if entity.AccountID != "" {
		accountID = entity.AccountID
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO member (id, account_id, email, name, status) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET account_id=excluded.account_id, email=excluded.email, name=excluded.name, status=excluded.status`,
		entity.ID, accountID, entity.Email, entity.Name, entity.Status)
	return err
}

// List retrieves members matching the filter, ordered by name.
// PRE: filter has valid parameters
// POST: Returns matching entities
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Member, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	query := "SELECT " + memberColumns + " FROM member"
	args := []any{}
	if filter.Status != "" {
		query += " WHERE status = ?"
		args = append(args, filter.Status)
	}
	query += " ORDER BY name LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Member
	for rows.Next() {
		var entity domain.Member
		var accountID sql.NullString
		if err := rows.Scan(&entity.ID, &accountID, &entity.Email, &entity.Name, &entity.Status); err != nil {
			return nil, err
		}
		if accountID.Valid {
			entity.AccountID = accountID.String
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

func scanMember(row *sql.Row) (domain.Member, error) {
	var entity domain.Member
	var accountID sql.NullString
	err := row.Scan(&entity.ID, &accountID, &entity.Email, &entity.Name, &entity.Status)
	if err == sql.ErrNoRows {
		return domain.Member{}, fmt.Errorf("member not found: %w", err)
	}
	if err != nil {
		return domain.Member{}, err
	}
	if accountID.Valid {
		entity.AccountID = accountID.String
	}
	return entity, nil
}
