package account

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gymdesk/internal/adapters/storage"
	domain "gymdesk/internal/domain/account"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new account store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves an Account by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Account, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, role, created_at FROM account WHERE id = ?", id)
	return scanAccount(row)
}

// GetByEmail retrieves an Account by email.
// PRE: email is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, role, created_at FROM account WHERE email = ?", email)
	return scanAccount(row)
}

// Save persists an Account to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Account) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO account (id, email, password_hash, role, created_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET email=excluded.email, password_hash=excluded.password_hash, role=excluded.role`,
		entity.ID, entity.Email, entity.PasswordHash, entity.Role, entity.CreatedAt.Format(time.RFC3339Nano))
	return err
}

// Count returns the number of accounts.
// POST: Returns total account count
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM account").Scan(&n)
	return n, err
}

func scanAccount(row *sql.Row) (domain.Account, error) {
	var entity domain.Account
	var createdAt string
	err := row.Scan(&entity.ID, &entity.Email, &entity.PasswordHash, &entity.Role, &createdAt)
	if err == sql.ErrNoRows {
		return domain.Account{}, fmt.Errorf("account not found: %w", err)
	}
	if err != nil {
		return domain.Account{}, err
	}
	if parsed, perr := time.Parse(time.RFC3339Nano, createdAt); perr == nil {
		entity.CreatedAt = parsed
	}
	return entity, nil
}
