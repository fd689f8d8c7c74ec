package classtype

import (
	"context"
	"database/sql"
	"fmt"

	"gymdesk/internal/adapters/storage"
	domain "gymdesk/internal/domain/classtype"
)

const classTypeColumns = "id, name, category, description, max_capacity, duration_min, COALESCE(trainer_id, '')"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new class type store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a ClassType by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.ClassType, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+classTypeColumns+" FROM class_type WHERE id = ?", id)
	var entity domain.ClassType
	err := row.Scan(&entity.ID, &entity.Name, &entity.Category, &entity.Description,
		&entity.MaxCapacity, &entity.DurationMin, &entity.TrainerID)
	if err == sql.ErrNoRows {
		return domain.ClassType{}, fmt.Errorf("class type not found: %w", err)
	}
	return entity, err
}

// Save persists a ClassType to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.ClassType) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO class_type (id, name, category, description, max_capacity, duration_min, trainer_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, category=excluded.category,
			description=excluded.description, max_capacity=excluded.max_capacity,
			duration_min=excluded.duration_min, trainer_id=excluded.trainer_id`,
		entity.ID, entity.Name, entity.Category, entity.Description,
		entity.MaxCapacity, entity.DurationMin, nullable(entity.TrainerID))
	return err
}

// List returns all class types ordered by name.
// POST: Returns all entities, empty slice if none
func (s *SQLiteStore) List(ctx context.Context) ([]domain.ClassType, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+classTypeColumns+" FROM class_type ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entities := []domain.ClassType{}
	for rows.Next() {
		var entity domain.ClassType
		if err := rows.Scan(&entity.ID, &entity.Name, &entity.Category, &entity.Description,
			&entity.MaxCapacity, &entity.DurationMin, &entity.TrainerID); err != nil {
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
