package plan

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"gymdesk/internal/adapters/storage"
	domain "gymdesk/internal/domain/plan"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new plan store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a Plan with its session groups.
// PRE: id is non-empty
// POST: Returns the entity with Groups populated, or an error if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Plan, error) {
	row := s.db.QueryRowContext(ctx, "SELECT id, name FROM plan WHERE id = ?", id)
	var entity domain.Plan
	err := row.Scan(&entity.ID, &entity.Name)
	if err == sql.ErrNoRows {
		return domain.Plan{}, fmt.Errorf("plan not found: %w", err)
	}
	if err != nil {
		return domain.Plan{}, err
	}
	entity.Groups, err = s.loadGroups(ctx, entity.ID)
	return entity, err
}

// Save persists a Plan and replaces its session groups.
// PRE: entity has been validated, group IDs are assigned
// POST: Plan and all its groups are persisted
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Plan) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO plan (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name`,
		entity.ID, entity.Name)
	if err != nil {
		return err
	}
	for _, g := range entity.Groups {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO plan_group (id, plan_id, name, sessions, categories) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name=excluded.name, sessions=excluded.sessions, categories=excluded.categories`,
			g.ID, entity.ID, g.Name, g.Sessions, strings.Join(g.Categories, ","))
		if err != nil {
			return err
		}
	}
	return nil
}

// List returns all plans with their groups, ordered by name.
// POST: Returns all entities, empty slice if none
func (s *SQLiteStore) List(ctx context.Context) ([]domain.Plan, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM plan ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entities := []domain.Plan{}
	for rows.Next() {
		var entity domain.Plan
		if err := rows.Scan(&entity.ID, &entity.Name); err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range entities {
		entities[i].Groups, err = s.loadGroups(ctx, entities[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return entities, nil
}

func (s *SQLiteStore) loadGroups(ctx context.Context, planID string) ([]domain.SessionGroup, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, plan_id, name, sessions, categories FROM plan_group WHERE plan_id = ? ORDER BY name", planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := []domain.SessionGroup{}
	for rows.Next() {
		var g domain.SessionGroup
		var categories string
		if err := rows.Scan(&g.ID, &g.PlanID, &g.Name, &g.Sessions, &categories); err != nil {
			return nil, err
		}
		if categories != "" {
			g.Categories = strings.Split(categories, ",")
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}
