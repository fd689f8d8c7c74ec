package schedule

import (
	"context"
	"database/sql"
	"fmt"

	"gymdesk/internal/adapters/storage"
	domain "gymdesk/internal/domain/schedule"
)

const scheduleColumns = "id, class_type_id, COALESCE(trainer_id, ''), repetition, " +
	"COALESCE(schedule_date, ''), COALESCE(start_date, ''), COALESCE(end_date, ''), " +
	"COALESCE(day, ''), start_time, end_time"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new schedule store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a Schedule by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Schedule, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+scheduleColumns+" FROM schedule WHERE id = ?", id)
	entity, err := scanSchedule(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Schedule{}, fmt.Errorf("schedule not found: %w", err)
	}
	return entity, err
}

// Save persists a Schedule to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Schedule) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO schedule (id, class_type_id, trainer_id, repetition, schedule_date, start_date, end_date, day, start_time, end_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET class_type_id=excluded.class_type_id, trainer_id=excluded.trainer_id,
			repetition=excluded.repetition, schedule_date=excluded.schedule_date,
			start_date=excluded.start_date, end_date=excluded.end_date, day=excluded.day,
			start_time=excluded.start_time, end_time=excluded.end_time`,
		entity.ID, entity.ClassTypeID, nullable(entity.TrainerID), entity.Repetition,
		nullable(entity.ScheduleDate), nullable(entity.StartDate), nullable(entity.EndDate),
		nullable(entity.Day), entity.StartTime, entity.EndTime)
	return err
}

// List returns all schedules.
// POST: Returns all entities, empty slice if none
func (s *SQLiteStore) List(ctx context.Context) ([]domain.Schedule, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+scheduleColumns+" FROM schedule")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entities := []domain.Schedule{}
	for rows.Next() {
		entity, err := scanSchedule(rows.Scan)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

// Delete removes a schedule.
// PRE: id is non-empty
// POST: Schedule row is removed; existing course instances are untouched
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM schedule WHERE id = ?", id)
	return err
}

func scanSchedule(scan func(...any) error) (domain.Schedule, error) {
	var entity domain.Schedule
	err := scan(&entity.ID, &entity.ClassTypeID, &entity.TrainerID, &entity.Repetition,
		&entity.ScheduleDate, &entity.StartDate, &entity.EndDate,
		&entity.Day, &entity.StartTime, &entity.EndTime)
	return entity, err
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
