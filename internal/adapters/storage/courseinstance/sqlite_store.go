package courseinstance

import (
	"context"
	"database/sql"
	"fmt"

	"gymdesk/internal/adapters/storage"
	domain "gymdesk/internal/domain/courseinstance"
	registrationDomain "gymdesk/internal/domain/registration"
)

const instanceColumns = "id, schedule_id, class_type_id, COALESCE(trainer_id, ''), course_date, start_time, end_time, max_capacity, status"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new course instance store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a CourseInstance by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.CourseInstance, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+instanceColumns+" FROM course_instance WHERE id = ?", id)
	entity, err := scanInstance(row.Scan)
	if err == sql.ErrNoRows {
		return domain.CourseInstance{}, fmt.Errorf("course instance not found: %w", err)
	}
	return entity, err
}

// Save persists a CourseInstance to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.CourseInstance) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO course_instance (id, schedule_id, class_type_id, trainer_id, course_date, start_time, end_time, max_capacity, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET trainer_id=excluded.trainer_id, start_time=excluded.start_time,
			end_time=excluded.end_time, max_capacity=excluded.max_capacity, status=excluded.status`,
		entity.ID, entity.ScheduleID, entity.ClassTypeID, nullable(entity.TrainerID),
		entity.CourseDate, entity.StartTime, entity.EndTime, entity.MaxCapacity, entity.Status)
	return err
}

// SaveAll inserts instances, skipping (schedule, date) pairs that already
// exist. Existing rows keep their state, including cancellations, so
// re-materializing a window never resurrects or duplicates anything.
// PRE: entities have been validated
// POST: Returns the number of newly inserted rows
func (s *SQLiteStore) SaveAll(ctx context.Context, entities []domain.CourseInstance) (int, error) {
	inserted := 0
	for _, entity := range entities {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO course_instance (id, schedule_id, class_type_id, trainer_id, course_date, start_time, end_time, max_capacity, status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(schedule_id, course_date) DO NOTHING`,
			entity.ID, entity.ScheduleID, entity.ClassTypeID, nullable(entity.TrainerID),
			entity.CourseDate, entity.StartTime, entity.EndTime, entity.MaxCapacity, entity.Status)
		if err != nil {
			return inserted, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return inserted, err
		}
		inserted += int(affected)
	}
	return inserted, nil
}

// ListByDateRange returns instances with from <= course_date <= to, ordered
// by date then start time.
// PRE: from and to are YYYY-MM-DD strings
// POST: Returns matching entities, empty slice if none
func (s *SQLiteStore) ListByDateRange(ctx context.Context, from, to string) ([]domain.CourseInstance, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+instanceColumns+` FROM course_instance
		WHERE course_date >= ? AND course_date <= ?
		ORDER BY course_date ASC, start_time ASC`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInstances(rows)
}

// ListByMemberOnDate returns the instances a member holds an active
// registration for on a given date. Used for overlap detection.
// PRE: date is a YYYY-MM-DD string
// POST: Returns matching entities, empty slice if none
func (s *SQLiteStore) ListByMemberOnDate(ctx context.Context, memberID, date string) ([]domain.CourseInstance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ci.id, ci.schedule_id, ci.class_type_id, COALESCE(ci.trainer_id, ''),
		       ci.course_date, ci.start_time, ci.end_time, ci.max_capacity, ci.status
		FROM course_instance ci
		JOIN registration r ON r.course_instance_id = ci.id
		WHERE r.member_id = ? AND ci.course_date = ? AND r.status IN (?, ?)
		ORDER BY ci.start_time ASC`,
		memberID, date, registrationDomain.StatusRegistered, registrationDomain.StatusAttended)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInstances(rows)
}

// MarkCompletedBefore transitions scheduled instances dated before the
// cutoff to completed.
// PRE: cutoff is a YYYY-MM-DD string
// POST: Returns the number of instances transitioned
func (s *SQLiteStore) MarkCompletedBefore(ctx context.Context, cutoff string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE course_instance SET status = ? WHERE course_date < ? AND status = ?",
		domain.StatusCompleted, cutoff, domain.StatusScheduled)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	return int(affected), err
}

// UpdateStatus sets an instance's status.
// PRE: status is a valid course instance status
// POST: Status column is updated
func (s *SQLiteStore) UpdateStatus(ctx context.Context, id, status string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE course_instance SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("course instance not found: %s", id)
	}
	return nil
}

func scanInstance(scan func(...any) error) (domain.CourseInstance, error) {
	var entity domain.CourseInstance
	err := scan(&entity.ID, &entity.ScheduleID, &entity.ClassTypeID, &entity.TrainerID,
		&entity.CourseDate, &entity.StartTime, &entity.EndTime, &entity.MaxCapacity, &entity.Status)
	return entity, err
}

func collectInstances(rows *sql.Rows) ([]domain.CourseInstance, error) {
	entities := []domain.CourseInstance{}
	for rows.Next() {
		entity, err := scanInstance(rows.Scan)
		if err != nil {
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
