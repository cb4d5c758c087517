package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/planweave/core/internal/domain/entities"
	"github.com/planweave/core/internal/ports"
)

const scheduleColumns = `
	id, series_id, occurrence_index, title, location, detail,
	start_date, end_date, is_all_day, is_completed, color_tag,
	repeat, has_repeat_end_date, repeat_end_date,
	alarm_rule, is_alarm_enabled, created_at, updated_at
`

// ScheduleRepository implements ports.ScheduleRepository on Postgres.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// CreateBatch persists all occurrences of a series in one transaction.
func (r *ScheduleRepository) CreateBatch(ctx context.Context, occurrences []entities.ScheduleOccurrence) error {
	if len(occurrences) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", entities.ErrStoreFailure, err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO schedules (` + scheduleColumns + `)
		VALUES (:id, :series_id, :occurrence_index, :title, :location, :detail,
			:start_date, :end_date, :is_all_day, :is_completed, :color_tag,
			:repeat, :has_repeat_end_date, :repeat_end_date,
			:alarm_rule, :is_alarm_enabled, :created_at, :updated_at)
	`

	for _, occ := range occurrences {
		if _, err := tx.NamedExecContext(ctx, query, occ); err != nil {
			return fmt.Errorf("%w: failed to insert occurrence: %v", entities.ErrStoreFailure, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", entities.ErrStoreFailure, err)
	}
	return nil
}

// GetByID retrieves one occurrence by id.
func (r *ScheduleRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.ScheduleOccurrence, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = $1`

	var occ entities.ScheduleOccurrence
	err := r.db.GetContext(ctx, &occ, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("%w: %v", entities.ErrStoreFailure, err)
	}
	return &occ, nil
}

// GetBySeries retrieves all occurrences of a series ordered by start date.
func (r *ScheduleRepository) GetBySeries(ctx context.Context, seriesID uuid.UUID) ([]entities.ScheduleOccurrence, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE series_id = $1 ORDER BY start_date ASC`

	occurrences := []entities.ScheduleOccurrence{}
	if err := r.db.SelectContext(ctx, &occurrences, query, seriesID); err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrStoreFailure, err)
	}
	return occurrences, nil
}

// GetByDay retrieves occurrences whose span touches the calendar day
// containing day.
func (r *ScheduleRepository) GetByDay(ctx context.Context, day time.Time) ([]entities.ScheduleOccurrence, error) {
	dayStart := entities.DayStart(day)
	return r.GetByRange(ctx, dayStart, dayStart.AddDate(0, 0, 1))
}

// GetByRange retrieves occurrences overlapping [start, end) ordered by
// start date.
func (r *ScheduleRepository) GetByRange(ctx context.Context, start, end time.Time) ([]entities.ScheduleOccurrence, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM schedules
		WHERE start_date < $2 AND end_date > $1
		ORDER BY start_date ASC, occurrence_index ASC
	`

	occurrences := []entities.ScheduleOccurrence{}
	if err := r.db.SelectContext(ctx, &occurrences, query, start, end); err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrStoreFailure, err)
	}
	return occurrences, nil
}

// CountByDay counts occurrences on the calendar day containing day.
func (r *ScheduleRepository) CountByDay(ctx context.Context, day time.Time) (int64, error) {
	dayStart := entities.DayStart(day)
	query := `SELECT COUNT(*) FROM schedules WHERE start_date < $2 AND end_date > $1`

	var count int64
	err := r.db.QueryRowContext(ctx, query, dayStart, dayStart.AddDate(0, 0, 1)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", entities.ErrStoreFailure, err)
	}
	return count, nil
}

// Update mutates one occurrence; nil fields keep their stored value. With
// updateDates false the stored dates win regardless of the given fields.
func (r *ScheduleRepository) Update(ctx context.Context, id uuid.UUID, fields ports.ScheduleFields, updateDates bool) error {
	start, end := fields.StartDate, fields.EndDate
	if !updateDates {
		start, end = nil, nil
	}

	query := `
		UPDATE schedules SET
			title        = COALESCE($2, title),
			location     = COALESCE($3, location),
			detail       = COALESCE($4, detail),
			start_date   = COALESCE($5, start_date),
			end_date     = COALESCE($6, end_date),
			is_all_day   = COALESCE($7, is_all_day),
			is_completed = COALESCE($8, is_completed),
			color_tag    = COALESCE($9, color_tag),
			alarm_rule   = COALESCE($10, alarm_rule),
			updated_at   = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id,
		fields.Title, fields.Location, fields.Detail,
		start, end,
		fields.IsAllDay, fields.IsCompleted, fields.ColorTag, fields.AlarmRule,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", entities.ErrStoreFailure, err)
	}
	return requireRows(result, entities.ErrScheduleNotFound)
}

// UpdateSeries applies the same non-date changes to every occurrence of
// the series.
func (r *ScheduleRepository) UpdateSeries(ctx context.Context, seriesID uuid.UUID, fields ports.ScheduleFields) error {
	query := `
		UPDATE schedules SET
			title        = COALESCE($2, title),
			location     = COALESCE($3, location),
			detail       = COALESCE($4, detail),
			is_all_day   = COALESCE($5, is_all_day),
			is_completed = COALESCE($6, is_completed),
			color_tag    = COALESCE($7, color_tag),
			alarm_rule   = COALESCE($8, alarm_rule),
			updated_at   = NOW()
		WHERE series_id = $1
	`

	result, err := r.db.ExecContext(ctx, query, seriesID,
		fields.Title, fields.Location, fields.Detail,
		fields.IsAllDay, fields.IsCompleted, fields.ColorTag, fields.AlarmRule,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", entities.ErrStoreFailure, err)
	}
	return requireRows(result, entities.ErrSeriesNotFound)
}

// Delete removes exactly one occurrence.
func (r *ScheduleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: %v", entities.ErrStoreFailure, err)
	}
	return requireRows(result, entities.ErrScheduleNotFound)
}

// DeleteSeries removes every occurrence of the series.
func (r *ScheduleRepository) DeleteSeries(ctx context.Context, seriesID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE series_id = $1`, seriesID)
	if err != nil {
		return fmt.Errorf("%w: %v", entities.ErrStoreFailure, err)
	}
	return requireRows(result, entities.ErrSeriesNotFound)
}

// DeleteFollowing removes occurrences of the series starting after anchor
// (at anchor too when includeAnchor) in a single bounded statement.
func (r *ScheduleRepository) DeleteFollowing(ctx context.Context, seriesID uuid.UUID, anchor time.Time, includeAnchor bool) (int64, error) {
	op := ">"
	if includeAnchor {
		op = ">="
	}
	query := fmt.Sprintf(`DELETE FROM schedules WHERE series_id = $1 AND start_date %s $2`, op)

	result, err := r.db.ExecContext(ctx, query, seriesID, anchor)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", entities.ErrStoreFailure, err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", entities.ErrStoreFailure, err)
	}
	return deleted, nil
}

func requireRows(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", entities.ErrStoreFailure, err)
	}
	if rows == 0 {
		return notFound
	}
	return nil
}
