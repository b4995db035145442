// internal/repository/report_repository.go
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ecanturk/taskforge/internal/models"
)

// ReportRepository runs the read-only reporting queries as raw SQL over the
// same connection the ORM uses. Queries are written with ? placeholders and
// rebound per driver so they run against both Postgres and the sqlite test
// database.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository wraps an existing *sql.DB. driverName must match the
// driver the connection was opened with ("postgres", "sqlite").
func NewReportRepository(sqlDB *sql.DB, driverName string) *ReportRepository {
	return &ReportRepository{
		db: sqlx.NewDb(sqlDB, driverName),
	}
}

// taskRow mirrors the tasks table for sqlx scanning.
type taskRow struct {
	ID          uuid.UUID `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Type        string    `db:"type"`
	Status      string    `db:"status"`
	Priority    string    `db:"priority"`
	DueDate     time.Time `db:"due_date"`
	AssignedTo  uuid.UUID `db:"assigned_to"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (row taskRow) toModel() models.Task {
	return models.Task{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Type:        row.Type,
		Status:      row.Status,
		Priority:    row.Priority,
		DueDate:     row.DueDate,
		AssignedTo:  row.AssignedTo,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

const taskColumns = `id, title, description, type, status, priority, due_date, assigned_to, created_at, updated_at`

// CreatedOn returns live tasks created during the calendar day containing
// day, evaluated in day's location.
func (r *ReportRepository) CreatedOn(ctx context.Context, day time.Time) ([]models.Task, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)

	query := r.db.Rebind(fmt.Sprintf(
		`SELECT %s FROM tasks WHERE deleted_at IS NULL AND created_at >= ? AND created_at < ? ORDER BY created_at ASC`,
		taskColumns,
	))

	var rows []taskRow
	if err := r.db.SelectContext(ctx, &rows, query, start, end); err != nil {
		return nil, fmt.Errorf("query daily report: %w", err)
	}

	tasks := make([]models.Task, len(rows))
	for i, row := range rows {
		tasks[i] = row.toModel()
	}
	return tasks, nil
}

// WithStatus returns live tasks currently in the given status.
func (r *ReportRepository) WithStatus(ctx context.Context, status string) ([]models.Task, error) {
	query := r.db.Rebind(fmt.Sprintf(
		`SELECT %s FROM tasks WHERE deleted_at IS NULL AND status = ? ORDER BY created_at ASC`,
		taskColumns,
	))

	var rows []taskRow
	if err := r.db.SelectContext(ctx, &rows, query, status); err != nil {
		return nil, fmt.Errorf("query tasks by status: %w", err)
	}

	tasks := make([]models.Task, len(rows))
	for i, row := range rows {
		tasks[i] = row.toModel()
	}
	return tasks, nil
}
