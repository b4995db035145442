// internal/repository/task_repository.go
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecanturk/taskforge/internal/models"
)

// TaskRepository wraps all task persistence. Methods surface
// gorm.ErrRecordNotFound unchanged; the service layer maps it to the
// application error taxonomy.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{
		db: db,
	}
}

// WithTx returns a repository bound to the given transaction handle.
func (r *TaskRepository) WithTx(tx *gorm.DB) *TaskRepository {
	return &TaskRepository{db: tx}
}

func (r *TaskRepository) Create(ctx context.Context, t *models.Task) error {
	return r.db.WithContext(ctx).Create(t).Error
}

// GetByID returns a live (not soft-deleted) task.
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	var t models.Task
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// GetByIDWithRelations returns a live task with its comments and
// attachments eagerly loaded.
func (r *TaskRepository) GetByIDWithRelations(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	var t models.Task
	err := r.db.WithContext(ctx).
		Preload("Comments").
		Preload("Attachments").
		First(&t, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type ListFilter struct {
	AssignedTo    *uuid.UUID
	Type          *string
	Status        *string
	Priority      *string
	DueBefore     *time.Time // due_date <= DueBefore
	WithRelations bool       // include comments and attachments
}

// List returns live tasks matching the filter in insertion order.
func (r *TaskRepository) List(ctx context.Context, filter ListFilter) ([]models.Task, error) {
	query := r.db.WithContext(ctx).Model(&models.Task{})

	if filter.AssignedTo != nil {
		query = query.Where("assigned_to = ?", *filter.AssignedTo)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("priority = ?", *filter.Priority)
	}
	if filter.DueBefore != nil {
		query = query.Where("due_date <= ?", *filter.DueBefore)
	}

	if filter.WithRelations {
		query = query.Preload("Comments").Preload("Attachments")
	}

	var tasks []models.Task
	if err := query.Order("created_at ASC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// SetStatus writes the status column directly. Used both by the transition
// engine (inside its transaction) and by the cascade, which bypasses the
// audit trail on purpose.
func (r *TaskRepository) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *TaskRepository) SetAssignee(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("id = ?", id).
		Update("assigned_to", userID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AppendStatusUpdate inserts one audit row. Rows are append-only.
func (r *TaskRepository) AppendStatusUpdate(ctx context.Context, update *models.TaskStatusUpdate) error {
	return r.db.WithContext(ctx).Create(update).Error
}

// StatusUpdates returns the audit trail for a task, oldest first.
func (r *TaskRepository) StatusUpdates(ctx context.Context, taskID uuid.UUID) ([]models.TaskStatusUpdate, error) {
	var updates []models.TaskStatusUpdate
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at ASC").
		Find(&updates).Error
	if err != nil {
		return nil, err
	}
	return updates, nil
}

// SoftDelete marks the task deleted; the row is retained and restorable.
func (r *TaskRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Task{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ForceDelete purges the row whether or not it was soft-deleted. Terminal.
func (r *TaskRepository) ForceDelete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Unscoped().Delete(&models.Task{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Restore clears the deletion marker on a currently soft-deleted task.
func (r *TaskRepository) Restore(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Unscoped().
		Model(&models.Task{}).
		Where("id = ? AND deleted_at IS NOT NULL", id).
		Update("deleted_at", nil)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetAny finds a task regardless of its soft-delete state.
func (r *TaskRepository) GetAny(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	var t models.Task
	if err := r.db.WithContext(ctx).Unscoped().First(&t, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTrashed finds a task only within the soft-deleted scope.
func (r *TaskRepository) GetTrashed(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	var t models.Task
	err := r.db.WithContext(ctx).Unscoped().
		Where("id = ? AND deleted_at IS NOT NULL", id).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListDeleted returns only soft-deleted tasks.
func (r *TaskRepository) ListDeleted(ctx context.Context) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.WithContext(ctx).Unscoped().
		Where("deleted_at IS NOT NULL").
		Order("created_at ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepository) AddComment(ctx context.Context, c *models.Comment) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *TaskRepository) AddAttachment(ctx context.Context, a *models.Attachment) error {
	return r.db.WithContext(ctx).Create(a).Error
}
