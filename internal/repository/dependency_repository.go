// internal/repository/dependency_repository.go
package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecanturk/taskforge/internal/models"
)

// DependencyRepository stores the directed task dependency graph. No cycle
// check is performed; the unblock cascade is single-hop so cycles cannot
// make it loop.
type DependencyRepository struct {
	db *gorm.DB
}

func NewDependencyRepository(db *gorm.DB) *DependencyRepository {
	return &DependencyRepository{
		db: db,
	}
}

// WithTx returns a repository bound to the given transaction handle.
func (r *DependencyRepository) WithTx(tx *gorm.DB) *DependencyRepository {
	return &DependencyRepository{db: tx}
}

// Add records that taskID depends on dependsOn.
func (r *DependencyRepository) Add(ctx context.Context, taskID, dependsOn uuid.UUID) (*models.TaskDependency, error) {
	dep := &models.TaskDependency{
		TaskID:    taskID,
		DependsOn: dependsOn,
	}
	if err := r.db.WithContext(ctx).Create(dep).Error; err != nil {
		return nil, err
	}
	return dep, nil
}

// DependentsOf returns every edge pointing at prerequisite, i.e. the tasks
// that are waiting on it.
func (r *DependencyRepository) DependentsOf(ctx context.Context, prerequisite uuid.UUID) ([]models.TaskDependency, error) {
	var deps []models.TaskDependency
	err := r.db.WithContext(ctx).
		Where("depends_on = ?", prerequisite).
		Find(&deps).Error
	if err != nil {
		return nil, err
	}
	return deps, nil
}

// ListForTask returns the edges recorded for taskID.
func (r *DependencyRepository) ListForTask(ctx context.Context, taskID uuid.UUID) ([]models.TaskDependency, error) {
	var deps []models.TaskDependency
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Find(&deps).Error
	if err != nil {
		return nil, err
	}
	return deps, nil
}
