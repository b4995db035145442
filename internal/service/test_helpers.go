// internal/service/test_helpers.go
package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ecanturk/taskforge/internal/database"
	"github.com/ecanturk/taskforge/internal/models"
	"github.com/ecanturk/taskforge/internal/repository"
)

// setupTestDB opens an isolated in-memory database with the full schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)

	// A second pooled connection would see a different :memory: database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

// TestHelpers provides common test fixtures
type TestHelpers struct {
	t  *testing.T
	db *gorm.DB
}

// NewTestHelpers creates a new test helper instance
func NewTestHelpers(t *testing.T, db *gorm.DB) *TestHelpers {
	return &TestHelpers{
		t:  t,
		db: db,
	}
}

var userSeq int

// CreateTestUser creates a standard active user
func (h *TestHelpers) CreateTestUser() *models.User {
	userSeq++
	user := &models.User{
		Email:    fmt.Sprintf("user%d@example.com", userSeq),
		Username: fmt.Sprintf("user%d", userSeq),
		Role:     models.RoleUser,
		IsActive: true,
	}
	require.NoError(h.t, repository.NewUserRepository(h.db).Create(context.Background(), user))
	return user
}

// CreateAdminUser creates an active user with the Admin role
func (h *TestHelpers) CreateAdminUser() *models.User {
	userSeq++
	user := &models.User{
		Email:    fmt.Sprintf("admin%d@example.com", userSeq),
		Username: fmt.Sprintf("admin%d", userSeq),
		Role:     models.RoleAdmin,
		IsActive: true,
	}
	require.NoError(h.t, repository.NewUserRepository(h.db).Create(context.Background(), user))
	return user
}

// CreateTestTask persists a task directly, bypassing the service guards.
func (h *TestHelpers) CreateTestTask(assignee uuid.UUID, status string) *models.Task {
	task := &models.Task{
		Title:       "Test task",
		Description: "A task created by the test fixtures",
		Type:        models.TaskTypeFeature,
		Status:      status,
		Priority:    models.PriorityMedium,
		DueDate:     time.Now().AddDate(0, 0, 7),
		AssignedTo:  assignee,
	}
	require.NoError(h.t, repository.NewTaskRepository(h.db).Create(context.Background(), task))
	return task
}

// CreateDependency records that taskID depends on dependsOn.
func (h *TestHelpers) CreateDependency(taskID, dependsOn uuid.UUID) *models.TaskDependency {
	dep, err := repository.NewDependencyRepository(h.db).Add(context.Background(), taskID, dependsOn)
	require.NoError(h.t, err)
	return dep
}

// TaskStatus reads a task's current status straight from the store.
func (h *TestHelpers) TaskStatus(taskID uuid.UUID) string {
	task, err := repository.NewTaskRepository(h.db).GetByID(context.Background(), taskID)
	require.NoError(h.t, err)
	return task.Status
}

// AuditRows returns the audit trail rows recorded for a task.
func (h *TestHelpers) AuditRows(taskID uuid.UUID) []models.TaskStatusUpdate {
	updates, err := repository.NewTaskRepository(h.db).StatusUpdates(context.Background(), taskID)
	require.NoError(h.t, err)
	return updates
}
