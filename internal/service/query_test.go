// internal/service/query_test.go
package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecanturk/taskforge/internal/cache"
	"github.com/ecanturk/taskforge/internal/models"
	"github.com/ecanturk/taskforge/internal/repository"
	"github.com/ecanturk/taskforge/pkg/apperr"
)

func strptr(s string) *string { return &s }

func TestTaskService_ListTasks(t *testing.T) {
	svc, h := newTestService(t)
	me := h.CreateTestUser()
	other := h.CreateTestUser()

	mineBlocked := h.CreateTestTask(me.ID, models.TaskStatusBlocked)
	mineOpen := h.CreateTestTask(me.ID, models.TaskStatusOpen)
	h.CreateTestTask(other.ID, models.TaskStatusBlocked)

	t.Run("scopes to the requesting user's tasks", func(t *testing.T) {
		tasks, err := svc.ListTasks(context.Background(), repository.ListFilter{}, me.ID)
		require.NoError(t, err)
		require.Len(t, tasks, 2)
		for _, task := range tasks {
			assert.Equal(t, me.ID, task.AssignedTo)
		}
	})

	t.Run("status filter narrows to blocked tasks with relations loaded", func(t *testing.T) {
		_, err := svc.AddComment(context.Background(), mineBlocked.ID, "waiting on infra", me.ID)
		require.NoError(t, err)
		_, err = svc.AddAttachment(context.Background(), mineBlocked.ID, "attachments/trace.log", me.ID)
		require.NoError(t, err)

		tasks, err := svc.ListTasks(context.Background(), repository.ListFilter{
			Status: strptr(models.TaskStatusBlocked),
		}, me.ID)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, mineBlocked.ID, tasks[0].ID)
		require.Len(t, tasks[0].Comments, 1)
		assert.Equal(t, "waiting on infra", tasks[0].Comments[0].Body)
		require.Len(t, tasks[0].Attachments, 1)
		assert.Equal(t, "attachments/trace.log", tasks[0].Attachments[0].FilePath)
	})

	t.Run("assigned_to filter overrides the base predicate", func(t *testing.T) {
		tasks, err := svc.ListTasks(context.Background(), repository.ListFilter{
			AssignedTo: &other.ID,
		}, me.ID)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, other.ID, tasks[0].AssignedTo)
	})

	t.Run("due date filter is an upper bound", func(t *testing.T) {
		cutoff := time.Now().AddDate(0, 0, 3)
		tasks, err := svc.ListTasks(context.Background(), repository.ListFilter{
			DueBefore: &cutoff,
		}, me.ID)
		require.NoError(t, err)
		assert.Empty(t, tasks) // fixtures are due in a week
	})

	t.Run("soft-deleted tasks are excluded", func(t *testing.T) {
		require.NoError(t, svc.SoftDelete(context.Background(), mineOpen.ID))
		defer func() {
			_, err := svc.Restore(context.Background(), mineOpen.ID)
			require.NoError(t, err)
		}()

		tasks, err := svc.ListTasks(context.Background(), repository.ListFilter{}, me.ID)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, mineBlocked.ID, tasks[0].ID)
	})
}

func TestTaskService_ListTasksCaching(t *testing.T) {
	db := setupTestDB(t)
	h := NewTestHelpers(t, db)
	listCache := cache.NewMemory(time.Hour)
	svc := NewTaskService(db, listCache)

	me := h.CreateTestUser()
	admin := h.CreateAdminUser()
	h.CreateTestTask(me.ID, models.TaskStatusOpen)

	t.Run("repeat listings hit the cache", func(t *testing.T) {
		first, err := svc.ListTasks(context.Background(), repository.ListFilter{}, me.ID)
		require.NoError(t, err)
		require.Len(t, first, 1)

		cached, ok := listCache.Get(cache.Key(me.ID, "all"))
		require.True(t, ok)
		assert.Len(t, cached, 1)
	})

	t.Run("different filters get distinct entries", func(t *testing.T) {
		_, err := svc.ListTasks(context.Background(), repository.ListFilter{
			Status: strptr(models.TaskStatusOpen),
		}, me.ID)
		require.NoError(t, err)

		_, unfiltered := listCache.Get(cache.Key(me.ID, "all"))
		_, filtered := listCache.Get(cache.Key(me.ID, "s="+models.TaskStatusOpen+";"))
		assert.True(t, unfiltered)
		assert.True(t, filtered)
	})

	t.Run("mutations invalidate instead of waiting for the TTL", func(t *testing.T) {
		before, err := svc.ListTasks(context.Background(), repository.ListFilter{}, me.ID)
		require.NoError(t, err)
		require.Len(t, before, 1)

		task, err := svc.Create(context.Background(), CreateTaskInput{
			Title:       "Freshly created",
			Description: "must show up immediately",
			Type:        models.TaskTypeImprovement,
			Status:      models.TaskStatusOpen,
			Priority:    models.PriorityLow,
			DueDate:     time.Now().AddDate(0, 0, 2),
			AssignedTo:  me.ID,
		}, admin)
		require.NoError(t, err)

		after, err := svc.ListTasks(context.Background(), repository.ListFilter{}, me.ID)
		require.NoError(t, err)
		require.Len(t, after, 2)

		// Status changes invalidate as well.
		_, err = svc.UpdateStatus(context.Background(), task.ID, models.TaskStatusBlocked, me.ID)
		require.NoError(t, err)

		blocked, err := svc.ListTasks(context.Background(), repository.ListFilter{
			Status: strptr(models.TaskStatusBlocked),
		}, me.ID)
		require.NoError(t, err)
		require.Len(t, blocked, 1)
		assert.Equal(t, task.ID, blocked[0].ID)
	})

	t.Run("completing a prerequisite invalidates the dependents' assignees", func(t *testing.T) {
		waiting := h.CreateTestUser()
		prereq := h.CreateTestTask(me.ID, models.TaskStatusInProgress)
		blocked := h.CreateTestTask(waiting.ID, models.TaskStatusBlocked)
		h.CreateDependency(blocked.ID, prereq.ID)

		// Prime the dependent assignee's cache.
		primed, err := svc.ListTasks(context.Background(), repository.ListFilter{
			Status: strptr(models.TaskStatusBlocked),
		}, waiting.ID)
		require.NoError(t, err)
		require.Len(t, primed, 1)

		_, err = svc.UpdateStatus(context.Background(), prereq.ID, models.TaskStatusCompleted, me.ID)
		require.NoError(t, err)

		refreshed, err := svc.ListTasks(context.Background(), repository.ListFilter{
			Status: strptr(models.TaskStatusBlocked),
		}, waiting.ID)
		require.NoError(t, err)
		assert.Empty(t, refreshed)
	})
}

func TestTaskService_GetTask(t *testing.T) {
	svc, h := newTestService(t)
	owner := h.CreateTestUser()
	stranger := h.CreateTestUser()
	task := h.CreateTestTask(owner.ID, models.TaskStatusOpen)

	t.Run("assignee sees the task with relations", func(t *testing.T) {
		_, err := svc.AddComment(context.Background(), task.ID, "first", owner.ID)
		require.NoError(t, err)

		got, err := svc.GetTask(context.Background(), task.ID, owner.ID)
		require.NoError(t, err)
		assert.Equal(t, task.ID, got.ID)
		assert.Len(t, got.Comments, 1)
	})

	t.Run("non-assignee is Forbidden", func(t *testing.T) {
		_, err := svc.GetTask(context.Background(), task.ID, stranger.ID)
		assert.True(t, apperr.IsForbidden(err))
	})
}
