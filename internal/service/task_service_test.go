// internal/service/task_service_test.go
package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecanturk/taskforge/internal/cache"
	"github.com/ecanturk/taskforge/internal/models"
	"github.com/ecanturk/taskforge/pkg/apperr"
)

func newTestService(t *testing.T) (*TaskService, *TestHelpers) {
	db := setupTestDB(t)
	return NewTaskService(db, cache.Nop{}), NewTestHelpers(t, db)
}

func TestTaskService_UpdateStatus(t *testing.T) {
	t.Run("writes the new status and exactly one audit row", func(t *testing.T) {
		svc, h := newTestService(t)
		actor := h.CreateTestUser()
		task := h.CreateTestTask(h.CreateTestUser().ID, models.TaskStatusOpen)

		updated, err := svc.UpdateStatus(context.Background(), task.ID, models.TaskStatusInProgress, actor.ID)
		require.NoError(t, err)
		assert.Equal(t, models.TaskStatusInProgress, updated.Status)
		assert.Equal(t, models.TaskStatusInProgress, h.TaskStatus(task.ID))

		rows := h.AuditRows(task.ID)
		require.Len(t, rows, 1)
		assert.Equal(t, models.TaskStatusOpen, rows[0].OldStatus)
		assert.Equal(t, models.TaskStatusInProgress, rows[0].NewStatus)
		assert.Equal(t, actor.ID, rows[0].UpdatedBy)
	})

	t.Run("any status may follow any other", func(t *testing.T) {
		svc, h := newTestService(t)
		actor := h.CreateTestUser()
		task := h.CreateTestTask(h.CreateTestUser().ID, models.TaskStatusCompleted)

		// No transition table by default: Completed -> Open is legal.
		updated, err := svc.UpdateStatus(context.Background(), task.ID, models.TaskStatusOpen, actor.ID)
		require.NoError(t, err)
		assert.Equal(t, models.TaskStatusOpen, updated.Status)
	})

	t.Run("pluggable policy can forbid a transition", func(t *testing.T) {
		db := setupTestDB(t)
		h := NewTestHelpers(t, db)
		svc := NewTaskService(db, cache.Nop{}, WithTransitionPolicy(func(oldStatus, newStatus string) error {
			if oldStatus == models.TaskStatusCompleted && newStatus == models.TaskStatusOpen {
				return errors.New("completed tasks cannot be reopened")
			}
			return nil
		}))
		actor := h.CreateTestUser()
		task := h.CreateTestTask(h.CreateTestUser().ID, models.TaskStatusCompleted)

		_, err := svc.UpdateStatus(context.Background(), task.ID, models.TaskStatusOpen, actor.ID)
		require.Error(t, err)
		assert.True(t, apperr.IsForbidden(err))
		assert.Equal(t, models.TaskStatusCompleted, h.TaskStatus(task.ID))
		assert.Empty(t, h.AuditRows(task.ID))
	})

	t.Run("missing task fails NotFound", func(t *testing.T) {
		svc, h := newTestService(t)
		actor := h.CreateTestUser()

		_, err := svc.UpdateStatus(context.Background(), uuid.New(), models.TaskStatusOpen, actor.ID)
		assert.True(t, apperr.IsNotFound(err))
	})

	t.Run("soft-deleted task fails NotFound", func(t *testing.T) {
		svc, h := newTestService(t)
		actor := h.CreateTestUser()
		task := h.CreateTestTask(h.CreateTestUser().ID, models.TaskStatusOpen)
		require.NoError(t, svc.SoftDelete(context.Background(), task.ID))

		_, err := svc.UpdateStatus(context.Background(), task.ID, models.TaskStatusOpen, actor.ID)
		assert.True(t, apperr.IsNotFound(err))
	})

	t.Run("invalid status fails BadRequest", func(t *testing.T) {
		svc, h := newTestService(t)
		actor := h.CreateTestUser()
		task := h.CreateTestTask(h.CreateTestUser().ID, models.TaskStatusOpen)

		_, err := svc.UpdateStatus(context.Background(), task.ID, "Archived", actor.ID)
		assert.True(t, apperr.IsBadRequest(err))
		assert.Empty(t, h.AuditRows(task.ID))
	})
}

func TestTaskService_CascadeUnblock(t *testing.T) {
	t.Run("completing a prerequisite unblocks blocked dependents", func(t *testing.T) {
		svc, h := newTestService(t)
		actor := h.CreateTestUser()
		assignee := h.CreateTestUser()

		prereq := h.CreateTestTask(assignee.ID, models.TaskStatusInProgress)
		blocked := h.CreateTestTask(assignee.ID, models.TaskStatusBlocked)
		alsoBlocked := h.CreateTestTask(assignee.ID, models.TaskStatusBlocked)
		open := h.CreateTestTask(assignee.ID, models.TaskStatusOpen)
		inProgress := h.CreateTestTask(assignee.ID, models.TaskStatusInProgress)

		h.CreateDependency(blocked.ID, prereq.ID)
		h.CreateDependency(alsoBlocked.ID, prereq.ID)
		h.CreateDependency(open.ID, prereq.ID)
		h.CreateDependency(inProgress.ID, prereq.ID)

		_, err := svc.UpdateStatus(context.Background(), prereq.ID, models.TaskStatusCompleted, actor.ID)
		require.NoError(t, err)

		assert.Equal(t, models.TaskStatusOpen, h.TaskStatus(blocked.ID))
		assert.Equal(t, models.TaskStatusOpen, h.TaskStatus(alsoBlocked.ID))
		// Dependents in other statuses stay untouched.
		assert.Equal(t, models.TaskStatusOpen, h.TaskStatus(open.ID))
		assert.Equal(t, models.TaskStatusInProgress, h.TaskStatus(inProgress.ID))
	})

	t.Run("cascade writes no audit rows for flipped dependents", func(t *testing.T) {
		svc, h := newTestService(t)
		actor := h.CreateTestUser()
		assignee := h.CreateTestUser()

		prereq := h.CreateTestTask(assignee.ID, models.TaskStatusInProgress)
		blocked := h.CreateTestTask(assignee.ID, models.TaskStatusBlocked)
		h.CreateDependency(blocked.ID, prereq.ID)

		_, err := svc.UpdateStatus(context.Background(), prereq.ID, models.TaskStatusCompleted, actor.ID)
		require.NoError(t, err)

		assert.Len(t, h.AuditRows(prereq.ID), 1)
		assert.Empty(t, h.AuditRows(blocked.ID))
	})

	t.Run("unblocking is single level and never recurses", func(t *testing.T) {
		svc, h := newTestService(t)
		actor := h.CreateTestUser()
		assignee := h.CreateTestUser()

		// chain: grandchild depends on child depends on prereq
		prereq := h.CreateTestTask(assignee.ID, models.TaskStatusInProgress)
		child := h.CreateTestTask(assignee.ID, models.TaskStatusBlocked)
		grandchild := h.CreateTestTask(assignee.ID, models.TaskStatusBlocked)
		h.CreateDependency(child.ID, prereq.ID)
		h.CreateDependency(grandchild.ID, child.ID)

		_, err := svc.UpdateStatus(context.Background(), prereq.ID, models.TaskStatusCompleted, actor.ID)
		require.NoError(t, err)

		assert.Equal(t, models.TaskStatusOpen, h.TaskStatus(child.ID))
		assert.Equal(t, models.TaskStatusBlocked, h.TaskStatus(grandchild.ID))
	})

	t.Run("a missing dependent is skipped, not fatal", func(t *testing.T) {
		svc, h := newTestService(t)
		actor := h.CreateTestUser()
		assignee := h.CreateTestUser()

		prereq := h.CreateTestTask(assignee.ID, models.TaskStatusInProgress)
		gone := h.CreateTestTask(assignee.ID, models.TaskStatusBlocked)
		blocked := h.CreateTestTask(assignee.ID, models.TaskStatusBlocked)
		h.CreateDependency(gone.ID, prereq.ID)
		h.CreateDependency(blocked.ID, prereq.ID)

		require.NoError(t, svc.ForceDelete(context.Background(), gone.ID))

		_, err := svc.UpdateStatus(context.Background(), prereq.ID, models.TaskStatusCompleted, actor.ID)
		require.NoError(t, err)
		assert.Equal(t, models.TaskStatusOpen, h.TaskStatus(blocked.ID))
	})

	t.Run("dependency cycles stay benign", func(t *testing.T) {
		svc, h := newTestService(t)
		actor := h.CreateTestUser()
		assignee := h.CreateTestUser()

		a := h.CreateTestTask(assignee.ID, models.TaskStatusBlocked)
		b := h.CreateTestTask(assignee.ID, models.TaskStatusBlocked)
		h.CreateDependency(a.ID, b.ID)
		h.CreateDependency(b.ID, a.ID)

		_, err := svc.UpdateStatus(context.Background(), a.ID, models.TaskStatusCompleted, actor.ID)
		require.NoError(t, err)

		assert.Equal(t, models.TaskStatusCompleted, h.TaskStatus(a.ID))
		assert.Equal(t, models.TaskStatusOpen, h.TaskStatus(b.ID))
	})
}

func TestTaskService_AssignmentGuards(t *testing.T) {
	svc, h := newTestService(t)
	admin := h.CreateAdminUser()
	otherAdmin := h.CreateAdminUser()
	user := h.CreateTestUser()

	input := func(assignee uuid.UUID) CreateTaskInput {
		return CreateTaskInput{
			Title:       "Guarded task",
			Description: "desc",
			Type:        models.TaskTypeBug,
			Status:      models.TaskStatusOpen,
			Priority:    models.PriorityHigh,
			DueDate:     time.Now().AddDate(0, 0, 1),
			AssignedTo:  assignee,
		}
	}

	tests := []struct {
		name       string
		actor      *models.User
		assignedTo uuid.UUID
		wantErr    func(error) bool
	}{
		{
			name:       "admin cannot assign to self",
			actor:      admin,
			assignedTo: admin.ID,
			wantErr:    apperr.IsForbidden,
		},
		{
			name:       "regular user cannot assign to self either",
			actor:      user,
			assignedTo: user.ID,
			wantErr:    apperr.IsForbidden,
		},
		{
			name:       "admin cannot assign to another admin",
			actor:      admin,
			assignedTo: otherAdmin.ID,
			wantErr:    apperr.IsForbidden,
		},
		{
			name:       "regular actor cannot assign to an admin",
			actor:      user,
			assignedTo: admin.ID,
			wantErr:    apperr.IsForbidden,
		},
		{
			name:       "unknown assignee fails NotFound",
			actor:      admin,
			assignedTo: uuid.New(),
			wantErr:    apperr.IsNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), input(tt.assignedTo), tt.actor)
			require.Error(t, err)
			assert.True(t, tt.wantErr(err))
		})
	}

	t.Run("guards apply identically to reassignment", func(t *testing.T) {
		task := h.CreateTestTask(user.ID, models.TaskStatusOpen)

		_, err := svc.Reassign(context.Background(), task.ID, admin.ID, user)
		assert.True(t, apperr.IsForbidden(err))

		_, err = svc.Reassign(context.Background(), task.ID, user.ID, user)
		assert.True(t, apperr.IsForbidden(err))

		_, err = svc.Reassign(context.Background(), task.ID, uuid.New(), admin)
		assert.True(t, apperr.IsNotFound(err))

		// Guards fire before any mutation.
		assert.Equal(t, user.ID, mustGetTask(t, svc, task.ID, user.ID).AssignedTo)
	})
}

func TestTaskService_Create(t *testing.T) {
	svc, h := newTestService(t)
	admin := h.CreateAdminUser()
	assignee := h.CreateTestUser()

	t.Run("persists the task with its dependency edges", func(t *testing.T) {
		prereq := h.CreateTestTask(assignee.ID, models.TaskStatusOpen)

		task, err := svc.Create(context.Background(), CreateTaskInput{
			Title:       "Ship the importer",
			Description: "Blocked on schema work",
			Type:        models.TaskTypeFeature,
			Status:      models.TaskStatusBlocked,
			Priority:    models.PriorityHigh,
			DueDate:     time.Now().AddDate(0, 1, 0),
			AssignedTo:  assignee.ID,
			DependsOn:   []uuid.UUID{prereq.ID},
		}, admin)
		require.NoError(t, err)
		require.NotEqual(t, uuid.Nil, task.ID)
		assert.Equal(t, assignee.ID, task.AssignedTo)

		// Completing the prerequisite must now unblock it.
		_, err = svc.UpdateStatus(context.Background(), prereq.ID, models.TaskStatusCompleted, admin.ID)
		require.NoError(t, err)
		assert.Equal(t, models.TaskStatusOpen, h.TaskStatus(task.ID))
	})

	t.Run("rejects invalid enum values", func(t *testing.T) {
		_, err := svc.Create(context.Background(), CreateTaskInput{
			Title:       "Bad enum",
			Description: "desc",
			Type:        "Chore",
			Status:      models.TaskStatusOpen,
			Priority:    models.PriorityLow,
			DueDate:     time.Now(),
			AssignedTo:  assignee.ID,
		}, admin)
		assert.True(t, apperr.IsBadRequest(err))
	})
}

func TestTaskService_Reassign(t *testing.T) {
	svc, h := newTestService(t)
	admin := h.CreateAdminUser()
	first := h.CreateTestUser()
	second := h.CreateTestUser()

	task := h.CreateTestTask(first.ID, models.TaskStatusOpen)

	updated, err := svc.Reassign(context.Background(), task.ID, second.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, second.ID, updated.AssignedTo)
	assert.Equal(t, second.ID, mustGetTask(t, svc, task.ID, second.ID).AssignedTo)

	t.Run("missing task fails NotFound", func(t *testing.T) {
		_, err := svc.Reassign(context.Background(), uuid.New(), second.ID, admin)
		assert.True(t, apperr.IsNotFound(err))
	})

	t.Run("soft-deleted task fails NotFound", func(t *testing.T) {
		gone := h.CreateTestTask(first.ID, models.TaskStatusOpen)
		require.NoError(t, svc.SoftDelete(context.Background(), gone.ID))

		_, err := svc.Reassign(context.Background(), gone.ID, second.ID, admin)
		assert.True(t, apperr.IsNotFound(err))
	})
}

func TestTaskService_SoftDeleteLifecycle(t *testing.T) {
	svc, h := newTestService(t)
	assignee := h.CreateTestUser()

	t.Run("soft delete hides, restore brings back unchanged", func(t *testing.T) {
		task := h.CreateTestTask(assignee.ID, models.TaskStatusInProgress)

		require.NoError(t, svc.SoftDelete(context.Background(), task.ID))

		_, err := svc.GetTask(context.Background(), task.ID, assignee.ID)
		assert.True(t, apperr.IsNotFound(err))

		deleted, err := svc.ListDeleted(context.Background())
		require.NoError(t, err)
		require.Len(t, deleted, 1)
		assert.Equal(t, task.ID, deleted[0].ID)

		restored, err := svc.Restore(context.Background(), task.ID)
		require.NoError(t, err)
		assert.Equal(t, task.ID, restored.ID)
		assert.Equal(t, task.Title, restored.Title)
		assert.Equal(t, models.TaskStatusInProgress, restored.Status)

		visible, err := svc.GetTask(context.Background(), task.ID, assignee.ID)
		require.NoError(t, err)
		assert.Equal(t, task.ID, visible.ID)
	})

	t.Run("restore on a live task fails NotFound", func(t *testing.T) {
		task := h.CreateTestTask(assignee.ID, models.TaskStatusOpen)

		_, err := svc.Restore(context.Background(), task.ID)
		assert.True(t, apperr.IsNotFound(err))
	})

	t.Run("force delete is terminal", func(t *testing.T) {
		task := h.CreateTestTask(assignee.ID, models.TaskStatusOpen)
		require.NoError(t, svc.SoftDelete(context.Background(), task.ID))
		require.NoError(t, svc.ForceDelete(context.Background(), task.ID))

		_, err := svc.GetTask(context.Background(), task.ID, assignee.ID)
		assert.True(t, apperr.IsNotFound(err))

		_, err = svc.Restore(context.Background(), task.ID)
		assert.True(t, apperr.IsNotFound(err))

		assert.True(t, apperr.IsNotFound(svc.ForceDelete(context.Background(), task.ID)))
	})

	t.Run("force delete also reaches live tasks", func(t *testing.T) {
		task := h.CreateTestTask(assignee.ID, models.TaskStatusOpen)
		require.NoError(t, svc.ForceDelete(context.Background(), task.ID))

		_, err := svc.GetTask(context.Background(), task.ID, assignee.ID)
		assert.True(t, apperr.IsNotFound(err))
	})

	t.Run("double soft delete fails NotFound", func(t *testing.T) {
		task := h.CreateTestTask(assignee.ID, models.TaskStatusOpen)
		require.NoError(t, svc.SoftDelete(context.Background(), task.ID))
		assert.True(t, apperr.IsNotFound(svc.SoftDelete(context.Background(), task.ID)))
	})
}

func TestTaskService_Comments(t *testing.T) {
	svc, h := newTestService(t)
	author := h.CreateTestUser()
	task := h.CreateTestTask(author.ID, models.TaskStatusOpen)

	comment, err := svc.AddComment(context.Background(), task.ID, "looks good", author.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, comment.CommentableID)
	assert.Equal(t, author.ID, comment.UserID)

	t.Run("missing task fails NotFound", func(t *testing.T) {
		_, err := svc.AddComment(context.Background(), uuid.New(), "hello", author.ID)
		assert.True(t, apperr.IsNotFound(err))
	})

	t.Run("empty body fails BadRequest", func(t *testing.T) {
		_, err := svc.AddComment(context.Background(), task.ID, "", author.ID)
		assert.True(t, apperr.IsBadRequest(err))
	})
}

func TestTaskService_Attachments(t *testing.T) {
	svc, h := newTestService(t)
	uploader := h.CreateTestUser()
	task := h.CreateTestTask(uploader.ID, models.TaskStatusOpen)

	attachment, err := svc.AddAttachment(context.Background(), task.ID, "attachments/spec.pdf", uploader.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, attachment.AttachableID)
	assert.Equal(t, "attachments/spec.pdf", attachment.FilePath)

	t.Run("no file supplied fails BadRequest without creating a record", func(t *testing.T) {
		_, err := svc.AddAttachment(context.Background(), task.ID, "", uploader.ID)
		assert.True(t, apperr.IsBadRequest(err))

		got, err := svc.GetTask(context.Background(), task.ID, uploader.ID)
		require.NoError(t, err)
		assert.Len(t, got.Attachments, 1)
	})

	t.Run("missing task fails NotFound", func(t *testing.T) {
		_, err := svc.AddAttachment(context.Background(), uuid.New(), "attachments/x.png", uploader.ID)
		assert.True(t, apperr.IsNotFound(err))
	})
}

func TestTaskService_StatusHistory(t *testing.T) {
	svc, h := newTestService(t)
	actor := h.CreateTestUser()
	task := h.CreateTestTask(h.CreateTestUser().ID, models.TaskStatusOpen)

	_, err := svc.UpdateStatus(context.Background(), task.ID, models.TaskStatusInProgress, actor.ID)
	require.NoError(t, err)
	_, err = svc.UpdateStatus(context.Background(), task.ID, models.TaskStatusCompleted, actor.ID)
	require.NoError(t, err)

	history, err := svc.StatusHistory(context.Background(), task.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.TaskStatusOpen, history[0].OldStatus)
	assert.Equal(t, models.TaskStatusInProgress, history[0].NewStatus)
	assert.Equal(t, models.TaskStatusInProgress, history[1].OldStatus)
	assert.Equal(t, models.TaskStatusCompleted, history[1].NewStatus)
}

func mustGetTask(t *testing.T, svc *TaskService, taskID, requester uuid.UUID) *models.Task {
	t.Helper()
	task, err := svc.GetTask(context.Background(), taskID, requester)
	require.NoError(t, err)
	return task
}
