// internal/service/task_service.go
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecanturk/taskforge/internal/cache"
	"github.com/ecanturk/taskforge/internal/models"
	"github.com/ecanturk/taskforge/internal/repository"
	"github.com/ecanturk/taskforge/pkg/apperr"
)

// TransitionPolicy decides whether a status transition is allowed. The
// default permits any enumerated value to follow any other; deployments
// wanting a stricter table plug one in without touching call sites.
type TransitionPolicy func(oldStatus, newStatus string) error

// AllowAllTransitions is the default policy.
func AllowAllTransitions(oldStatus, newStatus string) error {
	return nil
}

// TaskService is the task lifecycle engine: creation and reassignment with
// the role-consistency guards, the status transition machine with its audit
// trail and dependency unblocking, the soft-delete lifecycle, and comment /
// attachment creation. It performs no authorization checks itself; callers
// hold the capability before invoking it.
type TaskService struct {
	db         *gorm.DB
	tasks      *repository.TaskRepository
	deps       *repository.DependencyRepository
	users      *repository.UserRepository
	listCache  cache.TaskListCache
	transition TransitionPolicy
	now        func() time.Time
}

// Option customizes service construction.
type Option func(*TaskService)

// WithTransitionPolicy replaces the default allow-everything policy.
func WithTransitionPolicy(p TransitionPolicy) Option {
	return func(s *TaskService) {
		if p != nil {
			s.transition = p
		}
	}
}

// WithClock allows tests to control timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *TaskService) {
		if clock != nil {
			s.now = clock
		}
	}
}

func NewTaskService(db *gorm.DB, listCache cache.TaskListCache, opts ...Option) *TaskService {
	s := &TaskService{
		db:         db,
		tasks:      repository.NewTaskRepository(db),
		deps:       repository.NewDependencyRepository(db),
		users:      repository.NewUserRepository(db),
		listCache:  listCache,
		transition: AllowAllTransitions,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// CreateTaskInput carries the validated field set for task creation.
type CreateTaskInput struct {
	Title       string
	Description string
	Type        string
	Status      string
	Priority    string
	DueDate     time.Time
	AssignedTo  uuid.UUID
	// DependsOn lists prerequisite task IDs recorded as dependency edges.
	DependsOn []uuid.UUID
}

func (in *CreateTaskInput) validate() error {
	if in.Title == "" {
		return apperr.BadRequest("title is required")
	}
	if in.Description == "" {
		return apperr.BadRequest("description is required")
	}
	if !models.ValidTaskType(in.Type) {
		return apperr.BadRequest("invalid task type %q", in.Type)
	}
	if !models.ValidTaskStatus(in.Status) {
		return apperr.BadRequest("invalid task status %q", in.Status)
	}
	if !models.ValidPriority(in.Priority) {
		return apperr.BadRequest("invalid priority %q", in.Priority)
	}
	if in.DueDate.IsZero() {
		return apperr.BadRequest("due date is required")
	}
	if in.AssignedTo == uuid.Nil {
		return apperr.BadRequest("assigned user is required")
	}
	return nil
}

// Create persists a new task after the assignment guards pass. Dependency
// edges named in the input are created in the same transaction.
func (s *TaskService) Create(ctx context.Context, input CreateTaskInput, actor *models.User) (*models.Task, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	if err := s.checkAssignmentGuards(ctx, input.AssignedTo, actor); err != nil {
		return nil, err
	}

	task := &models.Task{
		Title:       input.Title,
		Description: input.Description,
		Type:        input.Type,
		Status:      input.Status,
		Priority:    input.Priority,
		DueDate:     input.DueDate,
		AssignedTo:  input.AssignedTo,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.tasks.WithTx(tx).Create(ctx, task); err != nil {
			return err
		}
		txDeps := s.deps.WithTx(tx)
		for _, prereq := range input.DependsOn {
			if _, err := txDeps.Add(ctx, task.ID, prereq); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Internal(err, "create task")
	}

	s.listCache.InvalidateUser(task.AssignedTo)
	return task, nil
}

// Reassign moves the task to another assignee, subject to the same guards
// as creation. Last writer wins on concurrent reassignments; the single
// column update keeps each write atomic.
func (s *TaskService) Reassign(ctx context.Context, taskID, assignedTo uuid.UUID, actor *models.User) (*models.Task, error) {
	if err := s.checkAssignmentGuards(ctx, assignedTo, actor); err != nil {
		return nil, err
	}

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, notFoundOr(err, "task %s not found", taskID)
	}

	previousAssignee := task.AssignedTo
	if err := s.tasks.SetAssignee(ctx, taskID, assignedTo); err != nil {
		return nil, notFoundOr(err, "task %s not found", taskID)
	}
	task.AssignedTo = assignedTo

	s.listCache.InvalidateUser(previousAssignee)
	s.listCache.InvalidateUser(assignedTo)
	return task, nil
}

// checkAssignmentGuards enforces the role-consistency rules shared by
// creation and reassignment. Both guards run before any mutation.
func (s *TaskService) checkAssignmentGuards(ctx context.Context, assignedTo uuid.UUID, actor *models.User) error {
	if actor == nil {
		return apperr.Forbidden("acting user is required")
	}
	if assignedTo == actor.ID {
		return apperr.Forbidden("cannot assign a task to yourself")
	}

	assignee, err := s.users.GetByID(ctx, assignedTo)
	if err != nil {
		return notFoundOr(err, "assigned user %s not found", assignedTo)
	}
	if assignee.IsAdmin() {
		return apperr.Forbidden("cannot assign a task to an admin")
	}
	return nil
}

// UpdateStatus applies a status transition, appends exactly one audit row
// and, when the new status is Completed, unblocks direct dependents. The
// status write, the audit insert and the cascade commit or roll back
// together.
func (s *TaskService) UpdateStatus(ctx context.Context, taskID uuid.UUID, newStatus string, actorID uuid.UUID) (*models.Task, error) {
	if !models.ValidTaskStatus(newStatus) {
		return nil, apperr.BadRequest("invalid task status %q", newStatus)
	}

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, notFoundOr(err, "task %s not found", taskID)
	}

	oldStatus := task.Status
	if err := s.transition(oldStatus, newStatus); err != nil {
		return nil, apperr.Forbidden("transition %s -> %s not allowed: %v", oldStatus, newStatus, err)
	}

	var unblockedAssignees []uuid.UUID
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txTasks := s.tasks.WithTx(tx)

		if err := txTasks.SetStatus(ctx, taskID, newStatus); err != nil {
			return err
		}
		update := &models.TaskStatusUpdate{
			TaskID:    taskID,
			OldStatus: oldStatus,
			NewStatus: newStatus,
			UpdatedBy: actorID,
		}
		if err := txTasks.AppendStatusUpdate(ctx, update); err != nil {
			return err
		}

		if newStatus == models.TaskStatusCompleted {
			assignees, err := s.unblockDependents(ctx, tx, taskID)
			if err != nil {
				return err
			}
			unblockedAssignees = assignees
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Internal(err, "update status of task %s", taskID)
	}

	task.Status = newStatus
	s.listCache.InvalidateUser(task.AssignedTo)
	for _, assignee := range unblockedAssignees {
		s.listCache.InvalidateUser(assignee)
	}
	return task, nil
}

// unblockDependents flips every direct dependent currently Blocked to Open.
// Single level only: the flip is a direct store write, produces no audit row
// and never cascades further. A dependent that disappeared is skipped since
// cascade entries are independent of each other.
func (s *TaskService) unblockDependents(ctx context.Context, tx *gorm.DB, prerequisiteID uuid.UUID) ([]uuid.UUID, error) {
	edges, err := s.deps.WithTx(tx).DependentsOf(ctx, prerequisiteID)
	if err != nil {
		return nil, err
	}

	txTasks := s.tasks.WithTx(tx)
	var assignees []uuid.UUID
	for _, edge := range edges {
		dependent, err := txTasks.GetByID(ctx, edge.TaskID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}
		if dependent.Status != models.TaskStatusBlocked {
			continue
		}
		if err := txTasks.SetStatus(ctx, dependent.ID, models.TaskStatusOpen); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}
		assignees = append(assignees, dependent.AssignedTo)
	}
	return assignees, nil
}

// AddDependency records that taskID depends on prerequisite. Both tasks
// must exist; no cycle check is made.
func (s *TaskService) AddDependency(ctx context.Context, taskID, prerequisite uuid.UUID) (*models.TaskDependency, error) {
	if _, err := s.tasks.GetByID(ctx, taskID); err != nil {
		return nil, notFoundOr(err, "task %s not found", taskID)
	}
	if _, err := s.tasks.GetByID(ctx, prerequisite); err != nil {
		return nil, notFoundOr(err, "task %s not found", prerequisite)
	}

	dep, err := s.deps.Add(ctx, taskID, prerequisite)
	if err != nil {
		return nil, apperr.Internal(err, "add dependency")
	}
	return dep, nil
}

// AddComment attaches a comment to an existing task.
func (s *TaskService) AddComment(ctx context.Context, taskID uuid.UUID, body string, authorID uuid.UUID) (*models.Comment, error) {
	if body == "" {
		return nil, apperr.BadRequest("comment body is required")
	}

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, notFoundOr(err, "task %s not found", taskID)
	}

	comment := &models.Comment{
		Body:            body,
		UserID:          authorID,
		CommentableID:   task.ID,
		CommentableType: "tasks",
	}
	if err := s.tasks.AddComment(ctx, comment); err != nil {
		return nil, apperr.Internal(err, "add comment to task %s", taskID)
	}

	s.listCache.InvalidateUser(task.AssignedTo)
	return comment, nil
}

// AddAttachment links an already-stored file to a task. The caller persists
// the blob externally first and passes the resulting path.
func (s *TaskService) AddAttachment(ctx context.Context, taskID uuid.UUID, filePath string, uploaderID uuid.UUID) (*models.Attachment, error) {
	if filePath == "" {
		return nil, apperr.BadRequest("no file attached")
	}

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, notFoundOr(err, "task %s not found", taskID)
	}

	attachment := &models.Attachment{
		FilePath:       filePath,
		UserID:         uploaderID,
		AttachableID:   task.ID,
		AttachableType: "tasks",
	}
	if err := s.tasks.AddAttachment(ctx, attachment); err != nil {
		return nil, apperr.Internal(err, "add attachment to task %s", taskID)
	}

	s.listCache.InvalidateUser(task.AssignedTo)
	return attachment, nil
}

// SoftDelete hides the task from default scope; the row stays restorable.
func (s *TaskService) SoftDelete(ctx context.Context, taskID uuid.UUID) error {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return notFoundOr(err, "task %s not found", taskID)
	}
	if err := s.tasks.SoftDelete(ctx, taskID); err != nil {
		return notFoundOr(err, "task %s not found", taskID)
	}
	s.listCache.InvalidateUser(task.AssignedTo)
	return nil
}

// ForceDelete purges the row whether live or soft-deleted. Terminal.
func (s *TaskService) ForceDelete(ctx context.Context, taskID uuid.UUID) error {
	task, err := s.tasks.GetAny(ctx, taskID)
	if err != nil {
		return notFoundOr(err, "task %s not found", taskID)
	}
	if err := s.tasks.ForceDelete(ctx, taskID); err != nil {
		return notFoundOr(err, "task %s not found", taskID)
	}
	s.listCache.InvalidateUser(task.AssignedTo)
	return nil
}

// Restore brings a soft-deleted task back to the default scope.
func (s *TaskService) Restore(ctx context.Context, taskID uuid.UUID) (*models.Task, error) {
	if err := s.tasks.Restore(ctx, taskID); err != nil {
		return nil, notFoundOr(err, "deleted task %s not found", taskID)
	}
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, notFoundOr(err, "task %s not found", taskID)
	}
	s.listCache.InvalidateUser(task.AssignedTo)
	return task, nil
}

// ListDeleted returns only soft-deleted tasks.
func (s *TaskService) ListDeleted(ctx context.Context) ([]models.Task, error) {
	tasks, err := s.tasks.ListDeleted(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "list deleted tasks")
	}
	return tasks, nil
}

// StatusHistory returns the audit trail for a task, oldest first.
func (s *TaskService) StatusHistory(ctx context.Context, taskID uuid.UUID) ([]models.TaskStatusUpdate, error) {
	if _, err := s.tasks.GetByID(ctx, taskID); err != nil {
		return nil, notFoundOr(err, "task %s not found", taskID)
	}
	updates, err := s.tasks.StatusUpdates(ctx, taskID)
	if err != nil {
		return nil, apperr.Internal(err, "load status history for task %s", taskID)
	}
	return updates, nil
}

// notFoundOr maps a missing record to the NotFound kind and anything else
// to Internal.
func notFoundOr(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(format, args...)
	}
	return apperr.Internal(err, format, args...)
}
