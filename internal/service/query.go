// internal/service/query.go
package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/ecanturk/taskforge/internal/cache"
	"github.com/ecanturk/taskforge/internal/models"
	"github.com/ecanturk/taskforge/internal/repository"
	"github.com/ecanturk/taskforge/pkg/apperr"
)

// ListTasks returns the requesting user's tasks, filtered, with comments
// and attachments eagerly loaded, as a materialized slice in insertion
// order. Results are served from the TTL cache; the key covers the scoped
// user and the filter fingerprint, and every mutating operation invalidates
// the affected users' entries.
func (s *TaskService) ListTasks(ctx context.Context, filters repository.ListFilter, requestingUser uuid.UUID) ([]models.Task, error) {
	// Base predicate: the requester's own tasks, unless the filter
	// explicitly overrides the assignee.
	scopedUser := requestingUser
	if filters.AssignedTo != nil {
		scopedUser = *filters.AssignedTo
	}
	filters.AssignedTo = &scopedUser
	filters.WithRelations = true

	key := cache.Key(scopedUser, fingerprint(filters))
	if tasks, ok := s.listCache.Get(key); ok {
		return tasks, nil
	}

	tasks, err := s.tasks.List(ctx, filters)
	if err != nil {
		return nil, apperr.Internal(err, "list tasks")
	}

	s.listCache.Set(key, tasks)
	return tasks, nil
}

// GetTask returns a single task with relations, but only to its assignee.
func (s *TaskService) GetTask(ctx context.Context, taskID, requestingUser uuid.UUID) (*models.Task, error) {
	task, err := s.tasks.GetByIDWithRelations(ctx, taskID)
	if err != nil {
		return nil, notFoundOr(err, "task %s not found", taskID)
	}
	if task.AssignedTo != requestingUser {
		return nil, apperr.Forbidden("you do not have access to this task")
	}
	return task, nil
}

// fingerprint renders the filter set deterministically so equal filters map
// to the same cache entry and different filters never shadow each other.
func fingerprint(f repository.ListFilter) string {
	var b strings.Builder
	if f.Type != nil {
		b.WriteString("t=" + *f.Type + ";")
	}
	if f.Status != nil {
		b.WriteString("s=" + *f.Status + ";")
	}
	if f.Priority != nil {
		b.WriteString("p=" + *f.Priority + ";")
	}
	if f.DueBefore != nil {
		b.WriteString("d=" + f.DueBefore.Format("2006-01-02") + ";")
	}
	if b.Len() == 0 {
		return "all"
	}
	return b.String()
}
