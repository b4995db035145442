// internal/httpapi/handlers.go
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ecanturk/taskforge/internal/middleware"
	"github.com/ecanturk/taskforge/internal/repository"
	"github.com/ecanturk/taskforge/internal/service"
)

const dateLayout = "2006-01-02"

type createTaskRequest struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Type        string      `json:"type"`
	Status      string      `json:"status"`
	Priority    string      `json:"priority"`
	DueDate     string      `json:"due_date"`
	AssignedTo  uuid.UUID   `json:"assigned_to"`
	DependsOn   []uuid.UUID `json:"depends_on"`
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.UserFromContext(r.Context())

	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid JSON body"})
		return
	}

	var dueDate time.Time
	if req.DueDate != "" {
		parsed, err := time.Parse(dateLayout, req.DueDate)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "due_date must be YYYY-MM-DD"})
			return
		}
		dueDate = parsed
	}

	task, err := s.tasks.Create(r.Context(), service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     dueDate,
		AssignedTo:  req.AssignedTo,
		DependsOn:   req.DependsOn,
	}, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.UserFromContext(r.Context())
	taskID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid JSON body"})
		return
	}

	task, err := s.tasks.UpdateStatus(r.Context(), taskID, req.Status, actor.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleReassign(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.UserFromContext(r.Context())
	taskID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		AssignedTo uuid.UUID `json:"assigned_to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid JSON body"})
		return
	}

	task, err := s.tasks.Reassign(r.Context(), taskID, req.AssignedTo, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	filter, err := filterFromQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}

	tasks, err := s.tasks.ListTasks(r.Context(), filter, user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	taskID, ok := pathID(w, r)
	if !ok {
		return
	}

	task, err := s.tasks.GetTask(r.Context(), taskID, user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.UserFromContext(r.Context())
	taskID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid JSON body"})
		return
	}

	comment, err := s.tasks.AddComment(r.Context(), taskID, req.Body, actor.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (s *Server) handleAddAttachment(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.UserFromContext(r.Context())
	taskID, ok := pathID(w, r)
	if !ok {
		return
	}

	// The raw file was persisted to the blob store upstream; only the
	// resulting path travels here.
	var req struct {
		FilePath string `json:"file_path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid JSON body"})
		return
	}

	attachment, err := s.tasks.AddAttachment(r.Context(), taskID, req.FilePath, actor.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attachment)
}

func (s *Server) handleAddDependency(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		DependsOn uuid.UUID `json:"depends_on"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid JSON body"})
		return
	}

	dep, err := s.tasks.AddDependency(r.Context(), taskID, req.DependsOn)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dep)
}

func (s *Server) handleStatusHistory(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathID(w, r)
	if !ok {
		return
	}

	updates, err := s.tasks.StatusHistory(r.Context(), taskID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updates)
}

func (s *Server) handleSoftDelete(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.tasks.SoftDelete(r.Context(), taskID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Task soft deleted successfully."})
}

func (s *Server) handleForceDelete(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.tasks.ForceDelete(r.Context(), taskID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Task permanently deleted successfully."})
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathID(w, r)
	if !ok {
		return
	}

	if _, err := s.tasks.Restore(r.Context(), taskID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Task restored successfully."})
}

func (s *Server) handleListDeleted(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.tasks.ListDeleted(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleDailyReport(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.reports.DailyReport(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleBlockedTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.reports.BlockedTasks(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// pathID parses the {id} path segment, responding with 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid task ID"})
		return uuid.Nil, false
	}
	return id, true
}

// filterFromQuery builds the listing filter from the query string.
func filterFromQuery(r *http.Request) (repository.ListFilter, error) {
	var filter repository.ListFilter
	q := r.URL.Query()

	if v := q.Get("type"); v != "" {
		filter.Type = &v
	}
	if v := q.Get("status"); v != "" {
		filter.Status = &v
	}
	if v := q.Get("priority"); v != "" {
		filter.Priority = &v
	}
	if v := q.Get("assigned_to"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filter, errInvalidQuery("assigned_to must be a UUID")
		}
		filter.AssignedTo = &id
	}
	if v := q.Get("due_date"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return filter, errInvalidQuery("due_date must be YYYY-MM-DD")
		}
		filter.DueBefore = &t
	}
	return filter, nil
}

type errInvalidQuery string

func (e errInvalidQuery) Error() string { return string(e) }
