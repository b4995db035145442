// internal/httpapi/server.go
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/ecanturk/taskforge/internal/authz"
	"github.com/ecanturk/taskforge/internal/middleware"
	"github.com/ecanturk/taskforge/internal/repository"
	"github.com/ecanturk/taskforge/internal/service"
	"github.com/ecanturk/taskforge/pkg/apperr"
)

// Server is the thin HTTP boundary: it authenticates the caller, consults
// the authorizer, and passes validated payloads straight to the services.
type Server struct {
	tasks      *service.TaskService
	reports    *service.ReportService
	authorizer authz.Authorizer

	httpServer *http.Server
	listener   net.Listener
}

func NewServer(addr string, tasks *service.TaskService, reports *service.ReportService, users *repository.UserRepository, authorizer authz.Authorizer) *Server {
	s := &Server{
		tasks:      tasks,
		reports:    reports,
		authorizer: authorizer,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.Handle("POST /tasks", s.requirePermission(authz.PermCreateTask, s.handleCreateTask))
	mux.HandleFunc("GET /tasks", s.handleListTasks)
	mux.HandleFunc("GET /tasks/blocked", s.handleBlockedTasks)
	mux.Handle("GET /tasks/deleted", s.requirePermission(authz.PermViewDeletedTasks, s.handleListDeleted))
	mux.Handle("PUT /tasks/{id}/status", s.requirePermission(authz.PermUpdateTaskStatus, s.handleUpdateStatus))
	mux.Handle("PUT /tasks/{id}/reassign", s.requirePermission(authz.PermReassignTask, s.handleReassign))
	mux.Handle("POST /tasks/{id}/comments", s.requirePermission(authz.PermAddComment, s.handleAddComment))
	mux.Handle("POST /tasks/{id}/attachments", s.requirePermission(authz.PermAddAttachment, s.handleAddAttachment))
	mux.Handle("POST /tasks/{id}/dependencies", s.requirePermission(authz.PermCreateTask, s.handleAddDependency))
	mux.HandleFunc("GET /tasks/{id}/history", s.handleStatusHistory)

	mux.HandleFunc("GET /task/{id}", s.handleGetTask)
	mux.Handle("DELETE /task/{id}/delete", s.requirePermission(authz.PermDeleteTask, s.handleSoftDelete))
	mux.Handle("DELETE /task/{id}/forceDelete", s.requirePermission(authz.PermDeleteTask, s.handleForceDelete))
	mux.Handle("PATCH /task/{id}/restore", s.requirePermission(authz.PermDeleteTask, s.handleRestore))

	mux.Handle("GET /reports/daily-tasks", s.requirePermission(authz.PermViewDailyTasks, s.handleDailyReport))

	identity := middleware.NewIdentityExtractor(users)

	// Everything except the health probe goes through identity resolution.
	root := http.NewServeMux()
	root.HandleFunc("GET /health", s.handleHealth)
	root.Handle("/", identity.Handler(mux))

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      middleware.RequestLogger(root),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler exposes the configured handler chain, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start binds the listener and serves until Shutdown.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.httpServer.Addr, err)
	}
	s.listener = listener

	log.Printf("HTTP server listening on %s", listener.Addr())
	if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requirePermission consults the authorization oracle before dispatching.
// The services themselves never re-check.
func (s *Server) requirePermission(permission string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.UserFromContext(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "not authenticated"})
			return
		}
		if !s.authorizer.Can(user, permission) {
			writeJSON(w, http.StatusForbidden, map[string]string{"message": "insufficient permissions"})
			return
		}
		next(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		// Internal details go to the log, not the client.
		log.Printf("[ERROR] %v", err)
		message = "internal server error"
	}
	writeJSON(w, status, map[string]string{"message": message})
}
