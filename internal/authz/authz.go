// Package authz is the capability check consulted by the transport layer
// before it invokes a service operation. The engines themselves never
// re-check permissions, so trusted internal callers can reuse them directly.
package authz

import "github.com/ecanturk/taskforge/internal/models"

// Permission names. These are stable identifiers, not display strings.
const (
	PermCreateTask       = "create task"
	PermDeleteTask       = "delete task"
	PermAssignTask       = "assign task to user"
	PermReassignTask     = "reassign task to another user"
	PermUpdateTaskStatus = "update task status"
	PermAddComment       = "add comment to task"
	PermAddAttachment    = "add attachment to task"
	PermViewDeletedTasks = "view deleted tasks"
	PermViewDailyTasks   = "view daily tasks"
)

// Authorizer answers "may this user perform this action".
type Authorizer interface {
	Can(user *models.User, permission string) bool
}

// RoleAuthorizer grants permissions by role membership.
type RoleAuthorizer struct {
	grants map[string]map[string]bool
}

// NewRoleAuthorizer builds the default role/permission matrix: Admins manage
// tasks and their lifecycle, regular users work on the tasks assigned to
// them.
func NewRoleAuthorizer() *RoleAuthorizer {
	grant := func(perms ...string) map[string]bool {
		m := make(map[string]bool, len(perms))
		for _, p := range perms {
			m[p] = true
		}
		return m
	}

	return &RoleAuthorizer{
		grants: map[string]map[string]bool{
			models.RoleAdmin: grant(
				PermCreateTask,
				PermDeleteTask,
				PermAssignTask,
				PermReassignTask,
				PermViewDeletedTasks,
			),
			models.RoleUser: grant(
				PermUpdateTaskStatus,
				PermAddComment,
				PermAddAttachment,
				PermViewDailyTasks,
			),
		},
	}
}

func (a *RoleAuthorizer) Can(user *models.User, permission string) bool {
	if user == nil || !user.IsActive {
		return false
	}
	return a.grants[user.Role][permission]
}

// AllowAll grants everything. Useful for tests and trusted internal jobs.
type AllowAll struct{}

func (AllowAll) Can(*models.User, string) bool { return true }
