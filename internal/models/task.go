// internal/models/task.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Task type constants
const (
	TaskTypeBug         = "Bug"
	TaskTypeFeature     = "Feature"
	TaskTypeImprovement = "Improvement"
)

// Task status constants
const (
	TaskStatusOpen       = "Open"
	TaskStatusInProgress = "In Progress"
	TaskStatusCompleted  = "Completed"
	TaskStatusBlocked    = "Blocked"
)

// Priority constants
const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

// ValidTaskType reports whether t is one of the enumerated task types.
func ValidTaskType(t string) bool {
	switch t {
	case TaskTypeBug, TaskTypeFeature, TaskTypeImprovement:
		return true
	}
	return false
}

// ValidTaskStatus reports whether s is one of the enumerated statuses.
func ValidTaskStatus(s string) bool {
	switch s {
	case TaskStatusOpen, TaskStatusInProgress, TaskStatusCompleted, TaskStatusBlocked:
		return true
	}
	return false
}

// ValidPriority reports whether p is one of the enumerated priorities.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type Task struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string         `gorm:"not null" json:"title"`
	Description string         `gorm:"type:text;not null" json:"description"`
	Type        string         `gorm:"type:varchar(16);not null;index" json:"type"`
	Status      string         `gorm:"type:varchar(16);not null;index" json:"status"`
	Priority    string         `gorm:"type:varchar(8);not null;index" json:"priority"`
	DueDate     time.Time      `gorm:"not null" json:"due_date"`
	AssignedTo  uuid.UUID      `gorm:"type:uuid;not null;index" json:"assigned_to"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Assignee      *User              `gorm:"foreignKey:AssignedTo" json:"assignee,omitempty"`
	Comments      []Comment          `gorm:"polymorphic:Commentable" json:"comments"`
	Attachments   []Attachment       `gorm:"polymorphic:Attachable" json:"attachments"`
	StatusUpdates []TaskStatusUpdate `gorm:"foreignKey:TaskID" json:"-"`
	Dependencies  []TaskDependency   `gorm:"foreignKey:TaskID" json:"-"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// TaskStatusUpdate is the append-only audit row written once per status
// change. Rows are never updated or deleted.
type TaskStatusUpdate struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TaskID    uuid.UUID `gorm:"type:uuid;not null;index" json:"task_id"`
	OldStatus string    `gorm:"type:varchar(16);not null" json:"old_status"`
	NewStatus string    `gorm:"type:varchar(16);not null" json:"new_status"`
	UpdatedBy uuid.UUID `gorm:"type:uuid;not null" json:"updated_by"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *TaskStatusUpdate) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// TaskDependency records that TaskID depends on DependsOn. The graph may
// contain cycles; unblocking is single-hop so cycles stay benign.
type TaskDependency struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TaskID    uuid.UUID `gorm:"type:uuid;not null;index" json:"task_id"`
	DependsOn uuid.UUID `gorm:"type:uuid;not null;index" json:"depends_on"`
	CreatedAt time.Time `json:"created_at"`
}

func (d *TaskDependency) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
