// internal/models/comment.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment is a polymorphic child: CommentableType/CommentableID name the
// owning record (currently always a task).
type Comment struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Body            string         `gorm:"type:text;not null" json:"body"`
	UserID          uuid.UUID      `gorm:"type:uuid;not null" json:"user_id"`
	CommentableID   uuid.UUID      `gorm:"type:uuid;not null;index:idx_comments_commentable" json:"commentable_id"`
	CommentableType string         `gorm:"type:varchar(64);not null;index:idx_comments_commentable" json:"commentable_type"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Attachment stores the blob-store path of an uploaded file; the bytes
// themselves live in external storage.
type Attachment struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	FilePath       string         `gorm:"type:varchar(255);not null" json:"file_path"`
	UserID         uuid.UUID      `gorm:"type:uuid;not null" json:"user_id"`
	AttachableID   uuid.UUID      `gorm:"type:uuid;not null;index:idx_attachments_attachable" json:"attachable_id"`
	AttachableType string         `gorm:"type:varchar(64);not null;index:idx_attachments_attachable" json:"attachable_type"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (a *Attachment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
