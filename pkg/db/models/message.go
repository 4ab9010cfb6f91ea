package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/avaldezco/sazonpos-backend/pkg/enums"
)

// Message is one message-center entry. A nil RecipientUserID means the
// message is visible to every staff member (broadcast).
type Message struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RecipientUserID *uuid.UUID        `gorm:"column:recipient_user_id;type:uuid;index"`
	Kind            enums.MessageKind `gorm:"column:kind;not null;default:'system'"`
	Title           string            `gorm:"column:title;not null"`
	Body            string            `gorm:"column:body;not null"`
	Link            *string           `gorm:"column:link"`
	ReadAt          *time.Time        `gorm:"column:read_at"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime;index"`
}

// TableName overrides the default GORM pluralization.
func (Message) TableName() string { return "messages" }
