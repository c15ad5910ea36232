// edulearn/sources/psql/models/chat.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ChatSession stores one session per row with its messages as a jsonb array.
type ChatSession struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	OwnerID   string         `json:"owner_id" gorm:"type:varchar(64);not null;index:idx_chat_sessions_owner_created,priority:1"`
	Title     string         `json:"title" gorm:"type:varchar(255);not null;default:'New Chat'"`
	Starred   bool           `json:"starred" gorm:"not null;default:false"`
	Messages  datatypes.JSON `json:"messages" gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime:false;not null;index:idx_chat_sessions_owner_created,priority:2,sort:desc"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime:false;not null"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}

func (s *ChatSession) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == uuid.Nil {
		s.ID, err = uuid.NewV7()
	}
	return err
}
