package entities

import (
	"github.com/google/uuid"
	"time"
)

// Session is a therapy session record. Completing a recording creates one; the
// recording links back to it through Recording.SessionId.
type Session struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	AccountId uuid.UUID `json:"account_id" gorm:"type:uuid;not null;index:idx_sessions_account"`
	ClientId  uuid.UUID `json:"client_id" gorm:"type:uuid;not null;index:idx_sessions_client"`
	Title     string    `json:"title" gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Session) TableName() string {
	return "sessions"
}
