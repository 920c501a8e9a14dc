package entities

import (
	"github.com/google/uuid"
	"praxis-recording/constant"
	"time"
)

type Recording struct {
	ID               uuid.UUID                `json:"id" gorm:"type:uuid;primaryKey"`
	AccountId        uuid.UUID                `json:"account_id" gorm:"type:uuid;not null;uniqueIndex:idx_recordings_active_account,where:status <> 'completed'"`
	ClientId         uuid.UUID                `json:"client_id" gorm:"type:uuid;not null;index:idx_recordings_client_id"`
	Status           constant.RecordingStatus `json:"status" gorm:"type:varchar(20);not null;index:idx_recordings_status"`
	LastHeartbeatAt  time.Time                `json:"last_heartbeat_at" gorm:"not null"`
	SessionId        *uuid.UUID               `json:"session_id" gorm:"type:uuid"`
	StandaloneChunks bool                     `json:"standalone_chunks" gorm:"not null;default:false"`
	CreatedAt        time.Time                `json:"created_at"`
	UpdatedAt        time.Time                `json:"updated_at"`

	Chunks []RecordingChunk `json:"chunks,omitempty" gorm:"foreignKey:RecordingId;constraint:OnDelete:CASCADE"`
}

func (Recording) TableName() string {
	return "recordings"
}
