package entities

import (
	"github.com/google/uuid"
	"time"
)

type RecordingChunk struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	RecordingId   uuid.UUID `json:"recording_id" gorm:"type:uuid;not null;uniqueIndex:idx_recording_chunks_number,priority:1"`
	AccountId     uuid.UUID `json:"account_id" gorm:"type:uuid;not null;index:idx_recording_chunks_account"`
	ChunkNumber   int       `json:"chunk_number" gorm:"not null;uniqueIndex:idx_recording_chunks_number,priority:2"`
	StartTime     float64   `json:"start_time" gorm:"not null"`
	EndTime       float64   `json:"end_time" gorm:"not null"`
	StorageBucket string    `json:"storage_bucket" gorm:"type:varchar(100);not null"`
	StoragePath   string    `json:"storage_path" gorm:"type:varchar(500);not null"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (RecordingChunk) TableName() string {
	return "recording_chunks"
}
