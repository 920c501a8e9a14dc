package dto

import (
	"github.com/google/uuid"
	"praxis-recording/constant"
	"praxis-recording/entities"
	"time"
)

// TranscribeMessage is the body enqueued for the external transcription worker.
type TranscribeMessage struct {
	Operation        constant.Operation `json:"operation"`
	AccountId        uuid.UUID          `json:"accountId"`
	RecordingId      uuid.UUID          `json:"recordingId"`
	StandaloneChunks bool               `json:"standaloneChunks"`
	Timestamp        time.Time          `json:"timestamp"`
}

type StartRecordingRequest struct {
	ClientId         string `json:"clientId" binding:"required"`
	StandaloneChunks bool   `json:"standaloneChunks"`
}

type UploadChunkForm struct {
	ChunkNumber *int     `form:"chunkNumber" binding:"required,min=1"`
	StartTime   *float64 `form:"startTime" binding:"required,min=0"`
	EndTime     *float64 `form:"endTime" binding:"required,min=0"`
	MimeType    string   `form:"mimeType"`
}

type RecordingResponse struct {
	Recording *entities.Recording `json:"recording"`
}

type HeartbeatResponse struct {
	Recording       *entities.Recording `json:"recording"`
	LastHeartbeatAt time.Time           `json:"lastHeartbeatAt"`
}

type UploadChunkResponse struct {
	ChunkId uuid.UUID `json:"chunkId"`
	Status  string    `json:"status"`
	Message string    `json:"message"`
}

type CompleteRecordingResponse struct {
	Recording *entities.Recording `json:"recording"`
	SessionId uuid.UUID           `json:"sessionId"`
}

type AbortRecordingResponse struct {
	Success         bool   `json:"success"`
	RecordingStatus string `json:"recordingStatus"`
}

// RecordingWithChunks is the read model returned by the GET endpoints; Chunks is
// always a JSON array, never null.
type RecordingWithChunks struct {
	entities.Recording
	Chunks []entities.RecordingChunk `json:"chunks"`
}

type ActiveRecordingResponse struct {
	Recording *RecordingWithChunks `json:"recording"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// TranscribeEnvelope wraps a TranscribeMessage with the delivery keys the queue
// backends use for deduplication and per-account ordering.
type TranscribeEnvelope struct {
	Message         TranscribeMessage
	DeduplicationId string
	GroupId         string
}
