package service

import (
	"context"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"io"
	"math"
	"praxis-recording/constant"
	"praxis-recording/dto"
	"praxis-recording/entities"
	"praxis-recording/repository"
	"time"
)

// TranscriptionTimeout bounds the hand-off after a completion has committed.
// The hand-off does not follow the caller's cancellation.
const TranscriptionTimeout = 30 * time.Second

type ObjectStorage interface {
	Bucket() string
	PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	RemovePrefix(ctx context.Context, prefix string) error
}

type StartInput struct {
	ClientId         uuid.UUID
	StandaloneChunks bool
}

type ChunkInput struct {
	ChunkNumber int
	StartTime   float64
	EndTime     float64
	MimeType    string
	Body        io.Reader
	Size        int64
}

type CompleteInput struct {
	AcceptLanguage string
}

type CompleteResult struct {
	Recording     *entities.Recording
	SessionId     uuid.UUID
	Transcription SideEffect
}

type RecordingService interface {
	Start(ctx context.Context, userId uuid.UUID, input StartInput) (*entities.Recording, error)
	Pause(ctx context.Context, userId uuid.UUID, recordingId uuid.UUID) (*entities.Recording, error)
	Resume(ctx context.Context, userId uuid.UUID, recordingId uuid.UUID) (*entities.Recording, error)
	Heartbeat(ctx context.Context, userId uuid.UUID, recordingId uuid.UUID) (*entities.Recording, error)
	UploadChunk(ctx context.Context, userId uuid.UUID, recordingId uuid.UUID, input ChunkInput) (*entities.RecordingChunk, error)
	Complete(ctx context.Context, userId uuid.UUID, recordingId uuid.UUID, input CompleteInput) (*CompleteResult, error)
	Abort(ctx context.Context, userId uuid.UUID, recordingId uuid.UUID) error
	Active(ctx context.Context, userId uuid.UUID) (*dto.RecordingWithChunks, error)
	Get(ctx context.Context, userId uuid.UUID, recordingId uuid.UUID) (*dto.RecordingWithChunks, error)
}

type Options struct {
	DefaultLocale string
	Now           func() time.Time
}

type recordingService struct {
	repo          repository.RecordingRepository
	storage       ObjectStorage
	transcription TranscriptionService
	defaultLocale string
	now           func() time.Time
}

func NewRecordingService(repo repository.RecordingRepository, storage ObjectStorage, transcription TranscriptionService, opts Options) RecordingService {
	if opts.Now == nil {
		opts.Now = utcNow
	}
	if opts.DefaultLocale == "" {
		opts.DefaultLocale = "en"
	}
	return &recordingService{
		repo:          repo,
		storage:       storage,
		transcription: transcription,
		defaultLocale: opts.DefaultLocale,
		now:           opts.Now,
	}
}

func utcNow() time.Time {
	return time.Now().UTC()
}

// ChunkObjectPath is the deterministic storage key of a chunk. Re-uploading the
// same chunk number overwrites the same object.
func ChunkObjectPath(accountId uuid.UUID, recordingId uuid.UUID, chunkNumber int) string {
	return fmt.Sprintf("%s/%s/chunk-%04d.webm", accountId, recordingId, chunkNumber)
}

func recordingPrefix(accountId uuid.UUID, recordingId uuid.UUID) string {
	return fmt.Sprintf("%s/%s/", accountId, recordingId)
}

func (s *recordingService) account(ctx context.Context, userId uuid.UUID) (*entities.Account, error) {
	account, err := s.repo.FindPersonalAccount(ctx, userId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("find personal account: %w", err)
	}
	return account, nil
}

// ownedRecording resolves the caller's account and the recording scoped to it.
// A recording owned by another account is reported exactly like a missing one.
func (s *recordingService) ownedRecording(ctx context.Context, userId uuid.UUID, recordingId uuid.UUID) (*entities.Recording, error) {
	account, err := s.account(ctx, userId)
	if err != nil {
		return nil, err
	}

	recording, err := s.repo.FindRecording(ctx, recordingId, account.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordingNotFound
		}
		return nil, fmt.Errorf("find recording: %w", err)
	}
	return recording, nil
}

func (s *recordingService) activeRecording(ctx context.Context, userId uuid.UUID, recordingId uuid.UUID) (*entities.Recording, error) {
	recording, err := s.ownedRecording(ctx, userId, recordingId)
	if err != nil {
		return nil, err
	}
	if !recording.Status.IsActive() {
		return nil, fmt.Errorf("%w: recording is %s", ErrInvalidState, recording.Status)
	}
	return recording, nil
}

// nextHeartbeat never moves a recording's heartbeat backwards.
func (s *recordingService) nextHeartbeat(recording *entities.Recording) time.Time {
	now := s.now()
	if now.Before(recording.LastHeartbeatAt) {
		return recording.LastHeartbeatAt
	}
	return now
}

func (s *recordingService) Start(ctx context.Context, userId uuid.UUID, input StartInput) (*entities.Recording, error) {
	if input.ClientId == uuid.Nil {
		return nil, fmt.Errorf("%w: clientId is required", ErrInvalidInput)
	}

	account, err := s.account(ctx, userId)
	if err != nil {
		return nil, err
	}

	active, err := s.repo.FindActiveRecording(ctx, account.ID)
	if err == nil {
		zerolog.Ctx(ctx).Info().
			Str("account_id", account.ID.String()).
			Str("recording_id", active.ID.String()).
			Msg("active recording already exists")
		return nil, ErrActiveRecordingExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find active recording: %w", err)
	}

	now := s.now()
	recording := &entities.Recording{
		ID:               uuid.New(),
		AccountId:        account.ID,
		ClientId:         input.ClientId,
		Status:           constant.RecordingStatusRecording,
		LastHeartbeatAt:  now,
		StandaloneChunks: input.StandaloneChunks,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.CreateRecording(ctx, recording); err != nil {
		// the partial unique index catches a concurrent start that passed the check above
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrActiveRecordingExists
		}
		return nil, fmt.Errorf("create recording: %w", err)
	}

	zerolog.Ctx(ctx).Info().
		Str("account_id", account.ID.String()).
		Str("recording_id", recording.ID.String()).
		Str("client_id", input.ClientId.String()).
		Msg("recording started")
	return recording, nil
}

func (s *recordingService) Pause(ctx context.Context, userId uuid.UUID, recordingId uuid.UUID) (*entities.Recording, error) {
	return s.transition(ctx, userId, recordingId, constant.RecordingStatusPaused)
}

func (s *recordingService) Resume(ctx context.Context, userId uuid.UUID, recordingId uuid.UUID) (*entities.Recording, error) {
	return s.transition(ctx, userId, recordingId, constant.RecordingStatusRecording)
}

// Heartbeat refreshes the liveness timestamp and keeps the current status.
func (s *recordingService) Heartbeat(ctx context.Context, userId uuid.UUID, recordingId uuid.UUID) (*entities.Recording, error) {
	return s.transition(ctx, userId, recordingId, "")
}

// transition moves an active recording to status and refreshes its heartbeat.
// Both active statuses are valid sources, so repeating pause or resume is a
// no-op apart from the heartbeat. An empty status keeps the current one.
func (s *recordingService) transition(ctx context.Context, userId uuid.UUID, recordingId uuid.UUID, status constant.RecordingStatus) (*entities.Recording, error) {
	recording, err := s.activeRecording(ctx, userId, recordingId)
	if err != nil {
		return nil, err
	}

	now := s.now()
	heartbeat := s.nextHeartbeat(recording)
	updates := map[string]interface{}{
		"last_heartbeat_at": heartbeat,
		"updated_at":        now,
	}
	if status != "" {
		updates["status"] = status.String()
	}

	err = s.repo.UpdateActiveRecording(ctx, recording.ID, recording.AccountId, updates)
	if err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return nil, fmt.Errorf("%w: recording is no longer active", ErrInvalidState)
		}
		return nil, fmt.Errorf("update recording: %w", err)
	}

	if status != "" {
		recording.Status = status
	}
	recording.LastHeartbeatAt = heartbeat
	recording.UpdatedAt = now

	zerolog.Ctx(ctx).Debug().
		Str("recording_id", recording.ID.String()).
		Str("status", recording.Status.String()).
		Time("last_heartbeat_at", heartbeat).
		Msg("recording updated")
	return recording, nil
}

func validateChunk(input ChunkInput) error {
	if input.ChunkNumber < 1 {
		return fmt.Errorf("%w: chunkNumber must be at least 1", ErrInvalidInput)
	}
	for _, v := range []float64{input.StartTime, input.EndTime} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: startTime and endTime must be non-negative numbers", ErrInvalidInput)
		}
	}
	if input.EndTime < input.StartTime {
		return fmt.Errorf("%w: endTime must not be before startTime", ErrInvalidInput)
	}
	if input.Body == nil || input.Size <= 0 {
		return fmt.Errorf("%w: audio file is empty", ErrInvalidInput)
	}
	return nil
}

func (s *recordingService) UploadChunk(ctx context.Context, userId uuid.UUID, recordingId uuid.UUID, input ChunkInput) (*entities.RecordingChunk, error) {
	if err := validateChunk(input); err != nil {
		return nil, err
	}
	if input.MimeType == "" {
		input.MimeType = constant.DefaultChunkMimeType
	}

	recording, err := s.activeRecording(ctx, userId, recordingId)
	if err != nil {
		return nil, err
	}

	path := ChunkObjectPath(recording.AccountId, recording.ID, input.ChunkNumber)
	if err := s.storage.PutObject(ctx, path, input.Body, input.Size, input.MimeType); err != nil {
		return nil, fmt.Errorf("upload chunk %d: %w", input.ChunkNumber, err)
	}

	now := s.now()
	chunk, err := s.repo.UpsertRecordingChunk(ctx, &entities.RecordingChunk{
		RecordingId:   recording.ID,
		AccountId:     recording.AccountId,
		ChunkNumber:   input.ChunkNumber,
		StartTime:     input.StartTime,
		EndTime:       input.EndTime,
		StorageBucket: s.storage.Bucket(),
		StoragePath:   path,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return nil, fmt.Errorf("save chunk %d: %w", input.ChunkNumber, err)
	}

	zerolog.Ctx(ctx).Info().
		Str("recording_id", recording.ID.String()).
		Int("chunk_number", chunk.ChunkNumber).
		Float64("start_time", chunk.StartTime).
		Float64("end_time", chunk.EndTime).
		Int64("size_bytes", input.Size).
		Str("object_name", path).
		Msg("chunk stored")
	return chunk, nil
}

// Complete links a new session to the recording and marks it completed in one
// transaction, then hands the recording to transcription. Transcription
// failures are reported in the result but never fail the completion.
func (s *recordingService) Complete(ctx context.Context, userId uuid.UUID, recordingId uuid.UUID, input CompleteInput) (*CompleteResult, error) {
	recording, err := s.activeRecording(ctx, userId, recordingId)
	if err != nil {
		return nil, err
	}

	now := s.now()
	session := &entities.Session{
		ID:        uuid.New(),
		AccountId: recording.AccountId,
		ClientId:  recording.ClientId,
		Title:     SessionTitle(input.AcceptLanguage, s.defaultLocale, now),
		CreatedAt: now,
		UpdatedAt: now,
	}
	heartbeat := s.nextHeartbeat(recording)

	err = s.repo.Transaction(ctx, func(tx repository.RecordingRepository) error {
		if err := tx.CreateSession(ctx, session); err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		return tx.UpdateActiveRecording(ctx, recording.ID, recording.AccountId, map[string]interface{}{
			"status":            constant.RecordingStatusCompleted.String(),
			"session_id":        session.ID,
			"last_heartbeat_at": heartbeat,
			"updated_at":        now,
		})
	})
	if err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return nil, fmt.Errorf("%w: recording is no longer active", ErrInvalidState)
		}
		return nil, fmt.Errorf("complete recording: %w", err)
	}

	recording.Status = constant.RecordingStatusCompleted
	recording.SessionId = &session.ID
	recording.LastHeartbeatAt = heartbeat
	recording.UpdatedAt = now

	zerolog.Ctx(ctx).Info().
		Str("recording_id", recording.ID.String()).
		Str("session_id", session.ID.String()).
		Msg("recording completed")

	// the recording is completed now, a retried complete could not enqueue again
	enqueueCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), TranscriptionTimeout)
	defer cancel()

	return &CompleteResult{
		Recording:     recording,
		SessionId:     session.ID,
		Transcription: s.transcription.Enqueue(enqueueCtx, recording),
	}, nil
}

// Abort hard-deletes an active recording with its chunk rows. Stored chunk
// objects are removed afterwards on a best-effort basis.
func (s *recordingService) Abort(ctx context.Context, userId uuid.UUID, recordingId uuid.UUID) error {
	recording, err := s.activeRecording(ctx, userId, recordingId)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteRecording(ctx, recording.ID, recording.AccountId); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return fmt.Errorf("%w: recording is no longer active", ErrInvalidState)
		}
		return fmt.Errorf("delete recording: %w", err)
	}

	if err := s.storage.RemovePrefix(ctx, recordingPrefix(recording.AccountId, recording.ID)); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).
			Str("recording_id", recording.ID.String()).
			Msg("failed to remove chunk objects of aborted recording")
	}

	zerolog.Ctx(ctx).Info().Str("recording_id", recording.ID.String()).Msg("recording aborted")
	return nil
}

// Active returns the caller's recording in progress with its chunks, or nil
// when there is none.
func (s *recordingService) Active(ctx context.Context, userId uuid.UUID) (*dto.RecordingWithChunks, error) {
	account, err := s.account(ctx, userId)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, nil
		}
		return nil, err
	}

	recording, err := s.repo.FindActiveRecording(ctx, account.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active recording: %w", err)
	}

	return s.withChunks(ctx, recording)
}

func (s *recordingService) Get(ctx context.Context, userId uuid.UUID, recordingId uuid.UUID) (*dto.RecordingWithChunks, error) {
	recording, err := s.ownedRecording(ctx, userId, recordingId)
	if err != nil {
		return nil, err
	}
	return s.withChunks(ctx, recording)
}

func (s *recordingService) withChunks(ctx context.Context, recording *entities.Recording) (*dto.RecordingWithChunks, error) {
	chunks, err := s.repo.GetRecordingChunks(ctx, recording.ID)
	if err != nil {
		return nil, fmt.Errorf("get recording chunks: %w", err)
	}
	return &dto.RecordingWithChunks{
		Recording: *recording,
		Chunks:    chunks,
	}, nil
}
