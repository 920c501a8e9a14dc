package service

import (
	"context"
	"github.com/rs/zerolog"
	"praxis-recording/constant"
	"praxis-recording/dto"
	"praxis-recording/entities"
	"time"
)

type Publisher interface {
	Publish(ctx context.Context, envelope dto.TranscribeEnvelope) error
	FIFO() bool
}

// SideEffect reports the outcome of a best-effort action that runs after the
// primary operation already succeeded. A failed side effect never fails the
// operation that triggered it.
type SideEffect struct {
	Name string
	Err  error
}

func (s SideEffect) Succeeded() bool {
	return s.Err == nil
}

type TranscriptionService interface {
	Enqueue(ctx context.Context, recording *entities.Recording) SideEffect
}

type transcriptionService struct {
	publisher Publisher
	now       func() time.Time
}

func NewTranscriptionService(publisher Publisher, now func() time.Time) TranscriptionService {
	if now == nil {
		now = utcNow
	}
	return &transcriptionService{
		publisher: publisher,
		now:       now,
	}
}

func DeduplicationId(recording *entities.Recording) string {
	return "transcribe-" + recording.ID.String()
}

func (s *transcriptionService) Enqueue(ctx context.Context, recording *entities.Recording) SideEffect {
	envelope := dto.TranscribeEnvelope{
		Message: dto.TranscribeMessage{
			Operation:        constant.OperationAudioTranscribe,
			AccountId:        recording.AccountId,
			RecordingId:      recording.ID,
			StandaloneChunks: recording.StandaloneChunks,
			Timestamp:        s.now(),
		},
		DeduplicationId: DeduplicationId(recording),
	}
	if s.publisher.FIFO() {
		envelope.GroupId = recording.AccountId.String()
	}

	effect := SideEffect{Name: string(constant.OperationAudioTranscribe)}
	if err := s.publisher.Publish(ctx, envelope); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).
			Str("recording_id", recording.ID.String()).
			Str("account_id", recording.AccountId.String()).
			Msg("failed to enqueue transcription")
		effect.Err = err
		return effect
	}

	zerolog.Ctx(ctx).Info().
		Str("recording_id", recording.ID.String()).
		Str("deduplication_id", envelope.DeduplicationId).
		Msg("transcription enqueued")
	return effect
}

// LogPublisher only logs envelopes. It backs the noop queue driver used in
// local development.
type LogPublisher struct{}

func (LogPublisher) FIFO() bool {
	return false
}

func (LogPublisher) Publish(ctx context.Context, envelope dto.TranscribeEnvelope) error {
	zerolog.Ctx(ctx).Debug().
		Str("operation", string(envelope.Message.Operation)).
		Str("recording_id", envelope.Message.RecordingId.String()).
		Str("deduplication_id", envelope.DeduplicationId).
		Msg("transcription publish skipped, noop queue driver")
	return nil
}
