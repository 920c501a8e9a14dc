package uploader

import (
	"context"
	"errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"praxis-recording/dto"
	"praxis-recording/entities"
	"praxis-recording/pkg/capture"
	"sync"
	"time"
)

const DefaultHeartbeatInterval = 30 * time.Second

var ErrSessionClosed = errors.New("recording session closed")

// RecordingsAPI is the subset of Client a Session drives.
type RecordingsAPI interface {
	Start(ctx context.Context, clientId uuid.UUID, standaloneChunks bool) (*entities.Recording, error)
	Pause(ctx context.Context, recordingId uuid.UUID) (*entities.Recording, error)
	Resume(ctx context.Context, recordingId uuid.UUID) (*entities.Recording, error)
	Heartbeat(ctx context.Context, recordingId uuid.UUID) (*dto.HeartbeatResponse, error)
	UploadChunk(ctx context.Context, recordingId uuid.UUID, chunk capture.Chunk) (*dto.UploadChunkResponse, error)
	Complete(ctx context.Context, recordingId uuid.UUID) (*dto.CompleteRecordingResponse, error)
	Abort(ctx context.Context, recordingId uuid.UUID) error
}

type SessionOptions struct {
	HeartbeatInterval time.Duration
	Queue             QueueOptions
}

// Session is one live recording on the client side. It owns the upload queue
// and keeps the server-side heartbeat fresh until completed or aborted.
type Session struct {
	api     RecordingsAPI
	queue   *Queue
	opts    SessionOptions
	trigger chan struct{}

	mu        sync.Mutex
	recording *entities.Recording
	finished  bool
	cancel    context.CancelFunc
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

func StartSession(ctx context.Context, api RecordingsAPI, clientId uuid.UUID, opts SessionOptions) (*Session, error) {
	recording, err := api.Start(ctx, clientId, false)
	if err != nil {
		return nil, err
	}
	return ResumeSession(ctx, api, recording, opts), nil
}

// ResumeSession attaches to a recording that is already active on the server,
// for example after a page reload.
func ResumeSession(ctx context.Context, api RecordingsAPI, recording *entities.Recording, opts SessionOptions) *Session {
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = DefaultHeartbeatInterval
	}
	s := &Session{
		api:       api,
		opts:      opts,
		trigger:   make(chan struct{}, 1),
		recording: recording,
	}
	s.queue = NewQueue(func(ctx context.Context, chunk capture.Chunk) error {
		_, err := api.UploadChunk(ctx, recording.ID, chunk)
		return err
	}, opts.Queue)

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.wg.Add(1)
	go s.loop(loopCtx)
	return s
}

func (s *Session) Recording() *entities.Recording {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording
}

func (s *Session) RecordingId() uuid.UUID {
	return s.Recording().ID
}

func (s *Session) Queue() *Queue {
	return s.queue
}

// AddChunk queues a captured chunk and wakes the uploader. It is safe to use
// as a ChunkRecorder OnChunk callback.
func (s *Session) AddChunk(chunk capture.Chunk) {
	s.queue.Enqueue(chunk)
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

func (s *Session) loop(ctx context.Context) {
	defer s.wg.Done()
	logger := zerolog.Ctx(ctx)

	ticker := time.NewTicker(s.opts.HeartbeatInterval)
	defer ticker.Stop()

	var drains sync.WaitGroup
	defer drains.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.api.Heartbeat(ctx, s.RecordingId()); err != nil && ctx.Err() == nil {
				logger.Warn().Err(err).Str("recording_id", s.RecordingId().String()).Msg("heartbeat failed")
			}
		case <-s.trigger:
			drains.Add(1)
			go func() {
				defer drains.Done()
				err := s.queue.Drain(ctx)
				if err != nil && !errors.Is(err, ErrDrainInProgress) && ctx.Err() == nil {
					logger.Error().Err(err).Int("pending", s.queue.Len()).Msg("upload drain stopped")
				}
			}()
		}
	}
}

func (s *Session) stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		s.wg.Wait()
	})
}

func (s *Session) setRecording(recording *entities.Recording) {
	s.mu.Lock()
	s.recording = recording
	s.mu.Unlock()
}

func (s *Session) isFinished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

func (s *Session) finish() {
	s.mu.Lock()
	s.finished = true
	s.mu.Unlock()
}

func (s *Session) Pause(ctx context.Context) error {
	if s.isFinished() {
		return ErrSessionClosed
	}
	recording, err := s.api.Pause(ctx, s.RecordingId())
	if err != nil {
		return err
	}
	s.setRecording(recording)
	return nil
}

func (s *Session) Resume(ctx context.Context) error {
	if s.isFinished() {
		return ErrSessionClosed
	}
	recording, err := s.api.Resume(ctx, s.RecordingId())
	if err != nil {
		return err
	}
	s.setRecording(recording)
	return nil
}

// Complete stops the heartbeat, uploads every queued chunk and then completes
// the recording. If a chunk cannot be delivered the recording is left active
// with the chunk still queued, and Complete may be called again.
func (s *Session) Complete(ctx context.Context) (*dto.CompleteRecordingResponse, error) {
	if s.isFinished() {
		return nil, ErrSessionClosed
	}
	s.stop()
	if err := s.queue.Drain(ctx); err != nil {
		return nil, err
	}
	out, err := s.api.Complete(ctx, s.RecordingId())
	if err != nil {
		return nil, err
	}
	s.setRecording(out.Recording)
	s.finish()
	return out, nil
}

// Abort discards the recording on the server together with its chunks.
// Queued chunks are dropped.
func (s *Session) Abort(ctx context.Context) error {
	if s.isFinished() {
		return ErrSessionClosed
	}
	s.stop()
	if err := s.api.Abort(ctx, s.RecordingId()); err != nil {
		return err
	}
	s.finish()
	return nil
}

// Close stops the heartbeat without touching the server-side recording, which
// the reaper will eventually pause.
func (s *Session) Close() {
	s.stop()
}
