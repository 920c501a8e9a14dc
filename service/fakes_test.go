package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"io"
	"praxis-recording/dto"
	"praxis-recording/entities"
	"praxis-recording/repository"
	"strings"
	"sync"
	"time"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeStorage struct {
	mu        sync.Mutex
	objects   map[string][]byte
	puts      int
	putErr    error
	removeErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (s *fakeStorage) Bucket() string {
	return "recordings"
}

func (s *fakeStorage) PutObject(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	if s.putErr != nil {
		return s.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	s.objects[key] = data
	return nil
}

func (s *fakeStorage) RemovePrefix(_ context.Context, prefix string) error {
	if s.removeErr != nil {
		return s.removeErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			delete(s.objects, key)
		}
	}
	return nil
}

func (s *fakeStorage) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for key := range s.objects {
		keys = append(keys, key)
	}
	return keys
}

type fakePublisher struct {
	mu        sync.Mutex
	fifo      bool
	err       error
	envelopes []dto.TranscribeEnvelope
}

func (p *fakePublisher) FIFO() bool {
	return p.fifo
}

func (p *fakePublisher) Publish(ctx context.Context, envelope dto.TranscribeEnvelope) error {
	if p.err != nil {
		return p.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.envelopes = append(p.envelopes, envelope)
	return nil
}

var errInjected = errors.New("injected failure")

// failingUpdateRepo fails the status update inside the completion transaction,
// after the session row was written.
type failingUpdateRepo struct {
	repository.RecordingRepository
	inTx bool
}

func (r *failingUpdateRepo) Transaction(ctx context.Context, callback func(repo repository.RecordingRepository) error, opts ...*sql.TxOptions) error {
	return r.RecordingRepository.Transaction(ctx, func(tx repository.RecordingRepository) error {
		return callback(&failingUpdateRepo{RecordingRepository: tx, inTx: true})
	}, opts...)
}

func (r *failingUpdateRepo) UpdateActiveRecording(ctx context.Context, id uuid.UUID, accountId uuid.UUID, updates map[string]interface{}) error {
	if r.inTx {
		return errInjected
	}
	return r.RecordingRepository.UpdateActiveRecording(ctx, id, accountId, updates)
}

func audio(s string) (io.Reader, int64) {
	return bytes.NewReader([]byte(s)), int64(len(s))
}

// cancelAfterCommitRepo cancels the caller's context as soon as a transaction
// has committed, like a client that disconnects right after completing.
type cancelAfterCommitRepo struct {
	repository.RecordingRepository
	cancel context.CancelFunc
}

func (r *cancelAfterCommitRepo) Transaction(ctx context.Context, callback func(repo repository.RecordingRepository) error, opts ...*sql.TxOptions) error {
	err := r.RecordingRepository.Transaction(ctx, callback, opts...)
	if err == nil {
		r.cancel()
	}
	return err
}

// missingActiveRepo never finds an active recording, so concurrent starts
// both reach the insert.
type missingActiveRepo struct {
	repository.RecordingRepository
}

func (r *missingActiveRepo) FindActiveRecording(_ context.Context, _ uuid.UUID) (*entities.Recording, error) {
	return nil, gorm.ErrRecordNotFound
}
