package uploader

import (
	"context"
	"errors"
	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"praxis-recording/pkg/capture"
	"sync"
	"sync/atomic"
	"time"
)

const (
	DefaultRetryDelay  = time.Second
	DefaultMaxAttempts = 100
)

var ErrDrainInProgress = errors.New("upload drain already in progress")

// UploadFunc delivers one chunk. Returning an *APIError with a 4xx status
// stops retrying that chunk.
type UploadFunc func(ctx context.Context, chunk capture.Chunk) error

type QueueOptions struct {
	RetryDelay  time.Duration
	MaxAttempts uint
}

// Queue delivers chunks in order, one at a time. Only one drain runs at once;
// the head is removed only after the server acknowledged it.
type Queue struct {
	mu       sync.Mutex
	items    []capture.Chunk
	draining atomic.Bool
	upload   UploadFunc
	opts     QueueOptions
}

func NewQueue(upload UploadFunc, opts QueueOptions) *Queue {
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	return &Queue{upload: upload, opts: opts}
}

func (q *Queue) Enqueue(chunk capture.Chunk) {
	q.mu.Lock()
	q.items = append(q.items, chunk)
	q.mu.Unlock()
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Pending returns a copy of the queued chunks, head first.
func (q *Queue) Pending() []capture.Chunk {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]capture.Chunk, len(q.items))
	copy(out, q.items)
	return out
}

func (q *Queue) head() (capture.Chunk, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return capture.Chunk{}, false
	}
	return q.items[0], true
}

func (q *Queue) pop() {
	q.mu.Lock()
	q.items = q.items[1:]
	q.mu.Unlock()
}

// Drain uploads queued chunks until the queue is empty or a chunk exhausts its
// attempts. A call made while another drain runs returns ErrDrainInProgress
// immediately; the running drain picks up anything enqueued meanwhile.
func (q *Queue) Drain(ctx context.Context) error {
	for {
		if !q.draining.CompareAndSwap(false, true) {
			return ErrDrainInProgress
		}
		err := q.drain(ctx)
		q.draining.Store(false)
		if err != nil {
			return err
		}
		// An Enqueue between the last empty check and releasing the flag
		// would otherwise wait for the next trigger.
		if q.Len() == 0 {
			return nil
		}
	}
}

// Draining reports whether a drain is running.
func (q *Queue) Draining() bool {
	return q.draining.Load()
}

func (q *Queue) drain(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)
	for {
		chunk, ok := q.head()
		if !ok {
			return nil
		}

		operation := func() (struct{}, error) {
			err := q.upload(ctx, chunk)
			var apiErr *APIError
			if errors.As(err, &apiErr) && !apiErr.Retryable() {
				return struct{}{}, backoff.Permanent(err)
			}
			return struct{}{}, err
		}
		notify := func(err error, next time.Duration) {
			logger.Warn().Err(err).Int("chunk_number", chunk.Number).Dur("retry_in", next).Msg("chunk upload failed, retrying")
		}

		_, err := backoff.Retry(ctx, operation,
			backoff.WithBackOff(backoff.NewConstantBackOff(q.opts.RetryDelay)),
			backoff.WithMaxTries(q.opts.MaxAttempts),
			backoff.WithMaxElapsedTime(0),
			backoff.WithNotify(notify),
		)
		if err != nil {
			logger.Error().Err(err).Int("chunk_number", chunk.Number).Int("pending", q.Len()).Msg("giving up on chunk upload")
			return err
		}

		q.pop()
		logger.Debug().Int("chunk_number", chunk.Number).Msg("chunk uploaded")
	}
}
