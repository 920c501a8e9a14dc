package capture

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	DefaultSliceInterval     = 4 * time.Minute
	DefaultInitialFlushDelay = time.Second
)

var ErrRecorderStarted = errors.New("recorder already started")

type RecorderState string

const (
	RecorderStateInactive  RecorderState = "inactive"
	RecorderStateRecording RecorderState = "recording"
	RecorderStatePaused    RecorderState = "paused"
)

// MediaRecorder is the platform encoder. It delivers encoded audio by calling
// ChunkRecorder.HandleData every timeslice and whenever RequestData is called.
type MediaRecorder interface {
	Start(timeslice time.Duration) error
	Pause() error
	Resume() error
	RequestData() error
	Stop() error
	State() RecorderState
}

type RecorderFactory func(stream Stream, mimeType string) (MediaRecorder, error)

// Chunk is one encoded audio segment. Times are seconds since recording start.
type Chunk struct {
	Number    int
	Data      []byte
	MimeType  string
	StartTime float64
	EndTime   float64
}

type ChunkRecorderOptions struct {
	SliceInterval     time.Duration
	InitialFlushDelay time.Duration
	IsTypeSupported   func(mimeType string) bool
	OnChunk           func(Chunk)
	// Now must return monotonic readings; time.Now does.
	Now func() time.Time
}

type ChunkRecorder struct {
	mu           sync.Mutex
	stream       Stream
	recorder     MediaRecorder
	mimeType     string
	opts         ChunkRecorderOptions
	started      bool
	startedAt    time.Time
	lastEnd      time.Duration
	nextNumber   int
	initialFlush *time.Timer
}

func NewChunkRecorder(stream Stream, factory RecorderFactory, opts ChunkRecorderOptions) (*ChunkRecorder, error) {
	if opts.SliceInterval <= 0 {
		opts.SliceInterval = DefaultSliceInterval
	}
	if opts.InitialFlushDelay <= 0 {
		opts.InitialFlushDelay = DefaultInitialFlushDelay
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	mimeType := SelectMimeType(opts.IsTypeSupported)
	recorder, err := factory(stream, mimeType)
	if err != nil {
		return nil, fmt.Errorf("create media recorder for %s: %w", mimeType, err)
	}

	return &ChunkRecorder{
		stream:     stream,
		recorder:   recorder,
		mimeType:   mimeType,
		opts:       opts,
		nextNumber: 1,
	}, nil
}

func (r *ChunkRecorder) MimeType() string {
	return r.mimeType
}

// Start begins slicing. One early flush is requested after InitialFlushDelay
// so a broken capture path shows up within seconds instead of a full slice.
func (r *ChunkRecorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return ErrRecorderStarted
	}

	r.startedAt = r.opts.Now()
	if err := r.recorder.Start(r.opts.SliceInterval); err != nil {
		return fmt.Errorf("start media recorder: %w", err)
	}
	r.started = true

	r.initialFlush = time.AfterFunc(r.opts.InitialFlushDelay, func() {
		if r.recorder.State() == RecorderStateRecording {
			_ = r.recorder.RequestData()
		}
	})
	return nil
}

// HandleData receives encoded audio from the platform recorder. Empty payloads
// are dropped and do not consume a chunk number.
func (r *ChunkRecorder) HandleData(data []byte) {
	if len(data) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	end := r.opts.Now().Sub(r.startedAt)
	chunk := Chunk{
		Number:    r.nextNumber,
		Data:      data,
		MimeType:  r.mimeType,
		StartTime: r.lastEnd.Seconds(),
		EndTime:   end.Seconds(),
	}
	r.nextNumber++
	r.lastEnd = end

	if r.opts.OnChunk != nil {
		r.opts.OnChunk(chunk)
	}
}

// Pause flushes buffered audio before pausing the recorder.
func (r *ChunkRecorder) Pause() error {
	if r.recorder.State() != RecorderStateRecording {
		return nil
	}
	if err := r.recorder.RequestData(); err != nil {
		return fmt.Errorf("flush before pause: %w", err)
	}
	return r.recorder.Pause()
}

// Resume flushes buffered audio before resuming the recorder.
func (r *ChunkRecorder) Resume() error {
	if r.recorder.State() != RecorderStatePaused {
		return nil
	}
	if err := r.recorder.RequestData(); err != nil {
		return fmt.Errorf("flush before resume: %w", err)
	}
	return r.recorder.Resume()
}

// Stop stops the recorder if it is still running and releases every track of
// the underlying stream.
func (r *ChunkRecorder) Stop() error {
	r.mu.Lock()
	if r.initialFlush != nil {
		r.initialFlush.Stop()
	}
	r.mu.Unlock()

	var err error
	if r.recorder.State() != RecorderStateInactive {
		err = r.recorder.Stop()
	}
	StopStream(r.stream)
	return err
}
