package capture

import (
	"context"
	"sync"
	"time"
)

type fakeTrack struct {
	mu      sync.Mutex
	stopped bool
}

func (t *fakeTrack) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

func (t *fakeTrack) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

type fakeStream struct {
	tracks []*fakeTrack
}

func newFakeStream() *fakeStream {
	return &fakeStream{tracks: []*fakeTrack{{}}}
}

func (s *fakeStream) Tracks() []Track {
	tracks := make([]Track, len(s.tracks))
	for i, t := range s.tracks {
		tracks[i] = t
	}
	return tracks
}

type fakeDevices struct {
	err         error
	devices     []DeviceInfo
	constraints []AudioConstraints
	streams     []*fakeStream
}

func (d *fakeDevices) GetUserMedia(_ context.Context, constraints AudioConstraints) (Stream, error) {
	d.constraints = append(d.constraints, constraints)
	if d.err != nil {
		return nil, d.err
	}
	stream := newFakeStream()
	d.streams = append(d.streams, stream)
	return stream, nil
}

func (d *fakeDevices) EnumerateDevices(context.Context) ([]DeviceInfo, error) {
	return d.devices, nil
}

type fakeRecorder struct {
	mu        sync.Mutex
	state     RecorderState
	timeslice time.Duration
	calls     []string
	onRequest func()
}

func (r *fakeRecorder) record(call string) {
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()
}

func (r *fakeRecorder) setState(state RecorderState) {
	r.mu.Lock()
	r.state = state
	r.mu.Unlock()
}

func (r *fakeRecorder) Start(timeslice time.Duration) error {
	r.mu.Lock()
	r.timeslice = timeslice
	r.mu.Unlock()
	r.setState(RecorderStateRecording)
	r.record("start")
	return nil
}

func (r *fakeRecorder) Pause() error {
	r.setState(RecorderStatePaused)
	r.record("pause")
	return nil
}

func (r *fakeRecorder) Resume() error {
	r.setState(RecorderStateRecording)
	r.record("resume")
	return nil
}

func (r *fakeRecorder) RequestData() error {
	r.record("requestData")
	if r.onRequest != nil {
		r.onRequest()
	}
	return nil
}

func (r *fakeRecorder) Stop() error {
	r.setState(RecorderStateInactive)
	r.record("stop")
	return nil
}

func (r *fakeRecorder) State() RecorderState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == "" {
		return RecorderStateInactive
	}
	return r.state
}

func (r *fakeRecorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}
