package uploader

import (
	"context"
	"github.com/google/uuid"
	"praxis-recording/constant"
	"praxis-recording/dto"
	"praxis-recording/entities"
	"praxis-recording/pkg/capture"
	"sync"
)

type fakeAPI struct {
	mu          sync.Mutex
	recording   *entities.Recording
	standalone  bool
	calls       []string
	chunks      []capture.Chunk
	heartbeats  int
	uploadErr   func(chunk capture.Chunk) error
	completeErr error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{}
}

func (f *fakeAPI) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeAPI) Start(_ context.Context, clientId uuid.UUID, standaloneChunks bool) (*entities.Recording, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("start")
	f.standalone = standaloneChunks
	f.recording = &entities.Recording{
		ID:               uuid.New(),
		ClientId:         clientId,
		Status:           constant.RecordingStatusRecording,
		StandaloneChunks: standaloneChunks,
	}
	return f.recording, nil
}

func (f *fakeAPI) setStatus(call string, status constant.RecordingStatus) *entities.Recording {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(call)
	copied := *f.recording
	copied.Status = status
	f.recording = &copied
	return f.recording
}

func (f *fakeAPI) Pause(context.Context, uuid.UUID) (*entities.Recording, error) {
	return f.setStatus("pause", constant.RecordingStatusPaused), nil
}

func (f *fakeAPI) Resume(context.Context, uuid.UUID) (*entities.Recording, error) {
	return f.setStatus("resume", constant.RecordingStatusRecording), nil
}

func (f *fakeAPI) Heartbeat(context.Context, uuid.UUID) (*dto.HeartbeatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heartbeats++
	return &dto.HeartbeatResponse{Recording: f.recording}, nil
}

func (f *fakeAPI) UploadChunk(_ context.Context, _ uuid.UUID, chunk capture.Chunk) (*dto.UploadChunkResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		if err := f.uploadErr(chunk); err != nil {
			return nil, err
		}
	}
	f.record("chunk")
	f.chunks = append(f.chunks, chunk)
	return &dto.UploadChunkResponse{ChunkId: uuid.New(), Status: constant.ChunkUploadStatusStored}, nil
}

func (f *fakeAPI) Complete(context.Context, uuid.UUID) (*dto.CompleteRecordingResponse, error) {
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	recording := f.setStatus("complete", constant.RecordingStatusCompleted)
	return &dto.CompleteRecordingResponse{Recording: recording, SessionId: uuid.New()}, nil
}

func (f *fakeAPI) Abort(context.Context, uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("abort")
	return nil
}

func (f *fakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) Chunks() []capture.Chunk {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]capture.Chunk(nil), f.chunks...)
}

func (f *fakeAPI) Heartbeats() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.heartbeats
}
