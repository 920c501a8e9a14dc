package service

import (
	"context"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"praxis-recording/constant"
	"praxis-recording/entities"
	"testing"
)

func TestEnqueueBuildsEnvelope(t *testing.T) {
	clock := newTestClock()
	recording := &entities.Recording{ID: uuid.New(), AccountId: uuid.New(), StandaloneChunks: true}

	tests := []struct {
		name      string
		fifo      bool
		wantGroup string
	}{
		{"standard queue", false, ""},
		{"fifo queue groups by account", true, recording.AccountId.String()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			publisher := &fakePublisher{fifo: tt.fifo}
			effect := NewTranscriptionService(publisher, clock.Now).Enqueue(context.Background(), recording)

			assert.True(t, effect.Succeeded())
			assert.Equal(t, string(constant.OperationAudioTranscribe), effect.Name)
			require.Len(t, publisher.envelopes, 1)

			envelope := publisher.envelopes[0]
			assert.Equal(t, "transcribe-"+recording.ID.String(), envelope.DeduplicationId)
			assert.Equal(t, tt.wantGroup, envelope.GroupId)
			assert.Equal(t, constant.OperationAudioTranscribe, envelope.Message.Operation)
			assert.Equal(t, recording.AccountId, envelope.Message.AccountId)
			assert.Equal(t, recording.ID, envelope.Message.RecordingId)
			assert.True(t, envelope.Message.StandaloneChunks)
			assert.True(t, envelope.Message.Timestamp.Equal(clock.Now()))
		})
	}
}

func TestEnqueueReportsFailure(t *testing.T) {
	publisher := &fakePublisher{err: errInjected}
	recording := &entities.Recording{ID: uuid.New(), AccountId: uuid.New()}

	effect := NewTranscriptionService(publisher, nil).Enqueue(context.Background(), recording)

	assert.False(t, effect.Succeeded())
	assert.ErrorIs(t, effect.Err, errInjected)
}

func TestLogPublisher(t *testing.T) {
	var p LogPublisher
	assert.False(t, p.FIFO())
	assert.NoError(t, NewTranscriptionService(p, nil).Enqueue(context.Background(), &entities.Recording{ID: uuid.New()}).Err)
}
