package constant

type RecordingStatus string

const (
	RecordingStatusRecording RecordingStatus = "recording"
	RecordingStatusPaused    RecordingStatus = "paused"
	RecordingStatusCompleted RecordingStatus = "completed"
)

// ActiveRecordingStatuses are the states in which a recording still holds the
// account's single active slot.
var ActiveRecordingStatuses = []RecordingStatus{RecordingStatusRecording, RecordingStatusPaused}

func (s RecordingStatus) String() string {
	return string(s)
}

func (s RecordingStatus) IsActive() bool {
	return s == RecordingStatusRecording || s == RecordingStatusPaused
}

type Operation string

const (
	OperationAudioTranscribe Operation = "audio:transcribe"
)

type QueueDriver string

const (
	QueueDriverRabbitMQ QueueDriver = "rabbitmq"
	QueueDriverSQS      QueueDriver = "sqs"
	QueueDriverNoop     QueueDriver = "noop"
)

type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentStaging    Environment = "staging"
	EnvironmentDevelop    Environment = "develop"
)

func (e Environment) String() string {
	return string(e)
}

const (
	RecordingsBucket        = "recordings"
	DefaultChunkMimeType    = "audio/webm"
	ChunkUploadStatusStored = "uploaded"
)
