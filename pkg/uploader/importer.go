package uploader

import (
	"context"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"io"
	"praxis-recording/dto"
	"praxis-recording/pkg/capture"
)

const (
	// DefaultMaxChunkBytes keeps each part below the server's body limit.
	DefaultMaxChunkBytes = 4 << 20
	// DefaultAssumedBitrate in bits per second, used to estimate duration.
	DefaultAssumedBitrate = 128_000
)

var ErrEmptyFile = errors.New("audio file is empty")

// ChunkPlan is one slice of an imported file.
type ChunkPlan struct {
	Number    int
	Offset    int64
	Size      int64
	StartTime float64
	EndTime   float64
}

// PlanChunks splits size bytes into parts of at most maxBytes and spreads the
// estimated duration evenly across them.
func PlanChunks(size int64, maxBytes int64, bitrate int64) []ChunkPlan {
	if size <= 0 {
		return nil
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxChunkBytes
	}
	if bitrate <= 0 {
		bitrate = DefaultAssumedBitrate
	}

	count := (size + maxBytes - 1) / maxBytes
	duration := float64(size*8) / float64(bitrate)
	per := duration / float64(count)

	plans := make([]ChunkPlan, 0, count)
	for i := int64(0); i < count; i++ {
		offset := i * maxBytes
		plans = append(plans, ChunkPlan{
			Number:    int(i) + 1,
			Offset:    offset,
			Size:      min(maxBytes, size-offset),
			StartTime: float64(i) * per,
			EndTime:   float64(i+1) * per,
		})
	}
	return plans
}

type ImportProgress struct {
	Uploaded int
	Total    int
}

type ImportOptions struct {
	ClientId       uuid.UUID
	MimeType       string
	MaxChunkBytes  int64
	AssumedBitrate int64
	OnProgress     func(ImportProgress)
}

// Importer uploads an existing audio file as a standalone-chunk recording.
type Importer struct {
	api RecordingsAPI
}

func NewImporter(api RecordingsAPI) *Importer {
	return &Importer{api: api}
}

// Import starts a recording, uploads the file slice by slice in order and
// completes it. On failure the recording is aborted.
func (i *Importer) Import(ctx context.Context, file io.ReaderAt, size int64, opts ImportOptions) (*dto.CompleteRecordingResponse, error) {
	plans := PlanChunks(size, opts.MaxChunkBytes, opts.AssumedBitrate)
	if len(plans) == 0 {
		return nil, ErrEmptyFile
	}
	if opts.MimeType == "" {
		opts.MimeType = capture.DefaultMimeType
	}
	logger := zerolog.Ctx(ctx)

	recording, err := i.api.Start(ctx, opts.ClientId, true)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("recording_id", recording.ID.String()).Int("chunks", len(plans)).Int64("bytes", size).Msg("importing audio file")

	fail := func(err error) (*dto.CompleteRecordingResponse, error) {
		if abortErr := i.api.Abort(context.WithoutCancel(ctx), recording.ID); abortErr != nil {
			logger.Warn().Err(abortErr).Str("recording_id", recording.ID.String()).Msg("failed to abort import")
		}
		return nil, err
	}

	for _, plan := range plans {
		data := make([]byte, plan.Size)
		n, err := file.ReadAt(data, plan.Offset)
		if err != nil && !(errors.Is(err, io.EOF) && n == len(data)) {
			return fail(fmt.Errorf("read chunk %d: %w", plan.Number, err))
		}
		chunk := capture.Chunk{
			Number:    plan.Number,
			Data:      data,
			MimeType:  opts.MimeType,
			StartTime: plan.StartTime,
			EndTime:   plan.EndTime,
		}
		if _, err := i.api.UploadChunk(ctx, recording.ID, chunk); err != nil {
			return fail(fmt.Errorf("upload chunk %d: %w", plan.Number, err))
		}
		if opts.OnProgress != nil {
			opts.OnProgress(ImportProgress{Uploaded: plan.Number, Total: len(plans)})
		}
	}

	out, err := i.api.Complete(ctx, recording.ID)
	if err != nil {
		return fail(err)
	}
	return out, nil
}
