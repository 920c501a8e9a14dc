package uploader

import (
	"bytes"
	"context"
	"fmt"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"net/http"
	"praxis-recording/dto"
	"praxis-recording/entities"
	"praxis-recording/pkg/capture"
	"strconv"
	"strings"
	"time"
)

const defaultTimeout = 2 * time.Minute

// APIError is a non-2xx answer of the recordings API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("recordings api: %d %s", e.StatusCode, e.Message)
}

// Retryable reports whether repeating the same request may succeed.
func (e *APIError) Retryable() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

type Client struct {
	http *resty.Client
}

func NewClient(baseURL string, token string) *Client {
	return NewClientWithResty(resty.New().SetBaseURL(baseURL), token)
}

func NewClientWithResty(r *resty.Client, token string) *Client {
	r.SetAuthToken(token).
		SetTimeout(defaultTimeout).
		SetHeader("Accept", "application/json")
	return &Client{http: r}
}

func (c *Client) do(ctx context.Context, method string, path string, body interface{}, result interface{}) error {
	req := c.http.R().
		SetContext(ctx).
		SetError(&dto.ErrorResponse{})
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return err
	}
	return asAPIError(resp)
}

func asAPIError(resp *resty.Response) error {
	if !resp.IsError() {
		return nil
	}
	message := http.StatusText(resp.StatusCode())
	if e, ok := resp.Error().(*dto.ErrorResponse); ok && e.Error != "" {
		message = e.Error
	}
	return &APIError{StatusCode: resp.StatusCode(), Message: message}
}

func (c *Client) Start(ctx context.Context, clientId uuid.UUID, standaloneChunks bool) (*entities.Recording, error) {
	var out dto.RecordingResponse
	err := c.do(ctx, http.MethodPost, "/recordings/start", dto.StartRecordingRequest{
		ClientId:         clientId.String(),
		StandaloneChunks: standaloneChunks,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Recording, nil
}

func (c *Client) transition(ctx context.Context, recordingId uuid.UUID, action string) (*entities.Recording, error) {
	var out dto.RecordingResponse
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/recordings/%s/%s", recordingId, action), nil, &out); err != nil {
		return nil, err
	}
	return out.Recording, nil
}

func (c *Client) Pause(ctx context.Context, recordingId uuid.UUID) (*entities.Recording, error) {
	return c.transition(ctx, recordingId, "pause")
}

func (c *Client) Resume(ctx context.Context, recordingId uuid.UUID) (*entities.Recording, error) {
	return c.transition(ctx, recordingId, "resume")
}

func (c *Client) Heartbeat(ctx context.Context, recordingId uuid.UUID) (*dto.HeartbeatResponse, error) {
	var out dto.HeartbeatResponse
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/recordings/%s/heartbeat", recordingId), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FileExtension derives a file extension from a MIME type such as
// "audio/webm;codecs=opus". Unknown or empty types map to webm.
func FileExtension(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	_, subtype, ok := strings.Cut(strings.TrimSpace(base), "/")
	if !ok || subtype == "" {
		return "webm"
	}
	switch subtype {
	case "mpeg":
		return "mp3"
	case "x-wav", "wave":
		return "wav"
	case "x-m4a":
		return "m4a"
	}
	return subtype
}

func ChunkFileName(chunk capture.Chunk) string {
	return fmt.Sprintf("chunk-%04d.%s", chunk.Number, FileExtension(chunk.MimeType))
}

func (c *Client) UploadChunk(ctx context.Context, recordingId uuid.UUID, chunk capture.Chunk) (*dto.UploadChunkResponse, error) {
	mimeType := chunk.MimeType
	if mimeType == "" {
		mimeType = capture.DefaultMimeType
	}

	var out dto.UploadChunkResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetError(&dto.ErrorResponse{}).
		SetResult(&out).
		SetMultipartField("audio", ChunkFileName(chunk), mimeType, bytes.NewReader(chunk.Data)).
		SetMultipartFormData(map[string]string{
			"chunkNumber": strconv.Itoa(chunk.Number),
			"startTime":   strconv.FormatFloat(chunk.StartTime, 'f', -1, 64),
			"endTime":     strconv.FormatFloat(chunk.EndTime, 'f', -1, 64),
			"mimeType":    mimeType,
		}).
		Post(fmt.Sprintf("/recordings/%s/chunk", recordingId))
	if err != nil {
		return nil, err
	}
	if err := asAPIError(resp); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Complete(ctx context.Context, recordingId uuid.UUID) (*dto.CompleteRecordingResponse, error) {
	var out dto.CompleteRecordingResponse
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/recordings/%s/complete", recordingId), map[string]interface{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Abort(ctx context.Context, recordingId uuid.UUID) error {
	var out dto.AbortRecordingResponse
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/recordings/%s/abort", recordingId), nil, &out)
}

// Active returns the caller's recording in progress, or nil.
func (c *Client) Active(ctx context.Context) (*dto.RecordingWithChunks, error) {
	var out dto.ActiveRecordingResponse
	if err := c.do(ctx, http.MethodGet, "/recordings", nil, &out); err != nil {
		return nil, err
	}
	return out.Recording, nil
}
