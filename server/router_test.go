package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"praxis-recording/config"
	"praxis-recording/dto"
	"praxis-recording/handler"
	"praxis-recording/pkg/testutil"
	"praxis-recording/repository"
	"praxis-recording/service"
	"strings"
	"sync"
	"testing"
	"time"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type memoryStorage struct {
	mu      sync.Mutex
	objects map[string]string
}

func (s *memoryStorage) Bucket() string {
	return "recordings"
}

func (s *memoryStorage) PutObject(_ context.Context, key string, body io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = contentType + ":" + string(data)
	return nil
}

func (s *memoryStorage) RemovePrefix(_ context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			delete(s.objects, key)
		}
	}
	return nil
}

type api struct {
	t       *testing.T
	router  *gin.Engine
	storage *memoryStorage
	token   string
}

func newAPI(t *testing.T, maxChunkBytes int64) *api {
	t.Helper()
	db := testutil.NewDB(t)
	userId, _ := testutil.SeedAccount(t, db)

	cfg := &config.Config{
		Auth:   config.Auth{JWTSecret: testSecret, Issuer: "praxis"},
		Server: config.Server{CorsOrigins: []string{"https://app.example.com"}},
	}
	storage := &memoryStorage{objects: map[string]string{}}
	svc := service.NewRecordingService(repository.NewRepo(db), storage, service.NewTranscriptionService(service.LogPublisher{}, nil), service.Options{})

	return &api{
		t:       t,
		router:  NewRouter(cfg, handler.NewRecordingHandler(svc, maxChunkBytes)),
		storage: storage,
		token:   signToken(t, userId.String(), "praxis", testSecret),
	}
}

func signToken(t *testing.T, subject string, issuer string, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func (a *api) do(req *http.Request) *httptest.ResponseRecorder {
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *api) post(path string, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(http.MethodPost, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return a.do(req)
}

func (a *api) get(path string) *httptest.ResponseRecorder {
	return a.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (a *api) start(clientId uuid.UUID) dto.RecordingResponse {
	w := a.post("/recordings/start", fmt.Sprintf(`{"clientId":%q}`, clientId))
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	var out dto.RecordingResponse
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func (a *api) uploadChunk(recordingId uuid.UUID, fields map[string]string, audio []byte) *httptest.ResponseRecorder {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(a.t, mw.WriteField(k, v))
	}
	if audio != nil {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="audio"; filename="chunk-0001.webm"`)
		header.Set("Content-Type", "audio/webm")
		part, err := mw.CreatePart(header)
		require.NoError(a.t, err)
		_, err = part.Write(audio)
		require.NoError(a.t, err)
	}
	require.NoError(a.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/recordings/%s/chunk", recordingId), body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return a.do(req)
}

func chunkFields(number int, start string, end string) map[string]string {
	return map[string]string{
		"chunkNumber": fmt.Sprint(number),
		"startTime":   start,
		"endTime":     end,
		"mimeType":    "audio/webm;codecs=opus",
	}
}

func TestHealth(t *testing.T) {
	a := newAPI(t, 0)
	a.token = ""

	w := a.get("/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestAuthentication(t *testing.T) {
	a := newAPI(t, 0)

	tests := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"wrong secret", signToken(t, uuid.NewString(), "praxis", "other")},
		{"wrong issuer", signToken(t, uuid.NewString(), "elsewhere", testSecret)},
		{"subject is not a uuid", signToken(t, "user-1", "praxis", testSecret)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a.token = tt.token
			w := a.get("/recordings")
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.JSONEq(t, `{"error":"unauthorized"}`, w.Body.String())
		})
	}
}

func TestStartRecordingEndpoint(t *testing.T) {
	a := newAPI(t, 0)

	first := a.start(uuid.New())
	assert.Equal(t, "recording", string(first.Recording.Status))

	w := a.post("/recordings/start", fmt.Sprintf(`{"clientId":%q}`, uuid.New()))
	assert.Equal(t, http.StatusConflict, w.Code)

	for _, body := range []string{"", `{}`, `{"clientId":"nope"}`, `{"clientId":""}`, `not json`} {
		w = a.post("/recordings/start", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestStartAcceptsUppercaseClientId(t *testing.T) {
	a := newAPI(t, 0)
	clientId := uuid.New()

	w := a.post("/recordings/start", fmt.Sprintf(`{"clientId":%q}`, strings.ToUpper(clientId.String())))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body dto.RecordingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, clientId, body.Recording.ClientId)
}

func TestStartWithoutAccountIsNotFound(t *testing.T) {
	a := newAPI(t, 0)
	a.token = signToken(t, uuid.NewString(), "praxis", testSecret)

	w := a.post("/recordings/start", fmt.Sprintf(`{"clientId":%q}`, uuid.New()))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.get("/recordings")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"recording":null}`, w.Body.String())
}

func TestUnknownRecordingIsNotFound(t *testing.T) {
	a := newAPI(t, 0)

	for _, path := range []string{
		"/recordings/not-a-uuid/pause",
		fmt.Sprintf("/recordings/%s/pause", uuid.New()),
		fmt.Sprintf("/recordings/%s/heartbeat", uuid.New()),
		fmt.Sprintf("/recordings/%s/complete", uuid.New()),
		fmt.Sprintf("/recordings/%s/abort", uuid.New()),
	} {
		w := a.post(path, "")
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
	assert.Equal(t, http.StatusNotFound, a.get("/recordings/"+uuid.NewString()).Code)
}

func TestRecordingLifecycleOverHTTP(t *testing.T) {
	a := newAPI(t, 0)
	recording := a.start(uuid.New()).Recording

	w := a.post(fmt.Sprintf("/recordings/%s/pause", recording.ID), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"paused"`)

	w = a.post(fmt.Sprintf("/recordings/%s/heartbeat", recording.ID), "")
	require.Equal(t, http.StatusOK, w.Code)
	var beat dto.HeartbeatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &beat))
	assert.Equal(t, "paused", string(beat.Recording.Status))
	assert.False(t, beat.LastHeartbeatAt.IsZero())

	w = a.post(fmt.Sprintf("/recordings/%s/resume", recording.ID), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"recording"`)

	w = a.uploadChunk(recording.ID, chunkFields(1, "0", "4"), []byte("first"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var uploaded dto.UploadChunkResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &uploaded))
	assert.NotEqual(t, uuid.Nil, uploaded.ChunkId)
	assert.Equal(t, "uploaded", uploaded.Status)

	w = a.uploadChunk(recording.ID, chunkFields(2, "4", "8.5"), []byte("second"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.get("/recordings")
	require.Equal(t, http.StatusOK, w.Code)
	var active dto.ActiveRecordingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &active))
	require.NotNil(t, active.Recording)
	assert.Equal(t, recording.ID, active.Recording.ID)
	require.Len(t, active.Recording.Chunks, 2)
	assert.Equal(t, 8.5, active.Recording.Chunks[1].EndTime)

	key := fmt.Sprintf("%s/%s/chunk-0002.webm", recording.AccountId, recording.ID)
	assert.Equal(t, "audio/webm;codecs=opus:second", a.storage.objects[key])

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/recordings/%s/complete", recording.ID), strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Language", "de")
	w = a.do(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var completed dto.CompleteRecordingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &completed))
	assert.NotEqual(t, uuid.Nil, completed.SessionId)
	assert.Equal(t, "completed", string(completed.Recording.Status))

	w = a.post(fmt.Sprintf("/recordings/%s/pause", recording.ID), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.get("/recordings")
	assert.JSONEq(t, `{"recording":null}`, w.Body.String())

	w = a.get("/recordings/" + recording.ID.String())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"completed"`)
}

func TestUploadChunkRejectsBadForms(t *testing.T) {
	a := newAPI(t, 1024)
	recording := a.start(uuid.New()).Recording

	tests := []struct {
		name   string
		fields map[string]string
		audio  []byte
	}{
		{"missing audio", chunkFields(1, "0", "4"), nil},
		{"missing chunk number", map[string]string{"startTime": "0", "endTime": "4"}, []byte("a")},
		{"chunk number zero", chunkFields(0, "0", "4"), []byte("a")},
		{"end before start", chunkFields(1, "4", "1"), []byte("a")},
		{"non numeric time", chunkFields(1, "zero", "4"), []byte("a")},
		{"body too large", chunkFields(1, "0", "4"), bytes.Repeat([]byte("a"), 4096)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := a.uploadChunk(recording.ID, tt.fields, tt.audio)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
	assert.Empty(t, a.storage.objects)
}

func TestAbortThenStartOverHTTP(t *testing.T) {
	a := newAPI(t, 0)
	clientId := uuid.New()
	first := a.start(clientId).Recording

	w := a.uploadChunk(first.ID, chunkFields(1, "0", "4"), []byte("a"))
	require.Equal(t, http.StatusOK, w.Code)

	w = a.post(fmt.Sprintf("/recordings/%s/abort", first.ID), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"recordingStatus":"aborted"}`, w.Body.String())
	assert.Empty(t, a.storage.objects)

	assert.Equal(t, http.StatusNotFound, a.get("/recordings/"+first.ID.String()).Code)

	second := a.start(clientId).Recording
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCorsPreflight(t *testing.T) {
	a := newAPI(t, 0)
	a.token = ""

	req := httptest.NewRequest(http.MethodOptions, "/recordings/start", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := a.do(req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}
