package handler

import (
	"errors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"net/http"
	"praxis-recording/constant"
	"praxis-recording/dto"
	"praxis-recording/service"
)

type RecordingHandler struct {
	service       service.RecordingService
	maxChunkBytes int64
}

func NewRecordingHandler(recordingService service.RecordingService, maxChunkBytes int64) *RecordingHandler {
	return &RecordingHandler{
		service:       recordingService,
		maxChunkBytes: maxChunkBytes,
	}
}

func (h *RecordingHandler) Register(r gin.IRouter) {
	recordings := r.Group("/recordings")
	recordings.GET("", h.Active)
	recordings.POST("/start", h.Start)
	recordings.GET("/:id", h.Get)
	recordings.POST("/:id/pause", h.Pause)
	recordings.POST("/:id/resume", h.Resume)
	recordings.POST("/:id/heartbeat", h.Heartbeat)
	recordings.POST("/:id/chunk", h.UploadChunk)
	recordings.POST("/:id/complete", h.Complete)
	recordings.POST("/:id/abort", h.Abort)
}

// respondError maps service errors to status codes. Unknown errors are logged
// and reported as a generic 500.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrInvalidState):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrAccountNotFound), errors.Is(err, service.ErrRecordingNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrActiveRecordingExists):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(status, dto.ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(status, dto.ErrorResponse{Error: err.Error()})
}

// recordingId reads the :id path parameter. A value that is not a uuid cannot
// name a recording, so it is reported as not found.
func recordingId(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, service.ErrRecordingNotFound)
		return uuid.Nil, false
	}
	return id, true
}

func (h *RecordingHandler) Start(c *gin.Context) {
	var req dto.StartRecordingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	clientId, err := uuid.Parse(req.ClientId)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body: clientId must be a uuid"})
		return
	}

	recording, err := h.service.Start(c.Request.Context(), UserId(c), service.StartInput{
		ClientId:         clientId,
		StandaloneChunks: req.StandaloneChunks,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.RecordingResponse{Recording: recording})
}

func (h *RecordingHandler) Pause(c *gin.Context) {
	id, ok := recordingId(c)
	if !ok {
		return
	}

	recording, err := h.service.Pause(c.Request.Context(), UserId(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.RecordingResponse{Recording: recording})
}

func (h *RecordingHandler) Resume(c *gin.Context) {
	id, ok := recordingId(c)
	if !ok {
		return
	}

	recording, err := h.service.Resume(c.Request.Context(), UserId(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.RecordingResponse{Recording: recording})
}

func (h *RecordingHandler) Heartbeat(c *gin.Context) {
	id, ok := recordingId(c)
	if !ok {
		return
	}

	recording, err := h.service.Heartbeat(c.Request.Context(), UserId(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.HeartbeatResponse{
		Recording:       recording,
		LastHeartbeatAt: recording.LastHeartbeatAt,
	})
}

func (h *RecordingHandler) UploadChunk(c *gin.Context) {
	id, ok := recordingId(c)
	if !ok {
		return
	}

	if h.maxChunkBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxChunkBytes)
	}

	var form dto.UploadChunkForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid chunk fields: " + err.Error()})
		return
	}

	fileHeader, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "missing audio file"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer file.Close()

	mimeType := form.MimeType
	if mimeType == "" {
		mimeType = fileHeader.Header.Get("Content-Type")
	}

	chunk, err := h.service.UploadChunk(c.Request.Context(), UserId(c), id, service.ChunkInput{
		ChunkNumber: *form.ChunkNumber,
		StartTime:   *form.StartTime,
		EndTime:     *form.EndTime,
		MimeType:    mimeType,
		Body:        file,
		Size:        fileHeader.Size,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.UploadChunkResponse{
		ChunkId: chunk.ID,
		Status:  constant.ChunkUploadStatusStored,
		Message: "chunk uploaded",
	})
}

func (h *RecordingHandler) Complete(c *gin.Context) {
	id, ok := recordingId(c)
	if !ok {
		return
	}

	result, err := h.service.Complete(c.Request.Context(), UserId(c), id, service.CompleteInput{
		AcceptLanguage: c.GetHeader("Accept-Language"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.CompleteRecordingResponse{
		Recording: result.Recording,
		SessionId: result.SessionId,
	})
}

func (h *RecordingHandler) Abort(c *gin.Context) {
	id, ok := recordingId(c)
	if !ok {
		return
	}

	if err := h.service.Abort(c.Request.Context(), UserId(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.AbortRecordingResponse{Success: true, RecordingStatus: "aborted"})
}

func (h *RecordingHandler) Active(c *gin.Context) {
	recording, err := h.service.Active(c.Request.Context(), UserId(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ActiveRecordingResponse{Recording: recording})
}

func (h *RecordingHandler) Get(c *gin.Context) {
	id, ok := recordingId(c)
	if !ok {
		return
	}

	recording, err := h.service.Get(c.Request.Context(), UserId(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ActiveRecordingResponse{Recording: recording})
}
