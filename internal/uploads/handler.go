package uploads

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"callinsights-backend/internal/callapi"
	"callinsights-backend/internal/shared/metrics"
	"callinsights-backend/internal/shared/server/middleware"
	"callinsights-backend/internal/shared/server/respond"
	"callinsights-backend/internal/shared/storage/object"
	"callinsights-backend/internal/shared/telemetry"
)

const (
	defaultMaxUploadBytes = 100 << 20
	// multipart overhead allowed on top of the file itself
	formOverheadBytes = 1 << 20

	invalidAudioMessage = "Please select a valid audio file."
)

// Extensions accepted when the browser sends no usable audio content type.
var audioExtensions = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".flac": "audio/flac",
	".weba": "audio/webm",
}

// Remote is the slice of the analysis service the audio endpoints need.
type Remote interface {
	UploadAudio(ctx context.Context, fileName, mimeType string, r io.Reader) (callapi.UploadResult, error)
	ListAudioFiles(ctx context.Context) ([]string, error)
	ListModels(ctx context.Context) ([]string, error)
}

type Handler struct {
	Store        object.ObjectStore
	Remote       Remote
	MaxBytes     int64
	DefaultModel string
}

func NewHandler(store object.ObjectStore, remote Remote, maxBytes int64, defaultModel string) *Handler {
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	return &Handler{Store: store, Remote: remote, MaxBytes: maxBytes, DefaultModel: defaultModel}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/audio/upload", h.upload)
	rg.GET("/audio/files", h.listFiles)
	rg.GET("/models", h.listModels)
}

// AudioMimeType resolves the content type of an upload, falling back to the
// file extension. ok is false when the file is not audio.
func AudioMimeType(fileName, declared string) (string, bool) {
	if mediaType, _, err := mime.ParseMediaType(declared); err == nil && strings.HasPrefix(mediaType, "audio/") {
		return mediaType, true
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	if byExt := mime.TypeByExtension(ext); byExt != "" {
		if mediaType, _, err := mime.ParseMediaType(byExt); err == nil && strings.HasPrefix(mediaType, "audio/") {
			return mediaType, true
		}
	}
	if mediaType, ok := audioExtensions[ext]; ok {
		return mediaType, true
	}
	return "", false
}

func (h *Handler) upload(c *gin.Context) {
	if h.Remote == nil || h.Store == nil {
		respond.Error(c, http.StatusServiceUnavailable, "unavailable", "uploads not configured", nil)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxBytes+formOverheadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds upload limit", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", invalidAudioMessage, []map[string]string{
			{"field": "file", "issue": "missing"},
		})
		return
	}
	if fileHeader.Size > h.MaxBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds upload limit", nil)
		return
	}
	mimeType, ok := AudioMimeType(fileHeader.Filename, fileHeader.Header.Get("Content-Type"))
	if !ok {
		respond.Error(c, http.StatusBadRequest, "validation_error", invalidAudioMessage, []map[string]string{
			{"field": "file", "issue": "not_audio"},
		})
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", invalidAudioMessage, nil)
		return
	}
	defer src.Close()

	ctx := c.Request.Context()
	sessionID := middleware.SessionIDFromContext(c)
	staged, err := h.Store.Save(ctx, sessionID, fileHeader.Filename, mimeType, src)
	if err != nil {
		telemetry.Error("uploads.stage_failed", map[string]any{
			"request_id": middleware.RequestIDFromContext(c),
			"session_id": sessionID,
			"error":      err.Error(),
		})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to stage upload", nil)
		return
	}
	defer h.discard(staged.Key)

	body, err := h.Store.Open(ctx, staged.Key)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to read staged upload", nil)
		return
	}
	defer body.Close()

	result, err := h.Remote.UploadAudio(ctx, fileHeader.Filename, mimeType, body)
	if err != nil {
		var statusErr *callapi.StatusError
		if errors.As(err, &statusErr) {
			detail := statusErr.Detail
			if detail == "" {
				detail = "Upload failed"
			}
			respond.Error(c, statusErr.Status, "upload_failed", detail, gin.H{"detail": detail})
			return
		}
		detail := "Network error: " + err.Error()
		respond.Error(c, http.StatusBadGateway, "upload_failed", detail, gin.H{"detail": detail})
		return
	}

	metrics.IncUpload()
	telemetry.Info("uploads.forwarded", map[string]any{
		"request_id": middleware.RequestIDFromContext(c),
		"session_id": sessionID,
		"filename":   result.Filename,
		"size_bytes": staged.Size,
		"mime_type":  mimeType,
	})
	respond.OK(c, result)
}

func (h *Handler) discard(key string) {
	if err := h.Store.Delete(context.Background(), key); err != nil {
		telemetry.Warn("uploads.discard_failed", map[string]any{"key": key, "error": err.Error()})
	}
}

func (h *Handler) listFiles(c *gin.Context) {
	items := []string{}
	if h.Remote != nil {
		files, err := h.Remote.ListAudioFiles(c.Request.Context())
		if err != nil {
			telemetry.Warn("uploads.list_files_failed", map[string]any{"error": err.Error()})
		} else {
			items = files
		}
	}
	respond.OK(c, gin.H{"items": items})
}

func (h *Handler) listModels(c *gin.Context) {
	items := []string{}
	if h.Remote != nil {
		models, err := h.Remote.ListModels(c.Request.Context())
		if err != nil {
			telemetry.Warn("uploads.list_models_failed", map[string]any{"error": err.Error()})
		} else {
			items = models
		}
	}
	respond.OK(c, gin.H{"items": items, "default": h.DefaultModel})
}
