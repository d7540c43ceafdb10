package handler

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"documind/internal/app"
	"documind/internal/model"
	"documind/internal/platform/rabbitmq"
	"documind/internal/transport/http/response"
)

// UploadHandler accepts files, registers them, and queues them for
// background ingestion. The HTTP request returns as soon as the task is
// on the queue.
type UploadHandler struct {
	sessions  *app.SessionService
	docs      app.DocumentRegistry
	publisher *rabbitmq.TaskPublisher
	uploadDir string
	maxSize   int64
}

func NewUploadHandler(sessions *app.SessionService, docs app.DocumentRegistry, publisher *rabbitmq.TaskPublisher, uploadDir string, maxSizeMB int64) *UploadHandler {
	return &UploadHandler{
		sessions:  sessions,
		docs:      docs,
		publisher: publisher,
		uploadDir: uploadDir,
		maxSize:   maxSizeMB << 20,
	}
}

func (h *UploadHandler) Upload(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if file.Size > h.maxSize {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file too large")
		return
	}

	docType, err := model.DetectDocType(file.Filename)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeUnsupportedFormat, err.Error())
		return
	}

	sessionID, err := h.resolveSession(c, userID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidSession):
			response.Error(c, http.StatusBadRequest, response.CodeInvalidSession, "invalid or expired session")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "create session failed")
		}
		return
	}

	fileID := uuid.NewString()
	path := filepath.Join(h.uploadDir, fileID+strings.ToLower(filepath.Ext(file.Filename)))
	if err := c.SaveUploadedFile(file, path); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "store upload failed")
		return
	}

	doc := &model.Document{
		FileID:    fileID,
		Filename:  file.Filename,
		DocType:   docType,
		UserID:    userID,
		SessionID: sessionID,
		Permanent: sessionID == "",
		Status:    model.IngestStatusPending,
	}
	if err := h.docs.Create(doc); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "register document failed")
		return
	}

	if sessionID != "" {
		if err := h.sessions.AttachFile(c.Request.Context(), sessionID, fileID); err != nil {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "attach file to session failed")
			return
		}
	}

	task := model.IngestTask{
		FileID:    fileID,
		Path:      path,
		Filename:  file.Filename,
		DocType:   docType,
		UserID:    userID,
		SessionID: sessionID,
	}
	if err := h.publisher.Publish(c.Request.Context(), task); err != nil {
		_ = h.docs.UpdateIngestState(fileID, model.IngestStatusFailed, 0, 0, "enqueue failed: "+err.Error())
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "queue ingest task failed")
		return
	}

	body := gin.H{
		"message": "file accepted, processing in background",
		"file_id": fileID,
		"status":  model.IngestStatusProcessing,
	}
	if sessionID != "" {
		body["session_id"] = sessionID
	}
	response.OK(c, body)
}

// resolveSession returns the session scope for the upload: an explicit
// session_id is validated and reused, is_private=true mints a fresh
// private session, and everything else lands in the permanent corpus.
func (h *UploadHandler) resolveSession(c *gin.Context, userID string) (string, error) {
	sessionID := strings.TrimSpace(c.Query("session_id"))
	if sessionID == "" {
		sessionID = strings.TrimSpace(c.PostForm("session_id"))
	}
	if sessionID != "" {
		if err := h.sessions.Validate(c.Request.Context(), sessionID, userID); err != nil {
			return "", err
		}
		return sessionID, nil
	}

	isPrivate := c.Query("is_private")
	if isPrivate == "" {
		isPrivate = c.PostForm("is_private")
	}
	if !strings.EqualFold(isPrivate, "true") {
		return "", nil
	}

	s, err := h.sessions.Create(c.Request.Context(), userID, true)
	if err != nil {
		return "", err
	}
	return s.ID, nil
}
