package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"documind/internal/app"
	"documind/internal/store"
	"documind/internal/transport/http/response"
)

type DocumentHandler struct {
	docs    app.DocumentRegistry
	vectors store.Store
}

func NewDocumentHandler(docs app.DocumentRegistry, vectors store.Store) *DocumentHandler {
	return &DocumentHandler{docs: docs, vectors: vectors}
}

func (h *DocumentHandler) List(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	docs, err := h.docs.ListByUserID(userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list documents failed")
		return
	}
	response.OK(c, gin.H{"documents": docs, "count": len(docs)})
}

// Status reports the ingest state of a single upload by file id.
func (h *DocumentHandler) Status(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	fileID := c.Param("file_id")
	doc, err := h.docs.GetByFileID(userID, fileID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "fetch document failed")
		return
	}
	if doc == nil {
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, "document not found")
		return
	}
	response.OK(c, doc)
}

// Delete removes every chunk stored under the caller's copy of the named
// file, then the registry rows. Chunk identity is (filename, sequence),
// so all uploads of the same name go together.
func (h *DocumentHandler) Delete(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	filename := c.Param("filename")
	if filename == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing filename")
		return
	}

	chunks, err := h.vectors.Delete(c.Request.Context(), store.Filter{
		UserID:   userID,
		Filename: filename,
	})
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete chunks failed")
		return
	}

	rows, err := h.docs.DeleteByFilename(userID, filename)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete document records failed")
		return
	}
	if chunks == 0 && rows == 0 {
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, "document not found")
		return
	}

	response.OK(c, gin.H{
		"filename":       filename,
		"deleted_chunks": chunks,
		"deleted_docs":   rows,
	})
}
