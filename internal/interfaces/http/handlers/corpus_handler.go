package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/ChemScribe/internal/application/corpus"
	"github.com/turtacn/ChemScribe/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/ChemScribe/pkg/errors"
)

// CorpusHandler serves the knowledge-store endpoints.
type CorpusHandler struct {
	corpus corpus.Service
	logger logging.Logger
}

// NewCorpusHandler constructs the handler.
func NewCorpusHandler(svc corpus.Service, logger logging.Logger) *CorpusHandler {
	return &CorpusHandler{corpus: svc, logger: logger.Named("corpus-handler")}
}

// Upload handles POST /api/v1/corpus/upload (multipart form, field "file").
func (h *CorpusHandler) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		respondError(c, apperrors.InvalidParam("multipart field \"file\" is required"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, apperrors.Wrap(err, apperrors.ErrCodeCorpusReadFailed,
			"failed to open uploaded file"))
		return
	}
	defer f.Close()

	info, err := h.corpus.Upload(c.Request.Context(), fh.Filename, fh.Size, f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

// List handles GET /api/v1/corpus/files.
func (h *CorpusHandler) List(c *gin.Context) {
	infos, err := h.corpus.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if infos == nil {
		infos = []corpus.FileInfo{}
	}
	c.JSON(http.StatusOK, gin.H{"files": infos, "count": len(infos)})
}

// Remove handles DELETE /api/v1/corpus/files/:name.
func (h *CorpusHandler) Remove(c *gin.Context) {
	if err := h.corpus.Remove(c.Request.Context(), c.Param("name")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
