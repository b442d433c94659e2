package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/ChemScribe/internal/application/documents"
	"github.com/turtacn/ChemScribe/internal/application/workflow"
	"github.com/turtacn/ChemScribe/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemScribe/pkg/types/common"
	apperrors "github.com/turtacn/ChemScribe/pkg/errors"
)

// ResearchHandler serves the proposal-pipeline endpoints.
type ResearchHandler struct {
	workflow  workflow.Service
	assembler documents.Assembler
	logger    logging.Logger
}

// NewResearchHandler constructs the handler.  assembler may be nil when no
// object store is configured; document links are then unavailable.
func NewResearchHandler(svc workflow.Service, assembler documents.Assembler, logger logging.Logger) *ResearchHandler {
	return &ResearchHandler{
		workflow:  svc,
		assembler: assembler,
		logger:    logger.Named("research-handler"),
	}
}

// generateRequest starts a new pipeline run.  Provider credentials travel per
// request and are never persisted.
type generateRequest struct {
	Topic    string `json:"topic" binding:"required"`
	Source   string `json:"source"`
	Limit    int    `json:"limit"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	APIKey   string `json:"api_key"`
}

type feedbackRequest struct {
	Feedback string `json:"feedback" binding:"required"`
	APIKey   string `json:"api_key"`
}

type transitionRequest struct {
	APIKey string `json:"api_key"`
}

// Generate handles POST /api/v1/research/generate.
func (h *ResearchHandler) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.InvalidParam("topic is required"))
		return
	}
	sess, err := h.workflow.Generate(c.Request.Context(), &workflow.GenerateInput{
		Topic:    req.Topic,
		Source:   req.Source,
		Limit:    req.Limit,
		Provider: req.Provider,
		Model:    req.Model,
		APIKey:   req.APIKey,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newSessionView(sess))
}

// RejectProposal handles POST /api/v1/sessions/:id/proposal/reject.
func (h *ResearchHandler) RejectProposal(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.InvalidParam("feedback is required"))
		return
	}
	sess, err := h.workflow.RejectProposal(c.Request.Context(), &workflow.FeedbackInput{
		SessionID: common.ID(c.Param("id")),
		Feedback:  req.Feedback,
		APIKey:    req.APIKey,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(sess))
}

// ApproveProposal handles POST /api/v1/sessions/:id/proposal/approve.
func (h *ResearchHandler) ApproveProposal(c *gin.Context) {
	sess, err := h.workflow.ApproveProposal(c.Request.Context(), &workflow.TransitionInput{
		SessionID: common.ID(c.Param("id")),
		APIKey:    optionalAPIKey(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(sess))
}

// RejectStructure handles POST /api/v1/sessions/:id/structure/reject.
func (h *ResearchHandler) RejectStructure(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.InvalidParam("feedback is required"))
		return
	}
	sess, err := h.workflow.RejectStructure(c.Request.Context(), &workflow.FeedbackInput{
		SessionID: common.ID(c.Param("id")),
		Feedback:  req.Feedback,
		APIKey:    req.APIKey,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(sess))
}

// ApproveStructure handles POST /api/v1/sessions/:id/structure/approve.
func (h *ResearchHandler) ApproveStructure(c *gin.Context) {
	sess, err := h.workflow.ApproveStructure(c.Request.Context(), &workflow.TransitionInput{
		SessionID: common.ID(c.Param("id")),
		APIKey:    optionalAPIKey(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(sess))
}

// GetSession handles GET /api/v1/sessions/:id.
func (h *ResearchHandler) GetSession(c *gin.Context) {
	sess, err := h.workflow.Get(c.Request.Context(), common.ID(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(sess))
}

// Documents handles GET /api/v1/sessions/:id/documents and returns presigned
// download links for the assembled bundle.
func (h *ResearchHandler) Documents(c *gin.Context) {
	sess, err := h.workflow.Get(c.Request.Context(), common.ID(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}
	if sess.Bundle == nil {
		respondError(c, apperrors.New(apperrors.ErrCodeIncompleteSession,
			"session has no assembled documents yet"))
		return
	}
	if h.assembler == nil || sess.Bundle.ProposalDocKey == "" {
		respondError(c, apperrors.New(apperrors.ErrCodeDocumentStoreError,
			"document storage is not configured"))
		return
	}

	links := gin.H{}
	for name, key := range map[string]string{
		"proposal_doc":  sess.Bundle.ProposalDocKey,
		"recipe_doc":    sess.Bundle.RecipeDocKey,
		"data_template": sess.Bundle.DataTemplateKey,
	} {
		if key == "" {
			continue
		}
		url, err := h.assembler.DownloadURL(c.Request.Context(), key)
		if err != nil {
			respondError(c, err)
			return
		}
		links[name] = url
	}
	c.JSON(http.StatusOK, links)
}

// History handles GET /api/v1/history.
func (h *ResearchHandler) History(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(c, apperrors.InvalidParam("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	entries, err := h.workflow.History(c.Request.Context(), c.Query("topic"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": entries, "count": len(entries)})
}

// DeleteHistory handles DELETE /api/v1/history/:id.
func (h *ResearchHandler) DeleteHistory(c *gin.Context) {
	if err := h.workflow.DeleteHistory(c.Request.Context(), common.ID(c.Param("id"))); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// optionalAPIKey reads the request body of approval endpoints, which may be
// empty or carry only the per-request credential.
func optionalAPIKey(c *gin.Context) string {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return ""
	}
	return req.APIKey
}
