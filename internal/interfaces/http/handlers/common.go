// Package handlers implements the HTTP endpoints of the ChemScribe API.
package handlers

import (
	stderrors "errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/ChemScribe/internal/domain/molecule"
	"github.com/turtacn/ChemScribe/internal/domain/session"
	apperrors "github.com/turtacn/ChemScribe/pkg/errors"
)

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// respondError maps an error onto the taxonomy's HTTP status and body.
func respondError(c *gin.Context, err error) {
	code := apperrors.GetCode(err)
	resp := ErrorResponse{
		Code:    string(code),
		Message: apperrors.DefaultMessageForCode(code),
	}
	var ae *apperrors.AppError
	if stderrors.As(err, &ae) {
		resp.Message = ae.Message
		resp.Detail = ae.Detail
	}
	c.JSON(apperrors.HTTPStatusForCode(code), resp)
}

// SessionView is the API projection of a research session.
type SessionView struct {
	ID       string `json:"id"`
	Topic    string `json:"topic"`
	Source   string `json:"source"`
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
	Status   string `json:"status"`

	LiteratureSummary string `json:"literature_summary,omitempty"`
	PaperCount        int    `json:"paper_count"`

	Proposal  *ProposalView  `json:"proposal,omitempty"`
	Candidate *CandidateView `json:"candidate,omitempty"`

	StructureLog []session.AttemptFailure `json:"structure_log,omitempty"`
	Failure      *session.FailureInfo     `json:"failure,omitempty"`
	Documents    *DocumentsView           `json:"documents,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProposalView is the current proposal text.
type ProposalView struct {
	Text      string `json:"text"`
	Rationale string `json:"rationale,omitempty"`
}

// CandidateView is the molecule awaiting (or past) review.  DepictionPNG is
// base64 in the JSON encoding.
type CandidateView struct {
	SMILES       string                `json:"smiles"`
	Name         string                `json:"name"`
	Properties   molecule.Properties   `json:"properties"`
	Availability molecule.Availability `json:"availability"`
	DepictionPNG []byte                `json:"depiction_png,omitempty"`
}

// DocumentsView lists the stored bundle keys.
type DocumentsView struct {
	ProposalDocKey  string `json:"proposal_doc_key,omitempty"`
	RecipeDocKey    string `json:"recipe_doc_key,omitempty"`
	DataTemplateKey string `json:"data_template_key,omitempty"`
}

// newSessionView projects the aggregate for API responses.
func newSessionView(s *session.ResearchSession) *SessionView {
	v := &SessionView{
		ID:           string(s.ID),
		Topic:        s.Topic,
		Source:       string(s.Source),
		Provider:     s.Provider,
		Model:        s.Model,
		Status:       string(s.Status),
		StructureLog: s.StructureLog,
		Failure:      s.Failure,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
	if s.Digest != nil {
		v.LiteratureSummary = s.Digest.Summary
		v.PaperCount = len(s.Digest.Papers)
	}
	if s.Proposal != nil {
		v.Proposal = &ProposalView{Text: s.Proposal.Text, Rationale: s.Proposal.Rationale}
	}
	if s.Candidate != nil {
		v.Candidate = &CandidateView{
			SMILES:       s.Candidate.SMILES,
			Name:         s.Candidate.Name,
			Properties:   s.Candidate.Properties,
			Availability: s.Candidate.Availability,
			DepictionPNG: s.Candidate.Depiction,
		}
	}
	if s.Bundle != nil {
		v.Documents = &DocumentsView{
			ProposalDocKey:  s.Bundle.ProposalDocKey,
			RecipeDocKey:    s.Bundle.RecipeDocKey,
			DataTemplateKey: s.Bundle.DataTemplateKey,
		}
	}
	return v
}
