// Package session provides the ResearchSession aggregate root: the state
// machine that carries one research-proposal workflow from topic submission to
// assembled documents.  All transition guards live here; orchestration of
// external calls (AI providers, literature sources, validation) belongs to the
// application layer.
package session

import (
	"fmt"

	"github.com/turtacn/ChemScribe/internal/domain/literature"
	"github.com/turtacn/ChemScribe/internal/domain/molecule"
	"github.com/turtacn/ChemScribe/pkg/errors"
	"github.com/turtacn/ChemScribe/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// Status
// ─────────────────────────────────────────────────────────────────────────────

// Status enumerates the workflow states of a research session.
type Status string

const (
	// StatusStarted: session created, nothing generated yet.
	StatusStarted Status = "started"
	// StatusSummarized: literature digest attached.
	StatusSummarized Status = "summarized"
	// StatusProposalDrafted: a proposal awaits user review.
	StatusProposalDrafted Status = "proposal_drafted"
	// StatusProposalApproved: the user accepted the proposal text.
	StatusProposalApproved Status = "proposal_approved"
	// StatusStructureDrafted: a validated molecule candidate awaits review.
	StatusStructureDrafted Status = "structure_drafted"
	// StatusStructureApproved: the user accepted the candidate.
	StatusStructureApproved Status = "structure_approved"
	// StatusDocumentsReady: the document bundle was assembled.  Terminal.
	StatusDocumentsReady Status = "documents_ready"
	// StatusFailed: an unrecoverable error ended the session.  Terminal.
	StatusFailed Status = "failed"
)

// Terminal reports whether no further transitions are permitted.
func (s Status) Terminal() bool {
	return s == StatusDocumentsReady || s == StatusFailed
}

// ─────────────────────────────────────────────────────────────────────────────
// Value objects
// ─────────────────────────────────────────────────────────────────────────────

// Proposal is the current proposal text plus an optional rationale.  Each
// refinement replaces the whole value; prior versions are not retained.
type Proposal struct {
	Text      string `json:"text"`
	Rationale string `json:"rationale,omitempty"`
}

// AttemptFailure records why one structure-generation attempt was rejected.
type AttemptFailure struct {
	Attempt int    `json:"attempt"`
	Reason  string `json:"reason"`
}

// FailureInfo captures why a session moved to StatusFailed.
type FailureInfo struct {
	Code     errors.ErrorCode `json:"code"`
	Reason   string           `json:"reason"`
	Attempts []AttemptFailure `json:"attempts,omitempty"`
}

// DocumentBundle holds the three assembled payloads plus the proposal text
// they were produced from.  Created once, immutable afterward.
type DocumentBundle struct {
	ProposalDoc  []byte `json:"-"`
	RecipeDoc    []byte `json:"-"`
	DataTemplate []byte `json:"-"`
	ProposalText string `json:"proposal_text"`
	// Object-store keys, populated when the bundle has been persisted.
	ProposalDocKey  string `json:"proposal_doc_key,omitempty"`
	RecipeDocKey    string `json:"recipe_doc_key,omitempty"`
	DataTemplateKey string `json:"data_template_key,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Domain events
// ─────────────────────────────────────────────────────────────────────────────

// DomainEvent is the marker interface for session lifecycle events.
type DomainEvent interface {
	EventType() string
}

// CreatedEvent is published when a session is created.
type CreatedEvent struct {
	SessionID common.ID
	Topic     string
	Source    literature.Source
	Provider  string
}

func (CreatedEvent) EventType() string { return "session.created" }

// SummarizedEvent is published when the literature digest is attached.
type SummarizedEvent struct {
	SessionID  common.ID
	PaperCount int
}

func (SummarizedEvent) EventType() string { return "session.summarized" }

// ProposalDraftedEvent is published for the first draft and every refinement.
type ProposalDraftedEvent struct {
	SessionID common.ID
	Refined   bool
}

func (ProposalDraftedEvent) EventType() string { return "session.proposal_drafted" }

// StructureDraftedEvent is published when a valid candidate is attached.
type StructureDraftedEvent struct {
	SessionID common.ID
	SMILES    string
	Attempts  int
}

func (StructureDraftedEvent) EventType() string { return "session.structure_drafted" }

// DocumentsReadyEvent is published at the terminal success transition.
type DocumentsReadyEvent struct {
	SessionID common.ID
}

func (DocumentsReadyEvent) EventType() string { return "session.documents_ready" }

// FailedEvent is published when the session moves to StatusFailed.
type FailedEvent struct {
	SessionID common.ID
	Code      errors.ErrorCode
	Reason    string
}

func (FailedEvent) EventType() string { return "session.failed" }

// ─────────────────────────────────────────────────────────────────────────────
// Aggregate root
// ─────────────────────────────────────────────────────────────────────────────

// ResearchSession is the aggregate root for one end-to-end workflow run.
// Fields other than Status are populated progressively; which fields are
// non-nil is fully determined by Status, and every transition method enforces
// that correspondence.
type ResearchSession struct {
	common.BaseEntity

	Topic    string            `json:"topic"`
	Source   literature.Source `json:"source"`
	Provider string            `json:"provider"`
	Model    string            `json:"model"`

	Status Status `json:"status"`

	Digest    *literature.Digest  `json:"digest,omitempty"`
	Proposal  *Proposal           `json:"proposal,omitempty"`
	Candidate *molecule.Candidate `json:"candidate,omitempty"`
	Bundle    *DocumentBundle     `json:"bundle,omitempty"`
	Failure   *FailureInfo        `json:"failure,omitempty"`

	// Diagnostic log of rejected structure attempts.  Retained across the
	// whole session; never part of the live candidate state.
	StructureLog []AttemptFailure `json:"structure_log,omitempty"`

	events []DomainEvent
}

// New constructs a session in StatusStarted.
func New(topic string, source literature.Source, provider, model string) (*ResearchSession, error) {
	if topic == "" {
		return nil, errors.InvalidParam("topic cannot be empty")
	}
	if provider == "" {
		return nil, errors.InvalidParam("provider cannot be empty")
	}
	s := &ResearchSession{
		Topic:    topic,
		Source:   source,
		Provider: provider,
		Model:    model,
		Status:   StatusStarted,
	}
	s.ID = common.NewID()
	s.Touch()
	s.record(CreatedEvent{SessionID: s.ID, Topic: topic, Source: source, Provider: provider})
	return s, nil
}

func (s *ResearchSession) record(e DomainEvent) {
	s.events = append(s.events, e)
}

// Events returns the accumulated domain events without clearing them.
func (s *ResearchSession) Events() []DomainEvent {
	return s.events
}

// ClearEvents drops accumulated events after they have been published.
func (s *ResearchSession) ClearEvents() {
	s.events = nil
}

func (s *ResearchSession) guard(op string, allowed ...Status) error {
	for _, a := range allowed {
		if s.Status == a {
			return nil
		}
	}
	return errors.InvalidState(
		fmt.Sprintf("cannot %s while session is %s", op, s.Status)).
		WithDetail(fmt.Sprintf("session=%s", s.ID))
}

// AttachDigest records the literature digest and moves the session to
// StatusSummarized.  An empty digest (no-literature marker) is a valid input.
func (s *ResearchSession) AttachDigest(d literature.Digest) error {
	if err := s.guard("attach digest", StatusStarted); err != nil {
		return err
	}
	if d.Text == "" {
		return errors.InvalidParam("digest text cannot be empty").
			WithDetail("use the no-literature marker for empty retrievals")
	}
	s.Digest = &d
	s.Status = StatusSummarized
	s.Touch()
	s.record(SummarizedEvent{SessionID: s.ID, PaperCount: len(d.Papers)})
	return nil
}

// AttachProposal records a proposal draft.  From StatusSummarized this is the
// first draft; from StatusProposalDrafted it is a refinement that replaces the
// prior text wholesale.
func (s *ResearchSession) AttachProposal(p Proposal) error {
	if err := s.guard("attach proposal", StatusSummarized, StatusProposalDrafted); err != nil {
		return err
	}
	if p.Text == "" {
		return errors.InvalidParam("proposal text cannot be empty")
	}
	refined := s.Status == StatusProposalDrafted
	s.Proposal = &p
	s.Status = StatusProposalDrafted
	s.Touch()
	s.record(ProposalDraftedEvent{SessionID: s.ID, Refined: refined})
	return nil
}

// ApproveProposal marks the current proposal as accepted by the user.
func (s *ResearchSession) ApproveProposal() error {
	if err := s.guard("approve proposal", StatusProposalDrafted); err != nil {
		return err
	}
	s.Status = StatusProposalApproved
	s.Touch()
	return nil
}

// AttachCandidate records a validated molecule candidate.  From
// StatusProposalApproved this completes a structure run; from
// StatusStructureDrafted it replaces the candidate after a fresh run.
func (s *ResearchSession) AttachCandidate(c *molecule.Candidate, attempts int) error {
	if err := s.guard("attach candidate", StatusProposalApproved, StatusStructureDrafted); err != nil {
		return err
	}
	if c == nil {
		return errors.InvalidParam("candidate cannot be nil")
	}
	s.Candidate = c
	s.Status = StatusStructureDrafted
	s.Touch()
	s.record(StructureDraftedEvent{SessionID: s.ID, SMILES: c.SMILES, Attempts: attempts})
	return nil
}

// LogAttemptFailure appends one rejected structure attempt to the diagnostic
// log.  Callable in any non-terminal state so that a run that later fails
// still leaves its trace.
func (s *ResearchSession) LogAttemptFailure(attempt int, reason string) {
	s.StructureLog = append(s.StructureLog, AttemptFailure{Attempt: attempt, Reason: reason})
}

// ApplyStructureFeedback handles a structure rejection: the regenerated
// proposal (feedback already folded in by the caller) replaces the current one
// and the candidate is discarded.  The session returns to
// StatusProposalApproved so a fresh structure run can begin without the user
// re-approving text they already steered.
func (s *ResearchSession) ApplyStructureFeedback(p Proposal) error {
	if err := s.guard("apply structure feedback", StatusStructureDrafted); err != nil {
		return err
	}
	if p.Text == "" {
		return errors.InvalidParam("proposal text cannot be empty")
	}
	s.Proposal = &p
	s.Candidate = nil
	s.Status = StatusProposalApproved
	s.Touch()
	s.record(ProposalDraftedEvent{SessionID: s.ID, Refined: true})
	return nil
}

// ApproveStructure marks the current candidate as accepted.  The presence
// checks are defensive: the state machine should make them unreachable, but
// the workflow is re-entrant per request and must not trust loaded state.
func (s *ResearchSession) ApproveStructure() error {
	if err := s.guard("approve structure", StatusStructureDrafted); err != nil {
		return err
	}
	if err := s.requireComplete(); err != nil {
		return err
	}
	s.Status = StatusStructureApproved
	s.Touch()
	return nil
}

// AttachBundle records the assembled document bundle and moves the session to
// its terminal success state.
func (s *ResearchSession) AttachBundle(b *DocumentBundle) error {
	if err := s.guard("attach documents", StatusStructureApproved); err != nil {
		return err
	}
	if err := s.requireComplete(); err != nil {
		return err
	}
	if b == nil {
		return errors.InvalidParam("bundle cannot be nil")
	}
	s.Bundle = b
	s.Status = StatusDocumentsReady
	s.Touch()
	s.record(DocumentsReadyEvent{SessionID: s.ID})
	return nil
}

// requireComplete verifies that every artifact document assembly depends on
// is present, independent of what Status claims.
func (s *ResearchSession) requireComplete() error {
	missing := ""
	switch {
	case s.Digest == nil:
		missing = "digest"
	case s.Proposal == nil || s.Proposal.Text == "":
		missing = "proposal"
	case s.Candidate == nil:
		missing = "candidate"
	}
	if missing == "" {
		return nil
	}
	return errors.New(errors.ErrCodeIncompleteSession,
		"session is missing an approved artifact").
		WithDetail(fmt.Sprintf("session=%s missing=%s", s.ID, missing))
}

// Fail moves the session to StatusFailed from any non-terminal state,
// recording the failure cause and any per-attempt diagnostics.
func (s *ResearchSession) Fail(code errors.ErrorCode, reason string, attempts []AttemptFailure) error {
	if s.Status.Terminal() {
		return errors.InvalidState(
			fmt.Sprintf("cannot fail a session that is already %s", s.Status))
	}
	s.Failure = &FailureInfo{Code: code, Reason: reason, Attempts: attempts}
	s.Status = StatusFailed
	s.Touch()
	s.record(FailedEvent{SessionID: s.ID, Code: code, Reason: reason})
	return nil
}
