package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemScribe/internal/domain/literature"
	"github.com/turtacn/ChemScribe/internal/domain/molecule"
	"github.com/turtacn/ChemScribe/pkg/errors"
)

func newStarted(t *testing.T) *ResearchSession {
	t.Helper()
	s, err := New("MOFs for carbon capture", literature.SourceLocal, "openai", "gpt-4o-mini")
	require.NoError(t, err)
	return s
}

func digest() literature.Digest {
	return literature.NewDigest("MOFs for carbon capture", literature.SourceLocal, nil)
}

func candidate(t *testing.T) *molecule.Candidate {
	t.Helper()
	c, err := molecule.NewCandidate("CCO", "ethanol")
	require.NoError(t, err)
	return c
}

// advance drives a session to the requested status through the normal path.
func advance(t *testing.T, s *ResearchSession, target Status) {
	t.Helper()
	steps := []struct {
		at   Status
		step func() error
	}{
		{StatusStarted, func() error { return s.AttachDigest(digest()) }},
		{StatusSummarized, func() error { return s.AttachProposal(Proposal{Text: "draft"}) }},
		{StatusProposalDrafted, s.ApproveProposal},
		{StatusProposalApproved, func() error { return s.AttachCandidate(candidate(t), 1) }},
		{StatusStructureDrafted, s.ApproveStructure},
		{StatusStructureApproved, func() error {
			return s.AttachBundle(&DocumentBundle{ProposalText: "draft"})
		}},
	}
	for _, st := range steps {
		if s.Status == target {
			return
		}
		require.Equal(t, st.at, s.Status)
		require.NoError(t, st.step())
	}
	require.Equal(t, target, s.Status)
}

func TestNew(t *testing.T) {
	s := newStarted(t)

	assert.Equal(t, StatusStarted, s.Status)
	assert.NotEmpty(t, s.ID)
	require.Len(t, s.Events(), 1)
	assert.Equal(t, "session.created", s.Events()[0].EventType())
}

func TestNew_Validation(t *testing.T) {
	_, err := New("", literature.SourceArxiv, "openai", "m")
	assert.Error(t, err)

	_, err = New("topic", literature.SourceArxiv, "", "m")
	assert.Error(t, err)
}

func TestHappyPath(t *testing.T) {
	s := newStarted(t)
	advance(t, s, StatusDocumentsReady)

	assert.True(t, s.Status.Terminal())
	require.NotNil(t, s.Bundle)
	assert.Equal(t, "draft", s.Bundle.ProposalText)
}

func TestAttachDigest_RejectsEmptyText(t *testing.T) {
	s := newStarted(t)
	err := s.AttachDigest(literature.Digest{})
	assert.Error(t, err)
	assert.Equal(t, StatusStarted, s.Status)
}

func TestAttachDigest_AcceptsNoLiteratureMarker(t *testing.T) {
	s := newStarted(t)
	d := literature.NewDigest(s.Topic, literature.SourceLocal, nil)
	require.NoError(t, s.AttachDigest(d))

	assert.Equal(t, StatusSummarized, s.Status)
	assert.Equal(t, literature.NoLiteratureFound, s.Digest.Text)
	assert.NotEmpty(t, s.Digest.Text)
}

func TestProposalRefinement_ReplacesPriorText(t *testing.T) {
	s := newStarted(t)
	advance(t, s, StatusProposalDrafted)

	first := s.Proposal.Text
	require.NoError(t, s.AttachProposal(Proposal{Text: "draft with cost analysis"}))

	assert.Equal(t, StatusProposalDrafted, s.Status)
	assert.NotEqual(t, first, s.Proposal.Text)
	// Prior text is gone; the aggregate keeps no version history.
	assert.Equal(t, "draft with cost analysis", s.Proposal.Text)
}

func TestApplyStructureFeedback(t *testing.T) {
	s := newStarted(t)
	advance(t, s, StatusStructureDrafted)
	require.NotNil(t, s.Candidate)

	require.NoError(t, s.ApplyStructureFeedback(Proposal{Text: "simpler target"}))

	assert.Equal(t, StatusProposalApproved, s.Status)
	assert.Nil(t, s.Candidate)
	assert.Equal(t, "simpler target", s.Proposal.Text)
}

func TestGuardedTransitions(t *testing.T) {
	// Every transition attempted from every wrong state must fail with the
	// invalid-transition code and leave the session untouched.
	allStatuses := []Status{
		StatusStarted, StatusSummarized, StatusProposalDrafted,
		StatusProposalApproved, StatusStructureDrafted,
		StatusStructureApproved, StatusDocumentsReady, StatusFailed,
	}
	type op struct {
		name    string
		allowed map[Status]bool
		run     func(*testing.T, *ResearchSession) error
	}
	ops := []op{
		{
			name:    "AttachDigest",
			allowed: map[Status]bool{StatusStarted: true},
			run: func(t *testing.T, s *ResearchSession) error {
				return s.AttachDigest(digest())
			},
		},
		{
			name:    "AttachProposal",
			allowed: map[Status]bool{StatusSummarized: true, StatusProposalDrafted: true},
			run: func(t *testing.T, s *ResearchSession) error {
				return s.AttachProposal(Proposal{Text: "p"})
			},
		},
		{
			name:    "ApproveProposal",
			allowed: map[Status]bool{StatusProposalDrafted: true},
			run: func(t *testing.T, s *ResearchSession) error {
				return s.ApproveProposal()
			},
		},
		{
			name:    "AttachCandidate",
			allowed: map[Status]bool{StatusProposalApproved: true, StatusStructureDrafted: true},
			run: func(t *testing.T, s *ResearchSession) error {
				return s.AttachCandidate(candidate(t), 1)
			},
		},
		{
			name:    "ApplyStructureFeedback",
			allowed: map[Status]bool{StatusStructureDrafted: true},
			run: func(t *testing.T, s *ResearchSession) error {
				return s.ApplyStructureFeedback(Proposal{Text: "p"})
			},
		},
		{
			name:    "ApproveStructure",
			allowed: map[Status]bool{StatusStructureDrafted: true},
			run: func(t *testing.T, s *ResearchSession) error {
				return s.ApproveStructure()
			},
		},
		{
			name:    "AttachBundle",
			allowed: map[Status]bool{StatusStructureApproved: true},
			run: func(t *testing.T, s *ResearchSession) error {
				return s.AttachBundle(&DocumentBundle{})
			},
		},
	}

	for _, operation := range ops {
		for _, st := range allStatuses {
			if operation.allowed[st] {
				continue
			}
			t.Run(operation.name+" from "+string(st), func(t *testing.T) {
				s := newStarted(t)
				if st == StatusFailed {
					require.NoError(t, s.Fail(errors.ErrCodeProviderCallFailed, "boom", nil))
				} else {
					advance(t, s, st)
				}
				err := operation.run(t, s)
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidTransition), err.Error())
				assert.Equal(t, st, s.Status)
			})
		}
	}
}

// Document assembly is only reachable after both approvals; tampering with a
// loaded session must be caught by the defensive completeness check.
func TestApproveStructure_IncompleteSession(t *testing.T) {
	s := newStarted(t)
	advance(t, s, StatusStructureDrafted)

	s.Digest = nil // simulate corrupted persisted state
	err := s.ApproveStructure()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeIncompleteSession))
	assert.Equal(t, StatusStructureDrafted, s.Status)
}

func TestAttachBundle_IncompleteSession(t *testing.T) {
	s := newStarted(t)
	advance(t, s, StatusStructureApproved)

	s.Candidate = nil
	err := s.AttachBundle(&DocumentBundle{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeIncompleteSession))
}

func TestFail(t *testing.T) {
	s := newStarted(t)
	advance(t, s, StatusProposalApproved)

	attempts := []AttemptFailure{{Attempt: 1, Reason: "invalid notation"}}
	require.NoError(t, s.Fail(errors.ErrCodeStructureGenerationExhausted, "budget spent", attempts))

	assert.Equal(t, StatusFailed, s.Status)
	require.NotNil(t, s.Failure)
	assert.Equal(t, errors.ErrCodeStructureGenerationExhausted, s.Failure.Code)
	assert.Equal(t, attempts, s.Failure.Attempts)
}

func TestFail_RejectedFromTerminalStates(t *testing.T) {
	done := newStarted(t)
	advance(t, done, StatusDocumentsReady)
	assert.Error(t, done.Fail(errors.ErrCodeInternal, "late", nil))

	failed := newStarted(t)
	require.NoError(t, failed.Fail(errors.ErrCodeInternal, "first", nil))
	assert.Error(t, failed.Fail(errors.ErrCodeInternal, "second", nil))
}

func TestStructureLog_RetainedAcrossAttempts(t *testing.T) {
	s := newStarted(t)
	advance(t, s, StatusProposalApproved)

	s.LogAttemptFailure(1, "invalid notation")
	s.LogAttemptFailure(2, "empty response")
	require.NoError(t, s.AttachCandidate(candidate(t), 3))

	assert.Equal(t, StatusStructureDrafted, s.Status)
	require.Len(t, s.StructureLog, 2)
	assert.Equal(t, 1, s.StructureLog[0].Attempt)
	// The diagnostic log never leaks into the live candidate.
	assert.NotNil(t, s.Candidate)
}

func TestClearEvents(t *testing.T) {
	s := newStarted(t)
	require.NotEmpty(t, s.Events())
	s.ClearEvents()
	assert.Empty(t, s.Events())
}
