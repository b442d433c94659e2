package workflow

import (
	"fmt"
	"strings"

	"github.com/turtacn/ChemScribe/internal/domain/literature"
	"github.com/turtacn/ChemScribe/internal/domain/session"
)

// simplicityHint is appended to the structure prompt from the second attempt
// onward so the model steers away from whatever exotic scaffold it failed on.
const simplicityHint = "Prefer a simpler, commercially available compound that still serves the proposal."

// summarizePrompt asks the model to condense the retrieved literature digest.
func summarizePrompt(topic, digestText string) string {
	var sb strings.Builder
	sb.WriteString("You are a chemistry research assistant. Summarize the following ")
	sb.WriteString("literature excerpts relevant to the research topic.\n\n")
	fmt.Fprintf(&sb, "Research topic: %s\n\n", topic)
	sb.WriteString("Literature:\n")
	sb.WriteString(digestText)
	sb.WriteString("\n\nWrite a concise summary (3-5 paragraphs) of the key findings, ")
	sb.WriteString("methods and open problems. Plain text only.")
	return sb.String()
}

// draftPrompt asks the model for the initial research proposal.
func draftPrompt(topic, summary string) string {
	var sb strings.Builder
	sb.WriteString("You are a chemistry research assistant. Draft a research proposal.\n\n")
	fmt.Fprintf(&sb, "Research topic: %s\n\n", topic)
	sb.WriteString("Literature summary:\n")
	sb.WriteString(summary)
	sb.WriteString("\n\nWrite a focused research proposal covering: background, ")
	sb.WriteString("hypothesis, objectives, proposed approach and expected impact. ")
	sb.WriteString("Plain text only, no markdown headers.")
	return sb.String()
}

// refinePrompt asks the model to rework the current proposal per user feedback.
func refinePrompt(topic, current, feedback string) string {
	var sb strings.Builder
	sb.WriteString("You are a chemistry research assistant. Revise the research ")
	sb.WriteString("proposal below according to the reviewer feedback.\n\n")
	fmt.Fprintf(&sb, "Research topic: %s\n\n", topic)
	sb.WriteString("Current proposal:\n")
	sb.WriteString(current)
	sb.WriteString("\n\nReviewer feedback:\n")
	sb.WriteString(feedback)
	sb.WriteString("\n\nProduce the full revised proposal, not a diff. Plain text only.")
	return sb.String()
}

// structurePrompt asks the model for one target molecule in the line protocol
// the reply parser understands.  attempt is 1-based; later attempts carry the
// simplicity hint.
func structurePrompt(topic, proposal string, attempt int) string {
	var sb strings.Builder
	sb.WriteString("You are a chemistry research assistant. Propose ONE target ")
	sb.WriteString("molecule for the research proposal below.\n\n")
	fmt.Fprintf(&sb, "Research topic: %s\n\n", topic)
	sb.WriteString("Proposal:\n")
	sb.WriteString(proposal)
	sb.WriteString("\n\nAnswer with exactly three lines and nothing else:\n")
	sb.WriteString("SMILES: <valid SMILES notation>\n")
	sb.WriteString("NAME: <common or IUPAC name>\n")
	sb.WriteString("SOURCE: <literature reference or 'proposed'>\n")
	if attempt > 1 {
		sb.WriteString("\n")
		sb.WriteString(simplicityHint)
		sb.WriteString(" Your previous suggestion was rejected as chemically invalid.")
	}
	return sb.String()
}

// structureFeedbackPrompt folds a user's structure rejection into a proposal
// revision, so the next structure run starts from text that reflects it.
func structureFeedbackPrompt(s *session.ResearchSession, feedback string) string {
	var sb strings.Builder
	sb.WriteString("You are a chemistry research assistant. The user rejected the ")
	sb.WriteString("proposed target molecule. Revise the research proposal so the ")
	sb.WriteString("molecular design direction reflects their feedback.\n\n")
	fmt.Fprintf(&sb, "Research topic: %s\n\n", s.Topic)
	sb.WriteString("Current proposal:\n")
	sb.WriteString(s.Proposal.Text)
	if s.Candidate != nil {
		fmt.Fprintf(&sb, "\n\nRejected molecule: %s (%s)", s.Candidate.Name, s.Candidate.SMILES)
	}
	sb.WriteString("\n\nUser feedback on the molecule:\n")
	sb.WriteString(feedback)
	sb.WriteString("\n\nProduce the full revised proposal, not a diff. Plain text only.")
	return sb.String()
}

// digestSummaryFor returns the text the drafting stage should reason from:
// the AI summary when one was produced, otherwise the digest text itself
// (which for empty retrievals is the no-literature marker).
func digestSummaryFor(d *literature.Digest) string {
	if d == nil {
		return literature.NoLiteratureFound
	}
	if d.Summary != "" {
		return d.Summary
	}
	return d.Text
}
