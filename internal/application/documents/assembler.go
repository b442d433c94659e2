// Package documents assembles the deliverable bundle for an approved session:
// the full research proposal document, the synthesis recipe document and the
// experiment data template.  Assembly is atomic: either all three payloads are
// produced or none is.
package documents

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/turtacn/ChemScribe/internal/domain/session"
	"github.com/turtacn/ChemScribe/internal/infrastructure/ai"
	"github.com/turtacn/ChemScribe/internal/infrastructure/monitoring/logging"
	miniostore "github.com/turtacn/ChemScribe/internal/infrastructure/storage/minio"
	apperrors "github.com/turtacn/ChemScribe/pkg/errors"
)

// Assembler produces the document bundle for a fully approved session and
// resolves download links for stored payloads.
type Assembler interface {
	Assemble(ctx context.Context, s *session.ResearchSession, gen ai.Provider) (*session.DocumentBundle, error)
	DownloadURL(ctx context.Context, key string) (string, error)
}

type assembler struct {
	store  miniostore.ObjectStore
	bucket string
	logger logging.Logger
}

// NewAssembler constructs the production assembler.  store may be nil, in
// which case payloads are returned in the bundle without object-store keys.
func NewAssembler(store miniostore.ObjectStore, bucket string, logger logging.Logger) Assembler {
	return &assembler{store: store, bucket: bucket, logger: logger.Named("documents")}
}

func (a *assembler) Assemble(ctx context.Context, s *session.ResearchSession, gen ai.Provider) (*session.DocumentBundle, error) {
	if s.Digest == nil || s.Proposal == nil || s.Proposal.Text == "" || s.Candidate == nil {
		return nil, apperrors.New(apperrors.ErrCodeIncompleteSession,
			"session is missing an approved artifact").
			WithDetail("session=" + string(s.ID))
	}

	img, err := validateDepiction(s.Candidate.Depiction)
	if err != nil {
		return nil, err
	}

	fullText := a.fullProposal(ctx, s, gen)
	proposalDoc, err := buildDocx("Research Proposal: "+s.Topic, fullText, img)
	if err != nil {
		return nil, err
	}

	recipeText := a.recipe(ctx, s, gen)
	recipeDoc, err := buildDocx("Synthesis Recipe: "+s.Candidate.Name, recipeText, nil)
	if err != nil {
		return nil, err
	}

	dataTemplate, err := buildDataTemplate(s)
	if err != nil {
		return nil, err
	}

	bundle := &session.DocumentBundle{
		ProposalDoc:  proposalDoc,
		RecipeDoc:    recipeDoc,
		DataTemplate: dataTemplate,
		ProposalText: s.Proposal.Text,
	}
	a.persist(ctx, s, bundle)
	return bundle, nil
}

// validateDepiction decodes the candidate's PNG header.  Corrupt bytes are the
// one genuinely unrecoverable assembly input; a missing depiction just yields
// a document without an image.
func validateDepiction(data []byte) (*depiction, error) {
	if len(data) == 0 {
		return nil, nil
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeAssemblyFailed,
			"molecule depiction bytes are not a valid PNG")
	}
	return &depiction{data: data, width: cfg.Width, height: cfg.Height}, nil
}

// fullProposal expands the approved text into the funding-style document body.
// A provider failure falls back to the approved text itself so the bundle
// never depends on a second generation success.
func (a *assembler) fullProposal(ctx context.Context, s *session.ResearchSession, gen ai.Provider) string {
	if gen != nil {
		text, err := gen.GenerateText(ctx, fullProposalPrompt(s))
		if err == nil {
			return text
		}
		a.logger.Warn("full proposal expansion failed, using approved text",
			logging.String("session", string(s.ID)), logging.Err(err))
	}
	return s.Proposal.Text
}

// recipe produces the synthesis recipe body, falling back to a deterministic
// skeleton when the provider call fails.
func (a *assembler) recipe(ctx context.Context, s *session.ResearchSession, gen ai.Provider) string {
	if gen != nil {
		text, err := gen.GenerateText(ctx, recipePrompt(s))
		if err == nil {
			return text
		}
		a.logger.Warn("recipe generation failed, using fallback skeleton",
			logging.String("session", string(s.ID)), logging.Err(err))
	}
	return fallbackRecipe(s)
}

// persist stores the payloads and records their keys on the bundle.  Storage
// failures are logged, not propagated: the bundle itself is the deliverable.
func (a *assembler) persist(ctx context.Context, s *session.ResearchSession, b *session.DocumentBundle) {
	if a.store == nil {
		return
	}
	prefix := "sessions/" + string(s.ID) + "/"
	puts := []struct {
		key         string
		data        []byte
		contentType string
		field       *string
	}{
		{prefix + "proposal.docx", b.ProposalDoc,
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document", &b.ProposalDocKey},
		{prefix + "recipe.docx", b.RecipeDoc,
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document", &b.RecipeDocKey},
		{prefix + "data_template.xlsx", b.DataTemplate,
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", &b.DataTemplateKey},
	}
	for _, p := range puts {
		if err := a.store.Put(ctx, a.bucket, p.key, p.data, p.contentType); err != nil {
			a.logger.Warn("failed to store document",
				logging.String("key", p.key), logging.Err(err))
			continue
		}
		*p.field = p.key
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Prompts and fallbacks
// ─────────────────────────────────────────────────────────────────────────────

var proposalSections = []string{
	"Title", "Abstract", "Background and Significance", "Hypothesis",
	"Specific Objectives", "Methodology", "Target Molecule Rationale",
	"Expected Outcomes", "Timeline", "References",
}

func fullProposalPrompt(s *session.ResearchSession) string {
	var sb strings.Builder
	sb.WriteString("You are a chemistry research assistant. Expand the approved ")
	sb.WriteString("research proposal below into a full funding-style document ")
	sb.WriteString("with these sections, each on its own paragraph:\n")
	sb.WriteString(strings.Join(proposalSections, ", "))
	sb.WriteString(".\n\n")
	fmt.Fprintf(&sb, "Research topic: %s\n\n", s.Topic)
	sb.WriteString("Approved proposal:\n")
	sb.WriteString(s.Proposal.Text)
	fmt.Fprintf(&sb, "\n\nTarget molecule: %s (%s)\n", s.Candidate.Name, s.Candidate.SMILES)
	sb.WriteString("Plain text only, no markdown headers.")
	return sb.String()
}

func recipePrompt(s *session.ResearchSession) string {
	var sb strings.Builder
	sb.WriteString("You are a chemistry research assistant. Write a laboratory ")
	sb.WriteString("synthesis recipe for the target molecule below: starting ")
	sb.WriteString("materials, stoichiometry, step-by-step procedure, workup and ")
	sb.WriteString("safety notes.\n\n")
	fmt.Fprintf(&sb, "Target molecule: %s\nSMILES: %s\n", s.Candidate.Name, s.Candidate.SMILES)
	fmt.Fprintf(&sb, "Molecular weight: %.2f\n\n", s.Candidate.Properties.MolecularWeight)
	sb.WriteString("Research context:\n")
	sb.WriteString(s.Proposal.Text)
	sb.WriteString("\n\nPlain text only.")
	return sb.String()
}

// fallbackRecipe is the deterministic skeleton used when recipe generation
// fails.  It carries the molecule facts the researcher needs to plan manually.
func fallbackRecipe(s *session.ResearchSession) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Synthesis plan for %s\n\n", s.Candidate.Name)
	fmt.Fprintf(&sb, "SMILES: %s\n", s.Candidate.SMILES)
	fmt.Fprintf(&sb, "Molecular weight: %.2f\n", s.Candidate.Properties.MolecularWeight)
	fmt.Fprintf(&sb, "Availability: %s\n\n", s.Candidate.Availability.Level)
	sb.WriteString("1. Literature search: locate published routes to the target or close analogues.\n")
	sb.WriteString("2. Starting materials: select commercially available precursors.\n")
	sb.WriteString("3. Route design: plan bond disconnections from the target backward.\n")
	sb.WriteString("4. Pilot reaction: run at small scale, track conversion by TLC or LCMS.\n")
	sb.WriteString("5. Workup and purification: extraction, then chromatography or recrystallization.\n")
	sb.WriteString("6. Characterization: NMR, MS and purity assay before scale-up.\n")
	return sb.String()
}

// presignExpiry is how long download links for assembled documents stay valid.
const presignExpiry = 24 * time.Hour

// DownloadURL resolves a presigned link for one stored bundle payload.
func (a *assembler) DownloadURL(ctx context.Context, key string) (string, error) {
	if a.store == nil || key == "" {
		return "", apperrors.NotFound("document not stored")
	}
	return a.store.PresignGet(ctx, a.bucket, key, presignExpiry)
}
