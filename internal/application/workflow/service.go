// Package workflow orchestrates the research-proposal pipeline: literature
// retrieval, AI summarization and drafting, the user feedback loops, the
// bounded structure-generation run and the terminal document assembly.  All
// state transitions are delegated to the session aggregate; this service owns
// sequencing, locking, persistence and event publication around them.
package workflow

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	domlit "github.com/turtacn/ChemScribe/internal/domain/literature"
	"github.com/turtacn/ChemScribe/internal/domain/molecule"
	"github.com/turtacn/ChemScribe/internal/domain/session"
	"github.com/turtacn/ChemScribe/internal/infrastructure/ai"
	"github.com/turtacn/ChemScribe/internal/infrastructure/chem"
	"github.com/turtacn/ChemScribe/internal/infrastructure/database/postgres"
	redisinfra "github.com/turtacn/ChemScribe/internal/infrastructure/database/redis"
	litinfra "github.com/turtacn/ChemScribe/internal/infrastructure/literature"
	"github.com/turtacn/ChemScribe/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ChemScribe/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemScribe/internal/infrastructure/monitoring/prometheus"
	apperrors "github.com/turtacn/ChemScribe/pkg/errors"
	"github.com/turtacn/ChemScribe/pkg/types/common"
)

// Config carries the orchestration knobs.  The zero value is normalized to
// the platform defaults at construction.
type Config struct {
	// MaxAttempts bounds one structure run.
	MaxAttempts int
	// MaxPapers caps how many papers a retrieval may return.
	MaxPapers int
	// DefaultSource is used when a generate request names no source.
	DefaultSource domlit.Source
	// HistoryLimit caps history listings.
	HistoryLimit int
}

func (c *Config) normalize() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.MaxPapers <= 0 {
		c.MaxPapers = 5
	}
	if c.DefaultSource == "" {
		c.DefaultSource = domlit.SourceSemanticScholar
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 100
	}
}

// ProviderSource resolves an AI provider by name with optional per-request
// credential and model overrides.  *ai.Registry is the production source.
type ProviderSource interface {
	ProviderWith(name, apiKey, model string) (ai.Provider, error)
}

// AvailabilityClassifier scores a candidate's commercial availability.
// *chem.AvailabilityScorer is the production classifier; nil disables scoring.
type AvailabilityClassifier interface {
	Score(ctx context.Context, c *molecule.Candidate) molecule.Availability
}

// Assembler produces the document bundle for a fully approved session.
type Assembler interface {
	Assemble(ctx context.Context, s *session.ResearchSession, gen ai.Provider) (*session.DocumentBundle, error)
}

// GenerateInput starts a new session.
type GenerateInput struct {
	Topic    string
	Source   string
	Limit    int
	Provider string
	Model    string
	APIKey   string
}

// FeedbackInput carries a user rejection with its feedback text.
type FeedbackInput struct {
	SessionID common.ID
	Feedback  string
	APIKey    string
}

// TransitionInput identifies the session for an approval transition.
type TransitionInput struct {
	SessionID common.ID
	APIKey    string
}

// Service defines the workflow application operations.
type Service interface {
	// Generate runs retrieval, summarization and proposal drafting for a new
	// session, leaving it in proposal_drafted.
	Generate(ctx context.Context, in *GenerateInput) (*session.ResearchSession, error)

	// RejectProposal regenerates the proposal with the user's feedback folded
	// into the prompt.  The prior text is replaced wholesale.
	RejectProposal(ctx context.Context, in *FeedbackInput) (*session.ResearchSession, error)

	// ApproveProposal accepts the proposal and runs the bounded structure loop.
	ApproveProposal(ctx context.Context, in *TransitionInput) (*session.ResearchSession, error)

	// RejectStructure folds molecule feedback into a proposal revision and
	// runs a fresh structure loop, without requiring proposal re-approval.
	RejectStructure(ctx context.Context, in *FeedbackInput) (*session.ResearchSession, error)

	// ApproveStructure accepts the candidate and assembles the document bundle.
	ApproveStructure(ctx context.Context, in *TransitionInput) (*session.ResearchSession, error)

	// Get loads the current snapshot of a session.
	Get(ctx context.Context, id common.ID) (*session.ResearchSession, error)

	// History lists past sessions, newest first.
	History(ctx context.Context, topicFilter string, limit int) ([]postgres.HistoryEntry, error)

	// DeleteHistory removes one stored session.
	DeleteHistory(ctx context.Context, id common.ID) error
}

// Deps bundles the collaborators the workflow orchestrates.  Locker,
// Publisher, Metrics and Logger may be left nil and default to no-op or
// fresh instances.
type Deps struct {
	Retriever    *litinfra.Retriever
	Providers    ProviderSource
	Validator    chem.Validator
	Availability AvailabilityClassifier
	Assembler    Assembler
	Locker       redisinfra.SessionLocker
	History      postgres.HistoryRepository
	Publisher    kafka.Publisher
	Metrics      *prometheus.Metrics
	Logger       logging.Logger
}

type serviceImpl struct {
	cfg          Config
	retriever    *litinfra.Retriever
	providers    ProviderSource
	validator    chem.Validator
	availability AvailabilityClassifier
	assembler    Assembler
	locker       redisinfra.SessionLocker
	history      postgres.HistoryRepository
	publisher    kafka.Publisher
	metrics      *prometheus.Metrics
	logger       logging.Logger
}

// NewService constructs the workflow service.
func NewService(cfg Config, d Deps) Service {
	cfg.normalize()
	if d.Locker == nil {
		d.Locker = redisinfra.NoopLocker{}
	}
	if d.Publisher == nil {
		d.Publisher = kafka.NopPublisher{}
	}
	if d.Metrics == nil {
		d.Metrics = prometheus.NewMetrics()
	}
	if d.Logger == nil {
		d.Logger = logging.NewNopLogger()
	}
	return &serviceImpl{
		cfg:          cfg,
		retriever:    d.Retriever,
		providers:    d.Providers,
		validator:    d.Validator,
		availability: d.Availability,
		assembler:    d.Assembler,
		locker:       d.Locker,
		history:      d.History,
		publisher:    d.Publisher,
		metrics:      d.Metrics,
		logger:       d.Logger.Named("workflow"),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Operations
// ─────────────────────────────────────────────────────────────────────────────

func (s *serviceImpl) Generate(ctx context.Context, in *GenerateInput) (*session.ResearchSession, error) {
	if in == nil || strings.TrimSpace(in.Topic) == "" {
		return nil, apperrors.InvalidParam("topic cannot be empty")
	}
	srcName := in.Source
	if srcName == "" {
		srcName = string(s.cfg.DefaultSource)
	}
	source, err := domlit.ParseSource(srcName)
	if err != nil {
		return nil, err
	}
	provider, err := s.providers.ProviderWith(in.Provider, in.APIKey, in.Model)
	if err != nil {
		return nil, err
	}
	limit := in.Limit
	if limit <= 0 || limit > s.cfg.MaxPapers {
		limit = s.cfg.MaxPapers
	}

	sess, err := session.New(strings.TrimSpace(in.Topic), source, provider.Name(), in.Model)
	if err != nil {
		return nil, err
	}
	s.logger.Info("session started",
		logging.String("session", string(sess.ID)),
		logging.String("topic", sess.Topic),
		logging.String("source", string(source)),
		logging.String("provider", provider.Name()))

	start := time.Now()
	digest, err := s.retriever.Retrieve(ctx, sess.Topic, source, limit)
	s.metrics.ObserveStage("retrieve", start, err)
	if err != nil {
		return sess, s.failAndSync(ctx, sess, err)
	}
	s.metrics.LiteratureFetched.WithLabelValues(string(source)).Observe(float64(len(digest.Papers)))

	start = time.Now()
	if digest.Empty() {
		// Nothing to condense; the marker text flows into the draft prompt.
		digest.Summary = digest.Text
		s.metrics.ObserveStage("summarize", start, nil)
	} else {
		summary, err := s.generate(ctx, provider, summarizePrompt(sess.Topic, digest.Text))
		s.metrics.ObserveStage("summarize", start, err)
		if err != nil {
			return sess, s.failAndSync(ctx, sess, err)
		}
		digest.Summary = summary
	}
	if err := sess.AttachDigest(digest); err != nil {
		return sess, err
	}

	start = time.Now()
	text, err := s.generate(ctx, provider, draftPrompt(sess.Topic, digestSummaryFor(sess.Digest)))
	s.metrics.ObserveStage("draft", start, err)
	if err != nil {
		return sess, s.failAndSync(ctx, sess, err)
	}
	if err := sess.AttachProposal(session.Proposal{Text: text}); err != nil {
		return sess, err
	}

	s.trackStatus("", sess.Status)
	s.sync(ctx, sess)
	return sess, nil
}

func (s *serviceImpl) RejectProposal(ctx context.Context, in *FeedbackInput) (*session.ResearchSession, error) {
	if in == nil || strings.TrimSpace(in.Feedback) == "" {
		return nil, apperrors.InvalidParam("feedback cannot be empty")
	}
	return s.withSession(ctx, in.SessionID, func(sess *session.ResearchSession) error {
		if sess.Status != session.StatusProposalDrafted {
			return apperrors.InvalidState(
				fmt.Sprintf("cannot reject proposal while session is %s", sess.Status))
		}
		provider, err := s.providers.ProviderWith(sess.Provider, in.APIKey, sess.Model)
		if err != nil {
			return err
		}
		start := time.Now()
		text, err := s.generate(ctx, provider, refinePrompt(sess.Topic, sess.Proposal.Text, in.Feedback))
		s.metrics.ObserveStage("refine", start, err)
		if err != nil {
			// Interactive refinement failures leave the session intact so the
			// user can simply retry.
			return err
		}
		return sess.AttachProposal(session.Proposal{Text: text, Rationale: in.Feedback})
	})
}

func (s *serviceImpl) ApproveProposal(ctx context.Context, in *TransitionInput) (*session.ResearchSession, error) {
	if in == nil {
		return nil, apperrors.InvalidParam("session id required")
	}
	return s.withSession(ctx, in.SessionID, func(sess *session.ResearchSession) error {
		if err := sess.ApproveProposal(); err != nil {
			return err
		}
		provider, err := s.providers.ProviderWith(sess.Provider, in.APIKey, sess.Model)
		if err != nil {
			return err
		}
		return s.runStructure(ctx, sess, provider)
	})
}

func (s *serviceImpl) RejectStructure(ctx context.Context, in *FeedbackInput) (*session.ResearchSession, error) {
	if in == nil || strings.TrimSpace(in.Feedback) == "" {
		return nil, apperrors.InvalidParam("feedback cannot be empty")
	}
	return s.withSession(ctx, in.SessionID, func(sess *session.ResearchSession) error {
		if sess.Status != session.StatusStructureDrafted {
			return apperrors.InvalidState(
				fmt.Sprintf("cannot reject structure while session is %s", sess.Status))
		}
		provider, err := s.providers.ProviderWith(sess.Provider, in.APIKey, sess.Model)
		if err != nil {
			return err
		}
		start := time.Now()
		text, err := s.generate(ctx, provider, structureFeedbackPrompt(sess, in.Feedback))
		s.metrics.ObserveStage("refine", start, err)
		if err != nil {
			return err
		}
		if err := sess.ApplyStructureFeedback(session.Proposal{Text: text, Rationale: in.Feedback}); err != nil {
			return err
		}
		return s.runStructure(ctx, sess, provider)
	})
}

func (s *serviceImpl) ApproveStructure(ctx context.Context, in *TransitionInput) (*session.ResearchSession, error) {
	if in == nil {
		return nil, apperrors.InvalidParam("session id required")
	}
	return s.withSession(ctx, in.SessionID, func(sess *session.ResearchSession) error {
		switch sess.Status {
		case session.StatusStructureDrafted:
			if err := sess.ApproveStructure(); err != nil {
				return err
			}
		case session.StatusStructureApproved:
			// Re-entry after a failed assembly; the approval already happened.
		default:
			return apperrors.InvalidState(
				fmt.Sprintf("cannot approve structure while session is %s", sess.Status))
		}
		provider, err := s.providers.ProviderWith(sess.Provider, in.APIKey, sess.Model)
		if err != nil {
			return err
		}
		start := time.Now()
		bundle, err := s.assembler.Assemble(ctx, sess, provider)
		s.metrics.ObserveStage("assemble", start, err)
		if err != nil {
			return err
		}
		if err := sess.AttachBundle(bundle); err != nil {
			return err
		}
		s.metrics.DocumentsAssembled.Inc()
		s.logger.Info("documents assembled", logging.String("session", string(sess.ID)))
		return nil
	})
}

func (s *serviceImpl) Get(ctx context.Context, id common.ID) (*session.ResearchSession, error) {
	return s.history.Get(ctx, id)
}

func (s *serviceImpl) History(ctx context.Context, topicFilter string, limit int) ([]postgres.HistoryEntry, error) {
	if limit <= 0 || limit > s.cfg.HistoryLimit {
		limit = s.cfg.HistoryLimit
	}
	return s.history.List(ctx, topicFilter, limit)
}

func (s *serviceImpl) DeleteHistory(ctx context.Context, id common.ID) error {
	return s.history.Delete(ctx, id)
}

// ─────────────────────────────────────────────────────────────────────────────
// Structure run
// ─────────────────────────────────────────────────────────────────────────────

// runStructure drives the bounded generate/validate loop.  On success the
// session moves to structure_drafted; on budget exhaustion it is failed with
// the per-attempt diagnostics and the exhaustion error is returned.
func (s *serviceImpl) runStructure(ctx context.Context, sess *session.ResearchSession, provider ai.Provider) error {
	if !s.validator.Available() {
		return apperrors.New(apperrors.ErrCodeValidatorUnavailable,
			"molecule validator unavailable").
			WithDetail("session=" + string(sess.ID))
	}

	start := time.Now()
	var failures []session.AttemptFailure
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		c, reason := s.tryStructure(ctx, sess, provider, attempt)
		if c != nil {
			s.metrics.StructureAttempts.Observe(float64(attempt))
			s.metrics.ObserveStage("structure", start, nil)
			return sess.AttachCandidate(c, attempt)
		}
		s.logger.Warn("structure attempt rejected",
			logging.String("session", string(sess.ID)),
			logging.Int("attempt", attempt),
			logging.String("reason", reason))
		sess.LogAttemptFailure(attempt, reason)
		failures = append(failures, session.AttemptFailure{Attempt: attempt, Reason: reason})
	}

	s.metrics.StructureAttempts.Observe(float64(s.cfg.MaxAttempts))
	exhausted := apperrors.Newf(apperrors.ErrCodeStructureGenerationExhausted,
		"no valid structure after %d attempts", s.cfg.MaxAttempts)
	s.metrics.ObserveStage("structure", start, exhausted)
	if err := sess.Fail(exhausted.Code, exhausted.Message, failures); err != nil {
		s.logger.Error("failed to mark session failed",
			logging.String("session", string(sess.ID)), logging.Err(err))
	}
	return exhausted
}

// tryStructure performs one attempt.  It returns either a complete candidate
// or the rejection reason.
func (s *serviceImpl) tryStructure(ctx context.Context, sess *session.ResearchSession, provider ai.Provider, attempt int) (*molecule.Candidate, string) {
	text, err := s.generate(ctx, provider, structurePrompt(sess.Topic, sess.Proposal.Text, attempt))
	if err != nil {
		s.metrics.StructureRejections.WithLabelValues("provider_error").Inc()
		return nil, err.Error()
	}
	reply, err := molecule.ParseStructureReply(text)
	if err != nil {
		s.metrics.StructureRejections.WithLabelValues("malformed_response").Inc()
		return nil, err.Error()
	}
	verdict, err := s.validator.Validate(ctx, reply.SMILES)
	if err != nil {
		s.metrics.StructureRejections.WithLabelValues("validator_error").Inc()
		return nil, err.Error()
	}
	if !verdict.Valid {
		s.metrics.StructureRejections.WithLabelValues("invalid_smiles").Inc()
		return nil, verdict.Reason
	}

	name := reply.Name
	if name == "" {
		name = reply.SMILES
	}
	c := &molecule.Candidate{
		SMILES:       reply.SMILES,
		Name:         name,
		Properties:   verdict.Properties,
		Availability: molecule.Availability{Level: molecule.AvailabilityUnknown},
	}
	if png, err := s.validator.Render(ctx, c); err != nil {
		// A missing depiction does not invalidate the candidate.
		s.logger.Warn("depiction failed",
			logging.String("session", string(sess.ID)), logging.Err(err))
	} else {
		c.Depiction = png
	}
	if s.availability != nil {
		c.Availability = s.availability.Score(ctx, c)
	}
	return c, ""
}

// ─────────────────────────────────────────────────────────────────────────────
// Plumbing
// ─────────────────────────────────────────────────────────────────────────────

// withSession serializes one transition: lock, load, apply, persist, publish.
// The snapshot is persisted even when fn errors, because fn may have moved the
// session to failed before returning.
func (s *serviceImpl) withSession(ctx context.Context, id common.ID, fn func(*session.ResearchSession) error) (*session.ResearchSession, error) {
	if id == "" {
		return nil, apperrors.InvalidParam("session id required")
	}
	release, err := s.locker.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := s.history.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	prev := sess.Status
	opErr := fn(sess)
	s.trackStatus(prev, sess.Status)
	s.sync(ctx, sess)
	return sess, opErr
}

// generate wraps one provider call with the provider metrics.
func (s *serviceImpl) generate(ctx context.Context, p ai.Provider, prompt string) (string, error) {
	start := time.Now()
	text, err := p.GenerateText(ctx, prompt)
	s.metrics.ProviderLatency.WithLabelValues(p.Name()).Observe(time.Since(start).Seconds())
	s.metrics.ProviderCalls.WithLabelValues(p.Name(), providerOutcome(err)).Inc()
	return text, err
}

func providerOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case apperrors.IsCode(err, apperrors.ErrCodeProviderTimeout):
		return "timeout"
	case apperrors.IsCode(err, apperrors.ErrCodeProviderAuthFailed):
		return "auth"
	case apperrors.IsCode(err, apperrors.ErrCodeProviderRateLimited):
		return "rate_limited"
	case apperrors.IsCode(err, apperrors.ErrCodeProviderEmptyOutput):
		return "empty"
	default:
		return "error"
	}
}

// failAndSync moves the session to failed, persists and publishes, then
// returns the original cause for the caller to surface.
func (s *serviceImpl) failAndSync(ctx context.Context, sess *session.ResearchSession, cause error) error {
	if err := sess.Fail(apperrors.GetCode(cause), failureMessage(cause), nil); err != nil {
		s.logger.Error("failed to mark session failed",
			logging.String("session", string(sess.ID)), logging.Err(err))
	}
	s.trackStatus("", sess.Status)
	s.sync(ctx, sess)
	return cause
}

func failureMessage(err error) string {
	var ae *apperrors.AppError
	if stderrors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}

// sync persists the session snapshot and publishes its accumulated events.
// Both are best effort: the aggregate is the source of truth.
func (s *serviceImpl) sync(ctx context.Context, sess *session.ResearchSession) {
	if err := s.history.Save(ctx, sess); err != nil {
		s.logger.Error("failed to persist session snapshot",
			logging.String("session", string(sess.ID)), logging.Err(err))
	}
	for _, e := range sess.Events() {
		env, err := kafka.NewEventEnvelope(e.EventType(), "workflow", e)
		if err != nil {
			s.logger.Warn("failed to encode event",
				logging.String("type", e.EventType()), logging.Err(err))
			continue
		}
		_ = s.publisher.Publish(ctx, e.EventType(), string(sess.ID), env)
	}
	sess.ClearEvents()
}

func (s *serviceImpl) trackStatus(prev, cur session.Status) {
	if prev == cur {
		return
	}
	if prev != "" {
		s.metrics.SessionsByStatus.WithLabelValues(string(prev)).Dec()
	}
	s.metrics.SessionsByStatus.WithLabelValues(string(cur)).Inc()
}
