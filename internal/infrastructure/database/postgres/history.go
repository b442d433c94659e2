package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/turtacn/ChemScribe/internal/domain/session"
	"github.com/turtacn/ChemScribe/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/ChemScribe/pkg/errors"
	"github.com/turtacn/ChemScribe/pkg/types/common"
)

// HistoryEntry is the listing view of one persisted session.
type HistoryEntry struct {
	ID           common.ID        `json:"id"`
	Topic        string           `json:"topic"`
	Source       string           `json:"source"`
	Provider     string           `json:"provider"`
	Model        string           `json:"model"`
	Status       session.Status   `json:"status"`
	ProposalText string           `json:"proposal_text,omitempty"`
	SMILES       string           `json:"smiles,omitempty"`
	MoleculeName string           `json:"molecule_name,omitempty"`
	FailureCode  string           `json:"failure_code,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// HistoryRepository persists session snapshots for browsing past runs.  The
// repository is a collaborator of the workflow, never its owner: workflow
// state lives in the aggregate, history rows are write-behind snapshots.
type HistoryRepository interface {
	// Save upserts the current snapshot of a session.
	Save(ctx context.Context, s *session.ResearchSession) error

	// Get loads the full stored snapshot for one session.
	Get(ctx context.Context, id common.ID) (*session.ResearchSession, error)

	// List returns entries newest first, optionally filtered by topic
	// substring, capped at limit.
	List(ctx context.Context, topicFilter string, limit int) ([]HistoryEntry, error)

	// Delete removes one entry.
	Delete(ctx context.Context, id common.ID) error

	// DeleteAll clears the history.
	DeleteAll(ctx context.Context) error
}

type historyRepository struct {
	pool      *Pool
	retention int
	logger    logging.Logger
}

// NewHistoryRepository constructs the PostgreSQL-backed repository.  retention
// caps how many sessions are kept: every Save prunes rows beyond the newest
// retention entries by updated_at.  Zero disables pruning.
func NewHistoryRepository(pool *Pool, retention int, logger logging.Logger) HistoryRepository {
	return &historyRepository{pool: pool, retention: retention, logger: logger.Named("history")}
}

func (r *historyRepository) Save(ctx context.Context, s *session.ResearchSession) error {
	snapshot, err := json.Marshal(s)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeSerialization, "failed to encode session snapshot")
	}

	var proposalText, smiles, moleculeName, failureCode string
	if s.Proposal != nil {
		proposalText = s.Proposal.Text
	}
	if s.Candidate != nil {
		smiles = s.Candidate.SMILES
		moleculeName = s.Candidate.Name
	}
	if s.Failure != nil {
		failureCode = string(s.Failure.Code)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO session_history
			(id, topic, source, provider, model, status, proposal_text,
			 smiles, molecule_name, failure_code, snapshot, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (id) DO UPDATE SET
			status        = EXCLUDED.status,
			proposal_text = EXCLUDED.proposal_text,
			smiles        = EXCLUDED.smiles,
			molecule_name = EXCLUDED.molecule_name,
			failure_code  = EXCLUDED.failure_code,
			snapshot      = EXCLUDED.snapshot,
			updated_at    = EXCLUDED.updated_at`,
		string(s.ID), s.Topic, string(s.Source), s.Provider, s.Model,
		string(s.Status), proposalText, smiles, moleculeName, failureCode,
		snapshot, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to save session history")
	}
	r.prune(ctx)
	return nil
}

// prune drops rows beyond the newest retention entries.  Best effort: losing a
// pruning round never fails the workflow that triggered the Save.
func (r *historyRepository) prune(ctx context.Context) {
	if r.retention <= 0 {
		return
	}
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM session_history
		WHERE id NOT IN (
			SELECT id FROM session_history
			ORDER BY updated_at DESC
			LIMIT $1)`, r.retention)
	if err != nil {
		r.logger.Warn("history retention pruning failed", logging.Err(err))
		return
	}
	if n := tag.RowsAffected(); n > 0 {
		r.logger.Info("history pruned",
			logging.Int64("removed", n), logging.Int("retained", r.retention))
	}
}

func (r *historyRepository) Get(ctx context.Context, id common.ID) (*session.ResearchSession, error) {
	var snapshot []byte
	err := r.pool.QueryRow(ctx,
		`SELECT snapshot FROM session_history WHERE id = $1`, string(id)).Scan(&snapshot)
	if err == pgx.ErrNoRows {
		return nil, apperrors.New(apperrors.ErrCodeSessionNotFound, "research session not found").
			WithDetail("session=" + string(id))
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to load session history")
	}

	var s session.ResearchSession
	if err := json.Unmarshal(snapshot, &s); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeSerialization, "failed to decode session snapshot")
	}
	return &s, nil
}

func (r *historyRepository) List(ctx context.Context, topicFilter string, limit int) ([]HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, topic, source, provider, model, status, proposal_text,
		       smiles, molecule_name, failure_code, created_at, updated_at
		FROM session_history
		WHERE ($1 = '' OR topic ILIKE '%' || $1 || '%')
		ORDER BY updated_at DESC
		LIMIT $2`, topicFilter, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to list session history")
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var id, source, status string
		if err := rows.Scan(&id, &e.Topic, &source, &e.Provider, &e.Model, &status,
			&e.ProposalText, &e.SMILES, &e.MoleculeName, &e.FailureCode,
			&e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to scan history row")
		}
		e.ID = common.ID(id)
		e.Source = source
		e.Status = session.Status(status)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "history iteration failed")
	}
	return entries, nil
}

func (r *historyRepository) Delete(ctx context.Context, id common.ID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM session_history WHERE id = $1`, string(id))
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to delete history entry")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.New(apperrors.ErrCodeSessionNotFound, "research session not found").
			WithDetail("session=" + string(id))
	}
	return nil
}

func (r *historyRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM session_history`); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to clear history")
	}
	r.logger.Info("session history cleared")
	return nil
}
