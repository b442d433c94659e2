// Package chem provides the chemistry capability consumed by the workflow:
// notation validation with deterministic descriptors, 2D depiction rendering,
// and commercial-availability classification.
package chem

import (
	"context"

	"github.com/turtacn/ChemScribe/internal/domain/molecule"
	"github.com/turtacn/ChemScribe/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/ChemScribe/pkg/errors"
)

// Validator is the chemical-notation validate/render capability.  A malformed
// notation yields a Verdict with Valid=false, never an error; the only error
// Validate can return is the validator-unavailable sentinel.
type Validator interface {
	// Available reports whether the chemistry capability is present.  The
	// flag is fixed for the process lifetime: a session either has structure
	// support from the start or not at all.
	Available() bool

	// Validate checks one notation string and computes its descriptors.
	Validate(ctx context.Context, notation string) (molecule.Verdict, error)

	// Render produces a PNG depiction for a validated candidate.
	Render(ctx context.Context, c *molecule.Candidate) ([]byte, error)
}

// validator is the production implementation, backed by the in-process SMILES
// engine and the gg renderer.
type validator struct {
	available bool
	renderer  *Renderer
	logger    logging.Logger
}

// Option configures the validator.
type Option func(*validator)

// WithDisabledEngine marks the chemistry capability as absent.  Every call to
// Validate or Render then fails with the validator-unavailable sentinel.
// Exists for deployments that strip the depiction stack and for tests.
func WithDisabledEngine() Option {
	return func(v *validator) { v.available = false }
}

// NewValidator constructs the production validator.
func NewValidator(renderer *Renderer, logger logging.Logger, opts ...Option) Validator {
	v := &validator{
		available: true,
		renderer:  renderer,
		logger:    logger.Named("chem.validator"),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *validator) Available() bool { return v.available }

func (v *validator) unavailable() error {
	return apperrors.New(apperrors.ErrCodeValidatorUnavailable,
		"molecule validator unavailable")
}

func (v *validator) Validate(ctx context.Context, notation string) (molecule.Verdict, error) {
	if !v.available {
		return molecule.Verdict{}, v.unavailable()
	}
	if err := ctx.Err(); err != nil {
		return molecule.Verdict{}, apperrors.Wrap(err, apperrors.ErrCodeTimeout, "validation cancelled")
	}
	verdict := molecule.Validate(notation)
	if !verdict.Valid {
		v.logger.Debug("notation rejected",
			logging.String("reason", verdict.Reason))
	}
	return verdict, nil
}

func (v *validator) Render(ctx context.Context, c *molecule.Candidate) ([]byte, error) {
	if !v.available {
		return nil, v.unavailable()
	}
	if c == nil {
		return nil, apperrors.InvalidParam("candidate cannot be nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeTimeout, "rendering cancelled")
	}
	return v.renderer.RenderCandidate(c)
}
