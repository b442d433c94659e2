package chem

import (
	"bytes"
	"context"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemScribe/internal/domain/molecule"
	"github.com/turtacn/ChemScribe/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/ChemScribe/pkg/errors"
)

func newTestValidator(opts ...Option) Validator {
	return NewValidator(NewRenderer(320, 240), logging.NewNopLogger(), opts...)
}

func TestValidator_ValidNotation(t *testing.T) {
	v := newTestValidator()
	verdict, err := v.Validate(context.Background(), "CCO")
	require.NoError(t, err)
	assert.True(t, verdict.Valid)
	assert.InDelta(t, 46.07, verdict.Properties.MolecularWeight, 0.05)
}

func TestValidator_MalformedNotationIsVerdictNotError(t *testing.T) {
	v := newTestValidator()
	verdict, err := v.Validate(context.Background(), "C1CC")
	require.NoError(t, err)
	assert.False(t, verdict.Valid)
	assert.NotEmpty(t, verdict.Reason)
}

func TestValidator_Unavailable(t *testing.T) {
	v := newTestValidator(WithDisabledEngine())
	assert.False(t, v.Available())

	_, err := v.Validate(context.Background(), "CCO")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidatorUnavailable))

	_, err = v.Render(context.Background(), &molecule.Candidate{SMILES: "CCO"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidatorUnavailable))
}

func TestValidator_Idempotent(t *testing.T) {
	v := newTestValidator()
	first, err := v.Validate(context.Background(), "CC(=O)Oc1ccccc1C(=O)O")
	require.NoError(t, err)
	second, err := v.Validate(context.Background(), "CC(=O)Oc1ccccc1C(=O)O")
	require.NoError(t, err)
	assert.Equal(t, first.Properties, second.Properties)
}

func TestRenderer_ProducesDecodablePNG(t *testing.T) {
	c, err := molecule.NewCandidate("c1ccccc1O", "phenol")
	require.NoError(t, err)

	v := newTestValidator()
	data, err := v.Render(context.Background(), c)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 320, img.Bounds().Dx())
	assert.Equal(t, 240, img.Bounds().Dy())
}

func TestRenderer_Deterministic(t *testing.T) {
	c, err := molecule.NewCandidate("CCO", "ethanol")
	require.NoError(t, err)

	r := NewRenderer(320, 240)
	first, err := r.RenderCandidate(c)
	require.NoError(t, err)
	second, err := r.RenderCandidate(c)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func availabilityServer(t *testing.T, cidHit, synonyms, cactusHit bool) (*httptest.Server, *AvailabilityScorer) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case strings.Contains(path, "/fastsimilarity_2d/"):
			w.Write([]byte(`{"IdentifierList":{"CID":[702]}}`))
		case strings.Contains(path, "/property/Title/"):
			w.Write([]byte(`{"PropertyTable":{"Properties":[{"Title":"Ethanol"}]}}`))
		case strings.Contains(path, "/cids/"):
			if !cidHit {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write([]byte(`{"IdentifierList":{"CID":[702]}}`))
		case strings.Contains(path, "/synonyms/"):
			if !synonyms {
				w.Write([]byte(`{"InformationList":{"Information":[{"Synonym":["ethanol"]}]}}`))
				return
			}
			w.Write([]byte(`{"InformationList":{"Information":[{"Synonym":["ethanol","Sigma-Aldrich E7023"]}]}}`))
		case strings.Contains(path, "/iupac_name"):
			if !cactusHit {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write([]byte("ethanol"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	scorer := NewAvailabilityScorer(srv.URL, srv.URL, 5*time.Second, logging.NewNopLogger())
	return srv, scorer
}

func TestAvailabilityScorer_Ready(t *testing.T) {
	srv, scorer := availabilityServer(t, true, true, true)
	defer srv.Close()

	c, err := molecule.NewCandidate("CCO", "ethanol")
	require.NoError(t, err)

	av := scorer.Score(context.Background(), c)
	assert.Equal(t, molecule.AvailabilityReady, av.Level)
	assert.Equal(t, 100, av.Score)
	assert.Empty(t, av.SimilarCompound)
}

func TestAvailabilityScorer_Possible(t *testing.T) {
	srv, scorer := availabilityServer(t, true, false, false)
	defer srv.Close()

	c, err := molecule.NewCandidate("CCO", "ethanol")
	require.NoError(t, err)

	av := scorer.Score(context.Background(), c)
	assert.Equal(t, molecule.AvailabilityPossible, av.Level)
	assert.Equal(t, 50, av.Score)
	// A direct PubChem hit is evidence enough; no neighbour suggestion.
	assert.Empty(t, av.SimilarCompound)
}

func TestAvailabilityScorer_SynthesisRequired(t *testing.T) {
	srv, scorer := availabilityServer(t, false, false, false)
	defer srv.Close()

	c, err := molecule.NewCandidate("CCO", "ethanol")
	require.NoError(t, err)

	av := scorer.Score(context.Background(), c)
	assert.Equal(t, molecule.AvailabilitySynthesis, av.Level)
	assert.Equal(t, 0, av.Score)
	// Low scores fall back to a purchasable near-neighbour suggestion.
	assert.Equal(t, "Ethanol", av.SimilarCompound)
}

func TestAvailabilityScorer_SimilarityLookupParameters(t *testing.T) {
	var query url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/fastsimilarity_2d/") {
			query = r.URL.Query()
			w.Write([]byte(`{"IdentifierList":{"CID":[702]}}`))
			return
		}
		if strings.Contains(r.URL.Path, "/property/Title/") {
			w.Write([]byte(`{"PropertyTable":{"Properties":[{"Title":"Ethanol"}]}}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	scorer := NewAvailabilityScorer(srv.URL, srv.URL, 5*time.Second, logging.NewNopLogger())
	c, err := molecule.NewCandidate("CCO", "ethanol")
	require.NoError(t, err)

	av := scorer.Score(context.Background(), c)
	assert.Equal(t, "Ethanol", av.SimilarCompound)
	// Loose neighbours are noise: require 80% 2D similarity, a few hits only.
	require.NotNil(t, query)
	assert.Equal(t, "80", query.Get("Threshold"))
	assert.Equal(t, "5", query.Get("MaxRecords"))
}

func TestAvailabilityScorer_DeadUpstreamIsZeroEvidence(t *testing.T) {
	scorer := NewAvailabilityScorer("http://127.0.0.1:1", "http://127.0.0.1:1",
		200*time.Millisecond, logging.NewNopLogger())
	c, err := molecule.NewCandidate("CCO", "ethanol")
	require.NoError(t, err)

	av := scorer.Score(context.Background(), c)
	assert.Equal(t, molecule.AvailabilitySynthesis, av.Level)
}
