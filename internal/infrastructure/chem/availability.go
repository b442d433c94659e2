package chem

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/ChemScribe/internal/domain/molecule"
	"github.com/turtacn/ChemScribe/internal/infrastructure/monitoring/logging"
)

// Availability evidence scores and classification thresholds.
const (
	scorePubChemHit   = 50
	scoreCommercial   = 30
	scoreCactusHit    = 20
	thresholdReady    = 70
	thresholdPossible = 40
)

// Similar-compound lookup parameters: only neighbours with at least 80%
// Tanimoto similarity count, and a handful of hits is enough to pick a title.
const (
	similarityThreshold  = 80
	similarityMaxRecords = 5
)

// commercialIndicators are synonym substrings that suggest catalogue listings
// at chemical suppliers.
var commercialIndicators = []string{
	"sigma", "aldrich", "merck", "tci", "alfa", "acros", "fluka", "supelco",
}

// AvailabilityScorer classifies how obtainable a candidate is by querying
// PubChem and the NCI Cactus resolver.  All lookups are best effort: a dead
// upstream contributes zero evidence instead of failing the candidate.
type AvailabilityScorer struct {
	pubchemURL string
	cactusURL  string
	client     *http.Client
	logger     logging.Logger
}

// NewAvailabilityScorer constructs the scorer.
func NewAvailabilityScorer(pubchemURL, cactusURL string, timeout time.Duration, logger logging.Logger) *AvailabilityScorer {
	return &AvailabilityScorer{
		pubchemURL: strings.TrimRight(pubchemURL, "/"),
		cactusURL:  strings.TrimRight(cactusURL, "/"),
		client:     &http.Client{Timeout: timeout},
		logger:     logger.Named("chem.availability"),
	}
}

// Score accumulates supplier evidence for a candidate and derives its
// availability level.  Lookups run in parallel; candidates scoring below the
// possibly-available threshold additionally get a similar purchasable
// compound suggestion when PubChem knows one.
func (s *AvailabilityScorer) Score(ctx context.Context, c *molecule.Candidate) molecule.Availability {
	var (
		cid       string
		synonyms  []string
		cactusHit bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cid = s.pubchemCID(gctx, c)
		if cid != "" {
			synonyms = s.pubchemSynonyms(gctx, cid)
		}
		return nil
	})
	g.Go(func() error {
		cactusHit = s.cactusResolves(gctx, c.SMILES)
		return nil
	})
	_ = g.Wait() // lookups never return errors, only missing evidence

	score := 0
	if cid != "" {
		score += scorePubChemHit
	}
	if hasCommercialSynonym(synonyms) {
		score += scoreCommercial
	}
	if cactusHit {
		score += scoreCactusHit
	}

	av := molecule.Availability{Score: score}
	switch {
	case score >= thresholdReady:
		av.Level = molecule.AvailabilityReady
	case score >= thresholdPossible:
		av.Level = molecule.AvailabilityPossible
	default:
		av.Level = molecule.AvailabilitySynthesis
	}

	// Without a direct PubChem hit the candidate is probably not catalogued;
	// offer a purchasable near-neighbour instead.
	if score < scorePubChemHit {
		av.SimilarCompound = s.similarCompound(ctx, c.SMILES)
	}

	s.logger.Info("availability scored",
		logging.String("smiles", c.SMILES),
		logging.Int("score", score),
		logging.String("level", string(av.Level)))
	return av
}

// pubchemCID looks up the compound by SMILES, falling back to name search.
func (s *AvailabilityScorer) pubchemCID(ctx context.Context, c *molecule.Candidate) string {
	endpoints := []string{
		fmt.Sprintf("%s/compound/smiles/%s/cids/JSON", s.pubchemURL, url.PathEscape(c.SMILES)),
	}
	if c.Name != "" && c.Name != c.SMILES {
		endpoints = append(endpoints,
			fmt.Sprintf("%s/compound/name/%s/cids/JSON", s.pubchemURL, url.PathEscape(c.Name)))
	}
	for _, endpoint := range endpoints {
		raw, ok := s.get(ctx, endpoint)
		if !ok {
			continue
		}
		var parsed struct {
			IdentifierList struct {
				CID []int64 `json:"CID"`
			} `json:"IdentifierList"`
		}
		if json.Unmarshal(raw, &parsed) == nil && len(parsed.IdentifierList.CID) > 0 {
			return fmt.Sprintf("%d", parsed.IdentifierList.CID[0])
		}
	}
	return ""
}

// pubchemSynonyms fetches the synonym list for a CID.
func (s *AvailabilityScorer) pubchemSynonyms(ctx context.Context, cid string) []string {
	raw, ok := s.get(ctx, fmt.Sprintf("%s/compound/cid/%s/synonyms/JSON", s.pubchemURL, cid))
	if !ok {
		return nil
	}
	var parsed struct {
		InformationList struct {
			Information []struct {
				Synonym []string `json:"Synonym"`
			} `json:"Information"`
		} `json:"InformationList"`
	}
	if json.Unmarshal(raw, &parsed) != nil || len(parsed.InformationList.Information) == 0 {
		return nil
	}
	return parsed.InformationList.Information[0].Synonym
}

// cactusResolves checks whether the NCI resolver recognises the notation.
func (s *AvailabilityScorer) cactusResolves(ctx context.Context, smiles string) bool {
	_, ok := s.get(ctx, fmt.Sprintf("%s/%s/iupac_name", s.cactusURL, url.PathEscape(smiles)))
	return ok
}

// similarCompound asks PubChem for a near-neighbour by 2D similarity and
// returns its title, or empty when nothing purchasable is known.
func (s *AvailabilityScorer) similarCompound(ctx context.Context, smiles string) string {
	raw, ok := s.get(ctx, fmt.Sprintf(
		"%s/compound/fastsimilarity_2d/smiles/%s/cids/JSON?Threshold=%d&MaxRecords=%d",
		s.pubchemURL, url.PathEscape(smiles), similarityThreshold, similarityMaxRecords))
	if !ok {
		return ""
	}
	var parsed struct {
		IdentifierList struct {
			CID []int64 `json:"CID"`
		} `json:"IdentifierList"`
	}
	if json.Unmarshal(raw, &parsed) != nil || len(parsed.IdentifierList.CID) == 0 {
		return ""
	}
	cid := parsed.IdentifierList.CID[0]

	raw, ok = s.get(ctx, fmt.Sprintf(
		"%s/compound/cid/%d/property/Title/JSON", s.pubchemURL, cid))
	if !ok {
		return ""
	}
	var props struct {
		PropertyTable struct {
			Properties []struct {
				Title string `json:"Title"`
			} `json:"Properties"`
		} `json:"PropertyTable"`
	}
	if json.Unmarshal(raw, &props) != nil || len(props.PropertyTable.Properties) == 0 {
		return ""
	}
	return props.PropertyTable.Properties[0].Title
}

// get performs one lookup, treating every failure as missing evidence.
func (s *AvailabilityScorer) get(ctx context.Context, endpoint string) ([]byte, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, false
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, false
	}
	return raw, true
}

func hasCommercialSynonym(synonyms []string) bool {
	for _, syn := range synonyms {
		lower := strings.ToLower(syn)
		for _, ind := range commercialIndicators {
			if strings.Contains(lower, ind) {
				return true
			}
		}
	}
	return false
}
