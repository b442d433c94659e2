// Package molecule provides the domain model for AI-generated molecule
// candidates: structural validation of SMILES notation, deterministic
// physicochemical descriptors, and commercial-availability classification.
package molecule

import (
	"strings"

	"github.com/turtacn/ChemScribe/pkg/errors"
)

// AvailabilityLevel classifies how easily a candidate can be obtained.
type AvailabilityLevel string

const (
	// AvailabilityReady means the compound is catalogued by major suppliers.
	AvailabilityReady AvailabilityLevel = "readily_available"
	// AvailabilityPossible means some supplier evidence exists.
	AvailabilityPossible AvailabilityLevel = "possibly_available"
	// AvailabilitySynthesis means the compound likely requires custom synthesis.
	AvailabilitySynthesis AvailabilityLevel = "synthesis_required"
	// AvailabilityUnknown means no lookup was performed.
	AvailabilityUnknown AvailabilityLevel = "unknown"
)

// Availability is the result of the external availability lookup.
type Availability struct {
	Level AvailabilityLevel `json:"level"`
	// Score is the accumulated evidence score the level was derived from.
	Score int `json:"score"`
	// SimilarCompound names a purchasable near-neighbour suggested when the
	// candidate itself scored below the possibly-available threshold.
	SimilarCompound string `json:"similar_compound,omitempty"`
}

// Properties holds the deterministic descriptors computed for a valid
// candidate.  Identical notation always yields identical Properties.
type Properties struct {
	MolecularWeight float64 `json:"molecular_weight"`
	HeavyAtoms      int     `json:"heavy_atoms"`
	HydrogenCount   int     `json:"hydrogen_count"`
	HBondDonors     int     `json:"h_bond_donors"`
	HBondAcceptors  int     `json:"h_bond_acceptors"`
	RingCount       int     `json:"ring_count"`
	// LogP is a fragment-count solubility proxy, not a calibrated partition
	// coefficient.  It exists to drive the rule-of-five screen.
	LogP           float64 `json:"log_p"`
	RuleOfFivePass bool    `json:"rule_of_five_pass"`
}

// Verdict is the outcome of validating one notation string.  Malformed input
// yields Valid=false with a reason; it is never an error.
type Verdict struct {
	Valid      bool       `json:"valid"`
	Reason     string     `json:"reason,omitempty"`
	Properties Properties `json:"properties,omitempty"`
}

// Candidate is a validated molecule proposal held by a research session while
// it awaits user review.  Validity is derived, not stored: the workflow
// re-validates the notation each time a candidate is produced.
type Candidate struct {
	SMILES string `json:"smiles"`
	Name   string `json:"name"`
	// Depiction stays in the snapshot (base64) so assembly can embed it after
	// a persistence round-trip.
	Depiction    []byte       `json:"depiction,omitempty"`
	Properties   Properties   `json:"properties"`
	Availability Availability `json:"availability"`
}

// NewCandidate constructs a Candidate after validating the notation.
// The name defaults to the notation itself when the AI response provided none.
func NewCandidate(smiles, name string) (*Candidate, error) {
	smiles = strings.TrimSpace(smiles)
	v := Validate(smiles)
	if !v.Valid {
		return nil, errors.New(errors.ErrCodeMoleculeInvalidSMILES, v.Reason).
			WithDetail("smiles=" + smiles)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = smiles
	}
	return &Candidate{
		SMILES:       smiles,
		Name:         name,
		Properties:   v.Properties,
		Availability: Availability{Level: AvailabilityUnknown},
	}, nil
}

// Validate checks a notation string structurally and, when it parses, computes
// its descriptors.  The function is pure: no I/O, no randomness, no clock.
func Validate(notation string) Verdict {
	notation = strings.TrimSpace(notation)
	if notation == "" {
		return Verdict{Valid: false, Reason: "notation is empty"}
	}
	m, err := parseSMILES(notation)
	if err != nil {
		return Verdict{Valid: false, Reason: err.Error()}
	}
	return Verdict{Valid: true, Properties: computeProperties(m)}
}

// computeProperties derives the descriptor set from a parsed molecule.
func computeProperties(m *parsedMolecule) Properties {
	var p Properties
	var weight float64
	totalH := 0

	for _, a := range m.atoms {
		weight += atomicWeights[a.symbol]
		h := implicitHydrogens(a)
		totalH += h
		if a.symbol != "*" && a.symbol != "H" {
			p.HeavyAtoms++
		}
		switch a.symbol {
		case "N", "O":
			p.HBondAcceptors++
			if h > 0 {
				p.HBondDonors++
			}
		case "C":
			p.LogP += 0.5
		case "F":
			p.LogP += 0.2
		case "Cl":
			p.LogP += 0.7
		case "Br":
			p.LogP += 0.9
		case "I":
			p.LogP += 1.1
		}
	}
	p.LogP -= 0.7 * float64(p.HBondAcceptors)
	p.MolecularWeight = weight + 1.008*float64(totalH)
	p.HydrogenCount = totalH
	p.RingCount = m.ringBonds

	p.RuleOfFivePass = p.MolecularWeight <= 500 &&
		p.HBondDonors <= 5 &&
		p.HBondAcceptors <= 10 &&
		p.LogP <= 5
	return p
}
