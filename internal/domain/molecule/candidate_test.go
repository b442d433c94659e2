package molecule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_AcceptsWellFormedNotation(t *testing.T) {
	tests := []struct {
		name    string
		smiles  string
		weight  float64
		hDonors int
		hAccept int
		rings   int
	}{
		{"ethanol", "CCO", 46.07, 1, 1, 0},
		{"benzene", "c1ccccc1", 78.11, 0, 0, 1},
		{"aspirin", "CC(=O)Oc1ccccc1C(=O)O", 180.16, 1, 4, 1},
		{"acetonitrile", "CC#N", 41.05, 0, 1, 0},
		{"nitromethane", "C[N+](=O)[O-]", 61.04, 0, 3, 0},
		{"naphthalene", "c1ccc2ccccc2c1", 128.17, 0, 0, 2},
		{"chloroform", "C(Cl)(Cl)Cl", 119.37, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Validate(tt.smiles)
			require.True(t, v.Valid, v.Reason)
			assert.InDelta(t, tt.weight, v.Properties.MolecularWeight, 0.05)
			assert.Equal(t, tt.hDonors, v.Properties.HBondDonors)
			assert.Equal(t, tt.hAccept, v.Properties.HBondAcceptors)
			assert.Equal(t, tt.rings, v.Properties.RingCount)
		})
	}
}

func TestValidate_RejectsMalformedNotation(t *testing.T) {
	tests := []struct {
		name   string
		smiles string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"unbalanced parens", "CC(=O"},
		{"unterminated bracket", "C[NH2"},
		{"unmatched ring closure", "C1CC"},
		{"unknown aromatic atom", "c1ccccx1"},
		{"bare two-letter metal", "FeO"},
		{"illegal characters", "CC!O"},
		{"prose not notation", "the molecule is ethanol"},
		{"bond before atom", "(CC)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Validate(tt.smiles)
			assert.False(t, v.Valid)
			assert.NotEmpty(t, v.Reason)
		})
	}
}

// Identical notation must always produce identical descriptors.
func TestValidate_Idempotent(t *testing.T) {
	inputs := []string{"CCO", "c1ccccc1O", "CC(=O)Oc1ccccc1C(=O)O", "C[N+](=O)[O-]"}
	for _, smiles := range inputs {
		first := Validate(smiles)
		second := Validate(smiles)
		require.True(t, first.Valid)
		assert.Equal(t, first.Properties, second.Properties, smiles)
	}
}

func TestValidate_RuleOfFive(t *testing.T) {
	small := Validate("CCO")
	require.True(t, small.Valid)
	assert.True(t, small.Properties.RuleOfFivePass)

	// A long perfluorinated chain blows through the LogP ceiling.
	greasy := Validate("CCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC")
	require.True(t, greasy.Valid)
	assert.False(t, greasy.Properties.RuleOfFivePass)
}

func TestValidate_BracketAtoms(t *testing.T) {
	v := Validate("[13CH4]")
	require.True(t, v.Valid, v.Reason)
	assert.Equal(t, 4, v.Properties.HydrogenCount)

	v = Validate("[Na+].[Cl-]")
	require.True(t, v.Valid, v.Reason)
	assert.Equal(t, 2, v.Properties.HeavyAtoms)
	assert.Equal(t, 0, v.Properties.RingCount)
}

func TestValidate_TwoDigitRingClosure(t *testing.T) {
	// Same ring expressed with %10 labels.
	v := Validate("C%10CCCCC%10")
	require.True(t, v.Valid, v.Reason)
	assert.Equal(t, 1, v.Properties.RingCount)
}

func TestNewCandidate(t *testing.T) {
	c, err := NewCandidate(" CCO ", "ethanol")
	require.NoError(t, err)
	assert.Equal(t, "CCO", c.SMILES)
	assert.Equal(t, "ethanol", c.Name)
	assert.Equal(t, AvailabilityUnknown, c.Availability.Level)
	assert.InDelta(t, 46.07, c.Properties.MolecularWeight, 0.05)
}

func TestNewCandidate_DefaultsNameToNotation(t *testing.T) {
	c, err := NewCandidate("c1ccccc1", "")
	require.NoError(t, err)
	assert.Equal(t, "c1ccccc1", c.Name)
}

func TestNewCandidate_RejectsInvalidNotation(t *testing.T) {
	_, err := NewCandidate("C1CC", "broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MOL_001")
}
