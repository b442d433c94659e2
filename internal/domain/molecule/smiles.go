package molecule

import (
	"fmt"
	"regexp"
	"strings"
)

// validNotationChars defines the allowed character set for SMILES notation.
// Anything outside it is rejected before tokenization.
var validNotationChars = regexp.MustCompile(`^[A-Za-z0-9@+\-\[\]()=#$:/.\\%*]+$`)

// validElements lists recognised element symbols for bracket atoms.
var validElements = map[string]bool{
	"H": true, "He": true, "Li": true, "Be": true, "B": true, "C": true,
	"N": true, "O": true, "F": true, "Ne": true, "Na": true, "Mg": true,
	"Al": true, "Si": true, "P": true, "S": true, "Cl": true, "Ar": true,
	"K": true, "Ca": true, "Sc": true, "Ti": true, "V": true, "Cr": true,
	"Mn": true, "Fe": true, "Co": true, "Ni": true, "Cu": true, "Zn": true,
	"Ga": true, "Ge": true, "As": true, "Se": true, "Br": true, "Kr": true,
	"Rb": true, "Sr": true, "Y": true, "Zr": true, "Nb": true, "Mo": true,
	"Tc": true, "Ru": true, "Rh": true, "Pd": true, "Ag": true, "Cd": true,
	"In": true, "Sn": true, "Sb": true, "Te": true, "I": true, "Xe": true,
	"Cs": true, "Ba": true, "La": true, "Ce": true, "Pt": true, "Au": true,
	"Hg": true, "Tl": true, "Pb": true, "Bi": true, "W": true, "Re": true,
	"Os": true, "Ir": true, "U": true,
}

// organicSubset lists atoms that may appear outside brackets, per the SMILES
// organic subset.  Two-character symbols must be checked before single ones.
var organicSubset = map[string]bool{
	"B": true, "C": true, "N": true, "O": true, "P": true, "S": true,
	"F": true, "Cl": true, "Br": true, "I": true,
}

// aromaticSubset lists lowercase aromatic atoms allowed outside brackets.
var aromaticSubset = map[string]bool{
	"b": true, "c": true, "n": true, "o": true, "p": true, "s": true,
}

// atomicWeights holds standard atomic weights for elements the parser is
// expected to encounter.  Unlisted elements contribute zero, which keeps the
// computation total rather than failing on exotic bracket atoms.
var atomicWeights = map[string]float64{
	"H": 1.008, "B": 10.811, "C": 12.011, "N": 14.007, "O": 15.999,
	"F": 18.998, "Na": 22.990, "Mg": 24.305, "Al": 26.982, "Si": 28.086,
	"P": 30.974, "S": 32.06, "Cl": 35.45, "K": 39.098, "Ca": 40.078,
	"Fe": 55.845, "Cu": 63.546, "Zn": 65.38, "Se": 78.971, "Br": 79.904,
	"Ag": 107.868, "Sn": 118.710, "I": 126.904, "Pt": 195.084, "Au": 196.967,
	"Hg": 200.592, "Pb": 207.2,
}

// defaultValences gives the standard valence used to derive implicit hydrogen
// counts for organic-subset atoms.
var defaultValences = map[string]int{
	"B": 3, "C": 4, "N": 3, "O": 2, "P": 3, "S": 2,
	"F": 1, "Cl": 1, "Br": 1, "I": 1,
}

// parsedAtom is one atom produced by the tokenizer, with enough detail to
// derive implicit hydrogens deterministically.
type parsedAtom struct {
	symbol    string // uppercase element symbol, "*" for wildcard
	aromatic  bool
	bracket   bool
	explicitH int
	charge    int
	bondSum   int // sum of bond orders to neighbours
}

// parsedMolecule is the tokenizer output used for property computation.
type parsedMolecule struct {
	atoms     []parsedAtom
	ringBonds int
}

type ringOpening struct {
	atomIdx int
	bond    int
}

// parseSMILES tokenizes a SMILES string into atoms and bonds.  It implements
// the organic subset, bracket atoms with isotope/chirality/H-count/charge,
// branches, all bond symbols and one- and two-digit ring closures.  It is a
// structural parser, not a full chemistry engine: it rejects syntactically
// broken input but does not check valence plausibility.
func parseSMILES(s string) (*parsedMolecule, error) {
	if s == "" {
		return nil, fmt.Errorf("empty notation")
	}
	if !validNotationChars.MatchString(s) {
		return nil, fmt.Errorf("notation contains characters outside the SMILES alphabet")
	}

	m := &parsedMolecule{}
	prev := -1
	var stack []int
	pendingBond := 0
	rings := map[string]ringOpening{}

	addAtom := func(a parsedAtom) {
		idx := len(m.atoms)
		if prev >= 0 {
			order := pendingBond
			if order == 0 {
				order = 1
			}
			m.atoms[prev].bondSum += order
			a.bondSum += order
		}
		pendingBond = 0
		m.atoms = append(m.atoms, a)
		prev = idx
	}

	closeRing := func(label string) error {
		if prev < 0 {
			return fmt.Errorf("ring closure %q before any atom", label)
		}
		if open, ok := rings[label]; ok {
			order := pendingBond
			if order == 0 {
				order = open.bond
			}
			if order == 0 {
				order = 1
			}
			m.atoms[open.atomIdx].bondSum += order
			m.atoms[prev].bondSum += order
			m.ringBonds++
			delete(rings, label)
		} else {
			rings[label] = ringOpening{atomIdx: prev, bond: pendingBond}
		}
		pendingBond = 0
		return nil
	}

	i := 0
	for i < len(s) {
		ch := s[i]
		switch {
		case ch == '(':
			if prev < 0 {
				return nil, fmt.Errorf("branch opened before any atom")
			}
			stack = append(stack, prev)
			i++
		case ch == ')':
			if len(stack) == 0 {
				return nil, fmt.Errorf("unbalanced parentheses")
			}
			prev = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			i++
		case ch == '.':
			prev = -1
			pendingBond = 0
			i++
		case ch == '-':
			pendingBond = 1
			i++
		case ch == '=':
			pendingBond = 2
			i++
		case ch == '#':
			pendingBond = 3
			i++
		case ch == '$':
			pendingBond = 4
			i++
		case ch == ':' || ch == '/' || ch == '\\':
			pendingBond = 1
			i++
		case ch == '%':
			if i+2 >= len(s) || !isDigit(s[i+1]) || !isDigit(s[i+2]) {
				return nil, fmt.Errorf("malformed two-digit ring closure at position %d", i)
			}
			if err := closeRing(s[i+1 : i+3]); err != nil {
				return nil, err
			}
			i += 3
		case isDigit(ch):
			if err := closeRing(string(ch)); err != nil {
				return nil, err
			}
			i++
		case ch == '[':
			atom, width, err := parseBracketAtom(s[i:])
			if err != nil {
				return nil, err
			}
			addAtom(atom)
			i += width
		case ch == '*':
			addAtom(parsedAtom{symbol: "*"})
			i++
		case ch >= 'A' && ch <= 'Z':
			// Two-character organic subset symbols first (Cl, Br).
			if i+1 < len(s) && organicSubset[s[i:i+2]] {
				addAtom(parsedAtom{symbol: s[i : i+2]})
				i += 2
				break
			}
			sym := string(ch)
			if !organicSubset[sym] {
				return nil, fmt.Errorf("atom %q must be written in brackets", sym)
			}
			addAtom(parsedAtom{symbol: sym})
			i++
		case ch >= 'a' && ch <= 'z':
			sym := string(ch)
			if !aromaticSubset[sym] {
				return nil, fmt.Errorf("unknown aromatic atom %q", sym)
			}
			addAtom(parsedAtom{symbol: strings.ToUpper(sym), aromatic: true})
			i++
		default:
			return nil, fmt.Errorf("unexpected character %q at position %d", ch, i)
		}
	}

	if len(stack) != 0 {
		return nil, fmt.Errorf("unbalanced parentheses")
	}
	if len(rings) != 0 {
		labels := make([]string, 0, len(rings))
		for l := range rings {
			labels = append(labels, l)
		}
		return nil, fmt.Errorf("unmatched ring closure %s", strings.Join(labels, ","))
	}
	if len(m.atoms) == 0 {
		return nil, fmt.Errorf("notation contains no atoms")
	}
	return m, nil
}

// parseBracketAtom parses an atom expression starting at "[" and returns the
// atom plus the number of bytes consumed including the closing bracket.
func parseBracketAtom(s string) (parsedAtom, int, error) {
	end := strings.IndexByte(s, ']')
	if end < 0 {
		return parsedAtom{}, 0, fmt.Errorf("unterminated bracket atom")
	}
	body := s[1:end]
	j := 0

	// Optional isotope.
	for j < len(body) && isDigit(body[j]) {
		j++
	}
	if j >= len(body) {
		return parsedAtom{}, 0, fmt.Errorf("bracket atom %q has no element symbol", s[:end+1])
	}

	a := parsedAtom{bracket: true}
	switch {
	case body[j] == '*':
		a.symbol = "*"
		j++
	case body[j] >= 'a' && body[j] <= 'z':
		sym := string(body[j])
		if !aromaticSubset[sym] && sym != "h" {
			return parsedAtom{}, 0, fmt.Errorf("unknown aromatic atom %q in bracket", sym)
		}
		a.symbol = strings.ToUpper(sym)
		a.aromatic = true
		j++
	default:
		sym := string(body[j])
		j++
		if j < len(body) && body[j] >= 'a' && body[j] <= 'z' && validElements[sym+string(body[j])] {
			sym += string(body[j])
			j++
		}
		if !validElements[sym] {
			return parsedAtom{}, 0, fmt.Errorf("unknown element %q in bracket atom", sym)
		}
		a.symbol = sym
	}

	for j < len(body) {
		switch body[j] {
		case '@':
			j++
		case 'H':
			j++
			n := 1
			if j < len(body) && isDigit(body[j]) {
				n = int(body[j] - '0')
				j++
			}
			a.explicitH = n
		case '+', '-':
			sign := 1
			if body[j] == '-' {
				sign = -1
			}
			j++
			if j < len(body) && isDigit(body[j]) {
				a.charge = sign * int(body[j]-'0')
				j++
			} else {
				a.charge = sign
				// Repeated signs ("++") accumulate.
				for j < len(body) && (body[j] == '+' || body[j] == '-') {
					a.charge += sign
					j++
				}
			}
		case ':':
			// Atom class, digits only.
			j++
			for j < len(body) && isDigit(body[j]) {
				j++
			}
		default:
			return parsedAtom{}, 0, fmt.Errorf("unexpected %q in bracket atom", body[j])
		}
	}
	return a, end + 1, nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// implicitHydrogens returns the hydrogen count for one atom.  Bracket atoms
// carry an explicit count; organic-subset atoms fill their default valence.
// Aromatic C and N lose one valence slot to the delocalised ring system.
func implicitHydrogens(a parsedAtom) int {
	if a.bracket {
		return a.explicitH
	}
	v, ok := defaultValences[a.symbol]
	if !ok {
		return 0
	}
	if a.aromatic && (a.symbol == "C" || a.symbol == "N") {
		v--
	}
	h := v - a.bondSum
	if h < 0 {
		return 0
	}
	return h
}
