package molecule

import (
	"regexp"
	"strings"

	"github.com/turtacn/ChemScribe/pkg/errors"
)

// StructureReply is the parsed form of an AI structure-generation response.
type StructureReply struct {
	SMILES string
	Name   string
	Source string
}

// smilesScrub removes every character that cannot appear in SMILES notation.
// Models wrap notation in markdown fences, backticks and stray prose; the
// scrub recovers the notation without guessing at intent.
var smilesScrub = regexp.MustCompile(`[^A-Za-z0-9@+\-\[\]()=#$:/.\\%*]`)

// labelLine matches "LABEL: value" with optional markdown bold markers.
var labelLine = regexp.MustCompile(`(?i)^\**\s*(SMILES|NAME|SOURCE)\s*\**\s*:\s*(.*)$`)

// ParseStructureReply extracts the SMILES/NAME/SOURCE fields from a raw model
// response.  The prompt demands one field per line; the parser is tolerant of
// surrounding prose, markdown decoration and missing optional fields, but a
// response with no recoverable SMILES line is malformed.
func ParseStructureReply(raw string) (StructureReply, error) {
	var reply StructureReply
	for _, line := range strings.Split(raw, "\n") {
		m := labelLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		value := strings.TrimSpace(m[2])
		switch strings.ToUpper(m[1]) {
		case "SMILES":
			reply.SMILES = smilesScrub.ReplaceAllString(value, "")
		case "NAME":
			reply.Name = strings.Trim(value, "*` ")
		case "SOURCE":
			reply.Source = strings.Trim(value, "*` ")
		}
	}
	if reply.SMILES == "" {
		return StructureReply{}, errors.New(errors.ErrCodeMoleculeResponseMalformed,
			"response did not contain a SMILES line").
			WithDetail("raw=" + truncateForDetail(raw))
	}
	return reply, nil
}

func truncateForDetail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
