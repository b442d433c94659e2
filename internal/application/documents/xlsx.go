package documents

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/turtacn/ChemScribe/internal/domain/session"
	apperrors "github.com/turtacn/ChemScribe/pkg/errors"
)

// dataSheet is the name of the experiment-log worksheet.
const dataSheet = "Experiment Log"

// dataColumns are the headers of the experiment-log template, one row per
// planned run.
var dataColumns = []string{
	"Run", "Date", "Operator", "Target SMILES", "Scale (mmol)",
	"Solvent", "Temperature (C)", "Time (h)", "Yield (%)", "Purity (%)", "Notes",
}

// buildDataTemplate produces the spreadsheet researchers fill in while
// executing the proposal.  The header block records the session context; the
// log sheet is pre-seeded with ten numbered runs.
func buildDataTemplate(s *session.ResearchSession) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const overview = "Overview"
	f.SetSheetName(f.GetSheetName(0), overview)

	meta := [][]interface{}{
		{"Research topic", s.Topic},
		{"Session", string(s.ID)},
		{"Target molecule", s.Candidate.Name},
		{"SMILES", s.Candidate.SMILES},
		{"Molecular weight", s.Candidate.Properties.MolecularWeight},
		{"Availability", string(s.Candidate.Availability.Level)},
	}
	for i, row := range meta {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(overview, cell, &row); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeTemplateError, "failed to write overview row")
		}
	}

	idx, err := f.NewSheet(dataSheet)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeTemplateError, "failed to create log sheet")
	}
	header := make([]interface{}, len(dataColumns))
	for i, c := range dataColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(dataSheet, "A1", &header); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeTemplateError, "failed to write header row")
	}
	for run := 1; run <= 10; run++ {
		cell := fmt.Sprintf("A%d", run+1)
		row := []interface{}{run, "", "", s.Candidate.SMILES}
		if err := f.SetSheetRow(dataSheet, cell, &row); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeTemplateError, "failed to write run row")
		}
	}
	f.SetActiveSheet(idx)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeTemplateError, "failed to encode spreadsheet")
	}
	return buf.Bytes(), nil
}
