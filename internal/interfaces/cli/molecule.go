package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/ChemScribe/internal/domain/molecule"
	"github.com/turtacn/ChemScribe/internal/infrastructure/chem"
	"github.com/turtacn/ChemScribe/internal/infrastructure/monitoring/logging"
)

// newMoleculeCmd groups the local molecule utilities.
func newMoleculeCmd(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "molecule",
		Short: "Validate and depict SMILES notation locally",
	}
	cmd.AddCommand(
		newValidateCmd(opts),
		newDepictCmd(),
	)
	return cmd
}

// validateResult is the CLI projection of a validation verdict.
type validateResult struct {
	SMILES     string              `json:"smiles"`
	Valid      bool                `json:"valid"`
	Reason     string              `json:"reason,omitempty"`
	Properties molecule.Properties `json:"properties,omitempty"`
}

func (r validateResult) String() string {
	if !r.Valid {
		return fmt.Sprintf("INVALID  %s\n  reason: %s", r.SMILES, r.Reason)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "VALID    %s\n", r.SMILES)
	fmt.Fprintf(&sb, "  molecular weight:  %.2f\n", r.Properties.MolecularWeight)
	fmt.Fprintf(&sb, "  heavy atoms:       %d\n", r.Properties.HeavyAtoms)
	fmt.Fprintf(&sb, "  h-bond donors:     %d\n", r.Properties.HBondDonors)
	fmt.Fprintf(&sb, "  h-bond acceptors:  %d\n", r.Properties.HBondAcceptors)
	fmt.Fprintf(&sb, "  rings:             %d\n", r.Properties.RingCount)
	fmt.Fprintf(&sb, "  logP estimate:     %.2f\n", r.Properties.LogP)
	fmt.Fprintf(&sb, "  rule of five:      %v", r.Properties.RuleOfFivePass)
	return sb.String()
}

func newValidateCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <SMILES>",
		Short: "Check a SMILES string and print its descriptors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := molecule.Validate(args[0])
			result := validateResult{
				SMILES:     strings.TrimSpace(args[0]),
				Valid:      v.Valid,
				Reason:     v.Reason,
				Properties: v.Properties,
			}
			if err := printResult(cmd, opts, result); err != nil {
				return err
			}
			if !v.Valid {
				return fmt.Errorf("notation is not valid SMILES")
			}
			return nil
		},
	}
}

func newDepictCmd() *cobra.Command {
	var (
		outPath string
		width   int
		height  int
		name    string
	)
	cmd := &cobra.Command{
		Use:   "depict <SMILES>",
		Short: "Render a 2D depiction of a SMILES string to a PNG file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			candidate, err := molecule.NewCandidate(args[0], name)
			if err != nil {
				return err
			}
			validator := chem.NewValidator(chem.NewRenderer(width, height), logging.NewNopLogger())
			png, err := validator.Render(context.Background(), candidate)
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, png, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", outPath, len(png))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "file", "f", "molecule.png", "output PNG path")
	cmd.Flags().IntVar(&width, "width", 400, "image width in pixels")
	cmd.Flags().IntVar(&height, "height", 300, "image height in pixels")
	cmd.Flags().StringVar(&name, "name", "", "molecule name drawn under the structure")
	return cmd
}
