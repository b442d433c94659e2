package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/ChemScribe/internal/config"
)

// newConfigCmd groups configuration utilities.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate server configuration",
	}
	cmd.AddCommand(newConfigCheckCmd())
	return cmd
}

func newConfigCheckCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Load a config file, apply defaults and report validation errors",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				cfg *config.Config
				err error
			)
			if path != "" {
				cfg, err = config.Load(path)
			} else {
				cfg, err = config.LoadFromEnv()
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"configuration is valid\n  server port:      %d\n  default provider: %s\n  default source:   %s\n",
				cfg.Server.Port, cfg.AI.DefaultProvider, cfg.Literature.DefaultSource)
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "config", "c", "", "config file path (default: environment only)")
	return cmd
}
