package app

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YannMSFT/VID-Issuing-Tool/pkg/stats"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the tool configuration",
	}

	var jsonOutput bool
	check := &cobra.Command{
		Use:   "check",
		Short: "Report which required settings are configured",
		Long: `Report whether each setting required for issuance is configured.
Secret values are never printed. The command fails when a setting is missing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(stats.TestConfig(cfg)); err != nil {
					return err
				}
			} else if err := renderSettings(cmd.OutOrStdout(), cfg.Report()); err != nil {
				return err
			}

			if missing := cfg.Missing(); len(missing) > 0 {
				return fmt.Errorf("%d required settings are missing", len(missing))
			}
			return nil
		},
	}
	check.Flags().BoolVar(&jsonOutput, "json", false, "Output the report as JSON")

	cmd.AddCommand(check)
	return cmd
}
