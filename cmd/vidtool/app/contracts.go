package app

import (
	"github.com/spf13/cobra"

	"github.com/YannMSFT/VID-Issuing-Tool/pkg/contracts"
)

func newContractsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contracts",
		Short: "Inspect credential contracts",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the credential contracts of the tenant",
		Long: `List every contract of every authority in the tenant using the Verified ID
admin API, together with the issuance payload strategy each contract gets.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc, err := newServices(cmd.Context(), cfg, wireOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = svc.store.Close() }()

			list, err := svc.contracts.ListContracts(cmd.Context())
			if err != nil {
				return err
			}
			return renderContracts(cmd.OutOrStdout(), list, svc.registry)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "registry",
		Short: "Show the contract payload registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			registry, err := contracts.LoadFile(cfg.ContractsFile)
			if err != nil {
				return err
			}
			return renderStrategies(cmd.OutOrStdout(), registry)
		},
	})

	return cmd
}
