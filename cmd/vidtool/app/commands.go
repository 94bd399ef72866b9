// Package app provides the entry point for the vidtool command-line application.
package app

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/YannMSFT/VID-Issuing-Tool/pkg/config"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/logger"
)

// logRing keeps recent log records for the admin server-logs endpoint.
var logRing *logger.Ring

// NewRootCmd creates a new root command for the vidtool CLI.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "vidtool",
		DisableAutoGenTag: true,
		Short:             "vidtool issues Microsoft Entra Verified ID credentials",
		Long: `vidtool is an administration tool for Microsoft Entra Verified ID.

It lists the credential contracts of a tenant, submits issuance requests to the
Verified ID Request Service and tracks them through the service callbacks.
Run "vidtool serve" to start the web API used by the admin console.

Settings are read from the environment. A .env file in the working directory
is loaded first when present.`,
		Run: func(cmd *cobra.Command, _ []string) {
			// If no subcommand is provided, print help
			if err := cmd.Help(); err != nil {
				logger.Errorf("Error displaying help: %v", err)
			}
		},
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if err := loadDotEnv(".env"); err != nil {
				return err
			}
			logRing = logger.NewRing()
			logger.Initialize(logRing)
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if logRing != nil {
				_ = logRing.Close()
			}
		},
	}

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		logger.Errorf("Error binding debug flag: %v", err)
	}
	rootCmd.PersistentFlags().String("contracts-file", "", "YAML contract registry replacing the built-in one")
	if err := viper.BindPFlag(config.KeyContractsFile, rootCmd.PersistentFlags().Lookup("contracts-file")); err != nil {
		logger.Errorf("Error binding contracts-file flag: %v", err)
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newContractsCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newIssueCmd())
	rootCmd.AddCommand(newVersionCmd())

	// Silence printing the usage on error
	rootCmd.SilenceUsage = true

	return rootCmd
}

// loadDotEnv loads path into the process environment. A missing file is not an error.
// Variables already set in the environment win.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// loadConfig resolves the tool configuration from flags and the environment.
func loadConfig() (*config.Config, error) {
	v := viper.GetViper()
	config.SetDefaults(v)
	v.SetDefault(config.KeyVersion, Version)
	return config.Load(v)
}
