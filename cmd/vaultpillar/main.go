package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/saltops/vaultpillar/cmd/vaultpillar/commands"
	"github.com/saltops/vaultpillar/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile string
		noColor    bool
		debug      bool
	)

	opts := &commands.Options{}

	rootCmd := &cobra.Command{
		Use:   "vaultpillar",
		Short: "Resolve Vault-backed pillar data for Salt minions",
		Long: `vaultpillar evaluates a templated secret-mapping document against a
minion's id and grains, fetches the matched secrets from Vault, and
prints the resulting pillar fragment.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.ConfigPath = configFile
			opts.Logger = logging.New(debug, noColor)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "vaultpillar.yaml", "Config file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		commands.NewResolveCommand(opts),
		commands.NewCheckCommand(opts),
		commands.NewDoctorCommand(opts),
	)

	return rootCmd.Execute()
}
