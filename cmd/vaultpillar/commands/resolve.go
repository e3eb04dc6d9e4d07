package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	vperrors "github.com/saltops/vaultpillar/internal/errors"
	"github.com/saltops/vaultpillar/internal/resolve"
)

func NewResolveCommand(opts *Options) *cobra.Command {
	var (
		minionID   string
		grainsFile string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the pillar fragment for a minion",
		Long: `Run a full pillar resolution for one minion: evaluate the secret
mapping document, fetch the matched secrets from Vault, and print the
resulting fragment.

Examples:
  # Resolve with grains exported from the minion
  vaultpillar resolve --minion web01 --grains web01-grains.yaml

  # JSON output for scripting
  vaultpillar resolve --minion web01 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if minionID == "" {
				return vperrors.ConfigError{
					Field:      "minion",
					Message:    "minion id is required",
					Suggestion: "Use --minion <id> to name the minion to resolve",
				}
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			grains, err := loadGrains(grainsFile)
			if err != nil {
				return err
			}

			resolver, err := resolve.New(cfg, opts.Logger)
			if err != nil {
				return err
			}

			fragment, err := resolver.Resolve(cmd.Context(), minionID, grains)
			if err != nil {
				return vperrors.Simplify(err)
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")

				return enc.Encode(fragment)
			}

			out, err := yaml.Marshal(fragment)
			if err != nil {
				return err
			}
			fmt.Print(string(out))

			return nil
		},
	}

	cmd.Flags().StringVar(&minionID, "minion", "", "Minion id to resolve")
	cmd.Flags().StringVar(&grainsFile, "grains", "", "YAML file with the minion's grains")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of YAML")

	return cmd
}
