package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	vperrors "github.com/saltops/vaultpillar/internal/errors"
	"github.com/saltops/vaultpillar/internal/match"
	"github.com/saltops/vaultpillar/internal/resolve"
	"github.com/saltops/vaultpillar/internal/rules"
	"github.com/saltops/vaultpillar/internal/template"
	"github.com/saltops/vaultpillar/pkg/pillar"
)

func NewCheckCommand(opts *Options) *cobra.Command {
	var (
		minionID   string
		grainsFile string
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and rule document without fetching secrets",
		Long: `Load the configuration, render and parse the secret mapping document
for the given minion, and list the bindings that would be fetched.
No Vault calls are made.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if minionID == "" {
				return vperrors.ConfigError{
					Field:      "minion",
					Message:    "minion id is required",
					Suggestion: "Use --minion <id> to name the minion to check against",
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

			raw, err := resolve.FileLoader{}.Load(cfg.RuleDocument)
			if err != nil {
				return vperrors.ConfigError{
					Field:   "config",
					Value:   cfg.RuleDocument,
					Message: "unable to read secret mappings file",
					Err:     err,
				}
			}

			minion := pillar.Minion{ID: minionID, Grains: grains}

			bindings, err := rules.Evaluate(raw, minion, template.New(), match.New())
			if err != nil {
				return err
			}

			opts.Logger.Info("configuration and rule document are valid")

			if len(bindings) == 0 {
				fmt.Printf("minion %s matches no rules; pillar fragment would be empty\n", minionID)
				return nil
			}

			variables := make([]string, 0, len(bindings))
			for variable := range bindings {
				variables = append(variables, variable)
			}
			sort.Strings(variables)

			for _, variable := range variables {
				fmt.Printf("%s: %s\n", variable, bindings[variable])
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&minionID, "minion", "", "Minion id to check against")
	cmd.Flags().StringVar(&grainsFile, "grains", "", "YAML file with the minion's grains")

	return cmd
}
