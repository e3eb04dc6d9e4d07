package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/saltops/vaultpillar/internal/resolve"
	"github.com/saltops/vaultpillar/internal/rules"
	"github.com/saltops/vaultpillar/internal/template"
	"github.com/saltops/vaultpillar/internal/vault"
	"github.com/saltops/vaultpillar/pkg/pillar"
)

// checkResult holds the outcome of one doctor check.
type checkResult struct {
	Name    string
	Status  string // ok, error, skipped
	Message string
}

func NewDoctorCommand(opts *Options) *cobra.Command {
	var skipConnect bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, credentials and Vault connectivity",
		Long: `Verify that pillar resolution would be able to run.

This command checks:
- Configuration file validity
- Rule document readability and syntax
- Credential scheme selection
- Vault authentication and connectivity

Use --skip-connect to validate configuration without contacting Vault.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			results := make([]checkResult, 0, 4)

			opts.Logger.Info("Checking vaultpillar configuration...")

			cfg, err := opts.loadConfig()
			if err != nil {
				results = append(results, checkResult{Name: "config", Status: "error", Message: err.Error()})
				displayCheckResults(results)

				return fmt.Errorf("configuration is not usable")
			}
			results = append(results, checkResult{Name: "config", Status: "ok", Message: cfg.URL})

			if err := checkRuleDocument(cfg.RuleDocument); err != nil {
				results = append(results, checkResult{Name: "rules", Status: "error", Message: err.Error()})
			} else {
				results = append(results, checkResult{Name: "rules", Status: "ok", Message: cfg.RuleDocument})
			}

			auth, err := vault.SelectAuthMethod(cfg)
			if err != nil {
				results = append(results, checkResult{Name: "credentials", Status: "error", Message: err.Error()})
			} else {
				results = append(results, checkResult{Name: "credentials", Status: "ok", Message: "scheme: " + auth.Name()})
			}

			switch {
			case skipConnect:
				results = append(results, checkResult{Name: "vault", Status: "skipped", Message: "--skip-connect"})
			case auth == nil:
				results = append(results, checkResult{Name: "vault", Status: "skipped", Message: "no usable credentials"})
			default:
				client, err := vault.NewClient(cfg, opts.Logger)
				if err == nil {
					err = client.Login(cmd.Context(), auth)
				}

				if err != nil {
					results = append(results, checkResult{Name: "vault", Status: "error", Message: err.Error()})
				} else {
					results = append(results, checkResult{Name: "vault", Status: "ok", Message: "authenticated"})
				}
			}

			displayCheckResults(results)

			failed := 0
			for _, result := range results {
				if result.Status == "error" {
					failed++
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d checks failed", failed, len(results))
			}

			opts.Logger.Info("all checks passed")

			return nil
		},
	}

	cmd.Flags().BoolVar(&skipConnect, "skip-connect", false, "Skip the Vault connectivity check")

	return cmd
}

// checkRuleDocument loads, renders and parses the rule document. The
// document is a template, so it has to go through expansion with a
// placeholder minion before it can be expected to parse as YAML.
func checkRuleDocument(location string) error {
	raw, err := (resolve.FileLoader{}).Load(location)
	if err != nil {
		return err
	}

	placeholder := pillar.Minion{ID: "doctor", Grains: map[string]interface{}{}}

	rendered, err := template.New().Render(string(raw), placeholder)
	if err != nil {
		return err
	}

	_, err = rules.Parse([]byte(rendered))

	return err
}

func displayCheckResults(results []checkResult) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "CHECK\tSTATUS\tDETAIL\n")

	for _, result := range results {
		status := result.Status
		switch result.Status {
		case "ok":
			status = "✓ " + status
		case "error":
			status = "✗ " + status
		default:
			status = "- " + status
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", result.Name, status, result.Message)
	}

	_ = w.Flush()
}
