package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/guarded-chat/internal/guardrail"
	"github.com/sells-group/guarded-chat/internal/model"
	"github.com/sells-group/guarded-chat/pkg/ihub"
)

var (
	assessSources   string
	assessMarket    string
	assessCategory  string
	assessTimeframe string
	assessFormat    string
)

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Run the guardrail assessment over a saved source list",
	Long: "Reads sources from a JSON file, either a bare list or a saved assistant payload, " +
		"and prints the guardrail assessment without contacting any backend.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("assess"); err != nil {
			return err
		}
		if assessFormat != "json" && assessFormat != "yaml" {
			return eris.Errorf("assess: unknown format %q (want json or yaml)", assessFormat)
		}

		f, err := os.Open(assessSources)
		if err != nil {
			return eris.Wrapf(err, "assess: open %s", assessSources)
		}
		defer f.Close() //nolint:errcheck

		sources, err := readSources(f)
		if err != nil {
			return err
		}

		assessment := guardrail.NewAssessor().Assess(model.ChatRequest{
			Market:    assessMarket,
			Category:  assessCategory,
			Timeframe: assessTimeframe,
		}, sources)

		return writeAssessment(cmd.OutOrStdout(), assessFormat, assessment)
	},
}

// readSources accepts a JSON array of sources or an assistant payload. Both
// drop sources without a URL, as live responses do.
func readSources(r io.Reader) ([]model.RawSource, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "assess: read sources")
	}

	var list []model.RawSource
	if err := json.Unmarshal(data, &list); err == nil {
		return ihub.DropUnlinked(list), nil
	}

	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, eris.Wrap(err, "assess: sources must be a JSON array or object")
	}
	return ihub.Normalize(payload).Sources, nil
}

func writeAssessment(w io.Writer, format string, a model.GuardrailAssessment) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(a); err != nil {
			return eris.Wrap(err, "assess: encode yaml")
		}
		return eris.Wrap(enc.Close(), "assess: flush yaml")
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(a), "assess: encode json")
}

func init() {
	assessCmd.Flags().StringVar(&assessSources, "sources", "", "path to a JSON source list or assistant payload")
	assessCmd.Flags().StringVar(&assessMarket, "market", "", "market or region")
	assessCmd.Flags().StringVar(&assessCategory, "category", "", "product category")
	assessCmd.Flags().StringVar(&assessTimeframe, "timeframe", "", "period covered")
	assessCmd.Flags().StringVar(&assessFormat, "format", "json", "output format: json or yaml")
	_ = assessCmd.MarkFlagRequired("sources")
	rootCmd.AddCommand(assessCmd)
}
