package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/okanogan-digital/directory-cli/internal/model"
)

var (
	enrichZip         string
	enrichLimit       int
	enrichOut         string
	enrichConcurrency int
	enrichNoStore     bool
	enrichDiagnostics bool
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich every licensed business in a ZIP code",
	Long:  "Fetches foundation licenses for a ZIP, enriches each business from places, reviews, license, and website sources, and emits the merged records as JSON.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		zip := enrichZip
		if zip == "" {
			zip = cfg.Pipeline.DefaultZip
		}
		if enrichConcurrency > 0 {
			cfg.Pipeline.Concurrency = enrichConcurrency
		}

		enricher, st, err := buildEnricher(ctx, !enrichNoStore)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close() //nolint:errcheck
		}

		result := enricher.Run(ctx, zip, enrichLimit)
		zap.L().Info("enrichment complete",
			zap.String("zip", zip),
			zap.Int("businesses", len(result.Records)),
			zap.String("foundation_source", result.Diagnostics.FoundationSource),
		)

		out := os.Stdout
		if enrichOut != "" {
			f, err := os.Create(enrichOut)
			if err != nil {
				return eris.Wrapf(err, "create %s", enrichOut)
			}
			defer f.Close() //nolint:errcheck
			out = f
		}

		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if enrichDiagnostics {
			return enc.Encode(result)
		}
		records := result.Records
		if records == nil {
			records = []model.Business{}
		}
		return enc.Encode(records)
	},
}

func init() {
	enrichCmd.Flags().StringVar(&enrichZip, "zip", "", "ZIP code to enrich (defaults to configured ZIP)")
	enrichCmd.Flags().IntVar(&enrichLimit, "limit", 50, "maximum foundation businesses to process")
	enrichCmd.Flags().StringVar(&enrichOut, "out", "", "write JSON output to file instead of stdout")
	enrichCmd.Flags().IntVar(&enrichConcurrency, "concurrency", 0, "businesses enriched in parallel (overrides config)")
	enrichCmd.Flags().BoolVar(&enrichNoStore, "no-store", false, "skip persistence, print results only")
	enrichCmd.Flags().BoolVar(&enrichDiagnostics, "diagnostics", false, "include run diagnostics in output")
	rootCmd.AddCommand(enrichCmd)
}
