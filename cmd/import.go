package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/okanogan-digital/directory-cli/internal/dataset"
	"github.com/okanogan-digital/directory-cli/internal/pipeline"
)

var importFilePath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import license records from a CSV or XLSX export",
	Long:  "Loads a Department of Revenue license export and upserts the businesses into the store without external enrichment.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		rows, err := dataset.ImportFile(importFilePath)
		if err != nil {
			return eris.Wrap(err, "import file")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		imported := 0
		for _, lic := range rows {
			b := pipeline.FoundationFromLicense(lic)
			if err := st.UpsertBusiness(ctx, &b); err != nil {
				zap.L().Warn("import: upsert failed",
					zap.String("business", b.Name),
					zap.Error(err),
				)
				continue
			}
			imported++
		}

		zap.L().Info("import complete",
			zap.Int("rows", len(rows)),
			zap.Int("imported", imported),
			zap.String("file", importFilePath),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFilePath, "file", "", "path to CSV or XLSX license export (required)")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
