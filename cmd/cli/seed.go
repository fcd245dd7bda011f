package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/patricknguyendev/simplygrocery/internal/catalog"
	"github.com/patricknguyendev/simplygrocery/internal/database"
	"github.com/patricknguyendev/simplygrocery/internal/ingest"
)

// seedCmd represents the seed command
var seedCmd = &cobra.Command{
	Use:   "seed <workbook.xlsx>",
	Short: "Load the catalog from an XLSX workbook",
	Long: `Load stores, products, and prices from an XLSX workbook into the
database. The workbook needs Stores, Products, and Prices sheets with a
header row each. Existing rows with the same IDs are updated.`,
	Example: `  simplygrocery seed catalog.xlsx
  simplygrocery seed --config ./config.yaml data/seed.xlsx`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	content, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read workbook: %w", err)
	}

	loader := ingest.NewLoader(catalog.NewPostgres(database.Pool()))
	summary, err := loader.LoadWorkbook(ctx, content)
	if err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}

	logger.Info().
		Int("stores", summary.Stores).
		Int("products", summary.Products).
		Int("prices", summary.Prices).
		Int("skipped", summary.SkippedRows).
		Msg("Catalog seeded")
	return nil
}
