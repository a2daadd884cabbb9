package main

import (
	"fmt"

	"github.com/jonathan/competency-assessment/internal/observability"
	"github.com/jonathan/competency-assessment/internal/seed"
	"github.com/spf13/cobra"
)

var seedDryRun bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load scenario, questionnaire and position content into the database",
	Long: "Validates every content document and upserts it. Unchanged documents are not rewritten, " +
		"so running seed twice writes nothing the second time. With --dry-run the content is written " +
		"to an in-memory store instead of the database.",
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().BoolVar(&seedDryRun, "dry-run", false, "Validate and report without touching the database")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	bundle, err := loadBundle()
	if err != nil {
		return err
	}

	var store seed.Store
	if seedDryRun {
		store = seed.NewMemoryStore()
	} else {
		database, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer database.Close()
		if _, err := database.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		store = database
	}

	report, err := seed.NewSeeder(store, seed.Options{Verbose: cfg.Verbose}).Run(ctx, bundle)
	if err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}

	observability.NewPrinter(cmd.OutOrStdout()).PrintSeedReport(report, seedDryRun)
	return nil
}
