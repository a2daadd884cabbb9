package main

import (
	"fmt"

	"github.com/jonathan/competency-assessment/internal/observability"
	"github.com/jonathan/competency-assessment/internal/seed"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate content documents without writing them",
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	bundle, err := loadBundle()
	if err != nil {
		return err
	}
	if err := seed.Validate(cmd.Context(), bundle); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	observability.NewPrinter(cmd.OutOrStdout()).PrintContentSummary(bundle)
	return nil
}
