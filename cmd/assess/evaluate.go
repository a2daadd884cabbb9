package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jonathan/competency-assessment/internal/evaluation"
	"github.com/jonathan/competency-assessment/internal/observability"
	"github.com/jonathan/competency-assessment/internal/scoring"
	"github.com/jonathan/competency-assessment/internal/seed"
	"github.com/jonathan/competency-assessment/internal/types"
	"github.com/spf13/cobra"
)

var (
	evalScenario      string
	evalQuestionnaire string
	evalTenant        string
	evalVersion       int
	evalInput         string
	evalLocale        string
	evalOffline       bool
)

var evaluateRubricCmd = &cobra.Command{
	Use:   "evaluate-rubric",
	Short: "Score a graded scenario attempt",
	Long: "Reads a rubric input ({\"levels\": {...}, \"flags\": [...]}) and prints the evaluation result as JSON. " +
		"With --offline the embedded or configured content is used and nothing is stored.",
	RunE: runEvaluateRubric,
}

var evaluateLikertCmd = &cobra.Command{
	Use:   "evaluate-likert",
	Short: "Score a questionnaire response",
	Long: "Reads a Likert input ({\"answers\": {...}}) and prints the evaluation result as JSON. " +
		"With --offline the embedded or configured content is used and nothing is stored.",
	RunE: runEvaluateLikert,
}

func init() {
	evaluateRubricCmd.Flags().StringVar(&evalScenario, "scenario", "", "Scenario code (required)")
	evaluateRubricCmd.Flags().IntVar(&evalVersion, "version", 0, "Scenario version (required)")
	addEvaluateFlags(evaluateRubricCmd)
	mustMarkRequired(evaluateRubricCmd, "scenario", "version", "input")

	evaluateLikertCmd.Flags().StringVar(&evalQuestionnaire, "questionnaire", "", "Questionnaire code (required)")
	evaluateLikertCmd.Flags().IntVar(&evalVersion, "version", 0, "Questionnaire version (required)")
	evaluateLikertCmd.Flags().StringVar(&evalTenant, "tenant", "", "Tenant ID; falls back to the global questionnaire")
	addEvaluateFlags(evaluateLikertCmd)
	mustMarkRequired(evaluateLikertCmd, "questionnaire", "version", "input")

	rootCmd.AddCommand(evaluateRubricCmd)
	rootCmd.AddCommand(evaluateLikertCmd)
}

func addEvaluateFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&evalInput, "input", "i", "", "Path to graded input JSON file (required)")
	cmd.Flags().StringVar(&evalLocale, "locale", "", "Result locale (default: configured default locale)")
	cmd.Flags().BoolVar(&evalOffline, "offline", false, "Use local content instead of the database")
}

func mustMarkRequired(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Sprintf("failed to mark %s flag as required: %v", name, err))
		}
	}
}

// newEvaluationService wires the service to local content or the database.
// The returned close func releases the database pool.
func newEvaluationService(ctx context.Context) (*evaluation.Service, func(), error) {
	opts := evaluation.Options{
		Policy:        cfg.Policy(),
		DefaultLocale: cfg.DefaultLocale,
		Verbose:       cfg.Verbose,
	}

	if evalOffline {
		bundle, err := loadBundle()
		if err != nil {
			return nil, nil, err
		}
		if err := seed.Validate(ctx, bundle); err != nil {
			return nil, nil, fmt.Errorf("content validation failed: %w", err)
		}
		opts.Recorder = evaluation.NewMemoryRecorder()
		svc, err := evaluation.NewService(seed.NewCatalog(bundle), opts)
		return svc, func() {}, err
	}

	database, err := connectDB(ctx)
	if err != nil {
		return nil, nil, err
	}
	opts.Recorder = database
	svc, err := evaluation.NewService(database, opts)
	if err != nil {
		database.Close()
		return nil, nil, err
	}
	return svc, database.Close, nil
}

func runEvaluateRubric(cmd *cobra.Command, _ []string) error {
	var input types.RubricInput
	if err := readJSONFile(evalInput, &input); err != nil {
		return err
	}

	ctx := cmd.Context()
	svc, closeFn, err := newEvaluationService(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	result, err := svc.EvaluateRubric(ctx, evalScenario, evalVersion, input, evalLocale)
	if err != nil {
		return fmt.Errorf("evaluation failed: %s", scoring.Message(err, evalLocale))
	}
	return printResult(cmd.OutOrStdout(), result)
}

func runEvaluateLikert(cmd *cobra.Command, _ []string) error {
	var input types.LikertInput
	if err := readJSONFile(evalInput, &input); err != nil {
		return err
	}

	ctx := cmd.Context()
	svc, closeFn, err := newEvaluationService(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	ref := types.QuestionnaireRef{TenantID: evalTenant, Code: evalQuestionnaire, Version: evalVersion}
	result, err := svc.EvaluateLikert(ctx, ref, input, evalLocale)
	if err != nil {
		return fmt.Errorf("evaluation failed: %s", scoring.Message(err, evalLocale))
	}
	return printResult(cmd.OutOrStdout(), result)
}

func printResult(w io.Writer, result *scoring.Result) error {
	if cfg.Verbose {
		observability.NewPrinter(w).PrintResult(result)
		return nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}
