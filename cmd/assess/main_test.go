package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joho/godotenv"
	"github.com/jonathan/competency-assessment/internal/config"
	"github.com/jonathan/competency-assessment/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMain runs before all tests and loads .env if available
func TestMain(m *testing.M) {
	// Try to load .env file - ignore error if it doesn't exist (CI environment)
	_ = godotenv.Load()

	os.Exit(m.Run())
}

// execute runs the CLI in process with fresh flag state and returns its
// combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ASSESS_CONTENT_DIR", "")
	t.Setenv("ASSESS_DATABASE_URL", "")
	t.Setenv("ASSESS_VERBOSE", "false")

	resetFlags(rootCmd)
	cfg = nil

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func writeInput(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "input.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func squatInput() map[string]any {
	return map[string]any{
		"levels": map[string]int{"ukc_assessment": 5, "speed_management": 5, "bridge_team": 5, "pilot_exchange": 5},
	}
}

func TestValidateCommand(t *testing.T) {
	output, err := execute(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, output, "CONTENT VALID")
	assert.Contains(t, output, "squat_shallow_channel v1")
}

func TestValidateCommand_ContentDirNotFound(t *testing.T) {
	resetFlags(rootCmd)
	t.Setenv("ASSESS_CONTENT_DIR", filepath.Join(t.TempDir(), "missing"))

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs([]string{"validate"})
	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "content directory not found")
}

func TestSeedCommand_DryRun(t *testing.T) {
	output, err := execute(t, "seed", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, output, "SEED REPORT (dry run)")
	assert.Contains(t, output, "scenario")
}

func TestSeedCommand_RequiresDatabase(t *testing.T) {
	_, err := execute(t, "seed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database URL is required")
}

func TestMigrateCommand_RequiresDatabase(t *testing.T) {
	_, err := execute(t, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database URL is required")
}

func TestEvaluateRubricCommand_Offline(t *testing.T) {
	input := squatInput()
	input["flags"] = []string{"no_ukc_check"}
	path := writeInput(t, input)

	output, err := execute(t, "evaluate-rubric", "--offline",
		"--scenario", "squat_shallow_channel", "--version", "1", "--input", path, "--locale", "tr")
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(output), &result))
	assert.Equal(t, 40.0, result["composite_score"])
	assert.Equal(t, 100.0, result["raw_composite"])
	assert.Equal(t, "tr", result["locale"])
}

func TestEvaluateRubricCommand_Verbose(t *testing.T) {
	path := writeInput(t, squatInput())

	output, err := execute(t, "evaluate-rubric", "--offline", "-v",
		"--scenario", "squat_shallow_channel", "--version", "1", "--input", path)
	require.NoError(t, err)
	assert.Contains(t, output, "EVALUATION RESULT")
	assert.Contains(t, output, "Composite: 100.00")
}

func TestEvaluateRubricCommand_Errors(t *testing.T) {
	missingAxis := writeInput(t, map[string]any{"levels": map[string]int{"ukc_assessment": 3}})

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "missing required flags",
			args:    []string{"evaluate-rubric", "--offline"},
			wantErr: "required flag(s)",
		},
		{
			name:    "input file not found",
			args:    []string{"evaluate-rubric", "--offline", "--scenario", "squat_shallow_channel", "--version", "1", "--input", "nope.json"},
			wantErr: "failed to read input file",
		},
		{
			name:    "axis not scored",
			args:    []string{"evaluate-rubric", "--offline", "--scenario", "squat_shallow_channel", "--version", "1", "--input", missingAxis},
			wantErr: "evaluation failed",
		},
		{
			name:    "unknown scenario",
			args:    []string{"evaluate-rubric", "--offline", "--scenario", "no_such", "--version", "1", "--input", missingAxis},
			wantErr: "content not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEvaluateLikertCommand_Offline(t *testing.T) {
	path := writeInput(t, map[string]any{
		"answers": map[string]int{"eng_1": 3, "psy_1": 3, "wrk_1": 3, "ldr_1": 3, "ret_1": 3},
	})

	output, err := execute(t, "evaluate-likert", "--offline",
		"--questionnaire", "crew_pulse_quick", "--version", "1", "--input", path)
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(output), &result))
	assert.Equal(t, 60.0, result["composite_score"])
	assert.Contains(t, result["derived_indices"], "burnout_proxy")
}

func TestIssueTokenCommand(t *testing.T) {
	secret := "cli-test-secret-0123456789"
	t.Setenv("JWT_SECRET", secret)

	output, err := execute(t, "issue-token", "--client", "lms-gateway")
	require.NoError(t, err)

	token := strings.TrimSpace(output)
	claims, err := server.NewJWTService(&config.JWTConfig{
		Secret:          secret,
		ExpirationHours: 24,
		Issuer:          "competency-assessment",
	}).ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "lms-gateway", claims.GetClientID())
}

func TestIssueTokenCommand_Errors(t *testing.T) {
	t.Run("client ID too short", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "cli-test-secret-0123456789")
		_, err := execute(t, "issue-token", "--client", "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid client ID")
	})

	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		_, err := execute(t, "issue-token", "--client", "lms-gateway")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "JWT_SECRET")
	})
}
