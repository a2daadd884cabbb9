package main

import (
	"fmt"

	"github.com/jonathan/competency-assessment/internal/config"
	"github.com/jonathan/competency-assessment/internal/server"
	"github.com/jonathan/competency-assessment/internal/types"
	"github.com/spf13/cobra"
)

var issueTokenClient string

var issueTokenCmd = &cobra.Command{
	Use:   "issue-token",
	Short: "Issue a bearer token for an API client",
	Long:  "Signs a token with JWT_SECRET for the given client ID. Evaluate requests must carry it as 'Authorization: Bearer <token>'.",
	RunE:  runIssueToken,
}

func init() {
	issueTokenCmd.Flags().StringVar(&issueTokenClient, "client", "", "Client ID (required)")
	mustMarkRequired(issueTokenCmd, "client")
	rootCmd.AddCommand(issueTokenCmd)
}

func runIssueToken(cmd *cobra.Command, _ []string) error {
	req := types.IssueTokenRequest{ClientID: issueTokenClient}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid client ID: %w", err)
	}

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return err
	}

	token, err := server.NewJWTService(jwtConfig).GenerateToken(req.ClientID)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
	return err
}
