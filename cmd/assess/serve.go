package main

import (
	"fmt"

	"github.com/jonathan/competency-assessment/internal/config"
	"github.com/jonathan/competency-assessment/internal/server"
	"github.com/jonathan/competency-assessment/internal/server/ratelimit"
	"github.com/spf13/cobra"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes scenario and questionnaire content and the evaluate endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default: configured port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return err
	}
	rateLimit, err := ratelimit.LoadConfig(cfg.RateLimitPerMinute)
	if err != nil {
		return err
	}

	database, err := connectDB(cmd.Context())
	if err != nil {
		return err
	}

	port := cfg.Port
	if servePort != 0 {
		port = servePort
	}

	srv, err := server.New(server.Config{
		Port:          port,
		Content:       database,
		Results:       database,
		Policy:        cfg.Policy(),
		DefaultLocale: cfg.DefaultLocale,
		RateLimit:     rateLimit,
		JWT:           jwtConfig,
		Verbose:       cfg.Verbose,
		OnShutdown:    database.Close,
	})
	if err != nil {
		database.Close()
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}
