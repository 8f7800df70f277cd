package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/campus-agents/internal/agents"
	"github.com/jonathan/campus-agents/internal/config"
	"github.com/jonathan/campus-agents/internal/logging"
	"github.com/jonathan/campus-agents/internal/server"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP server that exposes the pipelines on POST /run-pipeline.

Configuration comes from the environment (and CONFIG_FILE, when set). --host
and --port override HOST and PORT.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", config.DefaultHost, "Interface to listen on (overrides HOST)")
	serveCmd.Flags().IntVar(&servePort, "port", config.DefaultPort, "Port to listen on (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("host") {
		cfg.Host = serveHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.Init(logging.Level(cfg.Debug), cfg.LogFormat)
	logger := logging.New("main")

	ctx := cmd.Context()
	a, err := agents.Open(ctx, cfg, agents.Options{})
	if err != nil {
		return fmt.Errorf("failed to initialise pipelines: %w", err)
	}
	defer a.Close()

	logger.Info("starting "+server.ServiceName,
		"version", server.Version,
		"provider", a.Provider(),
		"model", a.Gateway.Model(),
		"auth", cfg.Service.Enabled(),
		"graph_timeout", cfg.GraphTimeout,
	)

	srv, err := server.New(server.Config{
		Addr:        cfg.Addr(),
		Registry:    a.Registry,
		Auth:        cfg.Service,
		RateLimit:   cfg.RateLimit,
		CORSOrigins: cfg.CORSOrigins,
		Provider:    a.Provider(),
		Logger:      logging.New("server"),
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start(ctx)
}
