package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yukino-dev/bugsnap/internal/backend"
	"github.com/yukino-dev/bugsnap/internal/config"
	"github.com/yukino-dev/bugsnap/internal/log"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the development backend server",
		Long: `Serve runs the development backend server.

It exposes the upload endpoints the bug-reporter storage providers
speak, serves stored assets, and persists submitted reports.

Examples:
  # Listen on the default address with the default data directory
  bugsnap serve

  # Custom address and storage location
  bugsnap serve --addr :9090 --data-dir ./bugsnap-data`,
		RunE: runServeCmd,
	}

	cmd.Flags().String("addr", backend.DefaultAddr, "Listen address")
	cmd.Flags().String("data-dir", config.XDGDataDir(),
		"Directory for uploaded assets, report summaries, and the report database")
	cmd.Flags().String("base-url", "",
		"Absolute URL prefix for handed-out links (derived from the request when empty)")
	cmd.Flags().String("presign-secret", "",
		"Secret signing presigned upload instructions (random when empty)")
	cmd.Flags().Bool("json-log", false, "Emit logs as JSON")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	verbose := getVerboseFlag(cmd)

	jsonLog, err := cmd.Flags().GetBool("json-log")
	if err != nil {
		return err
	}
	// The server logs request metadata including auth header names, so
	// all output goes through the sanitizing handler.
	var logger *slog.Logger
	if jsonLog {
		logger = log.NewSecureJSONLogger(os.Stderr, verbose)
	} else {
		logger = log.NewSecureLogger(os.Stderr, verbose)
	}
	slog.SetDefault(logger)

	addr, err := cmd.Flags().GetString("addr")
	if err != nil {
		return err
	}
	dataDir, err := cmd.Flags().GetString("data-dir")
	if err != nil {
		return err
	}
	baseURL, err := cmd.Flags().GetString("base-url")
	if err != nil {
		return err
	}
	presignSecret, err := cmd.Flags().GetString("presign-secret")
	if err != nil {
		return err
	}

	server, err := backend.NewServer(backend.Config{
		Addr:          addr,
		DataDir:       dataDir,
		BaseURL:       baseURL,
		PresignSecret: presignSecret,
	}, backend.WithServerLogger(logger))
	if err != nil {
		return err
	}
	defer func() {
		if err := server.Close(); err != nil {
			logger.Warn("failed to close report store", "err", err)
		}
	}()

	// Shut down cleanly on interrupt.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Serve(ctx)
}
