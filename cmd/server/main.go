// Package main is the entry point for the faculty review API server.
//
// The main package stays minimal: read configuration, build the logger,
// hand both to internal/server and block until shutdown. All logic lives
// in the internal packages.
package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/sakif/faculty-review/internal/config"
	"github.com/sakif/faculty-review/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	// .env is optional. Real environment variables always win over it.
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	// LOG_FORMAT=json for log shippers, text for terminals.
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if strings.EqualFold(cfg.LogFormat, "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	if cfg.AdminInvitationToken == "" {
		logger.Warn("ADMIN_INVITATION_TOKEN not set; admin registration is disabled")
	}

	// === 3. CREATE AND START THE SERVER ===
	srv, err := server.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
