package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/sharpedavid/idlinkreset/internal/config"
	"github.com/sharpedavid/idlinkreset/internal/keycloak"
	"github.com/sharpedavid/idlinkreset/internal/platform/env"
	"github.com/sharpedavid/idlinkreset/internal/reset"
)

func main() {
	configPath := flag.String("config", env.String("IDLINKRESET_CONFIG", ""), "path to the YAML configuration file")
	yes := flag.Bool("yes", false, "skip the confirmation prompt")
	flag.Parse()

	logger := newLogger(os.Stderr)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	logger = logger.With("run_id", uuid.NewString())

	ctx := context.Background()
	client, err := keycloak.NewClient(ctx, keycloak.Config{
		ServerURL:    cfg.ServerURL,
		ClientRealm:  cfg.ClientRealm,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Timeout:      cfg.HTTPTimeout,
	})
	if err != nil {
		logger.Error("keycloak client init failed", "error", err)
		os.Exit(1)
	}

	dryRun := *cfg.DryRun
	printPlan(os.Stdout, cfg.ServerURL, cfg.IDPRealm, cfg.ApplicationRealm, dryRun)
	if !*yes {
		if err := confirm(os.Stdin, os.Stdout); err != nil {
			logger.Error("run not confirmed", "error", err)
			os.Exit(1)
		}
	}

	engine := reset.New(client, reset.Config{
		IDPRealm:         cfg.IDPRealm,
		ApplicationRealm: cfg.ApplicationRealm,
		UserMax:          cfg.UserMax,
		DryRun:           dryRun,
	}, logger)

	outcome, err := engine.Run(ctx)
	if err != nil {
		logger.Error("reconciliation failed", "error", err)
		os.Exit(1)
	}

	fmt.Print(reset.Render(outcome, cfg.IDPRealm, cfg.ApplicationRealm))
}

func newLogger(w io.Writer) *slog.Logger {
	level := parseLevel(env.String("IDLINKRESET_LOG_LEVEL", "info"))
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func printPlan(w io.Writer, serverURL string, idpRealm string, applicationRealm string, dryRun bool) {
	mode := "IS NOT"
	if dryRun {
		mode = "IS"
	}
	fmt.Fprintf(w, "This %s a dry run.\n", mode)
	fmt.Fprintf(w, "Running against %s.\n", serverURL)
	fmt.Fprintf(w, "Will delete all users in realm %s.\n", idpRealm)
	fmt.Fprintf(w, "Will delete all links to realm %s from realm %s.\n", idpRealm, applicationRealm)
	fmt.Fprintln(w)
}

func confirm(r io.Reader, w io.Writer) error {
	fmt.Fprintln(w, "Please review the configuration. Press Enter to continue, or terminate the program to cancel.")
	if _, err := bufio.NewReader(r).ReadString('\n'); err != nil {
		return fmt.Errorf("read confirmation: %w", err)
	}
	return nil
}
