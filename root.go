package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/spdrive/spdrive/internal/config"
	"github.com/spdrive/spdrive/internal/graph"
	"github.com/spdrive/spdrive/internal/library"
	"github.com/spdrive/spdrive/internal/spauth"
	"github.com/spdrive/spdrive/internal/tokenstore"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// resolvedCfg holds the effective configuration loaded by PersistentPreRunE.
var resolvedCfg *config.Config

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "spdrive",
		Short:   "SharePoint document library CLI",
		Long:    "A CLI for browsing and managing documents in a SharePoint document library via Microsoft Graph.",
		Version: version,
		// Silence Cobra's default error/usage printing — we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Resolve(flagConfigPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			resolvedCfg = cfg

			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	// Register subcommands.
	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newLsCmd())
	cmd.AddCommand(newReadCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newPutCmd())
	cmd.AddCommand(newRmCmd())
	cmd.AddCommand(newStatCmd())
	cmd.AddCommand(newMetaCmd())
	cmd.AddCommand(newFoldersCmd())
	cmd.AddCommand(newMkdirCmd())
	cmd.AddCommand(newRmdirCmd())
	cmd.AddCommand(newTreeCmd())

	return cmd
}

// buildLogger creates an slog.Logger from the resolved config and CLI
// flags. Config-file log level is the baseline; --verbose and --quiet
// override it because CLI flags always win. Format "auto" picks a text
// handler on a terminal and JSON otherwise.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo
	format := "auto"

	if resolvedCfg != nil {
		switch resolvedCfg.Logging.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}

		if resolvedCfg.Logging.LogFormat != "" {
			format = resolvedCfg.Logging.LogFormat
		}
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	useText := format == "text" ||
		(format == "auto" && isatty.IsTerminal(os.Stderr.Fd()))
	if useText {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// appContext bundles the wired-up components behind every command.
type appContext struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *tokenstore.Store
	oauth   *spauth.Client
	manager *spauth.Manager
	library *library.Library
}

// buildApp wires the full component graph: token store, OAuth client,
// lifecycle manager, Graph client, site resolver, and library operations.
func buildApp() *appContext {
	logger := buildLogger()

	store := tokenstore.New(resolvedCfg.Auth.TokenPath, logger)
	oauth := spauth.NewClient(resolvedCfg.Auth, store, logger)
	manager := spauth.NewManager(store, oauth, logger)

	httpClient := &http.Client{
		Timeout: time.Duration(resolvedCfg.Network.TimeoutSeconds) * time.Second,
	}

	client := graph.NewClient(resolvedCfg.Network.GraphEndpoint, httpClient, manager, logger)
	sites := graph.NewSiteResolver(client, resolvedCfg.SharePoint, logger)
	lib := library.New(client, sites, resolvedCfg.Limits, logger)

	return &appContext{
		cfg:     resolvedCfg,
		logger:  logger,
		store:   store,
		oauth:   oauth,
		manager: manager,
		library: lib,
	}
}

// exitOnError prints a user-friendly error message to stderr and exits.
// Authentication failures get their remediation spelled out.
func exitOnError(err error) {
	if errors.Is(err, spauth.ErrAuthRequired) {
		fmt.Fprintln(os.Stderr, "Error: authentication required — run 'spdrive login' first")
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// statusf prints informational output unless --quiet is set.
func statusf(format string, args ...any) {
	if flagQuiet {
		return
	}

	fmt.Printf(format, args...)
}
