package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/atlasextract/atlas/internal/api"
	"github.com/atlasextract/atlas/internal/config"
	"github.com/atlasextract/atlas/internal/home"
	"github.com/atlasextract/atlas/internal/svcctx"
	"github.com/atlasextract/atlas/version"
)

// annotationNoServices marks commands that run without config or a client.
const annotationNoServices = "atlas/no-services"

var (
	cfgFile      string
	homeDir      string
	serverURL    string
	outputFormat string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "atlas",
	Short: "Extract invoices into sales orders and browse what was saved",
	Long: `Atlas is a client for the invoice extraction backend.

Upload a PDF, image or text invoice, review the structured fields the
extraction service returns, and save them as a SalesOrderHeader with its
SalesOrderDetail line items. Saved orders can be listed, inspected, updated
and bulk-imported from an Excel export.

Examples:
  atlas extract invoice.pdf            # Extract and print the fields
  atlas extract invoice.pdf --save     # Extract and save as a new order
  atlas orders list                    # Show the latest saved orders
  atlas orders get 71774               # Show one order
  atlas session                        # Interactive review session`,
	Version:      version.GitRelease,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		format, err := api.ParseOutputFormat(outputFormat)
		if err != nil {
			return err
		}
		api.SetOutputFormat(format)

		logger, err := newLogger(logLevel)
		if err != nil {
			return err
		}

		h, err := home.New(homeDir)
		if err != nil {
			return err
		}

		svcs := &svcctx.Services{Logger: logger, Home: h}
		if cmd.Annotations[annotationNoServices] == "" {
			mgr, err := config.NewManager(cfgFile, ".", h.Path())
			if err != nil {
				return err
			}
			cfg := mgr.Get()
			baseURL := cfg.APIBaseURL
			if serverURL != "" {
				baseURL = serverURL
			}
			svcs.Config = mgr
			svcs.Client = api.NewClient(baseURL,
				api.WithTimeout(cfg.HTTPTimeout),
				api.WithLogger(logger),
			)
			logger.Debug("config loaded", "file", mgr.File(), "api_base_url", baseURL)
		}

		cmd.SetContext(svcctx.WithServices(cmd.Context(), svcs))
		return nil
	},
}

// newLogger builds the stderr text logger at the named level.
func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: use debug, info, warn or error", level)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.atlas/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "atlas home directory (default: ~/.atlas)",
	)
	rootCmd.PersistentFlags().StringVar(
		&serverURL, "server", "", "backend base URL (overrides api_base_url)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", string(api.DefaultOutput), "output format: text, yaml or json",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "warn", "log level: debug, info, warn or error",
	)

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(ordersCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// services returns what PersistentPreRunE attached to the command context.
func services(cmd *cobra.Command) (*svcctx.Services, error) {
	s := svcctx.ServicesFrom(cmd.Context())
	if s == nil || s.Client == nil {
		return nil, fmt.Errorf("%s: services not initialized", cmd.CommandPath())
	}
	return s, nil
}
