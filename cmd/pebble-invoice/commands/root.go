package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/marshallshelly/pebble-invoice/pkg/client"
	"github.com/marshallshelly/pebble-invoice/pkg/draft"
	"github.com/marshallshelly/pebble-invoice/pkg/store"
)

var (
	// Global flags
	apiURL     string
	dbURL      string
	addr       string
	session    string
	logLevel   string
	verbose    bool
	jsonOutput bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pebble-invoice",
	Short: "Pebble Invoice - create, preview and track client invoices",
	Long: `Pebble Invoice creates client invoices, previews and exports them, and keeps
a searchable history backed by the invoice service.

Features:
  - Line items with live subtotal, discount, tax and total
  - Plain-text print layout and PDF export
  - Invoice history with search and sortable columns
  - Interactive TUI and non-interactive CLI modes
  - HTTP invoice service backed by PostgreSQL or memory`,
	Version:           "0.4.0",
	SilenceUsage:      true,
	PersistentPreRunE: applyEnv,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", client.DefaultBaseURL, "Invoice service base URL (env INVOICE_API_URL)")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "Database connection URL (env DATABASE_URL)")
	rootCmd.PersistentFlags().StringVar(&addr, "addr", ":5000", "Listen address for serve (env PORT)")
	rootCmd.PersistentFlags().StringVar(&session, "session", draft.DefaultSession, "Draft session key (env INVOICE_SESSION)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
}

// envFlags maps flags to the environment variables that fill them.
var envFlags = map[string]string{
	"api":       "INVOICE_API_URL",
	"db":        "DATABASE_URL",
	"session":   "INVOICE_SESSION",
	"log-level": "LOG_LEVEL",
}

// applyEnv fills every flag the user did not pass from its environment
// variable. Explicit flags always win.
func applyEnv(cmd *cobra.Command, _ []string) error {
	for name, env := range envFlags {
		if f := cmd.Flag(name); f == nil || f.Changed {
			continue
		}
		if v := os.Getenv(env); v != "" {
			if err := cmd.Flags().Set(name, v); err != nil {
				return fmt.Errorf("invalid %s: %w", env, err)
			}
		}
	}
	if f := cmd.Flag("addr"); f != nil && !f.Changed {
		if port := os.Getenv("PORT"); port != "" {
			addr = ":" + port
		}
	}
	return nil
}

func newLogger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid --log-level: %w", err)
	}
	if verbose {
		level = logrus.DebugLevel
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(level)
	if jsonOutput {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log, nil
}

func newClient(log logrus.FieldLogger) *client.Client {
	return client.New(apiURL, client.WithLogger(log))
}

func newSlot() (*draft.FileSlot, error) {
	return draft.NewFileSlot("", session)
}

func openDB(ctx context.Context) (*store.DB, error) {
	if dbURL == "" {
		return nil, fmt.Errorf("--db flag is required")
	}
	db, err := store.Connect(ctx, store.DefaultConfig(dbURL))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}
