package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/marshallshelly/pebble-invoice/cmd/pebble-invoice/output"
	"github.com/marshallshelly/pebble-invoice/pkg/server"
	"github.com/marshallshelly/pebble-invoice/pkg/store"
)

var (
	// Serve flags
	autoMigrate bool
)

// serveCmd runs the invoice service
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the invoice HTTP service",
	Long: `Run the invoice service that the other commands talk to.

With --db (or DATABASE_URL) invoices are stored in PostgreSQL and pending
migrations are applied on start. Without it invoices live in memory and are
lost on exit.

Examples:
  pebble-invoice serve --db postgres://localhost/invoices
  PORT=8080 pebble-invoice serve
  pebble-invoice serve --migrate=false`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", true, "Apply pending migrations on start")
}

func runServe(cmd *cobra.Command) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	// the access log is the point of running a service, so default to info
	if !cmd.Flag("log-level").Changed && os.Getenv("LOG_LEVEL") == "" && !verbose {
		log.SetLevel(logrus.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, cleanup, err := openRepository(ctx, log)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := server.New(repo, server.WithLogger(log))
	output.Success("Invoice service listening on %s", addr)
	return srv.ListenAndServe(ctx, addr)
}

// openRepository picks PostgreSQL when a database URL is configured and the
// in-memory repository otherwise.
func openRepository(ctx context.Context, log logrus.FieldLogger) (store.Repository, func(), error) {
	if dbURL == "" {
		output.Warning("No --db given; invoices are kept in memory only")
		return store.NewMemoryRepository(), func() {}, nil
	}

	db, err := openDB(ctx)
	if err != nil {
		return nil, nil, err
	}

	if autoMigrate {
		migrator, err := store.NewMigrator(db, log)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to load migrations: %w", err)
		}
		applied, err := migrator.Up(ctx)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
		if len(applied) > 0 {
			output.Info("Applied %d migration(s)", len(applied))
		}
	}

	return store.NewPostgresRepository(db, log), db.Close, nil
}
