package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/marshallshelly/pebble-invoice/cmd/pebble-invoice/output"
	"github.com/marshallshelly/pebble-invoice/cmd/pebble-invoice/tui"
	"github.com/marshallshelly/pebble-invoice/pkg/store"
)

var (
	// Migrate flags
	dryRun      bool
	steps       int
	interactive bool

	migrationName string
	migrationsDir string
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Run the invoice service's database migrations.

Subcommands:
  up      - Apply pending migrations
  down    - Rollback migrations
  status  - Show migration status
  new     - Scaffold an empty migration pair`,
}

// migrateUpCmd applies pending migrations
var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	Long: `Apply every pending migration in version order.

Examples:
  pebble-invoice migrate up --db $DATABASE_URL      # Apply all pending migrations
  pebble-invoice migrate up --dry-run               # Preview migrations without applying
  pebble-invoice migrate up -i                      # Choose interactively`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrateUp()
	},
}

// migrateDownCmd rolls back migrations
var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Rollback migrations",
	Long: `Rollback applied migrations, most recent first.

Examples:
  pebble-invoice migrate down                # Rollback last migration
  pebble-invoice migrate down --steps 2      # Rollback the last two
  pebble-invoice migrate down --dry-run      # Preview rollback without executing`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrateDown()
	},
}

// migrateStatusCmd shows migration status
var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	Long: `Show the status of all migrations (pending, applied, failed).

Examples:
  pebble-invoice migrate status              # Show migration status
  pebble-invoice migrate status --json       # Output in JSON format`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrateStatus()
	},
}

// migrateNewCmd scaffolds a migration
var migrateNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create an empty migration",
	Long: `Create a timestamped pair of empty up/down SQL files. Migrations are
embedded into the binary, so new files take effect on the next build.

Examples:
  pebble-invoice migrate new --name add_due_date
  pebble-invoice migrate new --name add_due_date --dir ./migrations`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := store.NewMigrationFiles(migrationsDir, migrationName, time.Now())
		if err != nil {
			return err
		}
		output.Success("Created migration %s_%s", file.Version, file.Name)
		output.Muted("  Up:   %s", file.UpPath)
		output.Muted("  Down: %s", file.DownPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd, migrateNewCmd)

	migrateNewCmd.Flags().StringVarP(&migrationName, "name", "n", "", "Migration name in lower_snake_case (required)")
	migrateNewCmd.Flags().StringVar(&migrationsDir, "dir", "pkg/store/migrations", "Directory holding the migration files")
	_ = migrateNewCmd.MarkFlagRequired("name")

	// Flags for migrate up
	migrateUpCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Run in interactive mode with TUI")
	migrateUpCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview migrations without applying")

	// Flags for migrate down
	migrateDownCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Run in interactive mode with TUI")
	migrateDownCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview rollback without executing")
	migrateDownCmd.Flags().IntVar(&steps, "steps", 1, "Number of migrations to rollback")
}

// withMigrator connects, builds a migrator and closes the pool afterwards.
func withMigrator(fn func(ctx context.Context, m *store.Migrator) error) error {
	ctx := context.Background()

	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	log, err := newLogger()
	if err != nil {
		return err
	}

	migrator, err := store.NewMigrator(db, log)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	if err := migrator.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	return fn(ctx, migrator)
}

func runMigrateUp() error {
	return withMigrator(func(ctx context.Context, m *store.Migrator) error {
		// Run interactive TUI if flag is set
		if interactive {
			return tui.RunMigrateUI("up", m)
		}

		if dryRun {
			status, err := m.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			output.Section("DRY RUN - Preview")
			pending := 0
			for _, r := range status {
				if r.Status == store.StatusApplied {
					continue
				}
				pending++
				fmt.Fprintf(output.Writer(), "  %s %s - %s\n", output.StatusIcon(string(r.Status)), r.Version, r.Name)
			}
			if pending == 0 {
				output.Info("No pending migrations")
			}
			return nil
		}

		output.Section("Applying Migrations")
		applied, err := m.Up(ctx)
		for _, mig := range applied {
			output.Success("Applied %s - %s", mig.Version, mig.Name)
		}
		if err != nil {
			output.Error("Migration failed: %v", err)
			return err
		}
		if len(applied) == 0 {
			output.Info("No pending migrations")
			return nil
		}

		fmt.Fprintln(output.Writer())
		output.Success("Successfully applied %d migration(s)", len(applied))
		return nil
	})
}

func runMigrateDown() error {
	return withMigrator(func(ctx context.Context, m *store.Migrator) error {
		// Run interactive TUI if flag is set
		if interactive {
			return tui.RunMigrateUI("down", m)
		}

		if dryRun {
			status, err := m.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			output.Section("DRY RUN - Preview")
			output.Info("The following migrations would be rolled back:")
			n := 0
			for i := len(status) - 1; i >= 0 && n < steps; i-- {
				if status[i].Status != store.StatusApplied {
					continue
				}
				n++
				fmt.Fprintf(output.Writer(), "  %s %s - %s\n", output.StatusIcon("applied"), status[i].Version, status[i].Name)
			}
			return nil
		}

		output.Section("Rolling Back Migrations")
		rolledBack := 0
		for range steps {
			mig, err := m.Down(ctx)
			if err != nil {
				output.Error("Rollback failed: %v", err)
				return err
			}
			if mig == nil {
				break
			}
			rolledBack++
			output.Success("Rolled back %s - %s", mig.Version, mig.Name)
		}

		if rolledBack == 0 {
			output.Info("No migrations to rollback")
			return nil
		}
		fmt.Fprintln(output.Writer())
		output.Success("Successfully rolled back %d migration(s)", rolledBack)
		return nil
	})
}

func runMigrateStatus() error {
	return withMigrator(func(ctx context.Context, m *store.Migrator) error {
		status, err := m.Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to get migration status: %w", err)
		}

		// Output
		if jsonOutput {
			enc := json.NewEncoder(output.Writer())
			enc.SetIndent("", "  ")
			return enc.Encode(status)
		}

		// Table output
		w := tabwriter.NewWriter(output.Writer(), 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "VERSION\tNAME\tSTATUS\tAPPLIED AT")
		_, _ = fmt.Fprintln(w, "-------\t----\t------\t----------")

		counts := map[store.MigrationStatus]int{}
		for _, record := range status {
			appliedAt := "N/A"
			if record.AppliedAt != nil {
				appliedAt = record.AppliedAt.Format("2006-01-02 15:04:05")
			}
			counts[record.Status]++

			_, _ = fmt.Fprintf(w, "%s\t%s\t%s %s\t%s\n",
				record.Version,
				record.Name,
				output.StatusIcon(string(record.Status)),
				record.Status,
				appliedAt,
			)
		}
		_ = w.Flush()

		fmt.Fprintf(output.Writer(), "\nSummary: %d applied, %d pending", counts[store.StatusApplied], counts[store.StatusPending])
		if failed := counts[store.StatusFailed]; failed > 0 {
			fmt.Fprintf(output.Writer(), ", %d failed", failed)
		}
		fmt.Fprintln(output.Writer())
		return nil
	})
}
