package store

import (
	"context"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migration is one versioned schema change.
type Migration struct {
	Version string // e.g. "20260301090000"
	Name    string // e.g. "create_invoices"
	UpSQL   string
	DownSQL string
}

// MigrationStatus is the state recorded in schema_migrations.
type MigrationStatus string

const (
	StatusPending MigrationStatus = "pending"
	StatusApplied MigrationStatus = "applied"
	StatusFailed  MigrationStatus = "failed"
)

// MigrationRecord is a row of schema_migrations, or a pending migration that
// has no row yet.
type MigrationRecord struct {
	Version   string
	Name      string
	Status    MigrationStatus
	AppliedAt *time.Time
	Error     *string
}

// Migrations returns the embedded migrations ordered by version.
func Migrations() ([]Migration, error) {
	return loadMigrations(migrationFiles, "migrations")
}

// loadMigrations reads {version}_{name}.{up|down}.sql pairs from dir.
func loadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	byVersion := make(map[string]*Migration)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		version, rest, ok := strings.Cut(entry.Name(), "_")
		if !ok {
			continue
		}

		var up bool
		name, isUp := strings.CutSuffix(rest, ".up.sql")
		if isUp {
			up = true
		} else if name, ok = strings.CutSuffix(rest, ".down.sql"); !ok {
			continue
		}

		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}

		m, exists := byVersion[version]
		if !exists {
			m = &Migration{Version: version, Name: name}
			byVersion[version] = m
		}
		if up {
			m.UpSQL = string(data)
		} else {
			m.DownSQL = string(data)
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.UpSQL == "" || m.DownSQL == "" {
			return nil, fmt.Errorf("migration %s_%s needs both up and down files", m.Version, m.Name)
		}
		migrations = append(migrations, *m)
	}
	slices.SortFunc(migrations, func(a, b Migration) int {
		return strings.Compare(a.Version, b.Version)
	})
	return migrations, nil
}

// Migrator applies the embedded migrations and tracks them in
// schema_migrations.
type Migrator struct {
	pool       *pgxpool.Pool
	migrations []Migration
	lockID     int64 // PostgreSQL advisory lock ID
	log        logrus.FieldLogger
}

// NewMigrator creates a migrator for the embedded migrations.
func NewMigrator(db *DB, log logrus.FieldLogger) (*Migrator, error) {
	migrations, err := Migrations()
	if err != nil {
		return nil, err
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Migrator{
		pool:       db.Pool(),
		migrations: migrations,
		lockID:     7_400_100_000,
		log:        log,
	}, nil
}

// Initialize creates the schema_migrations table if it doesn't exist.
func (m *Migrator) Initialize(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(14) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			applied_at TIMESTAMPTZ,
			error TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := m.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	return nil
}

// withLock runs fn while holding the session advisory lock. The lock and
// unlock must use the same connection, so one is held for the duration.
func (m *Migrator) withLock(ctx context.Context, fn func(conn *pgxpool.Conn) error) error {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", m.lockID); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	defer func() {
		var released bool
		if err := conn.QueryRow(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", m.lockID).Scan(&released); err != nil || !released {
			m.log.WithError(err).Warn("failed to release migration lock")
		}
	}()

	return fn(conn)
}

// Records returns every row of schema_migrations ordered by version.
func (m *Migrator) Records(ctx context.Context) ([]MigrationRecord, error) {
	rows, err := m.pool.Query(ctx, `
		SELECT version, name, status, applied_at, error
		FROM schema_migrations
		ORDER BY version ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	var records []MigrationRecord
	for rows.Next() {
		var r MigrationRecord
		if err := rows.Scan(&r.Version, &r.Name, &r.Status, &r.AppliedAt, &r.Error); err != nil {
			return nil, fmt.Errorf("failed to scan migration record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Status merges the embedded migrations with their recorded state.
func (m *Migrator) Status(ctx context.Context) ([]MigrationRecord, error) {
	recorded, err := m.Records(ctx)
	if err != nil {
		return nil, err
	}
	byVersion := make(map[string]MigrationRecord, len(recorded))
	for _, r := range recorded {
		byVersion[r.Version] = r
	}

	records := make([]MigrationRecord, 0, len(m.migrations))
	for _, mig := range m.migrations {
		if r, ok := byVersion[mig.Version]; ok {
			records = append(records, r)
			continue
		}
		records = append(records, MigrationRecord{Version: mig.Version, Name: mig.Name, Status: StatusPending})
	}
	return records, nil
}

// Up applies every pending migration in version order and returns the ones
// it applied.
func (m *Migrator) Up(ctx context.Context) ([]Migration, error) {
	if err := m.Initialize(ctx); err != nil {
		return nil, err
	}

	var applied []Migration
	err := m.withLock(ctx, func(conn *pgxpool.Conn) error {
		status, err := m.Status(ctx)
		if err != nil {
			return err
		}
		for i, mig := range m.migrations {
			if status[i].Status == StatusApplied {
				continue
			}
			if err := m.apply(ctx, conn, mig); err != nil {
				return err
			}
			m.log.WithFields(logrus.Fields{"version": mig.Version, "name": mig.Name}).Info("migration applied")
			applied = append(applied, mig)
		}
		return nil
	})
	return applied, err
}

// Down rolls back the most recently applied migration. It returns nil when
// nothing is applied.
func (m *Migrator) Down(ctx context.Context) (*Migration, error) {
	if err := m.Initialize(ctx); err != nil {
		return nil, err
	}

	var rolledBack *Migration
	err := m.withLock(ctx, func(conn *pgxpool.Conn) error {
		status, err := m.Status(ctx)
		if err != nil {
			return err
		}
		for i := len(m.migrations) - 1; i >= 0; i-- {
			if status[i].Status != StatusApplied {
				continue
			}
			mig := m.migrations[i]
			if err := m.rollback(ctx, conn, mig); err != nil {
				return err
			}
			m.log.WithFields(logrus.Fields{"version": mig.Version, "name": mig.Name}).Info("migration rolled back")
			rolledBack = &mig
			return nil
		}
		return nil
	})
	return rolledBack, err
}

func (m *Migrator) apply(ctx context.Context, conn *pgxpool.Conn, mig Migration) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return &MigrationError{Version: mig.Version, Message: "failed to begin transaction", Err: err}
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		"INSERT INTO schema_migrations (version, name, status) VALUES ($1, $2, 'pending') ON CONFLICT (version) DO UPDATE SET status = 'pending', error = NULL",
		mig.Version, mig.Name,
	)
	if err != nil {
		return &MigrationError{Version: mig.Version, Message: "failed to record migration", Err: err}
	}

	for i, stmt := range splitSQL(mig.UpSQL) {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			// The failed transaction is discarded; record the failure on its own.
			_ = tx.Rollback(ctx)
			m.recordFailure(ctx, conn, mig, fmt.Sprintf("statement %d failed: %v", i+1, err))
			return &MigrationError{Version: mig.Version, Message: fmt.Sprintf("statement %d failed", i+1), Err: err}
		}
	}

	_, err = tx.Exec(ctx,
		"UPDATE schema_migrations SET status = 'applied', applied_at = NOW(), error = NULL WHERE version = $1",
		mig.Version,
	)
	if err != nil {
		return &MigrationError{Version: mig.Version, Message: "failed to update migration status", Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return &MigrationError{Version: mig.Version, Message: "failed to commit migration", Err: err}
	}
	return nil
}

func (m *Migrator) recordFailure(ctx context.Context, conn *pgxpool.Conn, mig Migration, msg string) {
	_, err := conn.Exec(ctx,
		`INSERT INTO schema_migrations (version, name, status, error, applied_at)
		VALUES ($1, $2, 'failed', $3, NOW())
		ON CONFLICT (version) DO UPDATE SET status = 'failed', error = $3, applied_at = NOW()`,
		mig.Version, mig.Name, msg,
	)
	if err != nil {
		m.log.WithError(err).WithField("version", mig.Version).Warn("failed to record migration failure")
	}
}

func (m *Migrator) rollback(ctx context.Context, conn *pgxpool.Conn, mig Migration) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return &MigrationError{Version: mig.Version, Message: "failed to begin transaction", Err: err}
	}
	defer tx.Rollback(ctx)

	for i, stmt := range splitSQL(mig.DownSQL) {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return &MigrationError{Version: mig.Version, Message: fmt.Sprintf("rollback statement %d failed", i+1), Err: err}
		}
	}

	if _, err := tx.Exec(ctx, "DELETE FROM schema_migrations WHERE version = $1", mig.Version); err != nil {
		return &MigrationError{Version: mig.Version, Message: "failed to delete migration record", Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return &MigrationError{Version: mig.Version, Message: "failed to commit rollback", Err: err}
	}
	return nil
}

// splitSQL drops comment lines and splits on semicolons. Migrations must not
// contain semicolons inside literals or function bodies.
func splitSQL(sql string) []string {
	var kept []string
	for line := range strings.Lines(sql) {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		kept = append(kept, line)
	}

	var out []string
	for stmt := range strings.SplitSeq(strings.Join(kept, ""), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
