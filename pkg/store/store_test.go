package store

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marshallshelly/pebble-invoice/pkg/invoice"
)

func TestNumbering(t *testing.T) {
	assert.Equal(t, "INV-001", FormatNumber(1))
	assert.Equal(t, "INV-042", FormatNumber(42))
	assert.Equal(t, "INV-1000", FormatNumber(1000))

	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"INV-001", 1, true},
		{"INV-1000", 1000, true},
		{"INV-000", 0, false},
		{"INV-abc", 0, false},
		{"2024-001", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Sequence(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func fixedClock(times ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		t := times[i%len(times)]
		i++
		return t
	}
}

func TestMemoryRepository(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := NewMemoryRepository(WithClock(fixedClock(t0, t0.Add(time.Hour), t0.Add(2*time.Hour))))

	first := invoice.NewDraft()
	first.SetClientName("Acme Corp")
	require.NoError(t, first.SetItemRate(0, 10))

	second := first.Clone()
	second.SetClientName("Zeta")

	third := first.Clone()
	third.SetClientName("acme labs")

	var created []invoice.Invoice
	for _, inv := range []invoice.Invoice{first, second, third} {
		out, err := repo.Create(ctx, inv)
		require.NoError(t, err)
		created = append(created, out)
	}

	assert.Equal(t, "INV-001", created[0].InvoiceNumber)
	assert.Equal(t, "INV-003", created[2].InvoiceNumber)
	_, err := uuid.Parse(created[0].ID)
	assert.NoError(t, err)
	require.NotNil(t, created[1].CreatedAt)
	assert.True(t, t0.Add(time.Hour).Equal(*created[1].CreatedAt))
	assert.Equal(t, 10.0, created[0].Subtotal)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"INV-003", "INV-002", "INV-001"}, numbers(all))

	acme, err := repo.ListByClient(ctx, "ACME")
	require.NoError(t, err)
	assert.Equal(t, []string{"INV-003", "INV-001"}, numbers(acme))

	got, err := repo.Get(ctx, created[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "Zeta", got.ClientName)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	out, err := repo.Create(ctx, invoice.NewDraft())
	require.NoError(t, err)
	out.Items[0].Name = "mutated"

	got, err := repo.Get(ctx, out.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Items[0].Name)
}

func TestMemoryRepositorySeedContinuesNumbering(t *testing.T) {
	repo := NewMemoryRepository(WithSeed(
		invoice.Invoice{ID: "a", InvoiceNumber: "INV-007"},
		invoice.Invoice{ID: "b", InvoiceNumber: "legacy"},
	))

	out, err := repo.Create(context.Background(), invoice.NewDraft())
	require.NoError(t, err)
	assert.Equal(t, "INV-008", out.InvoiceNumber)
}

func TestMemoryRepositoryCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := NewMemoryRepository()
	_, err := repo.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = repo.Create(ctx, invoice.NewDraft())
	assert.ErrorIs(t, err, context.Canceled)
}

func numbers(invoices []invoice.Invoice) []string {
	out := make([]string, len(invoices))
	for i, inv := range invoices {
		out[i] = inv.InvoiceNumber
	}
	return out
}

func TestMapError(t *testing.T) {
	assert.Nil(t, mapError(nil))
	assert.ErrorIs(t, mapError(pgx.ErrNoRows), ErrNotFound)

	unique := &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "invoices_seq_key"}
	err := mapError(unique)
	assert.ErrorIs(t, err, ErrDuplicateKey)
	var pgErr *pgconn.PgError
	require.ErrorAs(t, err, &pgErr)
	assert.Equal(t, "invoices_seq_key", pgErr.ConstraintName)

	other := &pgconn.PgError{Code: pgerrcode.UndefinedTable}
	assert.Same(t, other, mapError(other))

	plain := errors.New("boom")
	assert.Equal(t, plain, mapError(plain))
}

func TestErrorTypes(t *testing.T) {
	qe := &QueryError{Query: "SELECT 1", Err: ErrNotFound}
	assert.ErrorIs(t, qe, ErrNotFound)
	assert.Contains(t, qe.Error(), "SELECT 1")

	me := &MigrationError{Version: "1", Message: "failed", Err: ErrDuplicateKey}
	assert.ErrorIs(t, me, ErrDuplicateKey)
	assert.Contains(t, me.Error(), "version 1")
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c:\\x`, escapeLike(`c:\x`))
	assert.Equal(t, "Acme", escapeLike("Acme"))
}

func TestSplitSQL(t *testing.T) {
	sql := `-- leading comment
CREATE TABLE a (id INT);

-- another
CREATE INDEX idx ON a (id);
`
	assert.Equal(t, []string{"CREATE TABLE a (id INT)", "CREATE INDEX idx ON a (id)"}, splitSQL(sql))
	assert.Empty(t, splitSQL("-- only a comment\n"))
}

func TestEmbeddedMigrations(t *testing.T) {
	migrations, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	assert.Equal(t, "create_invoices", migrations[0].Name)
	assert.Contains(t, migrations[0].UpSQL, "CREATE TABLE IF NOT EXISTS invoices")
	assert.Contains(t, migrations[0].DownSQL, "DROP TABLE IF EXISTS invoices")

	for i := 1; i < len(migrations); i++ {
		assert.Less(t, migrations[i-1].Version, migrations[i].Version)
	}
}

func TestLoadMigrations(t *testing.T) {
	t.Run("pairs and orders", func(t *testing.T) {
		fsys := fstest.MapFS{
			"m/002_second.up.sql":   {Data: []byte("SELECT 2")},
			"m/002_second.down.sql": {Data: []byte("SELECT -2")},
			"m/001_first.up.sql":    {Data: []byte("SELECT 1")},
			"m/001_first.down.sql":  {Data: []byte("SELECT -1")},
			"m/README.md":           {Data: []byte("ignored")},
		}
		got, err := loadMigrations(fsys, "m")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, Migration{Version: "001", Name: "first", UpSQL: "SELECT 1", DownSQL: "SELECT -1"}, got[0])
		assert.Equal(t, "second", got[1].Name)
	})

	t.Run("missing down file", func(t *testing.T) {
		fsys := fstest.MapFS{
			"m/001_first.up.sql": {Data: []byte("SELECT 1")},
		}
		_, err := loadMigrations(fsys, "m")
		assert.Error(t, err)
	})
}

func TestConnectWithoutURL(t *testing.T) {
	_, err := Connect(context.Background(), Config{})
	assert.ErrorIs(t, err, ErrNoConnection)

	cfg := DefaultConfig("postgres://localhost/invoices")
	assert.Equal(t, int32(10), cfg.MaxConns)
}
