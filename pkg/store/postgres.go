package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/marshallshelly/pebble-invoice/pkg/invoice"
)

// numberLockID is the transaction-scoped advisory lock serializing invoice
// number assignment.
const numberLockID int64 = 7_400_100_001

const invoiceColumns = `id::text, invoice_number, client_name, items, tax_percentage, discount,
	subtotal, tax_amount, final_total, created_at`

// PostgresRepository stores invoices in the invoices table.
type PostgresRepository struct {
	db  *DB
	log logrus.FieldLogger
}

// NewPostgresRepository creates a repository over db. The schema must have
// been migrated.
func NewPostgresRepository(db *DB, log logrus.FieldLogger) *PostgresRepository {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &PostgresRepository{db: db, log: log}
}

// Create inserts inv under the next invoice number. A unique violation from
// a writer outside the advisory lock is retried once.
func (r *PostgresRepository) Create(ctx context.Context, inv invoice.Invoice) (invoice.Invoice, error) {
	out, err := r.insert(ctx, inv)
	if errors.Is(err, ErrDuplicateKey) {
		r.log.WithError(err).Warn("invoice number collision, retrying")
		out, err = r.insert(ctx, inv)
	}
	return out, err
}

func (r *PostgresRepository) insert(ctx context.Context, inv invoice.Invoice) (invoice.Invoice, error) {
	out := inv.Clone()
	id := uuid.New()

	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", numberLockID); err != nil {
			return fmt.Errorf("failed to acquire invoice number lock: %w", err)
		}

		var seq int
		if err := tx.QueryRow(ctx, "SELECT COALESCE(MAX(seq), 0) + 1 FROM invoices").Scan(&seq); err != nil {
			return &QueryError{Query: "next invoice sequence", Err: mapError(err)}
		}

		query := `
			INSERT INTO invoices (id, seq, invoice_number, client_name, items, tax_percentage,
				discount, subtotal, tax_amount, final_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING created_at`

		var created time.Time
		err := tx.QueryRow(ctx, query,
			id, seq, FormatNumber(seq), inv.ClientName, items(inv.Items), inv.TaxPercentage,
			inv.Discount, inv.Subtotal, inv.TaxAmount, inv.FinalTotal,
		).Scan(&created)
		if err != nil {
			return &QueryError{Query: query, Err: mapError(err)}
		}

		created = created.UTC()
		out.ID = id.String()
		out.InvoiceNumber = FormatNumber(seq)
		out.CreatedAt = &created
		return nil
	})
	if err != nil {
		return invoice.Invoice{}, err
	}

	r.log.WithFields(logrus.Fields{
		"id":             out.ID,
		"invoice_number": out.InvoiceNumber,
	}).Info("invoice created")
	return out, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]invoice.Invoice, error) {
	return r.query(ctx, "SELECT "+invoiceColumns+" FROM invoices ORDER BY created_at DESC, seq DESC")
}

func (r *PostgresRepository) ListByClient(ctx context.Context, clientName string) ([]invoice.Invoice, error) {
	return r.query(ctx,
		"SELECT "+invoiceColumns+` FROM invoices
		WHERE client_name ILIKE '%' || $1 || '%'
		ORDER BY created_at DESC, seq DESC`,
		escapeLike(clientName))
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (invoice.Invoice, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return invoice.Invoice{}, ErrNotFound
	}

	query := "SELECT " + invoiceColumns + " FROM invoices WHERE id = $1"
	inv, err := scanInvoice(r.db.QueryRow(ctx, query, uid))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return invoice.Invoice{}, ErrNotFound
		}
		return invoice.Invoice{}, &QueryError{Query: query, Err: err}
	}
	return inv, nil
}

func (r *PostgresRepository) query(ctx context.Context, sql string, args ...any) ([]invoice.Invoice, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []invoice.Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, &QueryError{Query: sql, Err: err}
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{Query: sql, Err: mapError(err)}
	}
	return out, nil
}

func scanInvoice(row pgx.Row) (invoice.Invoice, error) {
	var (
		inv     invoice.Invoice
		created time.Time
	)
	err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.ClientName, &inv.Items, &inv.TaxPercentage,
		&inv.Discount, &inv.Subtotal, &inv.TaxAmount, &inv.FinalTotal, &created)
	if err != nil {
		return invoice.Invoice{}, mapError(err)
	}
	created = created.UTC()
	inv.CreatedAt = &created
	return inv, nil
}

// items keeps an empty slice from being stored as JSON null.
func items(in []invoice.LineItem) []invoice.LineItem {
	if in == nil {
		return []invoice.LineItem{}
	}
	return in
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
