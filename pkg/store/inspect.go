package store

import (
	"context"
	"fmt"
)

// InvoicesTable is the table the Postgres repository reads and writes.
const InvoicesTable = "invoices"

// Column describes one column of the invoices table.
type Column struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Nullable bool    `json:"nullable"`
	Default  *string `json:"default,omitempty"`
}

// Index describes a secondary index or a constraint-backed unique index.
type Index struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
}

// Constraint is a CHECK or UNIQUE constraint with its definition.
type Constraint struct {
	Name       string `json:"name"`
	Definition string `json:"definition"`
}

// TableInfo is the live shape of the invoices table plus a few figures
// about its contents.
type TableInfo struct {
	Name        string       `json:"name"`
	Columns     []Column     `json:"columns"`
	Indexes     []Index      `json:"indexes"`
	Constraints []Constraint `json:"constraints"`
	Rows        int64        `json:"rows"`
	LastNumber  string       `json:"last_invoice_number,omitempty"`
}

// Describe reads the invoices table definition from the catalog. It returns
// ErrTableMissing when migrations have not created the table yet.
func (db *DB) Describe(ctx context.Context) (*TableInfo, error) {
	info := &TableInfo{Name: InvoicesTable}

	var err error
	if info.Columns, err = db.columns(ctx); err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	if len(info.Columns) == 0 {
		return nil, ErrTableMissing
	}
	if info.Indexes, err = db.indexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to read indexes: %w", err)
	}
	if info.Constraints, err = db.constraints(ctx); err != nil {
		return nil, fmt.Errorf("failed to read constraints: %w", err)
	}

	var last *string
	err = db.pool.QueryRow(ctx,
		`SELECT COUNT(*), (SELECT invoice_number FROM invoices ORDER BY seq DESC LIMIT 1) FROM invoices`,
	).Scan(&info.Rows, &last)
	if err != nil {
		return nil, fmt.Errorf("failed to count invoices: %w", err)
	}
	if last != nil {
		info.LastNumber = *last
	}

	return info, nil
}

func (db *DB) columns(ctx context.Context) ([]Column, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT column_name, data_type, is_nullable, column_default
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position`, InvoicesTable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Column
	for rows.Next() {
		var c Column
		var nullable string
		if err := rows.Scan(&c.Name, &c.Type, &nullable, &c.Default); err != nil {
			return nil, err
		}
		c.Nullable = nullable == "YES"
		out = append(out, c)
	}
	return out, rows.Err()
}

func (db *DB) indexes(ctx context.Context) ([]Index, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT i.relname, array_agg(a.attname::text ORDER BY x.ordinality), ix.indisunique
		FROM pg_class t
		JOIN pg_index ix ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		CROSS JOIN LATERAL unnest(ix.indkey) WITH ORDINALITY AS x(attnum, ordinality)
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = x.attnum
		WHERE t.relname = $1
			AND t.relnamespace = (SELECT oid FROM pg_namespace WHERE nspname = current_schema())
			AND NOT ix.indisprimary
		GROUP BY i.relname, ix.indisunique
		ORDER BY i.relname`, InvoicesTable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Index
	for rows.Next() {
		var idx Index
		if err := rows.Scan(&idx.Name, &idx.Columns, &idx.Unique); err != nil {
			return nil, err
		}
		out = append(out, idx)
	}
	return out, rows.Err()
}

func (db *DB) constraints(ctx context.Context) ([]Constraint, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT con.conname, pg_get_constraintdef(con.oid)
		FROM pg_constraint con
		JOIN pg_class rel ON rel.oid = con.conrelid
		WHERE rel.relname = $1
			AND rel.relnamespace = (SELECT oid FROM pg_namespace WHERE nspname = current_schema())
			AND con.contype IN ('c', 'u')
		ORDER BY con.conname`, InvoicesTable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Constraint
	for rows.Next() {
		var c Constraint
		if err := rows.Scan(&c.Name, &c.Definition); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
