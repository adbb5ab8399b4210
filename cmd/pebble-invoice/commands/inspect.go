package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/marshallshelly/pebble-invoice/cmd/pebble-invoice/output"
	"github.com/marshallshelly/pebble-invoice/pkg/store"
)

// inspectCmd shows the live invoices table
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Inspect the invoices table",
	Long: `Show the live definition of the invoices table as the database reports
it: columns, indexes, constraints, the stored row count and the last
invoice number issued.

Examples:
  pebble-invoice inspect --db $DATABASE_URL
  pebble-invoice inspect --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInspect()
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect() error {
	ctx := context.Background()

	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	info, err := db.Describe(ctx)
	if errors.Is(err, store.ErrTableMissing) {
		output.Warning("The invoices table does not exist yet")
		output.Muted("Run 'pebble-invoice migrate up' to create it.")
		return nil
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(output.Writer())
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	printTableInfo(output.Writer(), info)
	return nil
}

func printTableInfo(w io.Writer, info *store.TableInfo) {
	output.Section("Table: " + info.Name)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "COLUMN\tTYPE\tNULLABLE\tDEFAULT")
	for _, c := range info.Columns {
		nullable := "NO"
		if c.Nullable {
			nullable = "YES"
		}
		def := "-"
		if c.Default != nil {
			def = *c.Default
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Name, c.Type, nullable, def)
	}
	_ = tw.Flush()

	if len(info.Indexes) > 0 {
		_, _ = fmt.Fprintln(w, "\nIndexes:")
		for _, idx := range info.Indexes {
			unique := ""
			if idx.Unique {
				unique = "UNIQUE "
			}
			_, _ = fmt.Fprintf(w, "  %s%s (%s)\n", unique, idx.Name, strings.Join(idx.Columns, ", "))
		}
	}

	if len(info.Constraints) > 0 {
		_, _ = fmt.Fprintln(w, "\nConstraints:")
		for _, c := range info.Constraints {
			_, _ = fmt.Fprintf(w, "  %s: %s\n", c.Name, c.Definition)
		}
	}

	_, _ = fmt.Fprintln(w)
	last := info.LastNumber
	if last == "" {
		last = "none"
	}
	output.Info("%d invoice(s) stored, last number %s", info.Rows, last)
}
