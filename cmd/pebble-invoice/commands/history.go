package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/marshallshelly/pebble-invoice/cmd/pebble-invoice/output"
	"github.com/marshallshelly/pebble-invoice/cmd/pebble-invoice/tui"
	"github.com/marshallshelly/pebble-invoice/pkg/client"
	"github.com/marshallshelly/pebble-invoice/pkg/history"
	"github.com/marshallshelly/pebble-invoice/pkg/invoice"
	"github.com/marshallshelly/pebble-invoice/pkg/render"
)

var (
	// History flags
	searchTerm         string
	clientFilter       string
	sortField          string
	sortOrder          string
	historyInteractive bool
)

// historyCmd lists saved invoices
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved invoices",
	Long: `List saved invoices, newest first by default.

--search matches client name or invoice number, case-insensitively, on the
fetched list. --client asks the service to filter by client name instead.

Examples:
  pebble-invoice history                          # Newest first
  pebble-invoice history --search acme            # Filter locally
  pebble-invoice history --sort client_name --order asc
  pebble-invoice history --client acme --json     # Filter on the service
  pebble-invoice history -i                       # Open in the TUI`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHistory()
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVarP(&searchTerm, "search", "s", "", "Filter by client name or invoice number")
	historyCmd.Flags().StringVar(&clientFilter, "client", "", "Ask the service for invoices of this client only")
	historyCmd.Flags().StringVar(&sortField, "sort", string(history.SortByCreatedAt), "Sort column: client_name or created_at")
	historyCmd.Flags().StringVar(&sortOrder, "order", string(history.Desc), "Sort direction: asc or desc")
	historyCmd.Flags().BoolVarP(&historyInteractive, "interactive", "i", false, "Run in interactive mode with TUI")
}

func runHistory() error {
	if historyInteractive {
		return runUI(tui.Location{Route: tui.RouteHistory})
	}

	field, err := history.ParseSortField(sortField)
	if err != nil {
		return err
	}
	dir, err := history.ParseSortDirection(sortOrder)
	if err != nil {
		return err
	}
	query := history.Query{Search: searchTerm, Field: field, Direction: dir}

	log, err := newLogger()
	if err != nil {
		return err
	}

	c := newClient(log)
	ctx := context.Background()

	var invoices []invoice.Invoice
	if clientFilter != "" {
		invoices, err = c.ListByClient(ctx, clientFilter)
	} else {
		invoices, err = c.List(ctx)
	}
	if err != nil {
		output.Error("%s", client.Message(err))
		return err
	}

	view := history.DeriveView(invoices, query)

	if jsonOutput {
		enc := json.NewEncoder(output.Writer())
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}

	if len(view) == 0 {
		output.Muted("No invoices found.")
		return nil
	}

	printHistory(view, query)
	return nil
}

func printHistory(view []invoice.Invoice, q history.Query) {
	column := func(name string, f history.SortField) string {
		if q.Field == f {
			return name + " " + q.Direction.Arrow()
		}
		return name
	}

	w := tabwriter.NewWriter(output.Writer(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "INVOICE #\t%s\t%s\tAMOUNT\tID\n",
		column("CLIENT NAME", history.SortByClientName),
		column("DATE", history.SortByCreatedAt),
	)
	for _, inv := range view {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			inv.InvoiceNumber,
			inv.ClientName,
			render.Date(inv.CreatedAt),
			render.Money(inv.FinalTotal),
			inv.ID,
		)
	}
	_ = w.Flush()

	fmt.Fprintf(output.Writer(), "\n%d invoice(s)\n", len(view))
}
