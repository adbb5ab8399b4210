package commands

import (
	"bytes"
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/marshallshelly/pebble-invoice/cmd/pebble-invoice/output"
	"github.com/marshallshelly/pebble-invoice/pkg/client"
	"github.com/marshallshelly/pebble-invoice/pkg/render"
)

var (
	// PDF flags
	pdfOutput string
	pdfLocal  bool
)

// pdfCmd exports a saved invoice as PDF
var pdfCmd = &cobra.Command{
	Use:   "pdf <id>",
	Short: "Export a saved invoice as PDF",
	Long: `Export a saved invoice as PDF.

The service renders the document; when it only acknowledges the request, or
with --local, the PDF is rendered here from the fetched invoice.

Examples:
  pebble-invoice pdf 3f0c...                 # Writes Invoice-INV-001.pdf
  pebble-invoice pdf 3f0c... -o acme.pdf
  pebble-invoice pdf 3f0c... --local`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPDF(args[0])
	},
}

func init() {
	rootCmd.AddCommand(pdfCmd)

	pdfCmd.Flags().StringVarP(&pdfOutput, "output", "o", "", "Output file (default Invoice-<number>.pdf)")
	pdfCmd.Flags().BoolVar(&pdfLocal, "local", false, "Render locally instead of asking the service")
}

func runPDF(id string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	c := newClient(log)
	ctx := context.Background()

	inv, err := c.Get(ctx, id)
	if err != nil {
		output.Error("%s", client.GetFailed)
		return err
	}

	path := pdfOutput
	if path == "" {
		path = render.FileName(*inv)
	}

	var doc []byte
	if !pdfLocal {
		res, err := c.GeneratePDF(ctx, id)
		if err != nil {
			output.Error("%s", client.Message(err))
			return err
		}
		if res.IsPDF() {
			doc = res.Body
		} else {
			log.WithField("content_type", res.ContentType).Debug("service did not return a document, rendering locally")
		}
	}

	err = writeFile(path, func(w io.Writer) error {
		if doc != nil {
			_, err := io.Copy(w, bytes.NewReader(doc))
			return err
		}
		return render.PDF(w, *inv, render.DefaultOptions())
	})
	if err != nil {
		output.Error("%s", client.PDFFailed)
		return err
	}

	output.Success("Exported %s", path)
	return nil
}
