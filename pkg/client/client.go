// Package client talks to the invoice persistence service over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/marshallshelly/pebble-invoice/pkg/invoice"
)

// DefaultBaseURL is where a locally started `pebble-invoice serve` listens.
const DefaultBaseURL = "http://localhost:5000/api"

// Client performs one request per call. It never retries and imposes no
// timeout of its own; cancel through ctx.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        logrus.FieldLogger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// New creates a client for the API rooted at baseURL (e.g. "http://host:5000/api").
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		log:        discard,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CreateResult is the envelope returned by a successful create.
type CreateResult struct {
	Message   string          `json:"message"`
	InvoiceID string          `json:"invoice_id"`
	Invoice   invoice.Invoice `json:"invoice"`
}

// PDFResult is the payload of the generate-pdf endpoint.
type PDFResult struct {
	ContentType string
	Body        []byte
}

// IsPDF reports whether the service returned a rendered document rather than
// a JSON acknowledgement.
func (r *PDFResult) IsPDF() bool {
	return strings.HasPrefix(r.ContentType, "application/pdf")
}

// List returns every invoice.
func (c *Client) List(ctx context.Context) ([]invoice.Invoice, error) {
	var out []invoice.Invoice
	if err := c.do(ctx, http.MethodGet, "/invoices/", nil, &out, ListFailed); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByClient returns the invoices the service matches against clientName.
func (c *Client) ListByClient(ctx context.Context, clientName string) ([]invoice.Invoice, error) {
	q := url.Values{}
	q.Set("client", clientName)

	var out []invoice.Invoice
	if err := c.do(ctx, http.MethodGet, "/invoices/?"+q.Encode(), nil, &out, ListFailed); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches one invoice by id.
func (c *Client) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	var out invoice.Invoice
	if err := c.do(ctx, http.MethodGet, "/invoices/"+url.PathEscape(id), nil, &out, GetFailed); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create submits a draft. The returned invoice, not the draft, is authoritative.
func (c *Client) Create(ctx context.Context, draft invoice.Invoice) (*CreateResult, error) {
	payload := draft.Clone()
	payload.ID = ""
	payload.InvoiceNumber = ""
	payload.CreatedAt = nil

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &Error{Message: CreateFailed, Err: err}
	}

	var out CreateResult
	if err := c.do(ctx, http.MethodPost, "/invoices/", body, &out, CreateFailed); err != nil {
		return nil, err
	}
	if out.InvoiceID == "" {
		out.InvoiceID = out.Invoice.ID
	}
	if out.Invoice.ID == "" {
		out.Invoice.ID = out.InvoiceID
	}
	return &out, nil
}

// GeneratePDF asks the service to render an invoice.
func (c *Client) GeneratePDF(ctx context.Context, id string) (*PDFResult, error) {
	resp, err := c.send(ctx, http.MethodGet, "/invoices/generate-pdf/"+url.PathEscape(id), nil, PDFFailed)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{StatusCode: resp.StatusCode, Message: PDFFailed, Err: err}
	}
	return &PDFResult{ContentType: resp.Header.Get("Content-Type"), Body: body}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any, fallback string) error {
	resp, err := c.send(ctx, method, path, body, fallback)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{StatusCode: resp.StatusCode, Message: fallback, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// send performs the request and turns transport failures and non-2xx
// responses into *Error. On success the caller owns resp.Body.
func (c *Client) send(ctx context.Context, method, path string, body []byte, fallback string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, &Error{Message: fallback, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log := c.log.WithFields(logrus.Fields{"method": method, "url": req.URL.String()})
	log.Debug("sending request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Debug("request failed")
		return nil, &Error{Message: fallback, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		apiErr := errorFromResponse(resp, fallback)
		log.WithFields(logrus.Fields{"status": resp.StatusCode, "error": apiErr.Message}).Debug("request rejected")
		return nil, apiErr
	}

	log.WithField("status", resp.StatusCode).Debug("request completed")
	return resp, nil
}
