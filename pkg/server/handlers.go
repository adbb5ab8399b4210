package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/marshallshelly/pebble-invoice/pkg/invoice"
	"github.com/marshallshelly/pebble-invoice/pkg/render"
	"github.com/marshallshelly/pebble-invoice/pkg/store"
)

// maxBodyBytes bounds a create request.
const maxBodyBytes = 1 << 20

const (
	msgCreated      = "Invoice created successfully"
	msgNotFound     = "Invoice not found"
	msgInvalidBody  = "Invalid JSON payload"
	msgSaveFailed   = "Failed to save invoice - database error"
	msgListFailed   = "Failed to load invoices"
	msgGetFailed    = "Failed to load invoice"
	msgRenderFailed = "Failed to generate PDF"
	msgEncodeFailed = "Failed to encode response"
	msgWelcome      = "Welcome to Invoice Generator API. Use /api/invoices endpoints to access the functionality."
)

// lineItemRequest accepts numbers sent as strings or omitted.
type lineItemRequest struct {
	Name     string         `json:"name"`
	Quantity invoice.Number `json:"quantity"`
	Rate     invoice.Number `json:"rate"`
	Total    invoice.Number `json:"total"`
}

// createRequest carries only what the client controls. Derived totals,
// numbering and timestamps are assigned here.
type createRequest struct {
	ClientName    string            `json:"client_name"`
	Items         []lineItemRequest `json:"items"`
	TaxPercentage invoice.Number    `json:"tax_percentage"`
	Discount      invoice.Number    `json:"discount"`
}

func (req createRequest) invoice() invoice.Invoice {
	inv := invoice.Invoice{
		ClientName:    req.ClientName,
		TaxPercentage: req.TaxPercentage.Float64(),
		Discount:      req.Discount.Float64(),
	}
	for _, item := range req.Items {
		inv.Items = append(inv.Items, invoice.LineItem{
			Name:     item.Name,
			Quantity: item.Quantity.Float64(),
			Rate:     item.Rate.Float64(),
			Total:    item.Total.Float64(),
		})
	}
	inv.Recalculate()
	return inv
}

type createResponse struct {
	Message   string          `json:"message"`
	InvoiceID string          `json:"invoice_id"`
	Invoice   invoice.Invoice `json:"invoice"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.log.WithError(err).Debug("rejecting malformed create request")
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	inv := req.invoice()
	if err := inv.Validate(); err != nil {
		var verr *invoice.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Message)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.repo.Create(r.Context(), inv)
	if err != nil {
		s.log.WithError(err).WithField("client_name", inv.ClientName).Error("failed to save invoice")
		writeError(w, http.StatusInternalServerError, msgSaveFailed)
		return
	}

	s.respond(w, r, http.StatusCreated, createResponse{
		Message:   msgCreated,
		InvoiceID: created.ID,
		Invoice:   created,
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	var (
		invoices []invoice.Invoice
		err      error
	)
	if client := r.URL.Query().Get("client"); client != "" {
		invoices, err = s.repo.ListByClient(r.Context(), client)
	} else {
		invoices, err = s.repo.List(r.Context())
	}
	if err != nil {
		s.log.WithError(err).Error("failed to list invoices")
		writeError(w, http.StatusInternalServerError, msgListFailed)
		return
	}
	if invoices == nil {
		invoices = []invoice.Invoice{}
	}
	s.respond(w, r, http.StatusOK, invoices)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	inv, ok := s.lookup(w, r, msgGetFailed)
	if !ok {
		return
	}
	s.respond(w, r, http.StatusOK, inv)
}

func (s *Server) handlePDF(w http.ResponseWriter, r *http.Request) {
	inv, ok := s.lookup(w, r, msgRenderFailed)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := render.PDF(&buf, inv, s.render); err != nil {
		s.log.WithError(err).WithField("id", inv.ID).Error("failed to render invoice")
		writeError(w, http.StatusInternalServerError, msgRenderFailed)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", render.FileName(inv)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// lookup loads the invoice named by the {id} route variable, writing the
// error response itself when it cannot.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request, failure string) (invoice.Invoice, bool) {
	id := mux.Vars(r)["id"]
	inv, err := s.repo.Get(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, msgNotFound)
		return invoice.Invoice{}, false
	case err != nil:
		s.log.WithError(err).WithField("id", id).Error("failed to load invoice")
		writeError(w, http.StatusInternalServerError, failure)
		return invoice.Invoice{}, false
	}
	return inv, true
}

func welcome(w http.ResponseWriter, r *http.Request) {
	_ = writeJSON(w, http.StatusOK, map[string]string{"message": msgWelcome})
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
}

// respond writes v as JSON, logging when it cannot be encoded.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	if err := writeJSON(w, status, v); err != nil {
		s.log.WithError(err).WithFields(requestFields(r)).Error("failed to encode response")
	}
}

// writeJSON encodes v before writing the status, so an encoding failure
// becomes a 500 instead of a success status with an empty body.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		writeError(w, http.StatusInternalServerError, msgEncodeFailed)
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
	return nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	_ = writeJSON(w, status, errorResponse{Error: msg})
}

// requestFields are the access log fields of r.
func requestFields(r *http.Request) logrus.Fields {
	return logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"remote": r.RemoteAddr,
	}
}
