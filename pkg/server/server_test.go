package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/marshallshelly/pebble-invoice/pkg/client"
	"github.com/marshallshelly/pebble-invoice/pkg/history"
	"github.com/marshallshelly/pebble-invoice/pkg/invoice"
	"github.com/marshallshelly/pebble-invoice/pkg/store"
	"github.com/marshallshelly/pebble-invoice/pkg/store/mocks"
)

func newTestServer(t *testing.T, repo store.Repository) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(New(repo))
	t.Cleanup(srv.Close)
	return srv
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t, store.NewMemoryRepository())
	c := client.New(srv.URL + "/api")

	draft := invoice.NewDraft()
	draft.SetClientName("Acme")
	require.NoError(t, draft.SetItemName(0, "Design"))
	require.NoError(t, draft.SetItemQuantity(0, 2))
	require.NoError(t, draft.SetItemRate(0, 10))
	draft.AddItem()
	require.NoError(t, draft.SetItemName(1, "Hosting"))
	require.NoError(t, draft.SetItemRate(1, 5))
	draft.SetDiscount(2)
	draft.SetTaxPercentage(10)

	res, err := c.Create(ctx, draft)
	require.NoError(t, err)
	assert.Equal(t, "Invoice created successfully", res.Message)
	assert.NotEmpty(t, res.InvoiceID)
	assert.Equal(t, "INV-001", res.Invoice.InvoiceNumber)
	require.NotNil(t, res.Invoice.CreatedAt)

	got, err := c.Get(ctx, res.InvoiceID)
	require.NoError(t, err)
	assert.Equal(t, draft.Items, got.Items)
	assert.Equal(t, draft.Totals(), got.Totals(), "server and client agree on totals")
	assert.InDelta(t, 25.3, got.FinalTotal, 1e-9)

	other := draft.Clone()
	other.SetClientName("Zeta")
	_, err = c.Create(ctx, other)
	require.NoError(t, err)

	all, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	byClient, err := c.ListByClient(ctx, "acm")
	require.NoError(t, err)
	require.Len(t, byClient, 1)
	assert.Equal(t, res.InvoiceID, byClient[0].ID)

	view := history.DeriveView(all, history.DefaultQuery().WithSearch("inv-002"))
	require.Len(t, view, 1)
	assert.Equal(t, "Zeta", view[0].ClientName)

	_, err = c.Get(ctx, "does-not-exist")
	require.Error(t, err)
	assert.Equal(t, "Invoice not found", client.Message(err))

	pdf, err := c.GeneratePDF(ctx, res.InvoiceID)
	require.NoError(t, err)
	assert.True(t, pdf.IsPDF())
	assert.True(t, bytes.HasPrefix(pdf.Body, []byte("%PDF-")))
}

func TestCreateValidation(t *testing.T) {
	srv := newTestServer(t, store.NewMemoryRepository())
	c := client.New(srv.URL + "/api")

	noClient := invoice.NewDraft()
	_, err := c.Create(context.Background(), noClient)
	require.Error(t, err)
	assert.Equal(t, "Client name is required", client.Message(err))

	noItems := invoice.Invoice{ClientName: "Acme"}
	_, err = c.Create(context.Background(), noItems)
	require.Error(t, err)
	assert.Equal(t, "At least one item is required", client.Message(err))
}

func post(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestCreateCoercesAndRecomputes(t *testing.T) {
	srv := newTestServer(t, store.NewMemoryRepository())

	resp, out := post(t, srv.URL+"/api/invoices/", `{
		"client_name": "Acme",
		"items": [
			{"name": "A", "quantity": "2", "rate": "10", "total": "20"},
			{"name": "B", "quantity": 1, "rate": 5, "total": 5},
			{"name": "C", "quantity": "lots", "rate": null, "total": {"x": 1}}
		],
		"discount": "2",
		"tax_percentage": "10%",
		"subtotal": 99999,
		"final_total": 99999
	}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	inv := out["invoice"].(map[string]any)
	assert.Equal(t, 25.0, inv["subtotal"])
	assert.Equal(t, 2.0, inv["discount"])
	assert.Equal(t, 10.0, inv["tax_percentage"])
	assert.InDelta(t, 25.3, inv["final_total"], 1e-9)
	assert.Equal(t, out["invoice_id"], inv["_id"])

	items := inv["items"].([]any)
	require.Len(t, items, 3)
	third := items[2].(map[string]any)
	assert.Equal(t, 0.0, third["quantity"])
	assert.Equal(t, 0.0, third["total"])
}

func TestCreateRejectsMalformedJSON(t *testing.T) {
	srv := newTestServer(t, store.NewMemoryRepository())

	resp, out := post(t, srv.URL+"/api/invoices", `{"client_name": `)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, msgInvalidBody, out["error"])
}

func TestCreateOutOfRangeNumbers(t *testing.T) {
	srv := newTestServer(t, store.NewMemoryRepository())

	resp, out := post(t, srv.URL+"/api/invoices/", `{
		"client_name": "Acme",
		"items": [{"name": "x", "quantity": "1e999", "rate": "Infinity", "total": "1e999"}],
		"discount": 1e999,
		"tax_percentage": "-Infinity"
	}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	inv := out["invoice"].(map[string]any)
	assert.Equal(t, 0.0, inv["final_total"])
	assert.Equal(t, 0.0, inv["discount"])

	c := client.New(srv.URL + "/api")
	all, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)

	got, err := c.Get(context.Background(), out["invoice_id"].(string))
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.Items[0].Quantity)
	assert.Equal(t, 0.0, got.Items[0].Total)
}

func TestCreateRejectsOverflowingTotals(t *testing.T) {
	srv := newTestServer(t, store.NewMemoryRepository())

	resp, out := post(t, srv.URL+"/api/invoices/",
		`{"client_name":"Acme","items":[{"name":"x","quantity":"1e200","rate":"1e200"}]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Amounts must be finite numbers", out["error"])

	all, err := client.New(srv.URL + "/api").List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestUnencodableResponse(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().Get(gomock.Any(), "abc").Return(invoice.Invoice{
		ID:         "abc",
		ClientName: "Acme",
		FinalTotal: math.Inf(1),
	}, nil)

	rec := httptest.NewRecorder()
	New(repo).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/invoices/abc", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"Failed to encode response"}`, rec.Body.String())
}

func TestRepositoryFailures(t *testing.T) {
	boom := errors.New("connection refused")

	tests := []struct {
		name       string
		setup      func(m *mocks.MockRepository)
		method     string
		path       string
		body       string
		wantStatus int
		wantError  string
	}{
		{
			name: "create fails",
			setup: func(m *mocks.MockRepository) {
				m.EXPECT().Create(gomock.Any(), gomock.Any()).Return(invoice.Invoice{}, boom)
			},
			method:     http.MethodPost,
			path:       "/api/invoices/",
			body:       `{"client_name":"Acme","items":[{"name":"x","quantity":1,"rate":1,"total":1}]}`,
			wantStatus: http.StatusInternalServerError,
			wantError:  msgSaveFailed,
		},
		{
			name: "list fails",
			setup: func(m *mocks.MockRepository) {
				m.EXPECT().List(gomock.Any()).Return(nil, boom)
			},
			method:     http.MethodGet,
			path:       "/api/invoices/",
			wantStatus: http.StatusInternalServerError,
			wantError:  msgListFailed,
		},
		{
			name: "get fails",
			setup: func(m *mocks.MockRepository) {
				m.EXPECT().Get(gomock.Any(), "abc").Return(invoice.Invoice{}, boom)
			},
			method:     http.MethodGet,
			path:       "/api/invoices/abc",
			wantStatus: http.StatusInternalServerError,
			wantError:  msgGetFailed,
		},
		{
			name: "pdf of missing invoice",
			setup: func(m *mocks.MockRepository) {
				m.EXPECT().Get(gomock.Any(), "abc").Return(invoice.Invoice{}, store.ErrNotFound)
			},
			method:     http.MethodGet,
			path:       "/api/invoices/generate-pdf/abc",
			wantStatus: http.StatusNotFound,
			wantError:  msgNotFound,
		},
		{
			name: "wrapped not found",
			setup: func(m *mocks.MockRepository) {
				m.EXPECT().Get(gomock.Any(), "abc").Return(invoice.Invoice{}, &store.QueryError{Query: "q", Err: store.ErrNotFound})
			},
			method:     http.MethodGet,
			path:       "/api/invoices/abc",
			wantStatus: http.StatusNotFound,
			wantError:  msgNotFound,
		},
		{
			name:       "validation does not reach the repository",
			setup:      func(m *mocks.MockRepository) {},
			method:     http.MethodPost,
			path:       "/api/invoices/",
			body:       `{"client_name":"","items":[]}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Client name is required",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := mocks.NewMockRepository(ctrl)
			tc.setup(repo)

			var body io.Reader
			if tc.body != "" {
				body = strings.NewReader(tc.body)
			}
			req := httptest.NewRequest(tc.method, tc.path, body)
			rec := httptest.NewRecorder()
			New(repo).ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var out errorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
			assert.Equal(t, tc.wantError, out.Error)
		})
	}
}

func TestListByClientQuery(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().ListByClient(gomock.Any(), "Smith & Sons").Return(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/invoices/?client=Smith+%26+Sons", nil)
	rec := httptest.NewRecorder()
	New(repo).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestPDFHeaders(t *testing.T) {
	created := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().Get(gomock.Any(), "abc").Return(invoice.Invoice{
		ID:            "abc",
		ClientName:    "Acme",
		InvoiceNumber: "INV-004",
		CreatedAt:     &created,
		Items:         []invoice.LineItem{{Name: "x", Quantity: 1, Rate: 1, Total: 1}},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/invoices/generate-pdf/abc", nil)
	rec := httptest.NewRecorder()
	New(repo).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="Invoice-INV-004.pdf"`)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
}

func TestWelcomeAndCORS(t *testing.T) {
	h := New(store.NewMemoryRepository())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome to Invoice Generator API")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/invoices/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/invoices/", nil))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/invoices/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- New(store.NewMemoryRepository()).Serve(ctx, ln)
	}()

	c := client.New("http://" + ln.Addr().String() + "/api")
	require.Eventually(t, func() bool {
		_, err := c.List(context.Background())
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
