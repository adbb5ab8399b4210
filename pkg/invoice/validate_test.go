package invoice

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		invoice   Invoice
		wantField string
		wantMsg   string
	}{
		{
			name:    "valid",
			invoice: Invoice{ClientName: "Acme", Items: []LineItem{NewLineItem()}},
		},
		{
			name:      "missing client",
			invoice:   Invoice{Items: []LineItem{NewLineItem()}},
			wantField: "client_name",
			wantMsg:   "Client name is required",
		},
		{
			name:      "nil items",
			invoice:   Invoice{ClientName: "Acme"},
			wantField: "items",
			wantMsg:   "At least one item is required",
		},
		{
			name:      "empty items",
			invoice:   Invoice{ClientName: "Acme", Items: []LineItem{}},
			wantField: "items",
			wantMsg:   "At least one item is required",
		},
		{
			name: "overflowing line total",
			invoice: Invoice{ClientName: "Acme", Items: []LineItem{
				{Name: "x", Quantity: 1e200, Rate: 1e200, Total: math.Inf(1)},
			}},
			wantField: "total",
			wantMsg:   "Amounts must be finite numbers",
		},
		{
			name: "nan discount",
			invoice: Invoice{ClientName: "Acme", Items: []LineItem{NewLineItem()},
				Discount: math.NaN()},
			wantField: "discount",
			wantMsg:   "Amounts must be finite numbers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.invoice.Validate()
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
			assert.Equal(t, tt.wantMsg, verr.Error())
		})
	}
}
