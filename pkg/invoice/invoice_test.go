package invoice

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const epsilon = 1e-9

func TestDeriveTotals(t *testing.T) {
	tests := []struct {
		name     string
		items    []LineItem
		discount float64
		tax      float64
		want     Totals
	}{
		{
			name: "discount and tax",
			items: []LineItem{
				{Quantity: 2, Rate: 10, Total: 20},
				{Quantity: 1, Rate: 5, Total: 5},
			},
			discount: 5,
			tax:      10,
			want:     Totals{Subtotal: 25, TaxAmount: 2, FinalTotal: 22},
		},
		{
			name:  "no items",
			items: nil,
			want:  Totals{},
		},
		{
			name:     "discount larger than subtotal goes negative",
			items:    []LineItem{{Quantity: 1, Rate: 10, Total: 10}},
			discount: 30,
			tax:      50,
			want:     Totals{Subtotal: 10, TaxAmount: -10, FinalTotal: -30},
		},
		{
			name:  "stored totals are summed even when stale",
			items: []LineItem{{Quantity: 3, Rate: 3, Total: 4}},
			want:  Totals{Subtotal: 4, TaxAmount: 0, FinalTotal: 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveTotals(tt.items, tt.discount, tt.tax)
			assert.InDelta(t, tt.want.Subtotal, got.Subtotal, epsilon)
			assert.InDelta(t, tt.want.TaxAmount, got.TaxAmount, epsilon)
			assert.InDelta(t, tt.want.FinalTotal, got.FinalTotal, epsilon)
		})
	}
}

func TestDeriveTotalsIdentities(t *testing.T) {
	items := []LineItem{{Total: 13.37}, {Total: 0.63}, {Total: 100}}
	for _, discount := range []float64{0, 1.5, 114, 500} {
		for _, tax := range []float64{0, 7.25, 20, 100} {
			got := DeriveTotals(items, discount, tax)
			base := got.Subtotal - discount
			assert.InDelta(t, base*tax/100, got.TaxAmount, epsilon)
			assert.InDelta(t, base+got.TaxAmount, got.FinalTotal, epsilon)
		}
	}
}

func TestNewDraft(t *testing.T) {
	inv := NewDraft()

	require.Len(t, inv.Items, 1)
	assert.Equal(t, LineItem{Name: "", Quantity: 1, Rate: 0, Total: 0}, inv.Items[0])
	assert.Zero(t, inv.Discount)
	assert.Zero(t, inv.TaxPercentage)
	assert.Zero(t, inv.FinalTotal)
	assert.False(t, inv.IsSaved())
}

func TestEditingRecalculates(t *testing.T) {
	inv := NewDraft()

	require.NoError(t, inv.SetItemQuantity(0, 2))
	require.NoError(t, inv.SetItemRate(0, 10))
	i := inv.AddItem()
	require.NoError(t, inv.SetItemRateText(i, "5"))
	inv.SetDiscountText("5")
	inv.SetTaxPercentageText("10")

	assert.InDelta(t, 20, inv.Items[0].Total, epsilon)
	assert.InDelta(t, 5, inv.Items[1].Total, epsilon)
	assert.InDelta(t, 25, inv.Subtotal, epsilon)
	assert.InDelta(t, 2, inv.TaxAmount, epsilon)
	assert.InDelta(t, 22, inv.FinalTotal, epsilon)

	// quantity edit on one row leaves the other row alone
	require.NoError(t, inv.SetItemQuantityText(1, "3"))
	assert.InDelta(t, 20, inv.Items[0].Total, epsilon)
	assert.InDelta(t, 15, inv.Items[1].Total, epsilon)
	assert.InDelta(t, 35, inv.Subtotal, epsilon)
	assert.InDelta(t, 3, inv.TaxAmount, epsilon)
	assert.InDelta(t, 33, inv.FinalTotal, epsilon)
}

func TestSetItemNameKeepsTotal(t *testing.T) {
	inv := NewDraft()
	require.NoError(t, inv.UpdateItem(0, LineItem{Name: "a", Quantity: 2, Rate: 2, Total: 99}))

	require.NoError(t, inv.SetItemName(0, "consulting"))

	assert.Equal(t, "consulting", inv.Items[0].Name)
	assert.InDelta(t, 99, inv.Items[0].Total, epsilon)
	assert.InDelta(t, 99, inv.Subtotal, epsilon)
}

func TestDeleteItem(t *testing.T) {
	t.Run("last item is kept", func(t *testing.T) {
		inv := NewDraft()
		err := inv.DeleteItem(0)
		assert.ErrorIs(t, err, ErrLastItem)
		assert.Len(t, inv.Items, 1)
	})

	t.Run("preserves order", func(t *testing.T) {
		inv := NewDraft()
		inv.AddItem()
		inv.AddItem()
		for i, name := range []string{"a", "b", "c"} {
			require.NoError(t, inv.SetItemName(i, name))
			require.NoError(t, inv.SetItemRate(i, float64(i+1)))
		}

		require.NoError(t, inv.DeleteItem(1))

		require.Len(t, inv.Items, 2)
		assert.Equal(t, "a", inv.Items[0].Name)
		assert.Equal(t, "c", inv.Items[1].Name)
		assert.InDelta(t, 4, inv.Subtotal, epsilon)
	})

	t.Run("out of range", func(t *testing.T) {
		inv := NewDraft()
		inv.AddItem()
		err := inv.DeleteItem(5)
		assert.ErrorIs(t, err, ErrItemIndex)
		assert.Len(t, inv.Items, 2)
	})
}

func TestUpdateItemOutOfRange(t *testing.T) {
	inv := NewDraft()
	err := inv.UpdateItem(-1, LineItem{})
	var idxErr *IndexError
	require.ErrorAs(t, err, &idxErr)
	assert.Equal(t, -1, idxErr.Index)
}

func TestClone(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	inv := NewDraft()
	inv.CreatedAt = &ts

	c := inv.Clone()
	c.Items[0].Name = "changed"
	*c.CreatedAt = ts.Add(time.Hour)

	assert.Equal(t, "", inv.Items[0].Name)
	assert.Equal(t, ts, *inv.CreatedAt)
}

func TestInvoiceJSONShape(t *testing.T) {
	ts := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	inv := Invoice{
		ID:            "abc",
		ClientName:    "Acme",
		Items:         []LineItem{{Name: "x", Quantity: 1, Rate: 2, Total: 2}},
		InvoiceNumber: "INV-001",
		CreatedAt:     &ts,
	}
	inv.Recalculate()

	data, err := json.Marshal(inv)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"_id", "client_name", "items", "tax_percentage", "discount", "subtotal", "tax_amount", "final_total", "invoice_number", "created_at"} {
		assert.Contains(t, raw, key)
	}

	draft, err := json.Marshal(NewDraft())
	require.NoError(t, err)
	assert.NotContains(t, string(draft), "_id")
	assert.NotContains(t, string(draft), "invoice_number")
	assert.NotContains(t, string(draft), "created_at")
}

func TestCreatedUnix(t *testing.T) {
	inv := NewDraft()
	assert.Zero(t, inv.CreatedUnix())

	ts := time.UnixMilli(200)
	inv.CreatedAt = &ts
	assert.Equal(t, int64(200), inv.CreatedUnix())
}
