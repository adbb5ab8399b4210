package invoice

// Every mutation below ends in Recalculate so the derived totals never lag
// behind the fields they are computed from.

// SetClientName sets the client name.
func (inv *Invoice) SetClientName(name string) {
	inv.ClientName = name
	inv.Recalculate()
}

// SetDiscount sets the flat discount.
func (inv *Invoice) SetDiscount(discount float64) {
	inv.Discount = discount
	inv.Recalculate()
}

// SetDiscountText sets the discount from user input, coercing with ParseNumber.
func (inv *Invoice) SetDiscountText(s string) {
	inv.SetDiscount(ParseNumber(s))
}

// SetTaxPercentage sets the tax percentage.
func (inv *Invoice) SetTaxPercentage(pct float64) {
	inv.TaxPercentage = pct
	inv.Recalculate()
}

// SetTaxPercentageText sets the tax percentage from user input.
func (inv *Invoice) SetTaxPercentageText(s string) {
	inv.SetTaxPercentage(ParseNumber(s))
}

// AddItem appends an empty row and returns its position.
func (inv *Invoice) AddItem() int {
	inv.Items = append(inv.Items, NewLineItem())
	inv.Recalculate()
	return len(inv.Items) - 1
}

// DeleteItem removes the row at i. The last remaining row cannot be removed.
func (inv *Invoice) DeleteItem(i int) error {
	if err := inv.checkIndex(i); err != nil {
		return err
	}
	if len(inv.Items) <= 1 {
		return ErrLastItem
	}

	items := make([]LineItem, 0, len(inv.Items)-1)
	items = append(items, inv.Items[:i]...)
	items = append(items, inv.Items[i+1:]...)
	inv.Items = items
	inv.Recalculate()
	return nil
}

// UpdateItem replaces the row at i as given; its Total is taken verbatim.
func (inv *Invoice) UpdateItem(i int, item LineItem) error {
	if err := inv.checkIndex(i); err != nil {
		return err
	}
	inv.Items[i] = item
	inv.Recalculate()
	return nil
}

// SetItemName renames the row at i without touching its total.
func (inv *Invoice) SetItemName(i int, name string) error {
	if err := inv.checkIndex(i); err != nil {
		return err
	}
	item := inv.Items[i]
	item.Name = name
	return inv.UpdateItem(i, item)
}

// SetItemQuantity sets the quantity of row i and refreshes its total.
func (inv *Invoice) SetItemQuantity(i int, qty float64) error {
	if err := inv.checkIndex(i); err != nil {
		return err
	}
	item := inv.Items[i]
	item.Quantity = qty
	item.Total = item.Quantity * item.Rate
	return inv.UpdateItem(i, item)
}

// SetItemQuantityText is SetItemQuantity for raw user input.
func (inv *Invoice) SetItemQuantityText(i int, s string) error {
	return inv.SetItemQuantity(i, ParseNumber(s))
}

// SetItemRate sets the rate of row i and refreshes its total.
func (inv *Invoice) SetItemRate(i int, rate float64) error {
	if err := inv.checkIndex(i); err != nil {
		return err
	}
	item := inv.Items[i]
	item.Rate = rate
	item.Total = item.Quantity * item.Rate
	return inv.UpdateItem(i, item)
}

// SetItemRateText is SetItemRate for raw user input.
func (inv *Invoice) SetItemRateText(i int, s string) error {
	return inv.SetItemRate(i, ParseNumber(s))
}

func (inv *Invoice) checkIndex(i int) error {
	if i < 0 || i >= len(inv.Items) {
		return &IndexError{Index: i, Len: len(inv.Items)}
	}
	return nil
}
