package invoice

import (
	"errors"
	"fmt"
)

var (
	// ErrLastItem is returned when deleting the only remaining line item.
	ErrLastItem = errors.New("an invoice must keep at least one line item")

	// ErrItemIndex is matched by IndexError.
	ErrItemIndex = errors.New("line item index out of range")
)

// IndexError reports a line item position outside the invoice.
type IndexError struct {
	Index int
	Len   int
}

// Error implements the error interface.
func (e *IndexError) Error() string {
	return fmt.Sprintf("line item %d out of range (invoice has %d)", e.Index, e.Len)
}

// Unwrap returns ErrItemIndex.
func (e *IndexError) Unwrap() error {
	return ErrItemIndex
}

// ValidationError represents a submission that the persistence service rejects.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns the message as shown to the user.
func (e *ValidationError) Error() string {
	return e.Message
}
