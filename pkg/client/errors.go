package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Generic messages used when the service gives no reason of its own.
const (
	ListFailed   = "Failed to load invoices. Please check your connection and try again."
	GetFailed    = "Failed to load invoice. It may have been deleted or there was a server error."
	CreateFailed = "Failed to save invoice. Please check your connection and try again."
	PDFFailed    = "Failed to generate PDF. Please try again."
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// Error is returned by every Client method. Message is always suitable for
// display.
type Error struct {
	StatusCode int    // 0 when no response was received
	Message    string // server-supplied error text, or a generic fallback
	Err        error  // underlying transport or decode error, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound reports a 404 from the service.
func (e *Error) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Message returns the text to show a user for err. Errors that did not come
// from a Client are shown as-is.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

type errorBody struct {
	Error string `json:"error"`
}

func errorFromResponse(resp *http.Response, fallback string) *Error {
	e := &Error{StatusCode: resp.StatusCode, Message: fallback}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return e
	}
	var body errorBody
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		e.Message = body.Error
	}
	return e
}
