// Package draft hands an unsaved invoice from the create view to the
// preview view. A Slot holds at most one draft.
package draft

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/marshallshelly/pebble-invoice/pkg/invoice"
)

// ErrNoDraft is returned by Take when the slot is empty or its content
// cannot be read back as an invoice.
var ErrNoDraft = errors.New("no draft invoice")

// Slot stores the draft being previewed.
type Slot interface {
	Put(inv invoice.Invoice) error
	// Take returns the stored draft without clearing it.
	Take() (invoice.Invoice, error)
	Clear() error
}

// MemorySlot keeps the draft in process memory.
type MemorySlot struct {
	mu    sync.Mutex
	draft *invoice.Invoice
}

// NewMemorySlot returns an empty slot.
func NewMemorySlot() *MemorySlot {
	return &MemorySlot{}
}

func (s *MemorySlot) Put(inv invoice.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := inv.Clone()
	s.draft = &c
	return nil
}

func (s *MemorySlot) Take() (invoice.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil {
		return invoice.Invoice{}, ErrNoDraft
	}
	return s.draft.Clone(), nil
}

func (s *MemorySlot) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = nil
	return nil
}

// DefaultSession names the slot used when no session is given.
const DefaultSession = "default"

var unsafeSessionChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// FileSlot persists the draft as JSON in a per-session file, so separate
// command invocations in the same session can share it.
type FileSlot struct {
	path string
}

// NewFileSlot returns the slot for session under dir. An empty dir means the
// user cache directory.
func NewFileSlot(dir, session string) (*FileSlot, error) {
	if dir == "" {
		cache, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("failed to locate cache directory: %w", err)
		}
		dir = filepath.Join(cache, "pebble-invoice", "drafts")
	}
	if session == "" {
		session = DefaultSession
	}
	name := unsafeSessionChars.ReplaceAllString(session, "_") + ".json"
	return &FileSlot{path: filepath.Join(dir, name)}, nil
}

// Path returns the backing file.
func (s *FileSlot) Path() string {
	return s.path
}

func (s *FileSlot) Put(inv invoice.Invoice) error {
	data, err := json.MarshalIndent(inv, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create draft directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".draft-*")
	if err != nil {
		return fmt.Errorf("failed to write draft: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write draft: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write draft: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to write draft: %w", err)
	}
	return nil
}

func (s *FileSlot) Take() (invoice.Invoice, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return invoice.Invoice{}, ErrNoDraft
		}
		return invoice.Invoice{}, fmt.Errorf("%w: %v", ErrNoDraft, err)
	}

	var inv invoice.Invoice
	if err := json.Unmarshal(data, &inv); err != nil {
		return invoice.Invoice{}, fmt.Errorf("%w: %v", ErrNoDraft, err)
	}
	return inv, nil
}

func (s *FileSlot) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clear draft: %w", err)
	}
	return nil
}
