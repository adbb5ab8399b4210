package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// VersionLayout formats migration versions from their creation time.
const VersionLayout = "20060102150405"

var migrationName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// MigrationFile is a freshly scaffolded up/down pair.
type MigrationFile struct {
	Version  string
	Name     string
	UpPath   string
	DownPath string
}

// NewMigrationFiles writes an empty {version}_{name}.up.sql/.down.sql pair
// into dir. Existing files are never overwritten.
func NewMigrationFiles(dir, name string, now time.Time) (*MigrationFile, error) {
	if !migrationName.MatchString(name) {
		return nil, fmt.Errorf("invalid migration name %q: use lower_snake_case", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	version := now.UTC().Format(VersionLayout)
	file := &MigrationFile{
		Version:  version,
		Name:     name,
		UpPath:   filepath.Join(dir, fmt.Sprintf("%s_%s.up.sql", version, name)),
		DownPath: filepath.Join(dir, fmt.Sprintf("%s_%s.down.sql", version, name)),
	}

	header := fmt.Sprintf("-- Migration: %s\n-- Version: %s\n\n", name, version)
	if err := writeNew(file.UpPath, header+"-- Write your UP migration here\n"); err != nil {
		return nil, err
	}
	if err := writeNew(file.DownPath, header+"-- Write your DOWN migration here\n"); err != nil {
		_ = os.Remove(file.UpPath)
		return nil, err
	}
	return file, nil
}

func writeNew(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return fmt.Errorf("%s already exists", filepath.Base(path))
	}
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
