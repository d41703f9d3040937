package network

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// Store reads and writes the route-network document and its backup.
type Store struct {
	Path       string
	BackupPath string
}

// NewStore creates a store. An empty backupPath defaults to <path>.backup.
func NewStore(path, backupPath string) *Store {
	if backupPath == "" {
		backupPath = path + ".backup"
	}
	return &Store{Path: path, BackupPath: backupPath}
}

// Load reads and parses the document, returning the raw bytes alongside.
func (s *Store) Load() (*Document, []byte, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading route network: %w", err)
	}
	doc, err := ParseDocument(raw)
	if err != nil {
		return nil, nil, err
	}
	return doc, raw, nil
}

// Backup durably copies the pre-run document aside.
func (s *Store) Backup(raw []byte) error {
	if err := writeFileSync(s.BackupPath, raw); err != nil {
		return fmt.Errorf("writing backup: %w", err)
	}
	return nil
}

// Save replaces the document with doc unless the encoding is identical to
// original. It reports whether the file was written.
func (s *Store) Save(doc *Document, original []byte) (bool, error) {
	data, err := doc.Encode()
	if err != nil {
		return false, err
	}
	if bytes.Equal(data, original) {
		return false, nil
	}
	if err := writeFileSync(s.Path, data); err != nil {
		return false, fmt.Errorf("writing route network: %w", err)
	}
	return true, nil
}

// writeFileSync writes data to a temp file in the target directory, syncs it
// and renames it over path.
func writeFileSync(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
