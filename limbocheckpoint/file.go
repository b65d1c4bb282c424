package limbocheckpoint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"LIMBO/limboserde"
)

// FileBackend is the default Backend: a single JSON file, written
// atomically via a temp-file-plus-rename, mirroring the teacher's own
// JSON-config-file convention (network/coordinator/main.go:loadConfig
// reads a JSON file with goccy/go-json; this just adds the write side).
type FileBackend struct {
	path string
}

// NewFileBackend returns a Backend that persists to path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (f *FileBackend) Save(_ context.Context, req *limboserde.Request) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("limbocheckpoint: marshal: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("limbocheckpoint: mkdir: %w", err)
	}
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return fmt.Errorf("limbocheckpoint: write temp file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("limbocheckpoint: rename: %w", err)
	}
	return nil
}

func (f *FileBackend) Load(_ context.Context) (*limboserde.Request, error) {
	body, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return &limboserde.Request{ConfirmedVClock: map[string]int64{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("limbocheckpoint: read: %w", err)
	}
	req, err := limboserde.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("limbocheckpoint: decode: %w", err)
	}
	return req, nil
}

func (f *FileBackend) Close() error { return nil }
