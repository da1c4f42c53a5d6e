package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// renameFile is swapped in tests to simulate a crash between write and rename.
var renameFile = os.Rename

// FileRecord stores a record as a single JSON or YAML file.
type FileRecord struct {
	path  string
	codec codec
}

// NewFileRecord creates a FileRecord for path. The encoding follows the extension.
func NewFileRecord(path string) (*FileRecord, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("repository: file path must not be empty")
	}
	return &FileRecord{path: path, codec: codecFor(path)}, nil
}

// Path returns the file location.
func (f *FileRecord) Path() string {
	return f.path
}

// Read decodes the file into v. A missing file is ErrNotFound.
func (f *FileRecord) Read(ctx context.Context, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("repository: read %s: %w", f.path, err)
	}
	if err := f.codec.unmarshal(data, v); err != nil {
		return fmt.Errorf("repository: decode %s as %s: %w", f.path, f.codec.name, err)
	}
	return nil
}

// Write replaces the file atomically: temp file in the same directory, fsync, rename.
// A failure at any step leaves the previous snapshot untouched.
func (f *FileRecord) Write(ctx context.Context, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := f.codec.marshal(v)
	if err != nil {
		return fmt.Errorf("repository: encode %s: %w", f.path, err)
	}
	return f.replace(data)
}

// Seed copies the file at src into the record location when nothing is
// stored there yet. A missing src leaves the record empty.
func (f *FileRecord) Seed(ctx context.Context, src string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := os.Stat(f.path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("repository: stat %s: %w", f.path, err)
	}
	data, err := os.ReadFile(src)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("repository: read seed %s: %w", src, err)
	}
	return f.replace(data)
}

func (f *FileRecord) replace(data []byte) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("repository: create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("repository: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("repository: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("repository: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("repository: close temp file: %w", err)
	}
	if err := renameFile(tmpPath, f.path); err != nil {
		return fmt.Errorf("repository: replace %s: %w", f.path, err)
	}
	cleanup = false
	return nil
}
