package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnknownKey is returned for keys outside Keys().
var ErrUnknownKey = errors.New("dataset: unknown key")

// Source hands out dataset payloads by key. A missing payload is reported with an error
// wrapping fs.ErrNotExist.
type Source interface {
	Open(ctx context.Context, key Key) (io.ReadCloser, error)
}

// Fingerprinter is implemented by sources that can tell when their content changed.
type Fingerprinter interface {
	Fingerprint(ctx context.Context) (string, error)
}

// DirSource reads datasets from files in a directory.
type DirSource struct {
	Dir string
}

func (s DirSource) path(key Key) (string, error) {
	if _, ok := supportedKeys[key]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return filepath.Join(s.Dir, string(key)), nil
}

// Open opens the file for key after validating it.
func (s DirSource) Open(ctx context.Context, key Key) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	if err := ValidateFile(path, key); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", key, err)
	}
	return f, nil
}

// Fingerprint summarizes name, size and modification time of every dataset file.
func (s DirSource) Fingerprint(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	parts := make([]string, 0, len(Keys()))
	for _, key := range Keys() {
		path, _ := s.path(key)
		fi, err := os.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			parts = append(parts, string(key)+":-")
			continue
		}
		if err != nil {
			return "", fmt.Errorf("stat dataset %s: %w", key, err)
		}
		parts = append(parts, fmt.Sprintf("%s:%d:%d", key, fi.Size(), fi.ModTime().UnixNano()))
	}
	return strings.Join(parts, ";"), nil
}

// MapSource serves datasets from memory, mostly for tests and embedding hosts.
type MapSource map[Key][]byte

func (m MapSource) Open(ctx context.Context, key Key) (io.ReadCloser, error) {
	if _, ok := supportedKeys[key]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	data, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("dataset %s: %w", key, os.ErrNotExist)
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}
