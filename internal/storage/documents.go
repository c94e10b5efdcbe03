// Package storage keeps uploaded prescription documents. References returned by
// DocumentStore are opaque to callers.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

var (
	// ErrUnavailable is returned when a write or read does not finish in time.
	ErrUnavailable = errors.New("document storage unavailable")
	// ErrNotFound is returned for unknown references.
	ErrNotFound = errors.New("document not found")
)

// DocumentStore writes documents to an afero filesystem.
type DocumentStore struct {
	fs      afero.Fs
	timeout time.Duration
}

// NewDocumentStore creates a store on fs. Every operation is bounded by timeout.
func NewDocumentStore(fs afero.Fs, timeout time.Duration) *DocumentStore {
	return &DocumentStore{fs: fs, timeout: timeout}
}

// NewDiskDocumentStore roots the store at dir on the local disk.
func NewDiskDocumentStore(dir string, timeout time.Duration) (*DocumentStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create storage dir %s: %w", dir, err)
	}
	return NewDocumentStore(afero.NewBasePathFs(afero.NewOsFs(), dir), timeout), nil
}

// Save stores data under a fresh reference scoped to ownerID.
func (s *DocumentStore) Save(ctx context.Context, ownerID, fileName string, data []byte) (string, error) {
	ref := path.Join(sanitize(ownerID), uuid.New().String()+strings.ToLower(filepath.Ext(sanitize(fileName))))

	err := s.run(ctx, func() error {
		if err := s.fs.MkdirAll(path.Dir(ref), 0o750); err != nil {
			return err
		}
		return afero.WriteFile(s.fs, ref, data, 0o640)
	})
	if err != nil {
		return "", fmt.Errorf("failed to save document for %s: %w", ownerID, err)
	}
	return ref, nil
}

// Read returns the document stored under ref.
func (s *DocumentStore) Read(ctx context.Context, ref string) ([]byte, error) {
	var data []byte
	err := s.run(ctx, func() error {
		var err error
		data, err = afero.ReadFile(s.fs, ref)
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", ref, ErrNotFound)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// run executes op, giving up once the timeout or ctx expires.
func (s *DocumentStore) run(ctx context.Context, op func() error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- op() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
	}
}

func sanitize(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		return "unnamed"
	}
	return name
}
