package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/moolen/faultline/internal/models"
)

// FileStore reads the record array from a JSON file on every snapshot, so
// an external process can replace the file between requests.
type FileStore struct {
	path    string
	decoder *Decoder
}

// NewFileStore creates a store over path.
func NewFileStore(path string) (*FileStore, error) {
	decoder, err := NewDecoder()
	if err != nil {
		return nil, err
	}
	return &FileStore{path: path, decoder: decoder}, nil
}

func (s *FileStore) Snapshot(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", models.ErrUpstreamUnavailable, s.path, err)
	}
	return s.decoder.Decode(data)
}

func (s *FileStore) Ping(ctx context.Context) error {
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s does not exist", models.ErrUpstreamUnavailable, s.path)
		}
		return fmt.Errorf("%w: %v", models.ErrUpstreamUnavailable, err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
