package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/echain-id/credential-registry/interfaces"
)

// FileStore implements a content store on the local file system, intended
// for development and tests. Files are named by the SHA-256 of their bytes;
// the file name is the CID this store issues.
type FileStore struct {
	baseDir     string
	log         *slog.Logger
	locationURI string
}

// NewFileStore creates a file content store rooted at baseDir, creating the
// directory if needed.
func NewFileStore(baseDir string, log *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FileStore{
		baseDir:     baseDir,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}, nil
}

// Upload writes data under its digest-derived name and returns that name
// as the CID.
func (s *FileStore) Upload(ctx context.Context, data []byte, name string) (interfaces.ContentID, error) {
	hash := sha256.Sum256(data)
	cid := hex.EncodeToString(hash[:])

	filePath := filepath.Join(s.baseDir, cid)
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", fmt.Errorf("%w: failed to write file: %v", interfaces.ErrStoreUnavailable, err)
	}

	s.log.Debug("Stored content in file",
		slog.String("path", filePath),
		slog.String("name", name),
		slog.Int("size", len(data)))

	return interfaces.ContentID(cid), nil
}

// Fetch reads the file the CID names.
func (s *FileStore) Fetch(ctx context.Context, cid interfaces.ContentID) ([]byte, error) {
	if err := cid.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrContentUnavailable, err)
	}

	filePath := filepath.Join(s.baseDir, filepath.Base(cid.String()))
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrContentUnavailable, err)
	}

	return data, nil
}

// Available checks that the base directory exists.
func (s *FileStore) Available(ctx context.Context) bool {
	_, err := os.Stat(s.baseDir)
	if err != nil {
		s.log.Debug("File store unavailable", "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this store.
func (s *FileStore) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(s.baseDir))
}

// LocationURI returns the URI that identifies this store.
func (s *FileStore) LocationURI() string {
	return s.locationURI
}
