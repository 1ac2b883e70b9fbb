package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	shell "github.com/ipfs/go-ipfs-api"

	"github.com/echain-id/credential-registry/interfaces"
)

// IPFSStore implements a content store backed by a self-hosted IPFS node's
// HTTP API. An alternative to the hosted pinning service for deployments
// running their own node.
type IPFSStore struct {
	shell       *shell.Shell
	host        string
	port        string
	log         *slog.Logger
	locationURI string
}

// NewIPFSStore creates a content store connected to the IPFS API at the
// specified host and port.
func NewIPFSStore(host, port string, log *slog.Logger) *IPFSStore {
	apiURL := fmt.Sprintf("%s:%s", host, port)

	return &IPFSStore{
		shell:       shell.NewShell(apiURL),
		host:        host,
		port:        port,
		log:         log,
		locationURI: fmt.Sprintf("ipfs://%s/", apiURL),
	}
}

// Upload adds data to the node with pinning and returns the node's CID.
// Adding identical bytes twice yields the same CID, so re-uploads after
// partial failures are harmless.
func (s *IPFSStore) Upload(ctx context.Context, data []byte, name string) (interfaces.ContentID, error) {
	if !s.shell.IsUp() {
		return "", fmt.Errorf("%w: IPFS node %s:%s not reachable", interfaces.ErrStoreUnavailable, s.host, s.port)
	}

	start := time.Now()
	cid, err := s.shell.Add(bytes.NewReader(data), shell.Pin(true))
	if err != nil {
		return "", fmt.Errorf("%w: failed to add data to IPFS: %v", interfaces.ErrStoreUnavailable, err)
	}

	s.log.Debug("Stored content in IPFS",
		slog.String("cid", cid),
		slog.String("name", name),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return interfaces.ContentID(cid), nil
}

// Fetch retrieves data from the node by CID.
func (s *IPFSStore) Fetch(ctx context.Context, cid interfaces.ContentID) ([]byte, error) {
	if err := cid.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrContentUnavailable, err)
	}

	if !s.shell.IsUp() {
		return nil, fmt.Errorf("%w: IPFS node %s:%s not reachable", interfaces.ErrContentUnavailable, s.host, s.port)
	}

	start := time.Now()
	reader, err := s.shell.Cat(cid.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrContentUnavailable, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read data from IPFS: %v", interfaces.ErrContentUnavailable, err)
	}

	s.log.Debug("Fetched content from IPFS",
		slog.String("cid", cid.String()),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return data, nil
}

// Available checks if the IPFS node is accessible.
func (s *IPFSStore) Available(ctx context.Context) bool {
	return s.shell.IsUp()
}

// Name returns a unique identifier for this store.
func (s *IPFSStore) Name() string {
	return fmt.Sprintf("ipfs-%s-%s", s.host, s.port)
}

// LocationURI returns the URI that identifies this store.
func (s *IPFSStore) LocationURI() string {
	return s.locationURI
}
