package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/echain-id/credential-registry/interfaces"
)

// DefaultPinataEndpoint is the hosted pinning API.
const DefaultPinataEndpoint = "https://api.pinata.cloud"

// PinataStore implements a content store backed by a Pinata-style pinning
// service. Uploads go through the authenticated pinning API; fetches go
// through the public gateway pool, since pinned content is addressable from
// any IPFS gateway.
type PinataStore struct {
	endpoint    string
	jwt         string
	client      *http.Client
	gateways    *GatewayPool
	log         *slog.Logger
	locationURI string
}

type pinRequest struct {
	PinataContent  json.RawMessage `json:"pinataContent"`
	PinataMetadata pinMetadata     `json:"pinataMetadata"`
}

type pinMetadata struct {
	Name string `json:"name"`
}

type pinResponse struct {
	IpfsHash string `json:"IpfsHash"`
}

type pinErrorResponse struct {
	Error struct {
		Reason  string `json:"reason"`
		Details string `json:"details"`
	} `json:"error"`
	Message string `json:"message"`
}

// NewPinataStore creates a pinning-service store. The JWT may be empty, in
// which case uploads fail with ErrStoreAuth at first use rather than at
// construction.
func NewPinataStore(endpoint, jwt string, gateways *GatewayPool, log *slog.Logger) *PinataStore {
	if endpoint == "" {
		endpoint = DefaultPinataEndpoint
	}
	if gateways == nil {
		gateways = NewGatewayPool(nil, 0, log, nil)
	}

	return &PinataStore{
		endpoint:    endpoint,
		jwt:         jwt,
		client:      &http.Client{Timeout: 60 * time.Second},
		gateways:    gateways,
		log:         log,
		locationURI: "pinata://" + strings.TrimPrefix(endpoint, "https://"),
	}
}

// Upload pins JSON bytes to the service and returns the resulting CID.
// Safe to call repeatedly with the same bytes; the service deduplicates
// pins by content.
func (s *PinataStore) Upload(ctx context.Context, data []byte, name string) (interfaces.ContentID, error) {
	if s.jwt == "" {
		return "", fmt.Errorf("%w: pinning JWT not configured", interfaces.ErrStoreAuth)
	}
	if !json.Valid(data) {
		return "", fmt.Errorf("%w: upload payload is not valid JSON", interfaces.ErrInvalidDocument)
	}

	body, err := json.Marshal(pinRequest{
		PinataContent:  json.RawMessage(data),
		PinataMetadata: pinMetadata{Name: name},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/pinning/pinJSONToIPFS", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.jwt)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", fmt.Errorf("%w: %s", interfaces.ErrStoreAuth, pinErrorDetail(respBody, resp.Status))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", fmt.Errorf("%w: %s", interfaces.ErrStoreUnavailable, pinErrorDetail(respBody, resp.Status))
	}

	var parsed pinResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil || parsed.IpfsHash == "" {
		return "", fmt.Errorf("%w: unexpected pinning response", interfaces.ErrStoreUnavailable)
	}

	s.log.Debug("Pinned content",
		slog.String("cid", parsed.IpfsHash),
		slog.String("name", name),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return interfaces.ContentID(parsed.IpfsHash), nil
}

// Fetch retrieves pinned bytes through the gateway pool.
func (s *PinataStore) Fetch(ctx context.Context, cid interfaces.ContentID) ([]byte, error) {
	return s.gateways.Fetch(ctx, cid)
}

// Available checks the pinning API's authentication endpoint.
func (s *PinataStore) Available(ctx context.Context) bool {
	if s.jwt == "" {
		return false
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, s.endpoint+"/data/testAuthentication", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+s.jwt)

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Debug("Pinning service unavailable", "err", err)
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// Name returns a unique identifier for this store.
func (s *PinataStore) Name() string {
	return "pinata"
}

// LocationURI returns the URI that identifies this store.
func (s *PinataStore) LocationURI() string {
	return s.locationURI
}

func pinErrorDetail(body []byte, status string) string {
	var parsed pinErrorResponse
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Error.Details != "" {
			return parsed.Error.Details
		}
		if parsed.Error.Reason != "" {
			return parsed.Error.Reason
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	return status
}
