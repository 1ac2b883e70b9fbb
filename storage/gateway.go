package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/echain-id/credential-registry/interfaces"
	"github.com/echain-id/credential-registry/metrics"
)

// DefaultGateways is the ordered list of public retrieval endpoint templates
// tried when fetching a CID. Each template takes the CID as its single
// argument. The last entry handles CIDs pointing at a directory containing
// credential.json.
var DefaultGateways = []string{
	"https://gateway.pinata.cloud/ipfs/%s",
	"https://cloudflare-ipfs.com/ipfs/%s",
	"https://%s.ipfs.dweb.link/",
	"https://%s.ipfs.dweb.link/credential.json",
}

// DefaultAttemptTimeout bounds a single gateway attempt. Worst-case fetch
// latency is len(gateways) * DefaultAttemptTimeout.
const DefaultAttemptTimeout = 30 * time.Second

// GatewayPool retrieves content-addressed bytes by attempting an ordered,
// fixed list of gateway mirrors. Each endpoint gets exactly one attempt per
// Fetch call; fallback, not per-endpoint retry.
type GatewayPool struct {
	gateways       []string
	client         *http.Client
	attemptTimeout time.Duration
	log            *slog.Logger
	metrics        *metrics.Metrics
}

// NewGatewayPool creates a pool over the given URL templates. Order is
// preserved and deterministic so retrieval behavior is reproducible. The
// metrics value may be nil.
func NewGatewayPool(gateways []string, attemptTimeout time.Duration, log *slog.Logger, m *metrics.Metrics) *GatewayPool {
	if len(gateways) == 0 {
		gateways = DefaultGateways
	}
	if attemptTimeout <= 0 {
		attemptTimeout = DefaultAttemptTimeout
	}
	if log == nil {
		log = slog.Default()
	}

	return &GatewayPool{
		gateways:       gateways,
		client:         &http.Client{},
		attemptTimeout: attemptTimeout,
		log:            log,
		metrics:        m,
	}
}

// Fetch tries each gateway in order and returns the first successful JSON
// payload. Single-endpoint failures (non-2xx, network error, malformed
// payload) advance to the next gateway without surfacing. Only when every
// gateway has failed does it return ErrContentUnavailable wrapping the last
// underlying error. Context cancellation aborts the remaining gateways and
// surfaces ctx.Err() instead.
func (p *GatewayPool) Fetch(ctx context.Context, cid interfaces.ContentID) ([]byte, error) {
	if err := cid.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrContentUnavailable, err)
	}

	start := time.Now()
	var lastErr error

	for _, gateway := range p.gateways {
		if err := ctx.Err(); err != nil {
			p.log.Debug("Fetch cancelled",
				slog.String("cid", cid.String()),
				"err", err)
			return nil, err
		}

		data, err := p.fetchOne(ctx, gateway, cid)
		if err == nil {
			p.metrics.RecordGatewayAttempt(gateway, "hit")
			p.log.Debug("Fetched content from gateway",
				slog.String("gateway", gateway),
				slog.String("cid", cid.String()),
				slog.Int("size", len(data)),
				slog.Duration("duration", time.Since(start)))
			return data, nil
		}

		lastErr = err
		p.metrics.RecordGatewayAttempt(gateway, "miss")
		p.log.Debug("Gateway attempt failed",
			slog.String("gateway", gateway),
			slog.String("cid", cid.String()),
			"err", err)
	}

	// The per-attempt timeout can expire because the caller's context was
	// cancelled mid-request; report that distinctly from exhaustion.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.log.Warn("All gateways failed",
		slog.String("cid", cid.String()),
		slog.Int("gateways", len(p.gateways)),
		slog.Duration("duration", time.Since(start)))

	if lastErr == nil {
		return nil, fmt.Errorf("%w: no gateway attempted", interfaces.ErrContentUnavailable)
	}
	return nil, fmt.Errorf("%w: last error: %v", interfaces.ErrContentUnavailable, lastErr)
}

// Gateways returns the pool's endpoint templates in attempt order.
func (p *GatewayPool) Gateways() []string {
	return p.gateways
}

func (p *GatewayPool) fetchOne(ctx context.Context, gateway string, cid interfaces.ContentID) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, p.attemptTimeout)
	defer cancel()

	url := gatewayURL(gateway, cid)
	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("gateway returned %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	// Gateways serve arbitrary content for dead or wrong CIDs; a credential
	// payload must at least be well-formed JSON.
	if !json.Valid(data) {
		return nil, fmt.Errorf("malformed payload from gateway")
	}

	return data, nil
}

func gatewayURL(template string, cid interfaces.ContentID) string {
	if strings.Contains(template, "%s") {
		return fmt.Sprintf(template, cid.String())
	}
	return strings.TrimSuffix(template, "/") + "/" + cid.String()
}
