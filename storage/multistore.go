package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/echain-id/credential-registry/interfaces"
	"github.com/echain-id/credential-registry/metrics"
)

// MirroredStore implements interfaces.ContentStore over multiple stores.
// Uploads go to every available store; the first successful store's CID is
// the one returned (and the one recorded on-chain). Fetches fall through
// the stores in order.
type MirroredStore struct {
	stores  []interfaces.ContentStore
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewMirroredStore creates a mirrored store. Order determines both fetch
// precedence and which store's CID wins on upload. The metrics value may be
// nil.
func NewMirroredStore(stores []interfaces.ContentStore, log *slog.Logger, m *metrics.Metrics) *MirroredStore {
	if log == nil {
		log = slog.Default()
	}

	return &MirroredStore{
		stores:  stores,
		log:     log,
		metrics: m,
	}
}

// Upload stores data to all available stores. The first success provides the
// returned CID; later failures are logged, not surfaced. Fails only if no
// store accepted the data.
func (m *MirroredStore) Upload(ctx context.Context, data []byte, name string) (interfaces.ContentID, error) {
	start := time.Now()
	var result interfaces.ContentID
	var success bool
	var errs []error

	for _, store := range m.stores {
		if !store.Available(ctx) {
			m.metrics.RecordStoreUpload(store.Name(), "unavailable")
			m.log.Debug("Store unavailable", slog.String("store", store.Name()))
			continue
		}

		cid, err := store.Upload(ctx, data, name)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", store.Name(), err))
			m.metrics.RecordStoreUpload(store.Name(), "error")
			m.log.Debug("Failed to upload to store",
				slog.String("store", store.Name()),
				"err", err)
			continue
		}

		m.metrics.RecordStoreUpload(store.Name(), "ok")
		if !success {
			result = cid
			success = true
			m.log.Info("Uploaded content",
				slog.String("store", store.Name()),
				slog.String("cid", cid.String()),
				slog.Duration("duration", time.Since(start)))
		}
	}

	if !success {
		m.log.Error("All stores failed to upload",
			slog.Int("failed_stores", len(errs)),
			slog.Duration("duration", time.Since(start)))
		if len(errs) == 0 {
			return "", fmt.Errorf("%w: no store available", interfaces.ErrStoreUnavailable)
		}
		return "", fmt.Errorf("%w: all stores failed: %v", interfaces.ErrStoreUnavailable, errs)
	}

	return result, nil
}

// Fetch tries each store in order and returns the first successful payload.
func (m *MirroredStore) Fetch(ctx context.Context, cid interfaces.ContentID) ([]byte, error) {
	start := time.Now()
	var lastErr error

	for _, store := range m.stores {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !store.Available(ctx) {
			m.log.Debug("Store unavailable",
				slog.String("store", store.Name()),
				slog.String("cid", cid.String()))
			continue
		}

		data, err := store.Fetch(ctx, cid)
		if err == nil {
			m.log.Info("Fetched content",
				slog.String("store", store.Name()),
				slog.String("cid", cid.String()),
				slog.Duration("duration", time.Since(start)))
			return data, nil
		}

		lastErr = fmt.Errorf("%s: %w", store.Name(), err)
		m.log.Debug("Failed to fetch from store",
			slog.String("store", store.Name()),
			slog.String("cid", cid.String()),
			"err", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.log.Error("All stores failed to fetch content",
		slog.String("cid", cid.String()),
		slog.Duration("duration", time.Since(start)))

	if lastErr == nil {
		return nil, fmt.Errorf("%w: no store available", interfaces.ErrContentUnavailable)
	}
	return nil, fmt.Errorf("%w: last error: %v", interfaces.ErrContentUnavailable, lastErr)
}

// Available checks if any store is available.
func (m *MirroredStore) Available(ctx context.Context) bool {
	for _, store := range m.stores {
		if store.Available(ctx) {
			return true
		}
	}
	return false
}

// Name returns the name of this store.
func (m *MirroredStore) Name() string {
	return "mirrored-store"
}

// LocationURI returns the combined URI of all mirrored stores.
func (m *MirroredStore) LocationURI() string {
	var locations []string
	for _, store := range m.stores {
		locations = append(locations, store.LocationURI())
	}
	return "mirrored:[" + strings.Join(locations, ",") + "]"
}
