package storage

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/echain-id/credential-registry/interfaces"
	"github.com/echain-id/credential-registry/metrics"
)

// StoreOptions carries the cross-store configuration a factory applies when
// building backends: pinning credentials and retrieval gateway policy.
// Absence of a required credential surfaces at first use, not at startup.
type StoreOptions struct {
	// PinataJWT authenticates uploads against the hosted pinning service.
	PinataJWT string

	// Gateways overrides the ordered retrieval endpoint templates.
	Gateways []string

	// GatewayTimeout bounds a single gateway attempt.
	GatewayTimeout time.Duration

	// Metrics receives per-gateway fetch and per-store upload counts.
	// May be nil.
	Metrics *metrics.Metrics
}

// StoreFactory creates content stores from URI strings and manages mirrored
// configurations for redundant storage.
type StoreFactory struct {
	log  *slog.Logger
	opts StoreOptions
}

// NewStoreFactory creates a new factory instance.
func NewStoreFactory(log *slog.Logger, opts StoreOptions) *StoreFactory {
	return &StoreFactory{
		log:  log,
		opts: opts,
	}
}

// GatewayPool returns the retrieval pool configured for this factory.
func (f *StoreFactory) GatewayPool() *GatewayPool {
	return NewGatewayPool(f.opts.Gateways, f.opts.GatewayTimeout, f.log, f.opts.Metrics)
}

// StoreFor creates a content store from a location URI.
//
// Supported schemes:
//   - pinata://host - Hosted pinning service (uploads) + public gateways (fetch)
//   - ipfs://host:port - Self-hosted IPFS node API
//   - s3://[KEY:SECRET@]bucket/prefix?region=...&endpoint=... - Object storage mirror
//   - file:///path - Local filesystem, development only
func (f *StoreFactory) StoreFor(locationURI string) (interfaces.ContentStore, error) {
	u, err := url.Parse(locationURI)
	if err != nil {
		return nil, fmt.Errorf("invalid store location URI: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "pinata":
		return f.createPinataStore(u)
	case "ipfs":
		return f.createIPFSStore(u)
	case "s3":
		return f.createS3Store(u)
	case "file":
		return f.createFileStore(u)
	default:
		return nil, fmt.Errorf("unsupported store scheme: %s", u.Scheme)
	}
}

// CreateMirroredStore creates a mirrored store from a list of location URIs.
// Returns an error if no valid store could be created.
func (f *StoreFactory) CreateMirroredStore(locationURIs []string) (interfaces.ContentStore, error) {
	stores := make([]interfaces.ContentStore, 0, len(locationURIs))

	for _, uri := range locationURIs {
		store, err := f.StoreFor(uri)
		if err != nil {
			f.log.Warn("Failed to create content store",
				"err", err,
				slog.String("locationURI", uri))
			continue
		}
		stores = append(stores, store)
	}

	if len(stores) == 0 {
		return nil, fmt.Errorf("no valid content stores created")
	}

	return NewMirroredStore(stores, f.log, f.opts.Metrics), nil
}

// createPinataStore creates a hosted pinning-service store.
// URI format: pinata://api.pinata.cloud
func (f *StoreFactory) createPinataStore(u *url.URL) (interfaces.ContentStore, error) {
	f.log.Debug("Creating pinning-service store", slog.String("uri", u.String()))

	endpoint := ""
	if u.Host != "" {
		endpoint = "https://" + u.Host
	}

	return NewPinataStore(endpoint, f.opts.PinataJWT, f.GatewayPool(), f.log), nil
}

// createIPFSStore creates a self-hosted IPFS node store.
// URI format: ipfs://host:port
func (f *StoreFactory) createIPFSStore(u *url.URL) (interfaces.ContentStore, error) {
	f.log.Debug("Creating IPFS node store", slog.String("uri", u.String()))

	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "5001" // Default IPFS API port
	}

	return NewIPFSStore(host, port, f.log), nil
}

// createS3Store creates an object-storage mirror store.
// URI format: s3://[ACCESS_KEY:SECRET_KEY@]bucket-name/path/?region=us-west-2&endpoint=custom.s3.com
func (f *StoreFactory) createS3Store(u *url.URL) (interfaces.ContentStore, error) {
	f.log.Debug("Creating S3 store", slog.String("uri", u.String()))

	bucketName := u.Host
	prefix := strings.TrimPrefix(u.Path, "/")

	query := u.Query()
	region := query.Get("region")
	if region == "" {
		region = "us-east-1"
	}
	endpoint := query.Get("endpoint")

	var accessKey, secretKey string
	if u.User != nil {
		accessKey = u.User.Username()
		secretKey, _ = u.User.Password()
	}

	return NewS3Store(bucketName, prefix, region, endpoint, accessKey, secretKey, f.log)
}

// createFileStore creates a local filesystem store.
// URI format: file:///absolute/path/
func (f *StoreFactory) createFileStore(u *url.URL) (interfaces.ContentStore, error) {
	f.log.Debug("Creating file store", slog.String("uri", u.String()))

	path := u.Path
	if u.Host != "" {
		path = u.Host + "/" + strings.TrimPrefix(path, "/")
	}
	if path == "" {
		return nil, fmt.Errorf("empty path in file URI: %s", u.String())
	}

	return NewFileStore(path, f.log)
}
