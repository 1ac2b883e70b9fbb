// Package storage provides content stores for canonical credential documents
// with pluggable backends.
//
// The package offers a unified interface for persisting credential bytes and
// retrieving them by content ID across multiple backends:
//
//   - Hosted pinning service (Pinata-compatible API) for production pinning
//   - Self-hosted IPFS node for organizations running their own infrastructure
//   - S3-compatible object storage for mirroring pinned content
//   - File system storage for local development and testing
//
// # Store URI Format
//
// Content stores are specified using URI format:
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
// Supported URI schemes:
//
//   - pinata://api.pinata.cloud
//   - ipfs://ipfs.example.com:5001
//   - s3://bucket-name/prefix/?region=us-west-2
//   - file:///var/lib/credentials/
//
// # Content Retrieval
//
// Retrieval for IPFS-backed stores goes through a GatewayPool: a fixed,
// ordered list of public gateway URL templates tried one after another.
// Any failure on a gateway (connection error, non-2xx status, payload that
// is not valid JSON) advances to the next; the pool only reports
// ErrContentUnavailable once every gateway has been exhausted.
//
// # Content IDs
//
// A ContentID is scoped to the store that issued it. IPFS-backed stores
// return CIDs; the S3 and file stores derive object keys from the SHA-256
// of the content. The same bytes uploaded twice to the same store yield the
// same ID.
//
// # Mirrored Store Example
//
//	factory := storage.NewStoreFactory(logger, storage.StoreOptions{PinataJWT: jwt})
//	store, err := factory.CreateMirroredStore([]string{
//	    "pinata://api.pinata.cloud",
//	    "s3://credential-mirror/pinned/?region=eu-west-1",
//	})
package storage
