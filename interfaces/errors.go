package interfaces

import "errors"

var (
	// ErrInvalidDocument is returned when a credential document cannot be
	// canonicalized: no fields, empty keys, non-UTF8 values, or a malformed
	// issuance timestamp. Not retryable.
	ErrInvalidDocument = errors.New("invalid credential document")

	// ErrStoreAuth is returned when credentials for the content store are
	// absent or rejected. Not retryable without reconfiguration.
	ErrStoreAuth = errors.New("content store authentication failed")

	// ErrStoreUnavailable is returned on network or service failure while
	// uploading to the content store. Retryable by the caller.
	ErrStoreUnavailable = errors.New("content store unavailable")

	// ErrContentUnavailable is returned when every retrieval endpoint failed
	// to serve a content ID. Retryable by the caller.
	ErrContentUnavailable = errors.New("content unavailable from all gateways")

	// ErrNotReady is returned when the registry collaborator is not
	// initialized, e.g. no contract code at the configured address on the
	// connected chain.
	ErrNotReady = errors.New("registry not ready")

	// ErrNotFound is returned when a digest has no registry record. This is
	// a valid query outcome, never conflated with an I/O error.
	ErrNotFound = errors.New("credential not found in registry")

	// ErrUnauthorized is returned when the registry rejects the signer.
	// Only the original issuer may revoke a credential.
	ErrUnauthorized = errors.New("signer not authorized")

	// ErrNoSigner is returned when a registry write is attempted without a
	// connected signer.
	ErrNoSigner = errors.New("no authorized transactor available")
)
