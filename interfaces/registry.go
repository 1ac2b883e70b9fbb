package interfaces

import (
	"context"

	"github.com/ethereum/go-ethereum/core/types"
)

// CredentialRegistry is the typed interface to the on-chain registry of
// {digest -> issuance metadata} records. Implementations are pass-through
// wrappers around the registry contract's remote calls; the contract itself
// is an external collaborator.
type CredentialRegistry interface {
	// EnsureDeployed verifies the registry contract is reachable and has
	// code at the configured address. Returns ErrNotReady otherwise,
	// carrying the underlying detail.
	EnsureDeployed(ctx context.Context) error

	// Issue records a digest with its content pointer and issuer address.
	// Requires a connected signer.
	Issue(ctx context.Context, digest Digest, cid ContentID, issuer Address) (*types.Transaction, error)

	// GetCredential looks up the record for a digest. A record with a zero
	// timestamp is reported as ErrNotFound, never as revoked or as an
	// I/O error.
	GetCredential(ctx context.Context, digest Digest) (RegistryRecord, error)

	// Revoke marks a digest's record revoked. The contract enforces that
	// only the original issuer may revoke; rejection surfaces as
	// ErrUnauthorized. Requires a connected signer.
	Revoke(ctx context.Context, digest Digest) (*types.Transaction, error)
}
