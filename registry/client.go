// Package registry provides a typed client for the on-chain credential
// registry contract. The registry is the sole source of truth for issued
// credentials; this package only implements the call shapes and result
// interpretation, never the registry itself.
package registry

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/echain-id/credential-registry/interfaces"
)

// OnchainRegistryClient implements interfaces.CredentialRegistry against a
// credential registry contract deployed on an Ethereum-compatible chain.
type OnchainRegistryClient struct {
	contract *bind.BoundContract
	client   bind.ContractBackend
	address  common.Address
	auth     *bind.TransactOpts
}

// NewOnchainRegistryClient creates a client for the registry contract at the
// specified address. The client can read immediately; writes require
// SetTransactOpts first.
func NewOnchainRegistryClient(client bind.ContractBackend, address common.Address) *OnchainRegistryClient {
	return &OnchainRegistryClient{
		contract: bindRegistry(address, client),
		client:   client,
		address:  address,
	}
}

// SetTransactOpts sets the signer used for state-changing calls. This must be
// called before Issue or Revoke.
func (c *OnchainRegistryClient) SetTransactOpts(auth *bind.TransactOpts) {
	c.auth = auth
}

// Address returns the configured contract address.
func (c *OnchainRegistryClient) Address() common.Address {
	return c.address
}

// EnsureDeployed checks that contract code exists at the configured address
// on the connected chain. Returns ErrNotReady carrying the underlying detail
// when the RPC is unreachable or no contract is deployed there, so callers
// can fail fast before any storage write.
func (c *OnchainRegistryClient) EnsureDeployed(ctx context.Context) error {
	code, err := c.client.CodeAt(ctx, c.address, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to query code at %s: %v", interfaces.ErrNotReady, c.address.Hex(), err)
	}
	if len(code) == 0 {
		return fmt.Errorf("%w: no contract found at %s on the connected chain", interfaces.ErrNotReady, c.address.Hex())
	}
	return nil
}

// Issue records a credential digest with its content pointer and issuer.
func (c *OnchainRegistryClient) Issue(ctx context.Context, digest interfaces.Digest, cid interfaces.ContentID, issuer interfaces.Address) (*types.Transaction, error) {
	if c.auth == nil {
		return nil, interfaces.ErrNoSigner
	}

	opts := *c.auth
	opts.Context = ctx

	tx, err := c.contract.Transact(&opts, "issueCredential",
		[32]byte(digest), cid.String(), common.BytesToAddress(issuer.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("issueCredential failed: %w", err)
	}
	return tx, nil
}

// GetCredential looks up the registry record for a digest. A record whose
// timestamp is zero is reported as ErrNotFound, never as revoked or as an
// I/O error.
func (c *OnchainRegistryClient) GetCredential(ctx context.Context, digest interfaces.Digest) (interfaces.RegistryRecord, error) {
	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getCredential", [32]byte(digest))
	if err != nil {
		return interfaces.RegistryRecord{}, fmt.Errorf("getCredential failed: %w", err)
	}
	if len(out) != 4 {
		return interfaces.RegistryRecord{}, fmt.Errorf("getCredential returned %d values, expected 4", len(out))
	}

	issuerAddr, ok := out[0].(common.Address)
	if !ok {
		return interfaces.RegistryRecord{}, fmt.Errorf("getCredential returned unexpected issuer type %T", out[0])
	}
	cid, ok := out[1].(string)
	if !ok {
		return interfaces.RegistryRecord{}, fmt.Errorf("getCredential returned unexpected cid type %T", out[1])
	}
	timestamp, ok := out[2].(*big.Int)
	if !ok {
		return interfaces.RegistryRecord{}, fmt.Errorf("getCredential returned unexpected timestamp type %T", out[2])
	}
	revoked, ok := out[3].(bool)
	if !ok {
		return interfaces.RegistryRecord{}, fmt.Errorf("getCredential returned unexpected revoked type %T", out[3])
	}

	if timestamp.Sign() == 0 {
		return interfaces.RegistryRecord{}, interfaces.ErrNotFound
	}

	issuer, err := interfaces.NewAddressFromBytes(issuerAddr.Bytes())
	if err != nil {
		return interfaces.RegistryRecord{}, err
	}

	return interfaces.RegistryRecord{
		Digest:    digest,
		Issuer:    issuer,
		CID:       interfaces.ContentID(cid),
		Timestamp: timestamp.Uint64(),
		Revoked:   revoked,
	}, nil
}

// Revoke marks a digest's record revoked. The contract enforces that only
// the original issuer may revoke; a reverted call surfaces as
// ErrUnauthorized.
func (c *OnchainRegistryClient) Revoke(ctx context.Context, digest interfaces.Digest) (*types.Transaction, error) {
	if c.auth == nil {
		return nil, interfaces.ErrNoSigner
	}

	opts := *c.auth
	opts.Context = ctx

	tx, err := c.contract.Transact(&opts, "revokeCredential", [32]byte(digest))
	if err != nil {
		if isRevert(err) {
			return nil, fmt.Errorf("%w: %v", interfaces.ErrUnauthorized, err)
		}
		return nil, fmt.Errorf("revokeCredential failed: %w", err)
	}
	return tx, nil
}

// isRevert reports whether an error is a contract execution revert, as
// opposed to a transport failure. The registry only reverts revocation for
// callers that are not the original issuer.
func isRevert(err error) bool {
	return err != nil && strings.Contains(err.Error(), "execution reverted")
}
