// Package credential orchestrates the issue, verify, and revoke flows across
// the canonicalizer, the content store, and the on-chain registry. The
// workflow owns ordering and failure semantics; the collaborators own the
// mechanics.
package credential

import (
	"errors"
	"fmt"

	"github.com/echain-id/credential-registry/interfaces"
)

// State is the lifecycle position of a credential within the workflow.
// Transitions only move forward: Draft → Canonicalized → Stored → Issued →
// Revoked. A failed step leaves the credential at the last state it reached,
// so callers can retry without repeating completed work.
type State string

const (
	StateDraft         State = "draft"
	StateCanonicalized State = "canonicalized"
	StateStored        State = "stored"
	StateIssued        State = "issued"
	StateRevoked       State = "revoked"
)

// Credential is the record threaded through workflow operations. Canonical
// holds the exact bytes that were hashed and stored; Digest keys the registry.
type Credential struct {
	State     State
	Document  interfaces.CredentialDocument
	Canonical []byte
	Digest    interfaces.Digest
	CID       interfaces.ContentID
	Issuer    interfaces.Address
	Timestamp uint64
	Status    string
}

// VerifyOutcome classifies a verification result.
type VerifyOutcome string

const (
	// OutcomeValid means the fetched document's digest has an unrevoked
	// registry record.
	OutcomeValid VerifyOutcome = "valid"

	// OutcomeRevoked means the digest has a registry record whose issuer has
	// revoked it. The record's issuer and timestamp remain visible.
	OutcomeRevoked VerifyOutcome = "revoked"

	// OutcomeNotFound means the document is intact but its digest was never
	// recorded. This is a verification verdict, not an error.
	OutcomeNotFound VerifyOutcome = "not_found"
)

// VerificationResult reports the verdict for one content ID along with the
// evidence backing it.
type VerificationResult struct {
	Outcome  VerifyOutcome
	CID      interfaces.ContentID
	Digest   interfaces.Digest
	Document interfaces.CredentialDocument
	Record   interfaces.RegistryRecord
	Status   string
}

// StatusForError renders a workflow error as a stable human-readable status
// line, one per taxonomy class. Used for CLI output and API error bodies.
func StatusForError(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, interfaces.ErrInvalidDocument):
		return "document rejected: cannot be canonicalized"
	case errors.Is(err, interfaces.ErrStoreAuth):
		return "content store rejected credentials; check the configured token"
	case errors.Is(err, interfaces.ErrStoreUnavailable):
		return "content store unavailable; the upload can be retried"
	case errors.Is(err, interfaces.ErrContentUnavailable):
		return "content not retrievable from any gateway; retry later"
	case errors.Is(err, interfaces.ErrNotReady):
		return "registry not ready; check the RPC endpoint and contract address"
	case errors.Is(err, interfaces.ErrNotFound):
		return "no registry record for this credential"
	case errors.Is(err, interfaces.ErrUnauthorized):
		return "registry rejected the signer; only the original issuer may revoke"
	case errors.Is(err, interfaces.ErrNoSigner):
		return "no signer configured; writes require a transactor"
	default:
		return fmt.Sprintf("operation failed: %v", err)
	}
}
