package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/echain-id/credential-registry/canonical"
	"github.com/echain-id/credential-registry/interfaces"
)

// IssueRequest carries the inputs for one issuance. CID is optional: when the
// caller already holds a content ID for the document (a retry after a
// registry failure, or content pinned out of band), the upload is skipped.
type IssueRequest struct {
	Document interfaces.CredentialDocument
	Issuer   interfaces.Address
	CID      interfaces.ContentID
}

// Workflow wires the canonicalizer, a content store, and the registry into
// the issue/verify/revoke operations. Safe for concurrent use.
type Workflow struct {
	store    interfaces.ContentStore
	registry interfaces.CredentialRegistry
	log      *slog.Logger
	now      func() time.Time

	mu sync.Mutex
	// cidCache remembers which content ID a digest was stored under, so a
	// retried issuance does not upload the same bytes twice. Advisory and
	// process-local; losing it only costs a redundant upload.
	cidCache map[interfaces.Digest]interfaces.ContentID
}

// NewWorkflow creates a workflow over the given store and registry.
func NewWorkflow(store interfaces.ContentStore, registry interfaces.CredentialRegistry, log *slog.Logger) *Workflow {
	return &Workflow{
		store:    store,
		registry: registry,
		log:      log,
		now:      time.Now,
		cidCache: make(map[interfaces.Digest]interfaces.ContentID),
	}
}

// Issue runs the full issuance pipeline: canonicalize and digest the
// document, persist the canonical bytes, then record the digest on chain.
//
// Ordering guarantees:
//   - the registry is probed first, so an unreachable chain fails with
//     ErrNotReady before any bytes are uploaded;
//   - an upload failure aborts before the registry write, so the chain never
//     references content that was not stored;
//   - a registry failure after a successful upload returns the credential in
//     StateStored with its CID set, and the digest→CID mapping is kept so a
//     retry skips the upload.
//
// Re-issuing an already-recorded digest is idempotent: the existing record
// is returned without a second upload or write.
func (w *Workflow) Issue(ctx context.Context, req IssueRequest) (*Credential, error) {
	cred := &Credential{State: StateDraft, Document: req.Document, Issuer: req.Issuer}

	doc := req.Document
	if doc.IssuedAt == "" {
		doc.IssuedAt = w.now().UTC().Format(time.RFC3339)
		cred.Document.IssuedAt = doc.IssuedAt
	}

	data, digest, err := canonical.DigestDocument(doc)
	if err != nil {
		cred.Status = StatusForError(err)
		return cred, err
	}
	cred.State = StateCanonicalized
	cred.Canonical = data
	cred.Digest = digest

	if err := w.registry.EnsureDeployed(ctx); err != nil {
		cred.Status = StatusForError(err)
		return cred, err
	}

	existing, err := w.registry.GetCredential(ctx, digest)
	switch {
	case err == nil:
		w.log.Info("credential already recorded, returning existing record",
			"digest", digest.String(), "cid", existing.CID.String())
		w.rememberCID(digest, existing.CID)
		cred.State = StateIssued
		if existing.Revoked {
			cred.State = StateRevoked
		}
		cred.CID = existing.CID
		cred.Issuer = existing.Issuer
		cred.Timestamp = existing.Timestamp
		cred.Status = "already issued"
		return cred, nil
	case !errors.Is(err, interfaces.ErrNotFound):
		cred.Status = StatusForError(err)
		return cred, fmt.Errorf("registry lookup before issuance failed: %w", err)
	}

	cid := req.CID
	if cid == "" {
		cid = w.cachedCID(digest)
	}
	if cid == "" {
		cid, err = w.store.Upload(ctx, data, uploadName(doc))
		if err != nil {
			cred.Status = StatusForError(err)
			return cred, err
		}
		w.log.Info("canonical document stored", "digest", digest.String(),
			"cid", cid.String(), "store", w.store.Name())
	}
	w.rememberCID(digest, cid)
	cred.State = StateStored
	cred.CID = cid

	tx, err := w.registry.Issue(ctx, digest, cid, req.Issuer)
	if err != nil {
		// CID stays cached; a retry resumes at the registry write.
		cred.Status = StatusForError(err)
		return cred, fmt.Errorf("registry write failed, content stored at %s: %w", cid.String(), err)
	}

	cred.State = StateIssued
	cred.Status = "issued"
	w.log.Info("credential issued", "digest", digest.String(),
		"cid", cid.String(), "tx", tx.Hash().Hex())
	return cred, nil
}

// Verify fetches the document a content ID points at, re-derives its digest
// from the fetched bytes, and checks the registry. The digest is always
// recomputed from what was actually retrieved; a tampered or re-serialized
// document therefore verifies as OutcomeNotFound rather than as valid.
//
// OutcomeNotFound is a verdict, not an error: the error return is reserved
// for retrieval and transport failures.
func (w *Workflow) Verify(ctx context.Context, cid interfaces.ContentID) (*VerificationResult, error) {
	result := &VerificationResult{CID: cid}

	data, err := w.store.Fetch(ctx, cid)
	if err != nil {
		result.Status = StatusForError(err)
		return result, err
	}

	doc, err := canonical.ParseDocument(data)
	if err != nil {
		result.Status = StatusForError(err)
		return result, err
	}
	result.Document = doc

	_, digest, err := canonical.DigestDocument(doc)
	if err != nil {
		result.Status = StatusForError(err)
		return result, err
	}
	result.Digest = digest

	record, err := w.registry.GetCredential(ctx, digest)
	if errors.Is(err, interfaces.ErrNotFound) {
		result.Outcome = OutcomeNotFound
		result.Status = "document not recorded in the registry"
		return result, nil
	}
	if err != nil {
		result.Status = StatusForError(err)
		return result, err
	}

	result.Record = record
	if record.Revoked {
		result.Outcome = OutcomeRevoked
		result.Status = fmt.Sprintf("credential revoked by issuer %s", record.Issuer.String())
	} else {
		result.Outcome = OutcomeValid
		result.Status = fmt.Sprintf("credential valid, issued by %s", record.Issuer.String())
	}
	w.log.Info("credential verified", "cid", cid.String(),
		"digest", digest.String(), "outcome", string(result.Outcome))
	return result, nil
}

// Revoke marks a digest revoked in the registry. The contract enforces the
// issuer check; an attempt by anyone else surfaces as ErrUnauthorized.
func (w *Workflow) Revoke(ctx context.Context, digest interfaces.Digest) (*types.Transaction, error) {
	tx, err := w.registry.Revoke(ctx, digest)
	if err != nil {
		return nil, err
	}
	w.log.Info("credential revoked", "digest", digest.String(), "tx", tx.Hash().Hex())
	return tx, nil
}

func (w *Workflow) cachedCID(digest interfaces.Digest) interfaces.ContentID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cidCache[digest]
}

func (w *Workflow) rememberCID(digest interfaces.Digest, cid interfaces.ContentID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cidCache[digest] = cid
}

// uploadName derives the pin display name from the document's subject field,
// falling back to a generic label.
func uploadName(doc interfaces.CredentialDocument) string {
	if name, ok := doc.Fields["name"]; ok && name != "" {
		return "credential-" + name
	}
	return "credential"
}
