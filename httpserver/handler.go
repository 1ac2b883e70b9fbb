// Package httpserver exposes the credential workflow over HTTP: issuance,
// verification, and revocation endpoints plus the usual health and drain
// surface.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/go-chi/chi/v5"

	"github.com/echain-id/credential-registry/credential"
	"github.com/echain-id/credential-registry/interfaces"
	"github.com/echain-id/credential-registry/metrics"
)

// maxBodySize is the maximum allowed request body size (1MB).
const maxBodySize = 1024 * 1024

// CredentialWorkflow is the slice of the workflow the HTTP layer needs.
type CredentialWorkflow interface {
	Issue(ctx context.Context, req credential.IssueRequest) (*credential.Credential, error)
	Verify(ctx context.Context, cid interfaces.ContentID) (*credential.VerificationResult, error)
	Revoke(ctx context.Context, digest interfaces.Digest) (*types.Transaction, error)
}

// IssueRequestBody is the JSON body of an issuance request.
type IssueRequestBody struct {
	// Fields holds the credential's key/value content.
	Fields map[string]string `json:"fields"`

	// IssuedAt is optional; when empty the server stamps it.
	IssuedAt string `json:"issuedAt,omitempty"`

	// Issuer is the issuing address, 0x-prefixed hex.
	Issuer string `json:"issuer"`

	// CID optionally points at already-pinned canonical content.
	CID string `json:"cid,omitempty"`
}

// IssueResponse reports the outcome of an issuance.
type IssueResponse struct {
	Digest string `json:"digest"`
	CID    string `json:"cid"`
	State  string `json:"state"`
	Status string `json:"status"`
}

// VerifyResponse reports a verification verdict.
type VerifyResponse struct {
	Outcome   string            `json:"outcome"`
	Digest    string            `json:"digest,omitempty"`
	CID       string            `json:"cid"`
	Fields    map[string]string `json:"fields,omitempty"`
	IssuedAt  string            `json:"issuedAt,omitempty"`
	Issuer    string            `json:"issuer,omitempty"`
	Timestamp uint64            `json:"timestamp,omitempty"`
	Revoked   bool              `json:"revoked"`
	Status    string            `json:"status"`
}

// RevokeResponse reports a submitted revocation.
type RevokeResponse struct {
	Digest string `json:"digest"`
	Tx     string `json:"tx"`
	Status string `json:"status"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Status string `json:"status"`
}

// Handler processes credential API requests by delegating to the workflow.
type Handler struct {
	workflow CredentialWorkflow
	metrics  *metrics.Metrics
	log      *slog.Logger
}

// NewHandler creates an HTTP handler over the workflow. metrics may be nil.
func NewHandler(workflow CredentialWorkflow, m *metrics.Metrics, log *slog.Logger) *Handler {
	return &Handler{workflow: workflow, metrics: m, log: log}
}

// HandleIssue processes POST /api/credentials.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var body IssueRequestBody
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("malformed request body"))
		h.record("issue", "bad_request", start)
		return
	}

	issuer, err := interfaces.NewAddressFromHex(body.Issuer)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("invalid issuer address"))
		h.record("issue", "bad_request", start)
		return
	}

	cred, err := h.workflow.Issue(r.Context(), credential.IssueRequest{
		Document: interfaces.CredentialDocument{Fields: body.Fields, IssuedAt: body.IssuedAt},
		Issuer:   issuer,
		CID:      interfaces.ContentID(body.CID),
	})
	if err != nil {
		h.log.Error("issuance failed", "err", err)
		h.writeError(w, statusCodeFor(err), err)
		h.record("issue", outcomeFor(err), start)
		return
	}

	h.writeJSON(w, http.StatusOK, IssueResponse{
		Digest: cred.Digest.String(),
		CID:    cred.CID.String(),
		State:  string(cred.State),
		Status: cred.Status,
	})
	h.record("issue", "ok", start)
}

// HandleVerify processes GET /api/credentials/verify/{cid}. A document whose
// digest has no registry record yields a 200 with outcome not_found; only
// retrieval failures produce error statuses.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	cid := interfaces.ContentID(chi.URLParam(r, "cid"))
	if cid.Validate() != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("missing content ID"))
		h.record("verify", "bad_request", start)
		return
	}

	result, err := h.workflow.Verify(r.Context(), cid)
	if err != nil {
		h.log.Error("verification failed", "err", err, "cid", cid.String())
		h.writeError(w, statusCodeFor(err), err)
		h.record("verify", outcomeFor(err), start)
		return
	}

	resp := VerifyResponse{
		Outcome:  string(result.Outcome),
		CID:      cid.String(),
		Fields:   result.Document.Fields,
		IssuedAt: result.Document.IssuedAt,
		Revoked:  result.Outcome == credential.OutcomeRevoked,
		Status:   result.Status,
	}
	if !result.Digest.IsZero() {
		resp.Digest = result.Digest.String()
	}
	if result.Record.Exists() {
		resp.Issuer = result.Record.Issuer.String()
		resp.Timestamp = result.Record.Timestamp
	}
	h.writeJSON(w, http.StatusOK, resp)
	h.record("verify", string(result.Outcome), start)
}

// HandleRevoke processes POST /api/credentials/revoke/{digest}.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	digest, err := interfaces.NewDigestFromHex(chi.URLParam(r, "digest"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("invalid credential digest"))
		h.record("revoke", "bad_request", start)
		return
	}

	tx, err := h.workflow.Revoke(r.Context(), digest)
	if err != nil {
		h.log.Error("revocation failed", "err", err, "digest", digest.String())
		h.writeError(w, statusCodeFor(err), err)
		h.record("revoke", outcomeFor(err), start)
		return
	}

	h.writeJSON(w, http.StatusOK, RevokeResponse{
		Digest: digest.String(),
		Tx:     tx.Hash().Hex(),
		Status: "revocation submitted",
	})
	h.record("revoke", "ok", start)
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("failed to encode response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, code int, err error) {
	h.writeJSON(w, code, errorResponse{
		Error:  err.Error(),
		Status: credential.StatusForError(err),
	})
}

func (h *Handler) record(operation, outcome string, start time.Time) {
	h.metrics.RecordOperation(operation, outcome, time.Since(start))
}

// statusCodeFor maps workflow errors onto HTTP status codes. Upstream
// collaborator failures are bad gateways, not internal errors: the service
// itself is healthy.
func statusCodeFor(err error) int {
	switch {
	case errors.Is(err, interfaces.ErrInvalidDocument):
		return http.StatusBadRequest
	case errors.Is(err, interfaces.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, interfaces.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, interfaces.ErrNotReady), errors.Is(err, interfaces.ErrNoSigner):
		return http.StatusServiceUnavailable
	case errors.Is(err, interfaces.ErrStoreAuth),
		errors.Is(err, interfaces.ErrStoreUnavailable),
		errors.Is(err, interfaces.ErrContentUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// outcomeFor labels an error for the operations counter.
func outcomeFor(err error) string {
	switch {
	case errors.Is(err, interfaces.ErrInvalidDocument):
		return "invalid_document"
	case errors.Is(err, interfaces.ErrStoreAuth):
		return "store_auth"
	case errors.Is(err, interfaces.ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, interfaces.ErrContentUnavailable):
		return "content_unavailable"
	case errors.Is(err, interfaces.ErrNotReady):
		return "not_ready"
	case errors.Is(err, interfaces.ErrNotFound):
		return "not_found"
	case errors.Is(err, interfaces.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, interfaces.ErrNoSigner):
		return "no_signer"
	default:
		return "error"
	}
}
