package credential

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"testing"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/echain-id/credential-registry/canonical"
	"github.com/echain-id/credential-registry/interfaces"
	"github.com/echain-id/credential-registry/registry"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Upload(ctx context.Context, data []byte, name string) (interfaces.ContentID, error) {
	args := m.Called(ctx, data, name)
	return args.Get(0).(interfaces.ContentID), args.Error(1)
}

func (m *mockStore) Fetch(ctx context.Context, cid interfaces.ContentID) ([]byte, error) {
	args := m.Called(ctx, cid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockStore) Available(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

func (m *mockStore) Name() string { return "mock-store" }

func (m *mockStore) LocationURI() string { return "mock://store" }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTx() *types.Transaction {
	to := ethcommon.HexToAddress("0x00000000000000000000000000000000000000aa")
	return types.NewTx(&types.LegacyTx{Nonce: 1, To: &to, Gas: 21000, GasPrice: big.NewInt(1)})
}

func testDocument() interfaces.CredentialDocument {
	return interfaces.CredentialDocument{
		Fields: map[string]string{
			"name":   "Ada Lovelace",
			"degree": "BSc CS",
			"year":   "2025",
		},
		IssuedAt: "2025-01-01T00:00:00Z",
	}
}

func testIssuer(t *testing.T) interfaces.Address {
	t.Helper()
	issuer, err := interfaces.NewAddressFromHex("0x1111111111111111111111111111111111111111")
	require.NoError(t, err)
	return issuer
}

func TestIssue_FullPipeline(t *testing.T) {
	doc := testDocument()
	_, digest, err := canonical.DigestDocument(doc)
	require.NoError(t, err)

	store := new(mockStore)
	reg := new(registry.MockRegistry)
	reg.On("EnsureDeployed", mock.Anything).Return(nil)
	reg.On("GetCredential", mock.Anything, digest).Return(interfaces.RegistryRecord{}, interfaces.ErrNotFound)
	store.On("Upload", mock.Anything, mock.Anything, "credential-Ada Lovelace").
		Return(interfaces.ContentID("QmStoredCID"), nil)
	reg.On("Issue", mock.Anything, digest, interfaces.ContentID("QmStoredCID"), testIssuer(t)).
		Return(testTx(), nil)

	w := NewWorkflow(store, reg, testLogger())
	cred, err := w.Issue(context.Background(), IssueRequest{Document: doc, Issuer: testIssuer(t)})
	require.NoError(t, err)

	assert.Equal(t, StateIssued, cred.State)
	assert.Equal(t, digest, cred.Digest)
	assert.Equal(t, interfaces.ContentID("QmStoredCID"), cred.CID)
	assert.Equal(t, "issued", cred.Status)
	store.AssertExpectations(t)
	reg.AssertExpectations(t)
}

func TestIssue_StampsIssuedAt(t *testing.T) {
	doc := testDocument()
	doc.IssuedAt = ""

	store := new(mockStore)
	reg := new(registry.MockRegistry)
	reg.On("EnsureDeployed", mock.Anything).Return(nil)
	reg.On("GetCredential", mock.Anything, mock.Anything).Return(interfaces.RegistryRecord{}, interfaces.ErrNotFound)
	store.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(interfaces.ContentID("QmCID"), nil)
	reg.On("Issue", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(testTx(), nil)

	w := NewWorkflow(store, reg, testLogger())
	issuedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return issuedAt }

	cred, err := w.Issue(context.Background(), IssueRequest{Document: doc, Issuer: testIssuer(t)})
	require.NoError(t, err)

	assert.Equal(t, "2025-06-01T12:00:00Z", cred.Document.IssuedAt)
	assert.Contains(t, string(cred.Canonical), `"issuedAt":"2025-06-01T12:00:00Z"`)
}

func TestIssue_InvalidDocumentTouchesNoCollaborator(t *testing.T) {
	store := new(mockStore)
	reg := new(registry.MockRegistry)

	w := NewWorkflow(store, reg, testLogger())
	cred, err := w.Issue(context.Background(), IssueRequest{
		Document: interfaces.CredentialDocument{IssuedAt: "2025-01-01T00:00:00Z"},
		Issuer:   testIssuer(t),
	})

	assert.ErrorIs(t, err, interfaces.ErrInvalidDocument)
	assert.Equal(t, StateDraft, cred.State)
	store.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
	reg.AssertNotCalled(t, "EnsureDeployed", mock.Anything)
}

func TestIssue_RegistryNotReadyFailsBeforeUpload(t *testing.T) {
	store := new(mockStore)
	reg := new(registry.MockRegistry)
	reg.On("EnsureDeployed", mock.Anything).Return(interfaces.ErrNotReady)

	w := NewWorkflow(store, reg, testLogger())
	cred, err := w.Issue(context.Background(), IssueRequest{Document: testDocument(), Issuer: testIssuer(t)})

	assert.ErrorIs(t, err, interfaces.ErrNotReady)
	assert.Equal(t, StateCanonicalized, cred.State)
	store.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
}

func TestIssue_UploadFailureAbortsBeforeRegistryWrite(t *testing.T) {
	store := new(mockStore)
	reg := new(registry.MockRegistry)
	reg.On("EnsureDeployed", mock.Anything).Return(nil)
	reg.On("GetCredential", mock.Anything, mock.Anything).Return(interfaces.RegistryRecord{}, interfaces.ErrNotFound)
	store.On("Upload", mock.Anything, mock.Anything, mock.Anything).
		Return(interfaces.ContentID(""), interfaces.ErrStoreUnavailable)

	w := NewWorkflow(store, reg, testLogger())
	cred, err := w.Issue(context.Background(), IssueRequest{Document: testDocument(), Issuer: testIssuer(t)})

	assert.ErrorIs(t, err, interfaces.ErrStoreUnavailable)
	assert.Equal(t, StateCanonicalized, cred.State)
	reg.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestIssue_RegistryFailureKeepsStoredStateAndCID(t *testing.T) {
	doc := testDocument()
	_, digest, err := canonical.DigestDocument(doc)
	require.NoError(t, err)

	store := new(mockStore)
	reg := new(registry.MockRegistry)
	reg.On("EnsureDeployed", mock.Anything).Return(nil)
	reg.On("GetCredential", mock.Anything, digest).Return(interfaces.RegistryRecord{}, interfaces.ErrNotFound)
	// The upload must happen exactly once across both attempts.
	store.On("Upload", mock.Anything, mock.Anything, mock.Anything).
		Return(interfaces.ContentID("QmStoredCID"), nil).Once()
	reg.On("Issue", mock.Anything, digest, interfaces.ContentID("QmStoredCID"), testIssuer(t)).
		Return(nil, errors.New("nonce too low")).Once()
	reg.On("Issue", mock.Anything, digest, interfaces.ContentID("QmStoredCID"), testIssuer(t)).
		Return(testTx(), nil).Once()

	w := NewWorkflow(store, reg, testLogger())

	cred, err := w.Issue(context.Background(), IssueRequest{Document: doc, Issuer: testIssuer(t)})
	require.Error(t, err)
	assert.Equal(t, StateStored, cred.State)
	assert.Equal(t, interfaces.ContentID("QmStoredCID"), cred.CID)

	// Retry resumes at the registry write, reusing the cached CID.
	cred, err = w.Issue(context.Background(), IssueRequest{Document: doc, Issuer: testIssuer(t)})
	require.NoError(t, err)
	assert.Equal(t, StateIssued, cred.State)
	store.AssertExpectations(t)
	reg.AssertExpectations(t)
}

func TestIssue_AlreadyRecordedIsIdempotent(t *testing.T) {
	doc := testDocument()
	_, digest, err := canonical.DigestDocument(doc)
	require.NoError(t, err)

	existing := interfaces.RegistryRecord{
		Digest:    digest,
		Issuer:    testIssuer(t),
		CID:       interfaces.ContentID("QmExistingCID"),
		Timestamp: 1735689600,
	}

	store := new(mockStore)
	reg := new(registry.MockRegistry)
	reg.On("EnsureDeployed", mock.Anything).Return(nil)
	reg.On("GetCredential", mock.Anything, digest).Return(existing, nil)

	w := NewWorkflow(store, reg, testLogger())
	cred, err := w.Issue(context.Background(), IssueRequest{Document: doc, Issuer: testIssuer(t)})
	require.NoError(t, err)

	assert.Equal(t, StateIssued, cred.State)
	assert.Equal(t, existing.CID, cred.CID)
	assert.Equal(t, existing.Timestamp, cred.Timestamp)
	assert.Equal(t, "already issued", cred.Status)
	store.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
	reg.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestIssue_SuppliedCIDSkipsUpload(t *testing.T) {
	doc := testDocument()
	_, digest, err := canonical.DigestDocument(doc)
	require.NoError(t, err)

	store := new(mockStore)
	reg := new(registry.MockRegistry)
	reg.On("EnsureDeployed", mock.Anything).Return(nil)
	reg.On("GetCredential", mock.Anything, digest).Return(interfaces.RegistryRecord{}, interfaces.ErrNotFound)
	reg.On("Issue", mock.Anything, digest, interfaces.ContentID("QmSuppliedCID"), testIssuer(t)).
		Return(testTx(), nil)

	w := NewWorkflow(store, reg, testLogger())
	cred, err := w.Issue(context.Background(), IssueRequest{
		Document: doc,
		Issuer:   testIssuer(t),
		CID:      interfaces.ContentID("QmSuppliedCID"),
	})
	require.NoError(t, err)

	assert.Equal(t, StateIssued, cred.State)
	store.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerify_Outcomes(t *testing.T) {
	doc := testDocument()
	data, digest, err := canonical.DigestDocument(doc)
	require.NoError(t, err)
	cid := interfaces.ContentID("QmVerifyCID")

	t.Run("valid", func(t *testing.T) {
		store := new(mockStore)
		reg := new(registry.MockRegistry)
		store.On("Fetch", mock.Anything, cid).Return(data, nil)
		reg.On("GetCredential", mock.Anything, digest).Return(interfaces.RegistryRecord{
			Digest:    digest,
			Issuer:    testIssuer(t),
			CID:       cid,
			Timestamp: 1735689600,
		}, nil)

		result, err := NewWorkflow(store, reg, testLogger()).Verify(context.Background(), cid)
		require.NoError(t, err)
		assert.Equal(t, OutcomeValid, result.Outcome)
		assert.Equal(t, digest, result.Digest)
		assert.Equal(t, doc.Fields, result.Document.Fields)
		assert.Contains(t, result.Status, "valid")
	})

	t.Run("revoked", func(t *testing.T) {
		store := new(mockStore)
		reg := new(registry.MockRegistry)
		store.On("Fetch", mock.Anything, cid).Return(data, nil)
		reg.On("GetCredential", mock.Anything, digest).Return(interfaces.RegistryRecord{
			Digest:    digest,
			Issuer:    testIssuer(t),
			CID:       cid,
			Timestamp: 1735689600,
			Revoked:   true,
		}, nil)

		result, err := NewWorkflow(store, reg, testLogger()).Verify(context.Background(), cid)
		require.NoError(t, err)
		assert.Equal(t, OutcomeRevoked, result.Outcome)
		assert.Contains(t, result.Status, "revoked")
	})

	t.Run("not recorded", func(t *testing.T) {
		store := new(mockStore)
		reg := new(registry.MockRegistry)
		store.On("Fetch", mock.Anything, cid).Return(data, nil)
		reg.On("GetCredential", mock.Anything, digest).
			Return(interfaces.RegistryRecord{}, interfaces.ErrNotFound)

		result, err := NewWorkflow(store, reg, testLogger()).Verify(context.Background(), cid)
		require.NoError(t, err)
		assert.Equal(t, OutcomeNotFound, result.Outcome)
	})

	t.Run("gateways exhausted", func(t *testing.T) {
		store := new(mockStore)
		reg := new(registry.MockRegistry)
		store.On("Fetch", mock.Anything, cid).Return(nil, interfaces.ErrContentUnavailable)

		_, err := NewWorkflow(store, reg, testLogger()).Verify(context.Background(), cid)
		assert.ErrorIs(t, err, interfaces.ErrContentUnavailable)
		reg.AssertNotCalled(t, "GetCredential", mock.Anything, mock.Anything)
	})

	t.Run("unparseable payload", func(t *testing.T) {
		// A payload outside the canonical shape (non-string field values)
		// can never have been issued here; it is rejected as invalid input
		// rather than hashed and reported as not recorded.
		store := new(mockStore)
		reg := new(registry.MockRegistry)
		store.On("Fetch", mock.Anything, cid).Return([]byte(`{"name":42}`), nil)

		result, err := NewWorkflow(store, reg, testLogger()).Verify(context.Background(), cid)
		assert.ErrorIs(t, err, interfaces.ErrInvalidDocument)
		assert.Contains(t, result.Status, "rejected")
		reg.AssertNotCalled(t, "GetCredential", mock.Anything, mock.Anything)
	})
}

func TestVerify_TamperedDocumentGetsFreshDigest(t *testing.T) {
	// The registry must be queried with the digest of the fetched bytes, not
	// with anything the caller claims. A document altered after issuance
	// produces a different digest and therefore a not-found verdict.
	tampered := testDocument()
	tampered.Fields["degree"] = "PhD CS"
	tamperedBytes, tamperedDigest, err := canonical.DigestDocument(tampered)
	require.NoError(t, err)

	cid := interfaces.ContentID("QmTamperedCID")
	store := new(mockStore)
	reg := new(registry.MockRegistry)
	store.On("Fetch", mock.Anything, cid).Return(tamperedBytes, nil)
	reg.On("GetCredential", mock.Anything, tamperedDigest).
		Return(interfaces.RegistryRecord{}, interfaces.ErrNotFound)

	result, err := NewWorkflow(store, reg, testLogger()).Verify(context.Background(), cid)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, result.Outcome)
	reg.AssertExpectations(t)
}

func TestRevoke(t *testing.T) {
	digest, err := interfaces.NewDigestFromHex("045f03678a5812807cc7611967cc10e10157414ef58c2cc45b26411bf631ac18")
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		reg := new(registry.MockRegistry)
		reg.On("Revoke", mock.Anything, digest).Return(testTx(), nil)

		tx, err := NewWorkflow(new(mockStore), reg, testLogger()).Revoke(context.Background(), digest)
		require.NoError(t, err)
		assert.NotNil(t, tx)
	})

	t.Run("unauthorized passes through", func(t *testing.T) {
		reg := new(registry.MockRegistry)
		reg.On("Revoke", mock.Anything, digest).Return(nil, interfaces.ErrUnauthorized)

		_, err := NewWorkflow(new(mockStore), reg, testLogger()).Revoke(context.Background(), digest)
		assert.ErrorIs(t, err, interfaces.ErrUnauthorized)
	})
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{err: nil, want: "ok"},
		{err: interfaces.ErrInvalidDocument, want: "document rejected"},
		{err: interfaces.ErrStoreAuth, want: "token"},
		{err: interfaces.ErrStoreUnavailable, want: "retried"},
		{err: interfaces.ErrContentUnavailable, want: "gateway"},
		{err: interfaces.ErrNotReady, want: "registry not ready"},
		{err: interfaces.ErrNotFound, want: "no registry record"},
		{err: interfaces.ErrUnauthorized, want: "original issuer"},
		{err: interfaces.ErrNoSigner, want: "signer"},
		{err: errors.New("boom"), want: "boom"},
	}

	for _, tt := range tests {
		assert.Contains(t, StatusForError(tt.err), tt.want)
	}
}
