package storage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/echain-id/credential-registry/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPinataStore_Upload(t *testing.T) {
	canonicalDoc := []byte(`{"degree":"BSc CS","issuedAt":"2025-01-01T00:00:00Z","name":"Ada Lovelace","year":"2025"}`)

	t.Run("success returns CID", func(t *testing.T) {
		var gotAuth string
		var gotBody pinRequest

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/pinning/pinJSONToIPFS", r.URL.Path)
			gotAuth = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"IpfsHash":"QmPinnedCredential"}`))
		}))
		defer srv.Close()

		store := NewPinataStore(srv.URL, "test-jwt", nil, testLogger())
		cid, err := store.Upload(context.Background(), canonicalDoc, "Credential")
		require.NoError(t, err)

		assert.Equal(t, interfaces.ContentID("QmPinnedCredential"), cid)
		assert.Equal(t, "Bearer test-jwt", gotAuth)
		assert.JSONEq(t, string(canonicalDoc), string(gotBody.PinataContent))
		assert.Equal(t, "Credential", gotBody.PinataMetadata.Name)
	})

	t.Run("missing JWT fails before any request", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("no request expected without credentials")
		}))
		defer srv.Close()

		store := NewPinataStore(srv.URL, "", nil, testLogger())
		_, err := store.Upload(context.Background(), canonicalDoc, "Credential")
		assert.ErrorIs(t, err, interfaces.ErrStoreAuth)
	})

	t.Run("rejected JWT maps to auth error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"reason":"INVALID_CREDENTIALS","details":"invalid or expired JWT"}}`))
		}))
		defer srv.Close()

		store := NewPinataStore(srv.URL, "expired-jwt", nil, testLogger())
		_, err := store.Upload(context.Background(), canonicalDoc, "Credential")
		require.ErrorIs(t, err, interfaces.ErrStoreAuth)
		assert.Contains(t, err.Error(), "invalid or expired JWT")
	})

	t.Run("service failure maps to unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"message":"pinning backend down"}`))
		}))
		defer srv.Close()

		store := NewPinataStore(srv.URL, "test-jwt", nil, testLogger())
		_, err := store.Upload(context.Background(), canonicalDoc, "Credential")
		require.ErrorIs(t, err, interfaces.ErrStoreUnavailable)
		assert.Contains(t, err.Error(), "pinning backend down")
	})

	t.Run("unexpected response body maps to unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		store := NewPinataStore(srv.URL, "test-jwt", nil, testLogger())
		_, err := store.Upload(context.Background(), canonicalDoc, "Credential")
		assert.ErrorIs(t, err, interfaces.ErrStoreUnavailable)
	})

	t.Run("idempotent re-upload", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.Write([]byte(`{"IpfsHash":"QmSameCID"}`))
		}))
		defer srv.Close()

		store := NewPinataStore(srv.URL, "test-jwt", nil, testLogger())

		first, err := store.Upload(context.Background(), canonicalDoc, "Credential")
		require.NoError(t, err)
		second, err := store.Upload(context.Background(), canonicalDoc, "Credential")
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 2, calls)
	})
}

func TestPinataStore_FetchUsesGateways(t *testing.T) {
	gatewaySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"Ada"}`))
	}))
	defer gatewaySrv.Close()

	pool := NewGatewayPool([]string{gatewaySrv.URL + "/ipfs/%s"}, time.Second, testLogger(), nil)
	store := NewPinataStore("https://api.pinata.cloud", "test-jwt", pool, testLogger())

	data, err := store.Fetch(context.Background(), "QmX")
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Ada"}`, string(data))
}

func TestPinataStore_Available(t *testing.T) {
	t.Run("authenticated", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/data/testAuthentication", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		store := NewPinataStore(srv.URL, "test-jwt", nil, testLogger())
		assert.True(t, store.Available(context.Background()))
	})

	t.Run("no JWT", func(t *testing.T) {
		store := NewPinataStore("https://api.pinata.cloud", "", nil, testLogger())
		assert.False(t, store.Available(context.Background()))
	})
}
