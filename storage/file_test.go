package storage

import (
	"context"
	"testing"

	"github.com/echain-id/credential-registry/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_RoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), testLogger())
	require.NoError(t, err)

	data := []byte(`{"name":"Ada Lovelace"}`)
	cid, err := store.Upload(context.Background(), data, "cred")
	require.NoError(t, err)
	assert.Len(t, cid.String(), 64, "file store CIDs are sha256 hex")

	fetched, err := store.Fetch(context.Background(), cid)
	require.NoError(t, err)
	assert.Equal(t, data, fetched)

	// Same bytes, same CID.
	again, err := store.Upload(context.Background(), data, "cred")
	require.NoError(t, err)
	assert.Equal(t, cid, again)
}

func TestFileStore_FetchUnknownCID(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), testLogger())
	require.NoError(t, err)

	_, err = store.Fetch(context.Background(), interfaces.ContentID("deadbeef"))
	assert.ErrorIs(t, err, interfaces.ErrContentUnavailable)
}

func TestFileStore_Available(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), testLogger())
	require.NoError(t, err)
	assert.True(t, store.Available(context.Background()))
}

func TestStoreFactory_StoreFor(t *testing.T) {
	factory := NewStoreFactory(testLogger(), StoreOptions{PinataJWT: "jwt"})

	tests := []struct {
		name    string
		uri     string
		wantErr bool
	}{
		{name: "pinata", uri: "pinata://api.pinata.cloud"},
		{name: "ipfs", uri: "ipfs://127.0.0.1:5001"},
		{name: "s3", uri: "s3://credentials-bucket/pinned?region=eu-west-1"},
		{name: "file", uri: "file://" + t.TempDir()},
		{name: "unsupported scheme", uri: "ftp://mirror.example.com/credentials", wantErr: true},
		{name: "empty file path", uri: "file://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := factory.StoreFor(tt.uri)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, store.Name())
			assert.NotEmpty(t, store.LocationURI())
		})
	}
}

func TestStoreFactory_CreateMirroredStore(t *testing.T) {
	factory := NewStoreFactory(testLogger(), StoreOptions{PinataJWT: "jwt"})

	t.Run("invalid URIs are skipped", func(t *testing.T) {
		store, err := factory.CreateMirroredStore([]string{
			"ftp://not-supported",
			"file://" + t.TempDir(),
		})
		require.NoError(t, err)
		assert.Equal(t, "mirrored-store", store.Name())
	})

	t.Run("no valid stores", func(t *testing.T) {
		_, err := factory.CreateMirroredStore([]string{"ftp://not-supported"})
		assert.Error(t, err)
	})
}
