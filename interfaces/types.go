// Package interfaces defines the core interfaces and types for the credential
// registry system. It provides the contract between different components
// without implementation details.
package interfaces

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Digest is the 32-byte SHA-256 fingerprint of a credential's canonical form.
// It acts as the credential's primary key in the on-chain registry.
type Digest [32]byte

// NewDigestFromBytes creates a digest from a raw 32-byte slice.
func NewDigestFromBytes(source []byte) (Digest, error) {
	if len(source) != 32 {
		return Digest{}, errors.New("invalid digest length: must be 32 bytes")
	}

	var d Digest
	copy(d[:], source)
	return d, nil
}

// NewDigestFromHex creates a digest from a 64-character hex string.
// A leading 0x prefix is accepted and stripped.
func NewDigestFromHex(source string) (Digest, error) {
	clean := strings.TrimPrefix(source, "0x")
	if len(clean) != 64 {
		return Digest{}, errors.New("invalid digest length: hex string must be 64 characters")
	}

	raw, err := hex.DecodeString(clean)
	if err != nil {
		return Digest{}, fmt.Errorf("invalid hex format: %w", err)
	}

	var d Digest
	copy(d[:], raw)
	return d, nil
}

// String returns the 0x-prefixed hex representation used on the wire
// and in registry calls.
func (d Digest) String() string {
	return "0x" + hex.EncodeToString(d[:])
}

// Bytes returns the raw 32-byte digest.
func (d Digest) Bytes() []byte {
	return d[:]
}

// Equal compares two digests.
func (d Digest) Equal(other Digest) bool {
	return bytes.Equal(d[:], other[:])
}

// IsZero reports whether the digest is unset.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// ContentID is the opaque handle a content store returns for stored bytes.
// A ContentID is scoped to the store that issued it and is not guaranteed
// stable across different store providers for the same bytes.
type ContentID string

// String returns the content ID as a string.
func (c ContentID) String() string {
	return string(c)
}

// Validate checks that the content ID is non-empty.
func (c ContentID) Validate() error {
	if strings.TrimSpace(string(c)) == "" {
		return errors.New("empty content ID")
	}
	return nil
}

// Address represents a 20-byte Ethereum address, used for both the registry
// contract and credential issuers.
type Address [20]byte

// NewAddressFromBytes creates an address from a raw 20-byte slice.
func NewAddressFromBytes(source []byte) (Address, error) {
	if len(source) != 20 {
		return Address{}, errors.New("invalid address length: must be 20 bytes")
	}

	var a Address
	copy(a[:], source)
	return a, nil
}

// NewAddressFromHex creates an address from a 40-character hex string.
// A leading 0x prefix is accepted and stripped.
func NewAddressFromHex(source string) (Address, error) {
	clean := strings.TrimPrefix(source, "0x")
	if len(clean) != 40 {
		return Address{}, errors.New("invalid address length: hex string must be 40 characters")
	}

	raw, err := hex.DecodeString(clean)
	if err != nil {
		return Address{}, fmt.Errorf("invalid hex format: %w", err)
	}

	return NewAddressFromBytes(raw)
}

// String returns the 0x-prefixed hex representation of the address.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// Bytes returns the raw 20-byte address.
func (a Address) Bytes() []byte {
	return a[:]
}

// Equal compares two addresses.
func (a Address) Equal(other Address) bool {
	return a == other
}

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool {
	return a == Address{}
}

// CredentialDocument is a free-form mapping of named fields (subject name,
// qualification, issuance year) plus a server-set issuance timestamp.
// Two documents are the same credential iff their canonical byte forms
// are identical.
type CredentialDocument struct {
	// Fields holds the credential's key/value content.
	Fields map[string]string

	// IssuedAt is an RFC-3339 timestamp, stamped at issuance when empty.
	IssuedAt string
}

// RegistryRecord is the on-chain metadata tuple for one digest. Created once
// per digest by an issue operation, mutated only by revocation, never deleted.
type RegistryRecord struct {
	Digest    Digest
	Issuer    Address
	CID       ContentID
	Timestamp uint64
	Revoked   bool
}

// Exists reports whether the record denotes a known digest. The registry
// signals non-existence with a zero timestamp.
func (r RegistryRecord) Exists() bool {
	return r.Timestamp != 0
}
