// Package canonical implements deterministic serialization and hashing of
// credential documents. The canonical form is the single input to the digest
// that keys the on-chain registry, so it must be byte-identical for identical
// field values across calls, processes, and implementations.
package canonical

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/echain-id/credential-registry/interfaces"
)

// issuedAtKey is the reserved document key carrying the issuance timestamp.
const issuedAtKey = "issuedAt"

// Canonicalize serializes a credential document into its canonical byte form:
// compact JSON with lexicographically sorted keys and no HTML escaping. The
// output is a pure function of the field values; the caller's map insertion
// order is irrelevant.
//
// Returns ErrInvalidDocument if the document has no fields, an empty or
// reserved key, a non-UTF8 key or value, or a malformed issuedAt timestamp.
func Canonicalize(doc interfaces.CredentialDocument) ([]byte, error) {
	if len(doc.Fields) == 0 {
		return nil, fmt.Errorf("%w: document has no fields", interfaces.ErrInvalidDocument)
	}

	fields := make(map[string]string, len(doc.Fields)+1)
	for key, value := range doc.Fields {
		if key == "" {
			return nil, fmt.Errorf("%w: empty field key", interfaces.ErrInvalidDocument)
		}
		if key == issuedAtKey {
			return nil, fmt.Errorf("%w: field key %q is reserved", interfaces.ErrInvalidDocument, issuedAtKey)
		}
		if !utf8.ValidString(key) || !utf8.ValidString(value) {
			return nil, fmt.Errorf("%w: field %q contains invalid UTF-8", interfaces.ErrInvalidDocument, key)
		}
		fields[key] = value
	}

	if doc.IssuedAt == "" {
		return nil, fmt.Errorf("%w: missing %s timestamp", interfaces.ErrInvalidDocument, issuedAtKey)
	}
	if _, err := time.Parse(time.RFC3339, doc.IssuedAt); err != nil {
		return nil, fmt.Errorf("%w: malformed %s timestamp: %v", interfaces.ErrInvalidDocument, issuedAtKey, err)
	}
	fields[issuedAtKey] = doc.IssuedAt

	// json.Marshal sorts map keys; the encoder is only needed to disable
	// HTML escaping, which would make the byte form Go-specific.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(fields); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidDocument, err)
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ParseDocument decodes JSON bytes, typically fetched back from a content
// store, into a credential document. Gateways may re-serialize payloads, so
// verification parses and re-canonicalizes rather than hashing the fetched
// bytes directly.
//
// Returns ErrInvalidDocument if the bytes are not a flat JSON object of
// string values.
func ParseDocument(data []byte) (interfaces.CredentialDocument, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return interfaces.CredentialDocument{}, fmt.Errorf("%w: not a JSON object: %v", interfaces.ErrInvalidDocument, err)
	}

	doc := interfaces.CredentialDocument{Fields: make(map[string]string, len(raw))}
	for key, value := range raw {
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return interfaces.CredentialDocument{}, fmt.Errorf("%w: field %q is not a string", interfaces.ErrInvalidDocument, key)
		}
		if key == issuedAtKey {
			doc.IssuedAt = s
			continue
		}
		doc.Fields[key] = s
	}
	return doc, nil
}

// ComputeDigest calculates the SHA-256 digest of canonical bytes. Pure and
// deterministic; used identically at issuance and at verification time.
func ComputeDigest(data []byte) interfaces.Digest {
	return interfaces.Digest(sha256.Sum256(data))
}

// DigestDocument canonicalizes a document and computes its digest in one
// step, returning both so callers can store the canonical bytes.
func DigestDocument(doc interfaces.CredentialDocument) ([]byte, interfaces.Digest, error) {
	data, err := Canonicalize(doc)
	if err != nil {
		return nil, interfaces.Digest{}, err
	}
	return data, ComputeDigest(data), nil
}
