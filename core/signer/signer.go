/* signer.go
 * Contains the event signer used by the audit chain. Produces canonical
 * fingerprints and HMAC signatures for arbitrary structured records, plus
 * the chain-link hash that ties consecutive audit entries together.
 */

package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Signer holds the HMAC secret used for audit-entry signatures. A zero
// secret is rejected at construction so a misconfigured deployment cannot
// silently produce forgeable signatures.
type Signer struct {
	secret []byte
}

// NewSigner creates a Signer from the configured signing secret
func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}
	return &Signer{secret: []byte(secret)}, nil
}

// canonicalize serializes v with all object keys recursively sorted, so
// the same logical record always produces the same bytes regardless of
// struct field order. Round-tripping through map[string]any relies on
// encoding/json emitting map keys in sorted order.
func canonicalize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("failed to normalize record: %w", err)
	}

	canonical, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize record: %w", err)
	}
	return canonical, nil
}

// Fingerprint returns the SHA-256 content hash of the canonical
// serialization of v, hex encoded. The fingerprint is independent of the
// chain linkage and identifies the payload itself.
func (s *Signer) Fingerprint(v any) (string, error) {
	canonical, err := canonicalize(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Sign returns the hex HMAC-SHA256 of the canonical serialization of v
func (s *Signer) Sign(v any) (string, error) {
	canonical, err := canonicalize(v)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(canonical)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify recomputes the signature for v and compares it to sig in
// constant time
func (s *Signer) Verify(v any, sig string) (bool, error) {
	expected, err := s.Sign(v)
	if err != nil {
		return false, err
	}
	return hmac.Equal([]byte(expected), []byte(sig)), nil
}

// ChainHash computes the link hash for the next audit entry in a chain:
// SHA-256 over the previous entry's signature concatenated with its own
// previous hash
func ChainHash(signature string, prevHash string) string {
	sum := sha256.Sum256([]byte(signature + prevHash))
	return hex.EncodeToString(sum[:])
}
