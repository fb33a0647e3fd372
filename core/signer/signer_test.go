/* signer_test.go
 * Contains unit tests for the event signer
 */

package signer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// orderedA and orderedB carry the same logical payload with fields
// declared in different orders; canonicalization must make them equal
type orderedA struct {
	Amount float64 `json:"amount"`
	Wallet string  `json:"wallet"`
	TxHash string  `json:"tx_hash"`
}

type orderedB struct {
	TxHash string  `json:"tx_hash"`
	Wallet string  `json:"wallet"`
	Amount float64 `json:"amount"`
}

func TestNewSigner_RejectsEmptySecret(t *testing.T) {
	_, err := NewSigner("")
	assert.Error(t, err)
}

func TestFingerprint_FieldOrderIndependent(t *testing.T) {
	s, err := NewSigner("test-secret")
	require.NoError(t, err)

	a := orderedA{Amount: 42.5, Wallet: "wallet-1", TxHash: "0xabc"}
	b := orderedB{Amount: 42.5, Wallet: "wallet-1", TxHash: "0xabc"}

	fpA, err := s.Fingerprint(a)
	require.NoError(t, err)
	fpB, err := s.Fingerprint(b)
	require.NoError(t, err)

	assert.Equal(t, fpA, fpB)
}

func TestFingerprint_ChangesWithContent(t *testing.T) {
	s, err := NewSigner("test-secret")
	require.NoError(t, err)

	fp1, err := s.Fingerprint(orderedA{Amount: 10, Wallet: "w", TxHash: "t"})
	require.NoError(t, err)
	fp2, err := s.Fingerprint(orderedA{Amount: 11, Wallet: "w", TxHash: "t"})
	require.NoError(t, err)

	assert.NotEqual(t, fp1, fp2)
}

func TestSignAndVerify(t *testing.T) {
	s, err := NewSigner("test-secret")
	require.NoError(t, err)

	payload := map[string]any{"amount": 100.0, "wallet": "wallet-9"}
	sig, err := s.Sign(payload)
	require.NoError(t, err)
	require.NotEmpty(t, sig)

	ok, err := s.Verify(payload, sig)
	require.NoError(t, err)
	assert.True(t, ok)

	tampered := map[string]any{"amount": 101.0, "wallet": "wallet-9"}
	ok, err = s.Verify(tampered, sig)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSign_DifferentSecretsDiffer(t *testing.T) {
	s1, err := NewSigner("secret-one")
	require.NoError(t, err)
	s2, err := NewSigner("secret-two")
	require.NoError(t, err)

	payload := map[string]any{"amount": 5.0}
	sig1, err := s1.Sign(payload)
	require.NoError(t, err)
	sig2, err := s2.Sign(payload)
	require.NoError(t, err)

	assert.NotEqual(t, sig1, sig2)
}

func TestChainHash_Deterministic(t *testing.T) {
	h1 := ChainHash("sig-a", "prev-a")
	h2 := ChainHash("sig-a", "prev-a")
	h3 := ChainHash("sig-b", "prev-a")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64)
}
