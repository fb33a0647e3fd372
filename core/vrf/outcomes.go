/* outcomes.go
 * Contains the deterministic outcome math: weighted winner selection,
 * random event triggering, the seeded Fisher-Yates shuffle and the
 * verification hash binding outcomes for later auditing
 */

package vrf

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"settlement-core/core/shared"

	"golang.org/x/crypto/sha3"
)

// Confidence bounds for resolved outcomes
const (
	minConfidence = 50.0
	maxConfidence = 95.0
)

// LCG constants for the deterministic shuffle (numerical recipes 32-bit
// generator). The same seed must always reproduce the same permutation.
const (
	lcgMultiplier uint32 = 1664525
	lcgIncrement  uint32 = 1013904223
)

// seedFromRaw extracts the 64-bit seed from the oracle's random bytes
func seedFromRaw(raw []byte) uint64 {
	buf := make([]byte, 8)
	copy(buf, raw)
	return binary.BigEndian.Uint64(buf)
}

// nonceFromRaw extracts the nonce from the second word of the random
// bytes, falling back to a fold of the seed for short values
func nonceFromRaw(raw []byte) uint64 {
	if len(raw) >= 16 {
		return binary.BigEndian.Uint64(raw[8:16])
	}
	seed := seedFromRaw(raw)
	return seed>>32 | seed<<32
}

// normalizeRandom maps the raw random value onto [0, 1)
func normalizeRandom(raw []byte) float64 {
	return float64(seedFromRaw(raw)) / float64(math.MaxUint64)
}

// outcomeWeight combines a side's score and confidence into its win
// weight: score * (1 + confidence/100)
func outcomeWeight(p shared.PlayerScore) float64 {
	return p.Score * (1 + p.Confidence/100)
}

// deriveOutcome picks the winner whose cumulative probability interval
// contains the normalized random value and derives the outcome
// confidence from the weight gap relative to the larger total, clamped
// to [50, 95].
func deriveOutcome(players []shared.PlayerScore, normalized float64) (winner, loser shared.PlayerScore, confidence float64, err error) {
	if len(players) != 2 {
		return winner, loser, 0, fmt.Errorf("outcome resolution requires exactly 2 sides, got %d", len(players))
	}

	w1 := outcomeWeight(players[0])
	w2 := outcomeWeight(players[1])
	total := w1 + w2
	if total <= 0 {
		// Both sides weightless: a fair coin flip
		w1, w2, total = 1, 1, 2
	}

	if normalized < w1/total {
		winner, loser = players[0], players[1]
	} else {
		winner, loser = players[1], players[0]
	}

	larger := math.Max(w1, w2)
	gap := math.Abs(w1 - w2)
	confidence = minConfidence + (maxConfidence-minConfidence)*(gap/larger)
	confidence = math.Min(math.Max(confidence, minConfidence), maxConfidence)

	return winner, loser, confidence, nil
}

// deriveRandomEvent checks the random value against the trigger
// probability (percent) and derives a magnitude from the remaining
// entropy
func deriveRandomEvent(raw []byte, probability float64) (triggered bool, magnitude float64) {
	roll := float64(seedFromRaw(raw) % 100)
	triggered = roll < probability
	if triggered {
		magnitude = float64(nonceFromRaw(raw)%1000) / 1000
	}
	return triggered, magnitude
}

// DeterministicShuffle produces a Fisher-Yates permutation of items
// seeded from the random value via a linear-congruential step. The same
// seed and input always reproduce the same permutation, which later
// verification relies on.
func DeterministicShuffle(items []string, seed uint64) []string {
	out := make([]string, len(items))
	copy(out, items)

	state := uint32(seed) ^ uint32(seed>>32)
	for i := len(out) - 1; i > 0; i-- {
		state = state*lcgMultiplier + lcgIncrement
		j := int(state % uint32(i+1))
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// computeVerificationHash binds an outcome for on-chain verification:
// Keccak-256 over matchID, random seed, winner and nonce
func computeVerificationHash(matchID string, randomSeed string, winner string, nonce uint64) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(matchID))
	h.Write([]byte(randomSeed))
	h.Write([]byte(winner))

	var nonceBuf [8]byte
	binary.BigEndian.PutUint64(nonceBuf[:], nonce)
	h.Write(nonceBuf[:])

	return hex.EncodeToString(h.Sum(nil))
}
