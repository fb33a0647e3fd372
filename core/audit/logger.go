/* logger.go
 * Contains the audit logger. Each logged payload becomes a fully-formed
 * entry on its category's hash chain: fingerprint over the canonical
 * payload, HMAC signature over the entry minus its signature, and a
 * previous-hash link to the chain head.
 */

package audit

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"settlement-core/core/signer"
	"settlement-core/core/store"

	"github.com/google/uuid"
)

// Logger appends signed entries to per-category hash chains. Appends are
// serialized per category because the previous-hash computation races
// otherwise; reads may run concurrently with appends.
type Logger struct {
	signer *signer.Signer
	store  store.Interface

	mu       sync.Mutex
	chainMus map[string]*sync.Mutex

	retention map[string]time.Duration
}

// NewLogger creates a Logger writing through the given store
func NewLogger(sg *signer.Signer, st store.Interface) *Logger {
	return &Logger{
		signer:    sg,
		store:     st,
		chainMus:  make(map[string]*sync.Mutex),
		retention: make(map[string]time.Duration),
	}
}

// signableEntry is the view of an entry that gets signed: everything
// except the signature itself. The store-assigned sequence number is a
// persistence artifact and is not part of the entry's identity.
type signableEntry struct {
	ID          string         `json:"id"`
	Category    string         `json:"category"`
	Type        string         `json:"type"`
	Timestamp   string         `json:"timestamp"`
	Actor       string         `json:"actor"`
	Payload     map[string]any `json:"payload"`
	Fingerprint string         `json:"fingerprint"`
	PrevHash    string         `json:"prev_hash"`
}

func signableFromRecord(rec store.AuditEntryRecord) signableEntry {
	return signableEntry{
		ID:          rec.ID,
		Category:    rec.Category,
		Type:        rec.Type,
		Timestamp:   rec.Timestamp.UTC().Format(time.RFC3339Nano),
		Actor:       rec.Actor,
		Payload:     rec.Payload,
		Fingerprint: rec.Fingerprint,
		PrevHash:    rec.PrevHash,
	}
}

// chainMu returns the append mutex for a category, creating it on first
// use
func (l *Logger) chainMu(category string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	mu, ok := l.chainMus[category]
	if !ok {
		mu = &sync.Mutex{}
		l.chainMus[category] = mu
	}
	return mu
}

// toPayloadMap converts a typed payload struct into the generic map form
// stored with the entry
func toPayloadMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to convert payload: %w", err)
	}
	return out, nil
}

// appendEntry builds, signs and persists one entry on the category chain.
// Construction order: payload, fingerprint, previous hash, signature,
// persist, then advance the chain head to H(signature || previousHash).
func (l *Logger) appendEntry(category string, entryType string, actor string, payload map[string]any) (string, error) {
	mu := l.chainMu(category)
	mu.Lock()
	defer mu.Unlock()

	fingerprint, err := l.signer.Fingerprint(payload)
	if err != nil {
		return "", fmt.Errorf("error fingerprinting %s entry: %w", category, err)
	}

	prevHash, err := l.store.ChainHead(category)
	if err != nil {
		return "", fmt.Errorf("error reading %s chain head: %w", category, err)
	}

	// BSON datetimes carry millisecond precision, so the signed
	// timestamp must never be finer than what the store gives back
	rec := store.AuditEntryRecord{
		ID:          uuid.NewString(),
		Category:    category,
		Type:        entryType,
		Timestamp:   time.Now().UTC().Truncate(time.Millisecond),
		Actor:       actor,
		Payload:     payload,
		Fingerprint: fingerprint,
		PrevHash:    prevHash,
	}

	sig, err := l.signer.Sign(signableFromRecord(rec))
	if err != nil {
		return "", fmt.Errorf("error signing %s entry: %w", category, err)
	}
	rec.Signature = sig

	if _, err := l.store.AppendAuditEntry(rec); err != nil {
		return "", fmt.Errorf("error persisting %s entry: %w", category, err)
	}

	if err := l.store.SetChainHead(category, signer.ChainHash(sig, prevHash)); err != nil {
		return "", fmt.Errorf("error advancing %s chain head: %w", category, err)
	}

	return rec.ID, nil
}

// LogTransaction records a deposit or withdrawal on the transaction chain
func (l *Logger) LogTransaction(p TransactionPayload) (string, error) {
	payload, err := toPayloadMap(p)
	if err != nil {
		return "", err
	}
	return l.appendEntry(CategoryTransaction, p.Kind, p.UserID, payload)
}

// LogBet records a wager on the bet chain
func (l *Logger) LogBet(p BetPayload) (string, error) {
	payload, err := toPayloadMap(p)
	if err != nil {
		return "", err
	}
	return l.appendEntry(CategoryBet, p.Kind, p.UserID, payload)
}

// LogPayout records a winnings distribution on the payout chain
func (l *Logger) LogPayout(p PayoutPayload) (string, error) {
	payload, err := toPayloadMap(p)
	if err != nil {
		return "", err
	}
	return l.appendEntry(CategoryPayout, p.Kind, p.UserID, payload)
}

// LogEscrow records an escrow hold or release on the escrow chain
func (l *Logger) LogEscrow(p EscrowPayload) (string, error) {
	payload, err := toPayloadMap(p)
	if err != nil {
		return "", err
	}
	return l.appendEntry(CategoryEscrow, p.Kind, p.UserID, payload)
}

// LogSecurity records a security-relevant event on the security chain
func (l *Logger) LogSecurity(p SecurityPayload) (string, error) {
	payload, err := toPayloadMap(p)
	if err != nil {
		return "", err
	}
	return l.appendEntry(CategorySecurity, p.Kind, p.UserID, payload)
}

// SetRetention configures the TTL for one category's entries
func (l *Logger) SetRetention(category string, ttl time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.retention[category] = ttl
}

// PruneExpired removes entries older than each category's TTL from the
// live store. Entries are appended chronologically so expiry always
// removes a clean prefix, which integrity verification tolerates.
// Categories without a configured TTL are never pruned.
func (l *Logger) PruneExpired(now time.Time) (map[string]int64, error) {
	l.mu.Lock()
	policies := make(map[string]time.Duration, len(l.retention))
	for category, ttl := range l.retention {
		policies[category] = ttl
	}
	l.mu.Unlock()

	removed := make(map[string]int64, len(policies))
	for category, ttl := range policies {
		n, err := l.store.PruneAuditEntries(category, now.Add(-ttl))
		if err != nil {
			return removed, fmt.Errorf("error pruning %s entries: %w", category, err)
		}
		removed[category] = n
	}
	return removed, nil
}
