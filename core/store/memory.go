/* memory.go
 * Contains an in-memory implementation of the store Interface used for
 * testing the audit, vrf, bracket and core packages without a database.
 * Error injection fields allow tests to exercise failure paths.
 */

package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore implements Interface backed by in-memory maps
type MemoryStore struct {
	mu          sync.Mutex
	entries     map[string][]AuditEntryRecord
	heads       map[string]string
	seqs        map[string]int64
	tournaments map[string]TournamentRecord

	// Error injection for testing error paths
	AppendAuditEntryError error
	ChainHeadError        error
	UpsertTournamentError error
	GetTournamentError    error
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:     make(map[string][]AuditEntryRecord),
		heads:       make(map[string]string),
		seqs:        make(map[string]int64),
		tournaments: make(map[string]TournamentRecord),
	}
}

func (m *MemoryStore) AppendAuditEntry(rec AuditEntryRecord) (int64, error) {
	if m.AppendAuditEntryError != nil {
		return 0, m.AppendAuditEntryError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seqs[rec.Category]++
	rec.Seq = m.seqs[rec.Category]
	m.entries[rec.Category] = append(m.entries[rec.Category], rec)
	return rec.Seq, nil
}

func (m *MemoryStore) AuditEntries(category string) ([]AuditEntryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]AuditEntryRecord, len(m.entries[category]))
	copy(out, m.entries[category])
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (m *MemoryStore) AuditEntriesBetween(category string, from, to time.Time) ([]AuditEntryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []AuditEntryRecord
	for _, rec := range m.entries[category] {
		if !rec.Timestamp.Before(from) && rec.Timestamp.Before(to) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (m *MemoryStore) ChainHead(category string) (string, error) {
	if m.ChainHeadError != nil {
		return "", m.ChainHeadError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if hash, ok := m.heads[category]; ok && hash != "" {
		return hash, nil
	}
	return GenesisHash, nil
}

func (m *MemoryStore) SetChainHead(category string, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.heads[category] = hash
	return nil
}

func (m *MemoryStore) PruneAuditEntries(category string, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var kept []AuditEntryRecord
	var removed int64
	for _, rec := range m.entries[category] {
		if rec.Timestamp.Before(before) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	m.entries[category] = kept
	return removed, nil
}

func (m *MemoryStore) Categories() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []string
	for category := range m.seqs {
		out = append(out, category)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryStore) UpsertTournament(rec TournamentRecord) error {
	if m.UpsertTournamentError != nil {
		return m.UpsertTournamentError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rec.Version++
	rec.UpdatedAt = time.Now()
	m.tournaments[rec.ID] = rec
	return nil
}

func (m *MemoryStore) GetTournament(id string) (TournamentRecord, error) {
	if m.GetTournamentError != nil {
		return TournamentRecord{}, m.GetTournamentError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.tournaments[id]
	if !ok {
		return TournamentRecord{}, ErrTournamentNotFound
	}
	return rec, nil
}

func (m *MemoryStore) Disconnect(ctx context.Context) error {
	return nil
}

// TamperAuditEntry mutates a stored entry in place. Tests use this to
// simulate retroactive edits that integrity verification must detect.
func (m *MemoryStore) TamperAuditEntry(category string, index int, fn func(*AuditEntryRecord)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if index >= 0 && index < len(m.entries[category]) {
		fn(&m.entries[category][index])
	}
}

// Ensure MemoryStore implements Interface
var _ Interface = (*MemoryStore)(nil)
