/* store_test.go
 * Contains unit tests for the mongo-backed store using mtest mocks, and
 * for the in-memory store used by the rest of the test suite
 */

package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func newMockedStore(mt *mtest.T) *Store {
	s := &Store{
		Client:   mt.Client,
		Database: mt.DB,
	}
	s.Collections.AuditEntries = mt.Coll
	s.Collections.ChainHeads = mt.Coll
	s.Collections.Tournaments = mt.Coll
	return s
}

func TestChainHead_NoDocument(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("returns genesis when chain has no head", func(mt *mtest.T) {
		s := newMockedStore(mt)

		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.chain_heads", mtest.FirstBatch))

		hash, err := s.ChainHead("transaction")
		assert.NoError(mt, err)
		assert.Equal(mt, GenesisHash, hash)
	})
}

func TestChainHead_ExistingDocument(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("returns stored head hash", func(mt *mtest.T) {
		s := newMockedStore(mt)

		doc := bson.D{{Key: "_id", Value: "bet"}, {Key: "hash", Value: "abc123"}, {Key: "seq", Value: int64(4)}}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.chain_heads", mtest.FirstBatch, doc))

		hash, err := s.ChainHead("bet")
		assert.NoError(mt, err)
		assert.Equal(mt, "abc123", hash)
	})
}

func TestGetTournament_NotFound(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("returns ErrTournamentNotFound for missing id", func(mt *mtest.T) {
		s := newMockedStore(mt)

		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.tournaments", mtest.FirstBatch))

		_, err := s.GetTournament("missing")
		assert.ErrorIs(mt, err, ErrTournamentNotFound)
	})
}

func TestUpsertTournament_RejectsEmptyID(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("empty id is rejected before any database call", func(mt *mtest.T) {
		s := newMockedStore(mt)

		err := s.UpsertTournament(TournamentRecord{})
		assert.Error(mt, err)
	})
}

// region MemoryStore tests

func TestMemoryStore_AppendAssignsSequence(t *testing.T) {
	m := NewMemoryStore()

	seq1, err := m.AppendAuditEntry(AuditEntryRecord{ID: "e1", Category: "bet", Timestamp: time.Now()})
	require.NoError(t, err)
	seq2, err := m.AppendAuditEntry(AuditEntryRecord{ID: "e2", Category: "bet", Timestamp: time.Now()})
	require.NoError(t, err)

	assert.Equal(t, int64(1), seq1)
	assert.Equal(t, int64(2), seq2)

	entries, err := m.AuditEntries("bet")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "e1", entries[0].ID)
	assert.Equal(t, "e2", entries[1].ID)
}

func TestMemoryStore_SequenceSurvivesPruning(t *testing.T) {
	m := NewMemoryStore()
	base := time.Now().Add(-time.Hour)

	_, err := m.AppendAuditEntry(AuditEntryRecord{ID: "old", Category: "payout", Timestamp: base})
	require.NoError(t, err)
	_, err = m.AppendAuditEntry(AuditEntryRecord{ID: "new", Category: "payout", Timestamp: time.Now()})
	require.NoError(t, err)

	removed, err := m.PruneAuditEntries("payout", base.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	seq, err := m.AppendAuditEntry(AuditEntryRecord{ID: "after", Category: "payout", Timestamp: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, int64(3), seq)
}

func TestMemoryStore_ChainHeadDefaultsToGenesis(t *testing.T) {
	m := NewMemoryStore()

	hash, err := m.ChainHead("escrow")
	require.NoError(t, err)
	assert.Equal(t, GenesisHash, hash)

	require.NoError(t, m.SetChainHead("escrow", "deadbeef"))
	hash, err = m.ChainHead("escrow")
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", hash)
}

func TestMemoryStore_TournamentRoundTrip(t *testing.T) {
	m := NewMemoryStore()

	rec := TournamentRecord{
		ID:     "t1",
		Scheme: "single-elimination",
		Status: "open",
	}
	require.NoError(t, m.UpsertTournament(rec))

	got, err := m.GetTournament("t1")
	require.NoError(t, err)
	assert.Equal(t, "single-elimination", got.Scheme)
	assert.Equal(t, int64(1), got.Version)

	_, err = m.GetTournament("absent")
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

// endregion
