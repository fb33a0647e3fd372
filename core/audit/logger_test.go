/* logger_test.go
 * Contains unit tests for the audit logger: chain construction, integrity
 * verification, tamper detection, retention pruning and reports
 */

package audit

import (
	"sync"
	"testing"
	"time"

	"settlement-core/core/signer"
	"settlement-core/core/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func newTestLogger(t *testing.T) (*Logger, *store.MemoryStore) {
	t.Helper()
	sg, err := signer.NewSigner("audit-test-secret")
	require.NoError(t, err)
	mem := store.NewMemoryStore()
	return NewLogger(sg, mem), mem
}

func TestLogTransaction_BuildsChainedEntries(t *testing.T) {
	logger, mem := newTestLogger(t)

	id1, err := logger.LogTransaction(TransactionPayload{Kind: "deposit", UserID: "u1", Amount: 100, Currency: "SOL"})
	require.NoError(t, err)
	id2, err := logger.LogTransaction(TransactionPayload{Kind: "withdrawal", UserID: "u1", Amount: 40, Currency: "SOL"})
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	entries, err := mem.AuditEntries(CategoryTransaction)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	first, second := entries[0], entries[1]
	assert.Equal(t, store.GenesisHash, first.PrevHash)
	assert.NotEmpty(t, first.Fingerprint)
	assert.NotEmpty(t, first.Signature)
	assert.Equal(t, signer.ChainHash(first.Signature, first.PrevHash), second.PrevHash)

	head, err := mem.ChainHead(CategoryTransaction)
	require.NoError(t, err)
	assert.Equal(t, signer.ChainHash(second.Signature, second.PrevHash), head)
}

func TestLogTransaction_SignatureSurvivesStorageRoundTrip(t *testing.T) {
	logger, mem := newTestLogger(t)

	_, err := logger.LogTransaction(TransactionPayload{Kind: "deposit", UserID: "u1", Amount: 100, Currency: "SOL"})
	require.NoError(t, err)

	entries, err := mem.AuditEntries(CategoryTransaction)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	// BSON datetimes keep millisecond precision, so persisting and
	// reloading an entry must not change what was signed
	raw, err := bson.Marshal(entries[0])
	require.NoError(t, err)
	var decoded store.AuditEntryRecord
	require.NoError(t, bson.Unmarshal(raw, &decoded))

	assert.True(t, decoded.Timestamp.Equal(entries[0].Timestamp))

	ok, err := logger.signer.Verify(signableFromRecord(decoded), decoded.Signature)
	require.NoError(t, err)
	assert.True(t, ok, "signature must survive the storage round trip")
}

func TestVerifyIntegrity_PassesForSequentialAppends(t *testing.T) {
	logger, _ := newTestLogger(t)

	for i := 0; i < 5; i++ {
		_, err := logger.LogBet(BetPayload{Kind: "bracket", UserID: "u1", Amount: float64(10 + i)})
		require.NoError(t, err)
	}

	report, err := logger.VerifyIntegrity(CategoryBet)
	require.NoError(t, err)
	assert.True(t, report.Passed)
	assert.Equal(t, 5, report.Checked)
	assert.Equal(t, -1, report.BrokenAt)
}

func TestVerifyIntegrity_DetectsTamperedSignature(t *testing.T) {
	logger, mem := newTestLogger(t)

	for i := 0; i < 3; i++ {
		_, err := logger.LogPayout(PayoutPayload{Kind: "pool", UserID: "u2", Amount: 25})
		require.NoError(t, err)
	}

	mem.TamperAuditEntry(CategoryPayout, 1, func(rec *store.AuditEntryRecord) {
		rec.Signature = "forged"
	})

	report, err := logger.VerifyIntegrity(CategoryPayout)
	require.NoError(t, err)
	assert.False(t, report.Passed)
	assert.Equal(t, 1, report.BrokenAt)
	assert.Contains(t, report.Reason, "signature mismatch")
}

func TestVerifyIntegrity_DetectsTamperedPayload(t *testing.T) {
	logger, mem := newTestLogger(t)

	_, err := logger.LogEscrow(EscrowPayload{Kind: "hold", EscrowID: "e1", UserID: "u3", Amount: 500})
	require.NoError(t, err)

	mem.TamperAuditEntry(CategoryEscrow, 0, func(rec *store.AuditEntryRecord) {
		rec.Payload["amount"] = 5.0
	})

	report, err := logger.VerifyIntegrity(CategoryEscrow)
	require.NoError(t, err)
	assert.False(t, report.Passed)
	assert.Equal(t, 0, report.BrokenAt)
}

func TestVerifyIntegrity_DetectsBrokenLink(t *testing.T) {
	logger, mem := newTestLogger(t)

	for i := 0; i < 3; i++ {
		_, err := logger.LogBet(BetPayload{Kind: "live", UserID: "u4", Amount: 15})
		require.NoError(t, err)
	}

	mem.TamperAuditEntry(CategoryBet, 2, func(rec *store.AuditEntryRecord) {
		rec.PrevHash = "severed"
	})

	report, err := logger.VerifyIntegrity(CategoryBet)
	require.NoError(t, err)
	assert.False(t, report.Passed)
	// The tampered link also breaks that entry's own signature, so the
	// scan reports the entry itself
	assert.Equal(t, 2, report.BrokenAt)
}

func TestVerifyIntegrity_PrunedPrefixStillPasses(t *testing.T) {
	logger, mem := newTestLogger(t)

	logger.SetRetention(CategoryTransaction, time.Hour)

	for i := 0; i < 3; i++ {
		_, err := logger.LogTransaction(TransactionPayload{Kind: "deposit", UserID: "u5", Amount: float64(i + 1)})
		require.NoError(t, err)
	}

	// Age the first entry past the TTL, then prune
	mem.TamperAuditEntry(CategoryTransaction, 0, func(rec *store.AuditEntryRecord) {
		rec.Timestamp = time.Now().Add(-2 * time.Hour)
	})

	removed, err := logger.PruneExpired(time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed[CategoryTransaction])

	report, err := logger.VerifyIntegrity(CategoryTransaction)
	require.NoError(t, err)
	assert.True(t, report.Passed)
	assert.Equal(t, 2, report.Checked)
}

func TestVerifyIntegrity_EmptyChainPasses(t *testing.T) {
	logger, _ := newTestLogger(t)

	report, err := logger.VerifyIntegrity("never-used")
	require.NoError(t, err)
	assert.True(t, report.Passed)
	assert.Equal(t, 0, report.Checked)
}

func TestConcurrentAppends_ChainStaysIntact(t *testing.T) {
	logger, _ := newTestLogger(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := logger.LogSecurity(SecurityPayload{Kind: "vrf_requested", RequestID: "r", UserID: "u"})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	report, err := logger.VerifyIntegrity(CategorySecurity)
	require.NoError(t, err)
	assert.True(t, report.Passed)
	assert.Equal(t, 20, report.Checked)
}

func TestGenerateFinancialReport_AggregatesAndFlagsAnomalies(t *testing.T) {
	logger, _ := newTestLogger(t)

	for i := 0; i < 4; i++ {
		_, err := logger.LogTransaction(TransactionPayload{Kind: "deposit", UserID: "u1", Amount: 10})
		require.NoError(t, err)
	}
	// Sharply deviating amount
	_, err := logger.LogTransaction(TransactionPayload{Kind: "deposit", UserID: "u2", Amount: 10000})
	require.NoError(t, err)
	_, err = logger.LogPayout(PayoutPayload{Kind: "bracket", UserID: "u3", Amount: 50})
	require.NoError(t, err)

	from := time.Now().Add(-time.Minute)
	to := time.Now().Add(time.Minute)

	report, err := logger.GenerateFinancialReport(from, to)
	require.NoError(t, err)

	assert.Equal(t, "passed", report.IntegrityStatus)
	assert.Equal(t, 6, report.EntryCount)
	assert.InDelta(t, 10090.0, report.TotalVolume, 0.001)
	assert.InDelta(t, 10040.0, report.TotalsByType["transaction:deposit"], 0.001)
	assert.InDelta(t, 50.0, report.TotalsByType["payout:bracket"], 0.001)
	assert.Equal(t, 3, report.UniqueActors)

	require.Len(t, report.Anomalies, 1)
	assert.Equal(t, "amount deviates sharply from running mean", report.Anomalies[0].Reason)
}

func TestGenerateFinancialReport_CompromisedChain(t *testing.T) {
	logger, mem := newTestLogger(t)

	for i := 0; i < 3; i++ {
		_, err := logger.LogBet(BetPayload{Kind: "live", UserID: "u1", Amount: 20})
		require.NoError(t, err)
	}
	mem.TamperAuditEntry(CategoryBet, 1, func(rec *store.AuditEntryRecord) {
		rec.Payload["amount"] = 2000.0
	})

	report, err := logger.GenerateFinancialReport(time.Now().Add(-time.Minute), time.Now().Add(time.Minute))
	require.NoError(t, err)

	assert.Equal(t, "compromised", report.IntegrityStatus)
	// The tampered entry and everything after it are flagged
	assert.NotEmpty(t, report.Anomalies)
}
