/* engine_test.go
 * Contains unit tests for bracket construction, bye handling, match
 * state transitions and tournament persistence round trips
 */

package bracket

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"settlement-core/core/audit"
	"settlement-core/core/shared"
	"settlement-core/core/signer"
	"settlement-core/core/store"
	"settlement-core/core/vrf"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePools implements PoolService in memory with injectable errors
type fakePools struct {
	mu        sync.Mutex
	created   int
	settled   map[string]string
	createErr error
	settleErr error
}

func newFakePools() *fakePools {
	return &fakePools{settled: make(map[string]string)}
}

func (f *fakePools) CreatePool(ctx context.Context, outcomes []string, closesAt time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created++
	return fmt.Sprintf("pool-%d", f.created), nil
}

func (f *fakePools) SettlePool(ctx context.Context, poolID string, winningOutcome string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.settleErr != nil {
		return f.settleErr
	}
	f.settled[poolID] = winningOutcome
	return nil
}

func newTestEngine(t *testing.T) (*Engine, *store.MemoryStore, *fakePools) {
	t.Helper()
	sg, err := signer.NewSigner("bracket-test-secret")
	require.NoError(t, err)

	st := store.NewMemoryStore()
	logger := audit.NewLogger(sg, st)
	resolver := vrf.NewResolver(&vrf.LocalOracle{Fixed: make([]byte, 32)}, logger, vrf.Config{
		MinResolutionDelay: 20 * time.Millisecond,
		MaxResolutionDelay: 2 * time.Second,
		PollInterval:       5 * time.Millisecond,
		PollRate:           1000,
		PollBurst:          100,
	}, nil)
	pools := newFakePools()
	return NewEngine(st, logger, resolver, pools, Config{}), st, pools
}

func futureLock() time.Time {
	return time.Now().Add(time.Hour)
}

func TestCreateTournamentFullField(t *testing.T) {
	e, _, pools := newTestEngine(t)

	tn, err := e.CreateTournament(context.Background(), "t1", "Spring Cup",
		[]string{"Alpha", "Bravo", "Charlie", "Delta"}, SchemeSingleElimination, futureLock())
	require.NoError(t, err)

	assert.Equal(t, TournamentOpen, tn.Status)
	require.Len(t, tn.Rounds, 2)
	require.Len(t, tn.Rounds[0], 2)
	require.Len(t, tn.Rounds[1], 1)

	// Mirrored seeding: first seed meets last seed
	m1 := tn.Rounds[0][0]
	assert.Equal(t, "t1-r1-m1", m1.ID)
	assert.Equal(t, "Alpha", m1.Participant1)
	assert.Equal(t, "Delta", m1.Participant2)
	m2 := tn.Rounds[0][1]
	assert.Equal(t, "Bravo", m2.Participant1)
	assert.Equal(t, "Charlie", m2.Participant2)

	// Pools exist for the seeded matches only; the final has no
	// participants yet
	assert.NotEmpty(t, m1.PoolID)
	assert.NotEmpty(t, m2.PoolID)
	assert.Empty(t, tn.Rounds[1][0].PoolID)
	assert.Equal(t, 2, pools.created)
}

func TestCreateTournamentPadsWithByes(t *testing.T) {
	e, _, pools := newTestEngine(t)

	tn, err := e.CreateTournament(context.Background(), "t1", "Six Field",
		[]string{"A", "B", "C", "D", "E", "F"}, SchemeSingleElimination, futureLock())
	require.NoError(t, err)

	require.Len(t, tn.Rounds, 3)
	require.Len(t, tn.Rounds[0], 4)

	// Mirroring keeps byes apart: the top two seeds get them
	bye1, bye2 := tn.Rounds[0][0], tn.Rounds[0][1]
	assert.True(t, bye1.Bye)
	assert.True(t, bye2.Bye)
	assert.Equal(t, MatchCompleted, bye1.Status)
	assert.Equal(t, "A", bye1.Winner)
	assert.Equal(t, "B", bye2.Winner)
	assert.False(t, tn.Rounds[0][2].Bye)
	assert.False(t, tn.Rounds[0][3].Bye)

	// Bye winners are seeded straight into the next round
	semi := tn.Rounds[1][0]
	assert.Equal(t, "A", semi.Participant1)
	assert.Equal(t, "B", semi.Participant2)
	assert.NotEmpty(t, semi.PoolID)

	// Two seeded first-round matches plus the pre-seeded semi
	assert.Equal(t, 3, pools.created)
	assert.Len(t, realMatches(tn), 5)
}

func TestCreateTournamentValidation(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	var vErr *shared.ValidationError

	_, err := e.CreateTournament(ctx, "t1", "", []string{"A"}, SchemeSingleElimination, futureLock())
	require.ErrorAs(t, err, &vErr)

	_, err = e.CreateTournament(ctx, "t1", "", []string{"A", "A"}, SchemeSingleElimination, futureLock())
	require.ErrorAs(t, err, &vErr)

	_, err = e.CreateTournament(ctx, "t1", "", []string{"A", "B"}, SchemeRoundRobin, futureLock())
	require.ErrorAs(t, err, &vErr)

	_, err = e.CreateTournament(ctx, "t1", "", []string{"A", "B"}, "swiss", futureLock())
	require.ErrorAs(t, err, &vErr)

	_, err = e.CreateTournament(ctx, "t1", "", []string{"A", "B"}, SchemeSingleElimination, futureLock())
	require.NoError(t, err)
	_, err = e.CreateTournament(ctx, "t1", "", []string{"A", "B"}, SchemeSingleElimination, futureLock())
	require.ErrorAs(t, err, &vErr, "duplicate tournament id must be rejected")
}

func TestCreateTournamentPoolFailure(t *testing.T) {
	e, st, pools := newTestEngine(t)
	pools.createErr = errors.New("pool service down")

	_, err := e.CreateTournament(context.Background(), "t1", "",
		[]string{"A", "B"}, SchemeSingleElimination, futureLock())

	var extErr *shared.ExternalServiceError
	require.ErrorAs(t, err, &extErr)
	_, err = st.GetTournament("t1")
	assert.ErrorIs(t, err, store.ErrTournamentNotFound, "failed creation must not persist")
}

func TestMatchStateTransitions(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.CreateTournament(ctx, "t1", "", []string{"A", "B", "C", "D"}, SchemeSingleElimination, futureLock())
	require.NoError(t, err)

	var vErr *shared.ValidationError

	// Live bets need a live match; live scores need one too
	err = e.UpdateLiveScore(ctx, "t1", "t1-r1-m1", 1, 0)
	require.ErrorAs(t, err, &vErr)

	require.NoError(t, e.StartMatch(ctx, "t1", "t1-r1-m1"))
	tn, err := e.Tournament("t1")
	require.NoError(t, err)
	assert.Equal(t, TournamentActive, tn.Status)
	assert.Equal(t, MatchLive, tn.Match("t1-r1-m1").Status)

	err = e.StartMatch(ctx, "t1", "t1-r1-m1")
	require.ErrorAs(t, err, &vErr, "starting a live match must fail")
	err = e.StartMatch(ctx, "t1", "t1-r2-m1")
	require.ErrorAs(t, err, &vErr, "starting an unseeded match must fail")

	require.NoError(t, e.UpdateLiveScore(ctx, "t1", "t1-r1-m1", 2, 1))
	tn, err = e.Tournament("t1")
	require.NoError(t, err)
	assert.Equal(t, 2, tn.Match("t1-r1-m1").Score1)
	assert.Equal(t, 1, tn.Match("t1-r1-m1").Score2)

	err = e.UpdateLiveScore(ctx, "t1", "t1-r1-m1", -1, 0)
	require.ErrorAs(t, err, &vErr)
}

func TestLockBrackets(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.CreateTournament(ctx, "t1", "", []string{"A", "B"}, SchemeSingleElimination, futureLock())
	require.NoError(t, err)

	require.NoError(t, e.LockBrackets(ctx, "t1"))
	tn, err := e.Tournament("t1")
	require.NoError(t, err)
	assert.Equal(t, TournamentLocked, tn.Status)

	var vErr *shared.ValidationError
	err = e.LockBrackets(ctx, "t1")
	require.ErrorAs(t, err, &vErr, "locking twice must fail")
}

func TestPersistBumpsStoredVersion(t *testing.T) {
	e, st, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.CreateTournament(ctx, "t1", "", []string{"A", "B"}, SchemeSingleElimination, futureLock())
	require.NoError(t, err)

	rec, err := st.GetTournament("t1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.Version)

	require.NoError(t, e.UpdateMatchResult(ctx, "t1", "t1-r1-m1", "A"))

	rec, err = st.GetTournament("t1")
	require.NoError(t, err)
	assert.Greater(t, rec.Version, int64(1), "each persisted update must bump the stored version")
}

func TestTournamentRecordRoundTrip(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	tn, err := e.CreateTournament(ctx, "t1", "Round Trip",
		[]string{"Alpha", "Bravo", "Charlie", "Delta"}, SchemeSingleElimination, futureLock())
	require.NoError(t, err)

	tn.BracketBets["u1"] = &BracketBet{
		UserID:          "u1",
		Username:        "alice",
		Predictions:     map[string]string{"t1-r1-m1": "Alpha"},
		Amount:          100,
		Correct:         1,
		BonusMultiplier: 1.25,
		PotentialPayout: 250,
		PlacedAt:        time.Now().Round(0),
	}
	tn.LiveBets["t1-r1-m1"] = []*LiveBet{{
		ID:              "lb1",
		UserID:          "u2",
		MatchID:         "t1-r1-m1",
		PredictedWinner: "Delta",
		Amount:          40,
		Odds:            2.3,
		Score1:          1,
		PlacedAt:        time.Now().Round(0),
	}}
	tn.PrizePool = PrizePool{Bracket: 100, Match: 40}
	tn.Results.Eliminated = []string{"Delta"}

	assert.Equal(t, tn, fromRecord(toRecord(tn)))
}
