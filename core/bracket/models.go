/* models.go
 * Contains the tournament, match and bet types used by the bracket
 * settlement engine, plus the betting pool boundary interface
 */

package bracket

import (
	"context"
	"time"
)

// Tournament status values. A tournament becomes immutable once
// completed.
const (
	TournamentOpen      = "open"
	TournamentLocked    = "locked"
	TournamentActive    = "active"
	TournamentCompleted = "completed"
)

// Match status values
const (
	MatchPending   = "pending"
	MatchLive      = "live"
	MatchCompleted = "completed"
)

// Bracket schemes. Single elimination is supported in full;
// double-elimination and round-robin are recognised but not yet
// implemented.
const (
	SchemeSingleElimination = "single-elimination"
	SchemeDoubleElimination = "double-elimination"
	SchemeRoundRobin        = "round-robin"
)

// Match is one node of the bracket tree. Round and Slot locate it:
// the winner of round r slot s advances to round r+1 slot s/2.
type Match struct {
	ID           string
	Round        int
	Slot         int
	Participant1 string
	Participant2 string
	Winner       string
	Status       string
	PoolID       string
	Bye          bool
	Score1       int
	Score2       int
}

// Seeded reports whether both sides of the match are known
func (m *Match) Seeded() bool {
	return m.Participant1 != "" && m.Participant2 != ""
}

// BracketBet is a wager on the complete outcome sequence of the bracket,
// scored incrementally as matches resolve
type BracketBet struct {
	UserID          string
	Username        string
	Predictions     map[string]string // matchID -> predicted winner
	Amount          float64
	Correct         int
	Incorrect       int
	BonusMultiplier float64
	PotentialPayout float64
	FinalPayout     float64
	Settled         bool
	PlacedAt        time.Time
}

// LiveBet is a wager on a match in progress. It snapshots the odds and
// match score at placement time so later disputes can be replayed.
type LiveBet struct {
	ID              string
	UserID          string
	MatchID         string
	PredictedWinner string
	Amount          float64
	Odds            float64
	Score1          int
	Score2          int
	PlacedAt        time.Time
	Settled         bool
	Payout          float64
}

// PrizePool tracks the aggregate wagered amounts by source
type PrizePool struct {
	Bracket float64
	Match   float64
	Bonus   float64
}

// CompletedMatch records one decided match
type CompletedMatch struct {
	MatchID     string
	Winner      string
	Loser       string
	Round       int
	CompletedAt time.Time
}

// Results accumulates a tournament's outcomes
type Results struct {
	Completed       []CompletedMatch
	Eliminated      []string
	PerfectBrackets []string
}

// Tournament is the full settlement state for one bracket. Rounds are
// ordered from the entry round to the final.
type Tournament struct {
	ID string
	// Version mirrors the stored document version so each persist bumps
	// from the value that was loaded, letting concurrent writers be
	// detected offline
	Version         int64
	Name            string
	Scheme          string
	Status          string
	BracketLockTime time.Time
	Participants    []string
	Rounds          [][]Match
	BracketBets     map[string]*BracketBet // keyed by bettor user id
	LiveBets        map[string][]*LiveBet  // keyed by match id
	PrizePool       PrizePool
	Results         Results
}

// Match finds a match by id across all rounds
func (t *Tournament) Match(matchID string) *Match {
	for r := range t.Rounds {
		for i := range t.Rounds[r] {
			if t.Rounds[r][i].ID == matchID {
				return &t.Rounds[r][i]
			}
		}
	}
	return nil
}

// PoolService is the external betting pool boundary: one pool per real
// match, settled against the declared winner
type PoolService interface {
	CreatePool(ctx context.Context, outcomes []string, closesAt time.Time) (string, error)
	SettlePool(ctx context.Context, poolID string, winningOutcome string) error
}
