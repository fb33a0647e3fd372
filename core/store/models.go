/* models.go
 * Contains the structs that describe how settlement data is stored in the
 * database. Audit entries are keyed by category with a per-category chain
 * head pointer; tournaments are stored as a single versioned document.
 */

package store

import "time"

// AuditEntryRecord is the persisted form of one audit-chain entry. Seq is
// assigned by the store at append time and is monotonic per category even
// across retention pruning, so insertion order survives.
type AuditEntryRecord struct {
	ID          string         `bson:"_id"`
	Category    string         `bson:"category"`
	Type        string         `bson:"type"`
	Seq         int64          `bson:"seq"`
	Timestamp   time.Time      `bson:"timestamp"`
	Actor       string         `bson:"actor,omitempty"`
	Payload     map[string]any `bson:"payload"`
	Fingerprint string         `bson:"fingerprint"`
	Signature   string         `bson:"signature"`
	PrevHash    string         `bson:"prev_hash"`
}

// chainHeadDoc tracks the current head hash and sequence counter for one
// category chain
type chainHeadDoc struct {
	Category string `bson:"_id"`
	Hash     string `bson:"hash"`
	Seq      int64  `bson:"seq"`
}

// MatchRecord is the persisted form of one bracket match
type MatchRecord struct {
	ID           string `bson:"id"`
	Round        int    `bson:"round"`
	Slot         int    `bson:"slot"`
	Participant1 string `bson:"participant1,omitempty"`
	Participant2 string `bson:"participant2,omitempty"`
	Winner       string `bson:"winner,omitempty"`
	Status       string `bson:"status"`
	PoolID       string `bson:"pool_id,omitempty"`
	Bye          bool   `bson:"bye,omitempty"`
	Score1       int    `bson:"score1,omitempty"`
	Score2       int    `bson:"score2,omitempty"`
}

// BracketBetRecord is the persisted form of one bracket bet
type BracketBetRecord struct {
	UserID          string            `bson:"user_id"`
	Username        string            `bson:"username,omitempty"`
	Predictions     map[string]string `bson:"predictions"`
	Amount          float64           `bson:"amount"`
	Correct         int               `bson:"correct"`
	Incorrect       int               `bson:"incorrect"`
	BonusMultiplier float64           `bson:"bonus_multiplier"`
	PotentialPayout float64           `bson:"potential_payout"`
	FinalPayout     float64           `bson:"final_payout"`
	Settled         bool              `bson:"settled"`
	PlacedAt        time.Time         `bson:"placed_at"`
}

// LiveBetRecord is the persisted form of one live bet, including the odds
// and score snapshot taken at placement time
type LiveBetRecord struct {
	ID              string    `bson:"id"`
	UserID          string    `bson:"user_id"`
	MatchID         string    `bson:"match_id"`
	PredictedWinner string    `bson:"predicted_winner"`
	Amount          float64   `bson:"amount"`
	Odds            float64   `bson:"odds"`
	Score1          int       `bson:"score1"`
	Score2          int       `bson:"score2"`
	PlacedAt        time.Time `bson:"placed_at"`
	Settled         bool      `bson:"settled"`
	Payout          float64   `bson:"payout"`
}

// PrizePoolRecord is the aggregate prize pool split by source
type PrizePoolRecord struct {
	Bracket float64 `bson:"bracket"`
	Match   float64 `bson:"match"`
	Bonus   float64 `bson:"bonus"`
}

// CompletedMatchRecord captures one decided match in a tournament's
// results
type CompletedMatchRecord struct {
	MatchID     string    `bson:"match_id"`
	Winner      string    `bson:"winner"`
	Loser       string    `bson:"loser"`
	Round       int       `bson:"round"`
	CompletedAt time.Time `bson:"completed_at"`
}

// ResultsRecord holds a tournament's accumulated results
type ResultsRecord struct {
	Completed       []CompletedMatchRecord `bson:"completed,omitempty"`
	Eliminated      []string               `bson:"eliminated,omitempty"`
	PerfectBrackets []string               `bson:"perfect_brackets,omitempty"`
}

// TournamentRecord is the persisted form of a tournament. Version is
// bumped on every upsert so concurrent writers can be detected offline.
type TournamentRecord struct {
	ID              string                      `bson:"_id"`
	Version         int64                       `bson:"version"`
	Name            string                      `bson:"name,omitempty"`
	Scheme          string                      `bson:"scheme"`
	Status          string                      `bson:"status"`
	BracketLockTime time.Time                   `bson:"bracket_lock_time"`
	Participants    []string                    `bson:"participants"`
	Rounds          [][]MatchRecord             `bson:"rounds"`
	BracketBets     map[string]BracketBetRecord `bson:"bracket_bets,omitempty"`
	LiveBets        map[string][]LiveBetRecord  `bson:"live_bets,omitempty"`
	PrizePool       PrizePoolRecord             `bson:"prize_pool"`
	Results         ResultsRecord               `bson:"results"`
	UpdatedAt       time.Time                   `bson:"updated_at"`
}
