/* models.go
 * Contains the audit entry payload structs, chain categories and report
 * types used by the audit trail
 */

package audit

import "time"

// Audit chain categories. Each category forms its own hash chain with an
// independent retention policy.
const (
	CategoryTransaction = "transaction"
	CategoryBet         = "bet"
	CategoryPayout      = "payout"
	CategoryEscrow      = "escrow"
	CategorySecurity    = "security"
)

// FinancialCategories are the categories aggregated by financial reports
var FinancialCategories = []string{CategoryTransaction, CategoryBet, CategoryPayout, CategoryEscrow}

// TransactionPayload describes a money movement on or off the platform
type TransactionPayload struct {
	Kind          string  `json:"kind"` // "deposit" or "withdrawal"
	UserID        string  `json:"user_id"`
	WalletAddress string  `json:"wallet_address,omitempty"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency,omitempty"`
	TxHash        string  `json:"tx_hash,omitempty"`
}

// BetPayload describes a wager being placed
type BetPayload struct {
	Kind         string  `json:"kind"` // "bracket", "live" or "match"
	UserID       string  `json:"user_id"`
	TournamentID string  `json:"tournament_id,omitempty"`
	MatchID      string  `json:"match_id,omitempty"`
	Selection    string  `json:"selection,omitempty"`
	Amount       float64 `json:"amount"`
	Odds         float64 `json:"odds,omitempty"`
}

// PayoutPayload describes winnings being distributed
type PayoutPayload struct {
	Kind         string  `json:"kind"` // "bracket", "live" or "pool"
	UserID       string  `json:"user_id"`
	TournamentID string  `json:"tournament_id,omitempty"`
	MatchID      string  `json:"match_id,omitempty"`
	Amount       float64 `json:"amount"`
	Reason       string  `json:"reason,omitempty"`
}

// EscrowPayload describes funds moving in or out of escrow
type EscrowPayload struct {
	Kind     string  `json:"kind"` // "hold" or "release"
	EscrowID string  `json:"escrow_id"`
	UserID   string  `json:"user_id"`
	Amount   float64 `json:"amount"`
}

// SecurityPayload describes a security-relevant event such as a
// randomness request lifecycle transition
type SecurityPayload struct {
	Kind      string            `json:"kind"`
	UserID    string            `json:"user_id,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	MatchID   string            `json:"match_id,omitempty"`
	Detail    map[string]string `json:"detail,omitempty"`
}

// ChainReport is the result of verifying one category chain. BrokenAt is
// the zero-based position of the first offending entry, or -1 when the
// chain passed.
type ChainReport struct {
	Category string
	Passed   bool
	Checked  int
	BrokenAt int
	// BrokenSeq is the store sequence number of the first offending
	// entry, 0 when the chain passed. Windowed reports use it to flag
	// entries in the broken region.
	BrokenSeq int64
	Reason    string
}

// Anomaly flags a report entry that deviated sharply from the running
// mean or sits in a broken chain region
type Anomaly struct {
	EntryID  string
	Category string
	Amount   float64
	Reason   string
}

// FinancialReport aggregates audit entries over a time window. The
// integrity status is always derived from a fresh chain verification,
// never assumed.
type FinancialReport struct {
	From            time.Time
	To              time.Time
	EntryCount      int
	TotalVolume     float64
	TotalsByType    map[string]float64
	UniqueActors    int
	Anomalies       []Anomaly
	IntegrityStatus string // "passed" or "compromised"
	ChainReports    []ChainReport
}
