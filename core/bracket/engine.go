/* engine.go
 * Contains the bracket settlement engine: tournament construction with
 * bye padding, per-match pool creation, and match state transitions.
 * Bet placement lives in bets.go and livebets.go; result settlement in
 * settlement.go.
 */

package bracket

import (
	"context"
	"fmt"
	"math/bits"
	"sync"
	"time"

	"settlement-core/core/audit"
	"settlement-core/core/shared"
	"settlement-core/core/store"
	"settlement-core/core/vrf"
)

// Config carries the engine's settlement parameters
type Config struct {
	// LiveBetCap is the maximum stake for a single live bet
	LiveBetCap float64
	// BonusRate grows a bracket bet's bonus multiplier per correct
	// advancement
	BonusRate float64
	// BracketMultiplier is the base payout multiplier for bracket bets
	BracketMultiplier float64
	// PoolCloseGrace is how long a match pool stays open after creation
	PoolCloseGrace time.Duration
}

func (c *Config) applyDefaults() {
	if c.LiveBetCap == 0 {
		c.LiveBetCap = 1000
	}
	if c.BonusRate == 0 {
		c.BonusRate = 0.25
	}
	if c.BracketMultiplier == 0 {
		c.BracketMultiplier = 2.0
	}
	if c.PoolCloseGrace == 0 {
		c.PoolCloseGrace = 24 * time.Hour
	}
}

// Engine settles tournament brackets. Updates are serialized per
// tournament: match result handling never interleaves with a second
// result for the same tournament, while different tournaments proceed
// independently.
type Engine struct {
	store    store.Interface
	audit    *audit.Logger
	resolver *vrf.Resolver
	pools    PoolService
	cfg      Config

	mu            sync.Mutex
	tournamentMus map[string]*sync.Mutex
}

// NewEngine creates a bracket settlement engine
func NewEngine(st store.Interface, auditLog *audit.Logger, resolver *vrf.Resolver, pools PoolService, cfg Config) *Engine {
	cfg.applyDefaults()
	return &Engine{
		store:         st,
		audit:         auditLog,
		resolver:      resolver,
		pools:         pools,
		cfg:           cfg,
		tournamentMus: make(map[string]*sync.Mutex),
	}
}

// tournamentMu returns the update mutex for a tournament, creating it on
// first use
func (e *Engine) tournamentMu(id string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	mu, ok := e.tournamentMus[id]
	if !ok {
		mu = &sync.Mutex{}
		e.tournamentMus[id] = mu
	}
	return mu
}

// load fetches and deserializes a tournament
func (e *Engine) load(id string) (*Tournament, error) {
	rec, err := e.store.GetTournament(id)
	if err != nil {
		return nil, err
	}
	return fromRecord(rec), nil
}

// save serializes and persists a tournament
func (e *Engine) save(t *Tournament) error {
	return e.store.UpsertTournament(toRecord(t))
}

// nextPowerOfTwo returns the smallest power of two >= n
func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// CreateTournament builds the bracket for the given participants, pads
// the field to the next power of two with byes, creates one betting pool
// per real match, and persists the open tournament.
// Postconditions: Returns the created tournament, or an error if the
// scheme is unsupported or pool creation fails
func (e *Engine) CreateTournament(ctx context.Context, id string, name string, participants []string, scheme string, lockTime time.Time) (*Tournament, error) {
	switch scheme {
	case SchemeSingleElimination:
	case SchemeDoubleElimination, SchemeRoundRobin:
		return nil, shared.NewValidationError("scheme", "%s brackets are not supported yet", scheme)
	default:
		return nil, shared.NewValidationError("scheme", "unknown bracket scheme %q", scheme)
	}
	if len(participants) < 2 {
		return nil, shared.NewValidationError("participants", "need at least 2 participants, got %d", len(participants))
	}
	seen := make(map[string]bool, len(participants))
	for _, p := range participants {
		if p == "" {
			return nil, shared.NewValidationError("participants", "participant names cannot be empty")
		}
		if seen[p] {
			return nil, shared.NewValidationError("participants", "duplicate participant %q", p)
		}
		seen[p] = true
	}

	mu := e.tournamentMu(id)
	mu.Lock()
	defer mu.Unlock()

	if _, err := e.store.GetTournament(id); err == nil {
		return nil, shared.NewValidationError("id", "tournament %s already exists", id)
	}

	t := &Tournament{
		ID:              id,
		Name:            name,
		Scheme:          scheme,
		Status:          TournamentOpen,
		BracketLockTime: lockTime,
		Participants:    append([]string(nil), participants...),
		BracketBets:     make(map[string]*BracketBet),
		LiveBets:        make(map[string][]*LiveBet),
	}
	e.buildRounds(t)

	// Resolve byes first so advancement can seed second-round matches
	// before their pools are considered
	for i := range t.Rounds[0] {
		m := &t.Rounds[0][i]
		if !m.Bye {
			continue
		}
		m.Status = MatchCompleted
		m.Winner = m.Participant1
		e.advanceWinner(t, m)
	}

	if err := e.ensurePools(ctx, t); err != nil {
		return nil, err
	}

	if err := e.save(t); err != nil {
		return nil, fmt.Errorf("error persisting tournament %s: %w", id, err)
	}
	return t, nil
}

// buildRounds constructs ceil(log2(N)) rounds of two-way matches. The
// field is mirrored (seed i against seed size-1-i) so no first-round
// match ever pairs two byes.
func (e *Engine) buildRounds(t *Tournament) {
	size := nextPowerOfTwo(len(t.Participants))
	padded := make([]string, size)
	copy(padded, t.Participants)

	roundCount := bits.Len(uint(size)) - 1
	t.Rounds = make([][]Match, roundCount)

	firstRound := make([]Match, size/2)
	for i := 0; i < size/2; i++ {
		p1, p2 := padded[i], padded[size-1-i]
		m := Match{
			ID:           fmt.Sprintf("%s-r1-m%d", t.ID, i+1),
			Round:        0,
			Slot:         i,
			Participant1: p1,
			Participant2: p2,
			Status:       MatchPending,
		}
		if p2 == "" {
			m.Bye = true
		}
		firstRound[i] = m
	}
	t.Rounds[0] = firstRound

	for r := 1; r < roundCount; r++ {
		matches := make([]Match, size>>(r+1))
		for i := range matches {
			matches[i] = Match{
				ID:     fmt.Sprintf("%s-r%d-m%d", t.ID, r+1, i+1),
				Round:  r,
				Slot:   i,
				Status: MatchPending,
			}
		}
		t.Rounds[r] = matches
	}
}

// ensurePools creates a betting pool for every seeded real match that
// does not have one yet, with the two participant identifiers as the
// outcomes at initial even odds
func (e *Engine) ensurePools(ctx context.Context, t *Tournament) error {
	for r := range t.Rounds {
		for i := range t.Rounds[r] {
			m := &t.Rounds[r][i]
			if m.Bye || m.PoolID != "" || !m.Seeded() || m.Status == MatchCompleted {
				continue
			}
			poolID, err := e.pools.CreatePool(ctx, []string{m.Participant1, m.Participant2}, time.Now().Add(e.cfg.PoolCloseGrace))
			if err != nil {
				return &shared.ExternalServiceError{Service: "pools", Op: "createPool", Err: err}
			}
			m.PoolID = poolID
		}
	}
	return nil
}

// advanceWinner promotes a completed match's winner into the placeholder
// slot of the next round's match
func (e *Engine) advanceWinner(t *Tournament, m *Match) {
	if m.Round+1 >= len(t.Rounds) {
		return
	}
	next := &t.Rounds[m.Round+1][m.Slot/2]
	if m.Slot%2 == 0 {
		next.Participant1 = m.Winner
	} else {
		next.Participant2 = m.Winner
	}
}

// LockBrackets transitions a tournament out of the open state so no
// further bracket bets are accepted
func (e *Engine) LockBrackets(ctx context.Context, tournamentID string) error {
	mu := e.tournamentMu(tournamentID)
	mu.Lock()
	defer mu.Unlock()

	t, err := e.load(tournamentID)
	if err != nil {
		return err
	}
	if t.Status != TournamentOpen {
		return shared.NewValidationError("status", "tournament %s is %s, not open", tournamentID, t.Status)
	}
	t.Status = TournamentLocked
	return e.save(t)
}

// StartMatch marks a match live so live bets can be placed on it
func (e *Engine) StartMatch(ctx context.Context, tournamentID string, matchID string) error {
	mu := e.tournamentMu(tournamentID)
	mu.Lock()
	defer mu.Unlock()

	t, err := e.load(tournamentID)
	if err != nil {
		return err
	}
	if t.Status == TournamentCompleted {
		return shared.NewValidationError("status", "tournament %s is completed", tournamentID)
	}

	m := t.Match(matchID)
	if m == nil {
		return shared.NewValidationError("matchId", "unknown match %s", matchID)
	}
	if m.Status != MatchPending {
		return shared.NewValidationError("matchId", "match %s is %s, not pending", matchID, m.Status)
	}
	if !m.Seeded() {
		return shared.NewValidationError("matchId", "match %s is not fully seeded", matchID)
	}

	m.Status = MatchLive
	if t.Status != TournamentActive {
		t.Status = TournamentActive
	}
	return e.save(t)
}

// UpdateLiveScore records the in-progress score of a live match. Live
// odds derive from this advantage reading.
func (e *Engine) UpdateLiveScore(ctx context.Context, tournamentID string, matchID string, score1, score2 int) error {
	mu := e.tournamentMu(tournamentID)
	mu.Lock()
	defer mu.Unlock()

	t, err := e.load(tournamentID)
	if err != nil {
		return err
	}
	m := t.Match(matchID)
	if m == nil {
		return shared.NewValidationError("matchId", "unknown match %s", matchID)
	}
	if m.Status != MatchLive {
		return shared.NewValidationError("matchId", "match %s is %s, not live", matchID, m.Status)
	}
	if score1 < 0 || score2 < 0 {
		return shared.NewValidationError("score", "scores cannot be negative")
	}

	m.Score1, m.Score2 = score1, score2
	return e.save(t)
}

// Tournament returns the current settlement state for a tournament
func (e *Engine) Tournament(tournamentID string) (*Tournament, error) {
	mu := e.tournamentMu(tournamentID)
	mu.Lock()
	defer mu.Unlock()
	return e.load(tournamentID)
}
