/* settlement.go
 * Contains match result settlement: pool settlement, live bet payouts,
 * bracket bet scoring, winner advancement and tournament completion.
 * The order matters: later steps read state produced by earlier ones.
 */

package bracket

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"settlement-core/core/audit"
	"settlement-core/core/shared"
)

// UpdateMatchResult records the result of a match and runs the full
// settlement sequence: mark the match terminal, settle its betting pool,
// settle live bets, score bracket bets, advance the winner, and complete
// the tournament when the final round is exhausted. A failure before
// persistence leaves the tournament in its last consistent state.
func (e *Engine) UpdateMatchResult(ctx context.Context, tournamentID string, matchID string, winner string) error {
	mu := e.tournamentMu(tournamentID)
	mu.Lock()
	defer mu.Unlock()

	t, err := e.load(tournamentID)
	if err != nil {
		return err
	}
	if t.Status == TournamentCompleted {
		return shared.NewValidationError("status", "tournament %s is already completed", tournamentID)
	}

	m := t.Match(matchID)
	if m == nil {
		return shared.NewValidationError("matchId", "unknown match %s", matchID)
	}
	if m.Status == MatchCompleted {
		return shared.NewValidationError("matchId", "match %s is already decided", matchID)
	}
	if !m.Seeded() {
		return shared.NewValidationError("matchId", "match %s is not fully seeded", matchID)
	}

	w := normalizeName(winner, []string{m.Participant1, m.Participant2})
	if w == "" {
		return shared.NewValidationError("winner", "%q is not a participant of match %s", winner, matchID)
	}
	loser := m.Participant1
	if w == m.Participant1 {
		loser = m.Participant2
	}

	// Mark the match terminal before anything reads its state
	m.Status = MatchCompleted
	m.Winner = w
	t.Results.Completed = append(t.Results.Completed, CompletedMatch{
		MatchID:     matchID,
		Winner:      w,
		Loser:       loser,
		Round:       m.Round,
		CompletedAt: time.Now(),
	})
	t.Results.Eliminated = append(t.Results.Eliminated, loser)

	// Settle the match's dedicated pool against the declared winner
	if m.PoolID != "" {
		if err := e.pools.SettlePool(ctx, m.PoolID, w); err != nil {
			return &shared.ExternalServiceError{Service: "pools", Op: "settlePool", Err: err}
		}
	}

	// Settle live bets placed on this match
	livePayouts := settleLiveBets(t, matchID, w)

	// Score every outstanding bracket bet's prediction for this match
	e.scoreBracketBets(t, matchID, w)

	// Promote the winner and open pools for newly seeded matches
	e.advanceWinner(t, m)
	if err := e.ensurePools(ctx, t); err != nil {
		return err
	}

	// Completion check: all rounds exhausted ends the tournament
	var finalPayouts []audit.PayoutPayload
	if bracketExhausted(t) {
		finalPayouts = e.completeTournament(t)
	}

	if err := e.save(t); err != nil {
		return fmt.Errorf("error persisting settlement for match %s: %w", matchID, err)
	}

	for _, payout := range livePayouts {
		payout.TournamentID = tournamentID
		if _, err := e.audit.LogPayout(payout); err != nil {
			log.Printf("bracket: payout audit log failed for match %s: %v", matchID, err)
		}
	}
	for _, payout := range finalPayouts {
		payout.TournamentID = tournamentID
		if _, err := e.audit.LogPayout(payout); err != nil {
			log.Printf("bracket: payout audit log failed for tournament %s: %v", tournamentID, err)
		}
	}
	return nil
}

// settleLiveBets pays out unsettled live bets on the decided match at
// their snapshotted odds
func settleLiveBets(t *Tournament, matchID string, winner string) []audit.PayoutPayload {
	var payouts []audit.PayoutPayload
	for _, bet := range t.LiveBets[matchID] {
		if bet.Settled {
			continue
		}
		bet.Settled = true
		if bet.PredictedWinner == winner {
			bet.Payout = bet.Amount * bet.Odds
			payouts = append(payouts, audit.PayoutPayload{
				Kind:    "live",
				UserID:  bet.UserID,
				MatchID: matchID,
				Amount:  bet.Payout,
				Reason:  "live bet won",
			})
		}
	}
	return payouts
}

// scoreBracketBets updates every bracket bet's running score for the
// decided match and recomputes its potential payout
func (e *Engine) scoreBracketBets(t *Tournament, matchID string, winner string) {
	for _, bet := range t.BracketBets {
		pick, ok := bet.Predictions[matchID]
		if !ok {
			continue
		}
		if pick == winner {
			bet.Correct++
			bet.BonusMultiplier += e.cfg.BonusRate
		} else {
			bet.Incorrect++
		}
		bet.PotentialPayout = bet.Amount * e.cfg.BracketMultiplier * bet.BonusMultiplier * accuracyRate(bet)
	}
}

// accuracyRate is the fraction of a bet's scored predictions that were
// correct
func accuracyRate(bet *BracketBet) float64 {
	decided := bet.Correct + bet.Incorrect
	if decided == 0 {
		return 0
	}
	return float64(bet.Correct) / float64(decided)
}

// bracketExhausted reports whether every match in every round has been
// decided
func bracketExhausted(t *Tournament) bool {
	for r := range t.Rounds {
		for i := range t.Rounds[r] {
			if t.Rounds[r][i].Status != MatchCompleted {
				return false
			}
		}
	}
	return true
}

// completeTournament transitions the tournament to completed, identifies
// perfect brackets and computes final bracket bet payouts
func (e *Engine) completeTournament(t *Tournament) []audit.PayoutPayload {
	t.Status = TournamentCompleted

	var payouts []audit.PayoutPayload
	for _, bet := range t.BracketBets {
		if bet.Settled {
			continue
		}
		bet.Settled = true

		accuracy := accuracyRate(bet)
		final := math.Min(bet.Amount+bet.Amount*bet.BonusMultiplier*accuracy, bet.PotentialPayout)
		bet.FinalPayout = final

		if bet.Incorrect == 0 && bet.Correct > 0 {
			t.Results.PerfectBrackets = append(t.Results.PerfectBrackets, bet.UserID)
		}
		if bonus := final - bet.Amount; bonus > 0 {
			t.PrizePool.Bonus += bonus
		}
		if final > 0 {
			payouts = append(payouts, audit.PayoutPayload{
				Kind:   "bracket",
				UserID: bet.UserID,
				Amount: final,
				Reason: "bracket bet settled",
			})
		}
	}
	return payouts
}

// RequestTieBreak submits an inherently random outcome resolution for a
// deadlocked match, feeding both sides in at equal standing. The
// resulting outcome is applied with ApplyTieBreak once fulfilled.
func (e *Engine) RequestTieBreak(ctx context.Context, tournamentID string, matchID string) (string, error) {
	mu := e.tournamentMu(tournamentID)
	mu.Lock()
	defer mu.Unlock()

	t, err := e.load(tournamentID)
	if err != nil {
		return "", err
	}
	m := t.Match(matchID)
	if m == nil {
		return "", shared.NewValidationError("matchId", "unknown match %s", matchID)
	}
	if m.Status == MatchCompleted {
		return "", shared.NewValidationError("matchId", "match %s is already decided", matchID)
	}
	if !m.Seeded() {
		return "", shared.NewValidationError("matchId", "match %s is not fully seeded", matchID)
	}

	players := []shared.PlayerScore{
		{PlayerID: m.Participant1, Score: 1, Confidence: 50},
		{PlayerID: m.Participant2, Score: 1, Confidence: 50},
	}
	return e.resolver.RequestOutcome(ctx, matchID, "bracket:"+tournamentID, players)
}

// ApplyTieBreak settles a match from its resolved randomness outcome
func (e *Engine) ApplyTieBreak(ctx context.Context, tournamentID string, matchID string) error {
	outcome, ok := e.resolver.Outcome(matchID)
	if !ok {
		return fmt.Errorf("no resolved outcome for match %s", matchID)
	}
	return e.UpdateMatchResult(ctx, tournamentID, matchID, outcome.Winner)
}

// ForfeitMatch rules a match by forfeit. The named participant concedes,
// the other side is recorded as a forfeit outcome on the resolver, and
// the match then runs the normal settlement sequence.
// Preconditions: The match is fully seeded and not yet decided
func (e *Engine) ForfeitMatch(ctx context.Context, tournamentID string, matchID string, forfeiter string) error {
	t, err := e.load(tournamentID)
	if err != nil {
		return err
	}
	m := t.Match(matchID)
	if m == nil {
		return shared.NewValidationError("matchId", "unknown match %s", matchID)
	}
	if m.Status == MatchCompleted {
		return shared.NewValidationError("matchId", "match %s is already decided", matchID)
	}
	if !m.Seeded() {
		return shared.NewValidationError("matchId", "match %s is not fully seeded", matchID)
	}

	loser := normalizeName(forfeiter, []string{m.Participant1, m.Participant2})
	if loser == "" {
		return shared.NewValidationError("forfeiter", "%s is not playing in match %s", forfeiter, matchID)
	}
	winner := m.Participant1
	if loser == m.Participant1 {
		winner = m.Participant2
	}

	if _, err := e.resolver.ResolveDirect(matchID, winner, loser, shared.MethodForfeit); err != nil {
		return fmt.Errorf("recording forfeit for match %s: %w", matchID, err)
	}
	return e.UpdateMatchResult(ctx, tournamentID, matchID, winner)
}
