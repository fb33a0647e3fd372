/* livebets.go
 * Contains live bet placement and the dynamic odds heuristic. Odds are
 * recomputed per bet rather than continuously streamed, and every bet
 * snapshots the odds and score so disputes can be replayed.
 */

package bracket

import (
	"context"
	"time"

	"settlement-core/core/audit"
	"settlement-core/core/shared"

	"github.com/google/uuid"
)

// Live odds bounds and sensitivity
const (
	liveOddsBase = 2.00
	liveOddsMin  = 1.10
	liveOddsMax  = 5.00
	liveOddsStep = 0.15
)

// liveOdds derives the payout multiplier for backing one side of a live
// match: each point of score advantage shifts that side's multiplier
// down and the opponent's up
func liveOdds(m *Match, side string) float64 {
	advantage := float64(m.Score1 - m.Score2)
	if side == m.Participant2 {
		advantage = -advantage
	}

	odds := liveOddsBase - liveOddsStep*advantage
	if odds < liveOddsMin {
		odds = liveOddsMin
	}
	if odds > liveOddsMax {
		odds = liveOddsMax
	}
	return odds
}

// PlaceLiveBet accepts a capped wager on a match in progress, pricing it
// off the current advantage reading.
// Postconditions: Returns the live bet id with the bet recorded and
// logged, or a ValidationError with no state mutated
func (e *Engine) PlaceLiveBet(ctx context.Context, tournamentID string, matchID string, user shared.User, predictedWinner string, amount float64) (string, error) {
	if amount <= 0 {
		return "", shared.NewValidationError("amount", "bet amount must be positive")
	}
	if amount > e.cfg.LiveBetCap {
		return "", shared.NewValidationError("amount", "bet amount %v exceeds live bet cap %v", amount, e.cfg.LiveBetCap)
	}

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
	if m.Status != MatchLive {
		return "", shared.NewValidationError("matchId", "match %s is %s; live bets require a live match", matchID, m.Status)
	}

	winner := normalizeName(predictedWinner, []string{m.Participant1, m.Participant2})
	if winner == "" {
		return "", shared.NewValidationError("predictedWinner", "%q is not a participant of match %s", predictedWinner, matchID)
	}

	bet := &LiveBet{
		ID:              uuid.NewString(),
		UserID:          user.UserID,
		MatchID:         matchID,
		PredictedWinner: winner,
		Amount:          amount,
		Odds:            liveOdds(m, winner),
		Score1:          m.Score1,
		Score2:          m.Score2,
		PlacedAt:        time.Now(),
	}
	t.LiveBets[matchID] = append(t.LiveBets[matchID], bet)
	t.PrizePool.Match += amount

	if err := e.save(t); err != nil {
		return "", err
	}

	_, err = e.audit.LogBet(audit.BetPayload{
		Kind:         "live",
		UserID:       user.UserID,
		TournamentID: tournamentID,
		MatchID:      matchID,
		Selection:    winner,
		Amount:       amount,
		Odds:         bet.Odds,
	})
	return bet.ID, err
}
