/* persist.go
 * Contains the conversions between the in-memory tournament types and
 * their persisted record forms. Loading always produces a fresh copy so
 * callers can mutate freely and persist once.
 */

package bracket

import (
	"settlement-core/core/store"
)

func toRecord(t *Tournament) store.TournamentRecord {
	rec := store.TournamentRecord{
		ID:              t.ID,
		Version:         t.Version,
		Name:            t.Name,
		Scheme:          t.Scheme,
		Status:          t.Status,
		BracketLockTime: t.BracketLockTime,
		Participants:    append([]string(nil), t.Participants...),
		Rounds:          make([][]store.MatchRecord, len(t.Rounds)),
		PrizePool: store.PrizePoolRecord{
			Bracket: t.PrizePool.Bracket,
			Match:   t.PrizePool.Match,
			Bonus:   t.PrizePool.Bonus,
		},
		Results: resultsToRecord(t.Results),
	}
	for r := range t.Rounds {
		rec.Rounds[r] = make([]store.MatchRecord, len(t.Rounds[r]))
		for i := range t.Rounds[r] {
			rec.Rounds[r][i] = matchToRecord(&t.Rounds[r][i])
		}
	}
	if len(t.BracketBets) > 0 {
		rec.BracketBets = make(map[string]store.BracketBetRecord, len(t.BracketBets))
		for userID, bet := range t.BracketBets {
			rec.BracketBets[userID] = bracketBetToRecord(bet)
		}
	}
	if len(t.LiveBets) > 0 {
		rec.LiveBets = make(map[string][]store.LiveBetRecord, len(t.LiveBets))
		for matchID, bets := range t.LiveBets {
			records := make([]store.LiveBetRecord, len(bets))
			for i, bet := range bets {
				records[i] = liveBetToRecord(bet)
			}
			rec.LiveBets[matchID] = records
		}
	}
	return rec
}

func fromRecord(rec store.TournamentRecord) *Tournament {
	t := &Tournament{
		ID:              rec.ID,
		Version:         rec.Version,
		Name:            rec.Name,
		Scheme:          rec.Scheme,
		Status:          rec.Status,
		BracketLockTime: rec.BracketLockTime,
		Participants:    append([]string(nil), rec.Participants...),
		Rounds:          make([][]Match, len(rec.Rounds)),
		BracketBets:     make(map[string]*BracketBet, len(rec.BracketBets)),
		LiveBets:        make(map[string][]*LiveBet, len(rec.LiveBets)),
		PrizePool: PrizePool{
			Bracket: rec.PrizePool.Bracket,
			Match:   rec.PrizePool.Match,
			Bonus:   rec.PrizePool.Bonus,
		},
		Results: resultsFromRecord(rec.Results),
	}
	for r := range rec.Rounds {
		t.Rounds[r] = make([]Match, len(rec.Rounds[r]))
		for i := range rec.Rounds[r] {
			t.Rounds[r][i] = matchFromRecord(rec.Rounds[r][i])
		}
	}
	for userID, bet := range rec.BracketBets {
		converted := bracketBetFromRecord(bet)
		t.BracketBets[userID] = &converted
	}
	for matchID, bets := range rec.LiveBets {
		converted := make([]*LiveBet, len(bets))
		for i, bet := range bets {
			lb := liveBetFromRecord(bet)
			converted[i] = &lb
		}
		t.LiveBets[matchID] = converted
	}
	return t
}

func matchToRecord(m *Match) store.MatchRecord {
	return store.MatchRecord{
		ID:           m.ID,
		Round:        m.Round,
		Slot:         m.Slot,
		Participant1: m.Participant1,
		Participant2: m.Participant2,
		Winner:       m.Winner,
		Status:       m.Status,
		PoolID:       m.PoolID,
		Bye:          m.Bye,
		Score1:       m.Score1,
		Score2:       m.Score2,
	}
}

func matchFromRecord(rec store.MatchRecord) Match {
	return Match{
		ID:           rec.ID,
		Round:        rec.Round,
		Slot:         rec.Slot,
		Participant1: rec.Participant1,
		Participant2: rec.Participant2,
		Winner:       rec.Winner,
		Status:       rec.Status,
		PoolID:       rec.PoolID,
		Bye:          rec.Bye,
		Score1:       rec.Score1,
		Score2:       rec.Score2,
	}
}

func bracketBetToRecord(bet *BracketBet) store.BracketBetRecord {
	predictions := make(map[string]string, len(bet.Predictions))
	for matchID, pick := range bet.Predictions {
		predictions[matchID] = pick
	}
	return store.BracketBetRecord{
		UserID:          bet.UserID,
		Username:        bet.Username,
		Predictions:     predictions,
		Amount:          bet.Amount,
		Correct:         bet.Correct,
		Incorrect:       bet.Incorrect,
		BonusMultiplier: bet.BonusMultiplier,
		PotentialPayout: bet.PotentialPayout,
		FinalPayout:     bet.FinalPayout,
		Settled:         bet.Settled,
		PlacedAt:        bet.PlacedAt,
	}
}

func bracketBetFromRecord(rec store.BracketBetRecord) BracketBet {
	predictions := make(map[string]string, len(rec.Predictions))
	for matchID, pick := range rec.Predictions {
		predictions[matchID] = pick
	}
	return BracketBet{
		UserID:          rec.UserID,
		Username:        rec.Username,
		Predictions:     predictions,
		Amount:          rec.Amount,
		Correct:         rec.Correct,
		Incorrect:       rec.Incorrect,
		BonusMultiplier: rec.BonusMultiplier,
		PotentialPayout: rec.PotentialPayout,
		FinalPayout:     rec.FinalPayout,
		Settled:         rec.Settled,
		PlacedAt:        rec.PlacedAt,
	}
}

func liveBetToRecord(bet *LiveBet) store.LiveBetRecord {
	return store.LiveBetRecord{
		ID:              bet.ID,
		UserID:          bet.UserID,
		MatchID:         bet.MatchID,
		PredictedWinner: bet.PredictedWinner,
		Amount:          bet.Amount,
		Odds:            bet.Odds,
		Score1:          bet.Score1,
		Score2:          bet.Score2,
		PlacedAt:        bet.PlacedAt,
		Settled:         bet.Settled,
		Payout:          bet.Payout,
	}
}

func liveBetFromRecord(rec store.LiveBetRecord) LiveBet {
	return LiveBet{
		ID:              rec.ID,
		UserID:          rec.UserID,
		MatchID:         rec.MatchID,
		PredictedWinner: rec.PredictedWinner,
		Amount:          rec.Amount,
		Odds:            rec.Odds,
		Score1:          rec.Score1,
		Score2:          rec.Score2,
		PlacedAt:        rec.PlacedAt,
		Settled:         rec.Settled,
		Payout:          rec.Payout,
	}
}

func resultsToRecord(res Results) store.ResultsRecord {
	rec := store.ResultsRecord{
		Eliminated:      append([]string(nil), res.Eliminated...),
		PerfectBrackets: append([]string(nil), res.PerfectBrackets...),
	}
	for _, cm := range res.Completed {
		rec.Completed = append(rec.Completed, store.CompletedMatchRecord{
			MatchID:     cm.MatchID,
			Winner:      cm.Winner,
			Loser:       cm.Loser,
			Round:       cm.Round,
			CompletedAt: cm.CompletedAt,
		})
	}
	return rec
}

func resultsFromRecord(rec store.ResultsRecord) Results {
	res := Results{
		Eliminated:      append([]string(nil), rec.Eliminated...),
		PerfectBrackets: append([]string(nil), rec.PerfectBrackets...),
	}
	for _, cm := range rec.Completed {
		res.Completed = append(res.Completed, CompletedMatch{
			MatchID:     cm.MatchID,
			Winner:      cm.Winner,
			Loser:       cm.Loser,
			Round:       cm.Round,
			CompletedAt: cm.CompletedAt,
		})
	}
	return res
}
