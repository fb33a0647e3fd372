/* bets.go
 * Contains bracket bet placement and prediction validation. A submitted
 * prediction must cover every real match in the bracket and each
 * predicted winner must be a participant that can actually reach that
 * match; any omission or invalid name is rejected before any funds move.
 */

package bracket

import (
	"context"
	"strings"
	"time"

	"settlement-core/core/audit"
	"settlement-core/core/shared"

	"github.com/go-andiamo/splitter"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// normalizeName matches a user-supplied participant name against the
// valid set, case-insensitively and tolerating small misspellings.
// Exact matches win; a fuzzy match is accepted only when it is
// unambiguous.
// Postconditions: Returns the canonical participant name, or "" when no
// single valid name matches
func normalizeName(input string, valid []string) string {
	lookup := make(map[string]string, len(valid))
	lowered := make([]string, 0, len(valid))
	for _, name := range valid {
		l := strings.ToLower(name)
		lookup[l] = name
		lowered = append(lowered, l)
	}

	in := strings.ToLower(strings.TrimSpace(input))
	results := fuzzy.RankFind(in, lowered)
	for _, r := range results {
		if r.Target == in {
			return lookup[r.Target]
		}
	}
	if len(results) != 1 {
		return ""
	}
	return lookup[results[0].Target]
}

// eligibleParticipants returns the set of participants that can reach a
// match: the two sides for a seeded match, otherwise the union of the
// participants feeding it through the bracket tree
func eligibleParticipants(t *Tournament, m *Match) []string {
	if m.Seeded() {
		return []string{m.Participant1, m.Participant2}
	}
	if m.Round == 0 {
		if m.Participant1 != "" {
			return []string{m.Participant1}
		}
		return nil
	}

	var out []string
	for _, feederSlot := range []int{m.Slot * 2, m.Slot*2 + 1} {
		feeder := &t.Rounds[m.Round-1][feederSlot]
		out = append(out, eligibleParticipants(t, feeder)...)
	}
	return out
}

// realMatches lists every non-bye match in the bracket, the set a
// bracket prediction must cover
func realMatches(t *Tournament) []*Match {
	var out []*Match
	for r := range t.Rounds {
		for i := range t.Rounds[r] {
			if m := &t.Rounds[r][i]; !m.Bye {
				out = append(out, m)
			}
		}
	}
	return out
}

// validatePredictions normalizes and checks a full prediction map.
// Postconditions: Returns the normalized matchID -> winner map, or a
// ValidationError describing the first problem found
func validatePredictions(t *Tournament, predictions map[string]string) (map[string]string, error) {
	required := realMatches(t)
	normalized := make(map[string]string, len(required))

	for _, m := range required {
		pick, ok := predictions[m.ID]
		if !ok {
			return nil, shared.NewValidationError("predictions", "missing prediction for match %s", m.ID)
		}
		eligible := eligibleParticipants(t, m)
		name := normalizeName(pick, eligible)
		if name == "" {
			return nil, shared.NewValidationError("predictions", "%q is not a valid pick for match %s", pick, m.ID)
		}
		normalized[m.ID] = name
	}

	for matchID := range predictions {
		if _, ok := normalized[matchID]; !ok {
			return nil, shared.NewValidationError("predictions", "unknown match %s in prediction", matchID)
		}
	}
	return normalized, nil
}

// PlaceBracketBet accepts a full-bracket prediction while the tournament
// is open and strictly before the bracket lock time. Re-submitting
// before lock replaces the bettor's previous prediction.
// Postconditions: The bet is recorded and logged, or a ValidationError
// is returned with no state mutated
func (e *Engine) PlaceBracketBet(ctx context.Context, tournamentID string, user shared.User, predictions map[string]string, amount float64) error {
	if amount <= 0 {
		return shared.NewValidationError("amount", "bet amount must be positive")
	}

	mu := e.tournamentMu(tournamentID)
	mu.Lock()
	defer mu.Unlock()

	t, err := e.load(tournamentID)
	if err != nil {
		return err
	}
	if t.Status != TournamentOpen {
		return shared.NewValidationError("status", "tournament %s is %s; bracket bets are closed", tournamentID, t.Status)
	}
	if !time.Now().Before(t.BracketLockTime) {
		return shared.NewValidationError("lockTime", "bracket is locked for tournament %s", tournamentID)
	}

	normalized, err := validatePredictions(t, predictions)
	if err != nil {
		return err
	}

	if previous, ok := t.BracketBets[user.UserID]; ok {
		t.PrizePool.Bracket -= previous.Amount
	}
	t.BracketBets[user.UserID] = &BracketBet{
		UserID:          user.UserID,
		Username:        user.Username,
		Predictions:     normalized,
		Amount:          amount,
		BonusMultiplier: 1.0,
		PlacedAt:        time.Now(),
	}
	t.PrizePool.Bracket += amount

	if err := e.save(t); err != nil {
		return err
	}

	_, err = e.audit.LogBet(audit.BetPayload{
		Kind:         "bracket",
		UserID:       user.UserID,
		TournamentID: tournamentID,
		Amount:       amount,
	})
	return err
}

// ParsePredictions parses a raw prediction argument string of the form
// `matchID="Name" matchID="Other Name"` into a prediction map. Quoted
// values keep participant names containing spaces intact.
func ParsePredictions(raw string) (map[string]string, error) {
	spaceSplitter, err := splitter.NewSplitter(' ', splitter.DoubleQuotes, splitter.LeftRightDoubleDoubleQuotes)
	if err != nil {
		return nil, err
	}
	tokens, err := spaceSplitter.Split(raw, splitter.IgnoreEmpties)
	if err != nil {
		return nil, shared.NewValidationError("predictions", "could not parse prediction string: %v", err)
	}

	out := make(map[string]string, len(tokens))
	for _, token := range tokens {
		matchID, pick, found := strings.Cut(token, "=")
		if !found || matchID == "" || pick == "" {
			return nil, shared.NewValidationError("predictions", "malformed prediction %q, expected matchID=\"name\"", token)
		}
		pick = strings.Trim(pick, `"`)
		pick = strings.ReplaceAll(pick, "“", "")
		pick = strings.ReplaceAll(pick, "”", "")
		out[matchID] = pick
	}
	if len(out) == 0 {
		return nil, shared.NewValidationError("predictions", "no predictions supplied")
	}
	return out, nil
}
