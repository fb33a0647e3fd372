/* models.go
 * Contains the shared domain types used across the settlement core packages
 */

package shared

// User identifies a bettor interacting with the settlement core. The API
// layer is responsible for authenticating users; we only carry identity.
type User struct {
	UserID   string
	Username string
}

// PlayerScore is one side's standing going into an outcome resolution.
// Confidence is a 0-100 rating of how reliable the score reading is.
type PlayerScore struct {
	PlayerID   string
	Score      float64
	Confidence float64
}

// RequestType enumerates the kinds of randomness a caller can ask for
type RequestType string

const (
	RequestOutcome     RequestType = "outcome"
	RequestShuffle     RequestType = "shuffle"
	RequestRandomEvent RequestType = "random_event"
)

// ResolutionMethod records how a match outcome was reached
type ResolutionMethod string

const (
	MethodDecision ResolutionMethod = "decision"
	MethodTimeout  ResolutionMethod = "timeout"
	MethodForfeit  ResolutionMethod = "forfeit"
)
