/* models.go
 * Contains the randomness request and match outcome types, the resolver
 * lifecycle events, and the oracle boundary interface
 */

package vrf

import (
	"context"
	"time"

	"settlement-core/core/shared"
)

// RequestStatus is the state of a randomness request. pending is the only
// non-terminal state.
type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusFulfilled RequestStatus = "fulfilled"
	StatusFailed    RequestStatus = "failed"
)

// Request tracks one randomness request through its lifecycle. Requests
// are never deleted; they are retained for the audit window.
type Request struct {
	ID          string
	MatchID     string
	RequesterID string
	Type        shared.RequestType
	Status      RequestStatus
	AccountRef  string
	TxRef       string
	CreatedAt   time.Time
	ResolvedAt  time.Time

	// Type-specific parameters
	Players     []shared.PlayerScore // outcome
	Items       []string             // shuffle
	EventType   string               // random_event
	Probability float64              // random_event, percent 0-100

	// Type-specific result, set on fulfillment
	Result any
}

// MatchOutcome is the resolved result of an outcome request. Created
// exactly once per match and immutable after creation; the verification
// hash must be independently recomputable from the bound fields.
type MatchOutcome struct {
	MatchID          string
	Winner           string
	Loser            string
	Method           shared.ResolutionMethod
	Confidence       float64 // 50-95
	RandomSeed       string  // hex of the raw random value
	Nonce            uint64
	VerificationHash string
}

// RandomEventResult is the resolved result of a random_event request
type RandomEventResult struct {
	MatchID   string
	EventType string
	Triggered bool
	Magnitude float64 // 0-1, meaningful only when triggered
}

// ShuffleResult is the resolved result of a shuffle request
type ShuffleResult struct {
	MatchID string
	Seed    uint64
	Items   []string
}

// EventKind names the lifecycle events emitted by the resolver
type EventKind string

const (
	EventRequested EventKind = "vrfRequested"
	EventFulfilled EventKind = "vrfFulfilled"
	EventFailed    EventKind = "vrfFailed"
	EventTimeout   EventKind = "vrfTimeout"
	EventCancelled EventKind = "vrfCancelled"
)

// Event is delivered to the registered observer at each request
// lifecycle transition
type Event struct {
	Kind      EventKind
	RequestID string
	MatchID   string
	Err       error
}

// Oracle is the on-chain randomness boundary the resolver consumes. The
// resolver treats account derivation as opaque; PollFulfillment returns
// nil bytes while the request is not yet fulfilled.
type Oracle interface {
	SubmitRequest(ctx context.Context, accountRef string) (string, error)
	PollFulfillment(ctx context.Context, accountRef string) ([]byte, error)
}
