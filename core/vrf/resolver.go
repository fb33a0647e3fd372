/* resolver.go
 * Contains the verifiable randomness resolver: request registration,
 * oracle submission, the bounded polling monitor, and the fulfillment
 * paths that turn raw randomness into auditable results
 */

package vrf

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"settlement-core/core/audit"
	"settlement-core/core/shared"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Config carries the resolver's timing parameters. The minimum delay
// prevents pre-computation sniping; the maximum delay is the hard
// timeout after which a request fails.
type Config struct {
	MinResolutionDelay time.Duration
	MaxResolutionDelay time.Duration
	PollInterval       time.Duration
	PollRate           rate.Limit
	PollBurst          int
}

func (c *Config) applyDefaults() {
	if c.MinResolutionDelay == 0 {
		c.MinResolutionDelay = 2 * time.Second
	}
	if c.MaxResolutionDelay == 0 {
		c.MaxResolutionDelay = 60 * time.Second
	}
	if c.PollInterval == 0 {
		c.PollInterval = 250 * time.Millisecond
	}
	if c.PollRate == 0 {
		c.PollRate = rate.Limit(20)
	}
	if c.PollBurst == 0 {
		c.PollBurst = 5
	}
}

// Resolver owns all randomness request state explicitly so multiple
// resolver instances can run and be tested in isolation. Each pending
// request is monitored by its own goroutine; oracle polls across all
// requests share one rate limiter.
type Resolver struct {
	oracle   Oracle
	audit    *audit.Logger
	cfg      Config
	limiter  *rate.Limiter
	observer func(Event)

	mu       sync.Mutex
	requests map[string]*Request
	outcomes map[string]*MatchOutcome
	cancels  map[string]context.CancelFunc
}

// NewResolver creates a resolver using the given oracle boundary. The
// observer receives every lifecycle event for every request; pass nil to
// ignore events.
func NewResolver(oracle Oracle, auditLog *audit.Logger, cfg Config, observer func(Event)) *Resolver {
	cfg.applyDefaults()
	if observer == nil {
		observer = func(Event) {}
	}
	return &Resolver{
		oracle:   oracle,
		audit:    auditLog,
		cfg:      cfg,
		limiter:  rate.NewLimiter(cfg.PollRate, cfg.PollBurst),
		observer: observer,
		requests: make(map[string]*Request),
		outcomes: make(map[string]*MatchOutcome),
		cancels:  make(map[string]context.CancelFunc),
	}
}

// RequestOutcome registers an outcome resolution for a match between two
// sides, submits the randomness request to the oracle and begins
// monitoring for fulfillment.
// Postconditions: Returns the request id, or an error if validation or
// oracle submission fails (no monitoring is started on failure)
func (r *Resolver) RequestOutcome(ctx context.Context, matchID string, requesterID string, players []shared.PlayerScore) (string, error) {
	if matchID == "" {
		return "", shared.NewValidationError("matchId", "cannot be empty")
	}
	if len(players) != 2 {
		return "", shared.NewValidationError("playerData", "outcome resolution requires exactly 2 sides, got %d", len(players))
	}

	req := &Request{
		ID:          uuid.NewString(),
		MatchID:     matchID,
		RequesterID: requesterID,
		Type:        shared.RequestOutcome,
		Players:     players,
	}
	return r.submit(ctx, req)
}

// RequestShuffle registers a deterministic shuffle of the given items
func (r *Resolver) RequestShuffle(ctx context.Context, matchID string, requesterID string, items []string) (string, error) {
	if matchID == "" {
		return "", shared.NewValidationError("matchId", "cannot be empty")
	}
	if len(items) == 0 {
		return "", shared.NewValidationError("items", "cannot be empty")
	}

	req := &Request{
		ID:          uuid.NewString(),
		MatchID:     matchID,
		RequesterID: requesterID,
		Type:        shared.RequestShuffle,
		Items:       append([]string(nil), items...),
	}
	return r.submit(ctx, req)
}

// RequestRandomEvent registers a probabilistic event roll for a match.
// Probability is a percentage in [0, 100].
func (r *Resolver) RequestRandomEvent(ctx context.Context, matchID string, eventType string, probability float64) (string, error) {
	if matchID == "" {
		return "", shared.NewValidationError("matchId", "cannot be empty")
	}
	if probability < 0 || probability > 100 {
		return "", shared.NewValidationError("probability", "must be within [0, 100], got %v", probability)
	}

	req := &Request{
		ID:          uuid.NewString(),
		MatchID:     matchID,
		Type:        shared.RequestRandomEvent,
		EventType:   eventType,
		Probability: probability,
	}
	return r.submit(ctx, req)
}

// submit derives the randomness account handle, submits the request
// transaction and starts the monitor. Oracle submission failure fails
// fast: the request is marked failed and no monitoring starts.
func (r *Resolver) submit(ctx context.Context, req *Request) (string, error) {
	req.Status = StatusPending
	req.CreatedAt = time.Now()
	req.AccountRef = fmt.Sprintf("vrf:%s:%s", req.MatchID, req.ID)

	txRef, err := r.oracle.SubmitRequest(ctx, req.AccountRef)
	if err != nil {
		req.Status = StatusFailed
		r.mu.Lock()
		r.requests[req.ID] = req
		r.mu.Unlock()

		svcErr := &shared.ExternalServiceError{Service: "oracle", Op: "submitRandomnessRequest", Err: err}
		r.logSecurity("vrf_failed", req, map[string]string{"error": err.Error()})
		r.observer(Event{Kind: EventFailed, RequestID: req.ID, MatchID: req.MatchID, Err: svcErr})
		return "", svcErr
	}
	req.TxRef = txRef

	monitorCtx, cancel := context.WithCancel(context.Background())
	r.mu.Lock()
	r.requests[req.ID] = req
	r.cancels[req.ID] = cancel
	r.mu.Unlock()

	r.logSecurity("vrf_requested", req, map[string]string{"tx_ref": txRef})
	r.observer(Event{Kind: EventRequested, RequestID: req.ID, MatchID: req.MatchID})

	go r.monitor(monitorCtx, req)
	return req.ID, nil
}

// monitor polls for fulfillment. It yields between polls, enforces the
// minimum resolution delay before any fulfillment attempt, and fails the
// request at the hard timeout. Poll errors are transient and retried;
// fulfillment errors fail only this request.
func (r *Resolver) monitor(ctx context.Context, req *Request) {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		elapsed := time.Since(req.CreatedAt)
		if elapsed < r.cfg.MinResolutionDelay {
			continue
		}
		if elapsed > r.cfg.MaxResolutionDelay {
			r.failTimeout(req)
			return
		}

		if err := r.limiter.Wait(ctx); err != nil {
			return
		}
		raw, err := r.oracle.PollFulfillment(ctx, req.AccountRef)
		if err != nil {
			log.Printf("vrf: poll failed for request %s: %v", req.ID, err)
			continue
		}
		if raw == nil {
			continue
		}

		if err := r.fulfill(req, raw); err != nil {
			r.failRequest(req, err)
		}
		return
	}
}

// fulfill computes the type-specific result and transitions the request
// to fulfilled. A request cancelled mid-poll is left untouched.
func (r *Resolver) fulfill(req *Request, raw []byte) error {
	var result any

	switch req.Type {
	case shared.RequestOutcome:
		winner, loser, confidence, err := deriveOutcome(req.Players, normalizeRandom(raw))
		if err != nil {
			return err
		}
		seed := fmt.Sprintf("%016x", seedFromRaw(raw))
		nonce := nonceFromRaw(raw)
		outcome := &MatchOutcome{
			MatchID:          req.MatchID,
			Winner:           winner.PlayerID,
			Loser:            loser.PlayerID,
			Method:           shared.MethodDecision,
			Confidence:       confidence,
			RandomSeed:       seed,
			Nonce:            nonce,
			VerificationHash: computeVerificationHash(req.MatchID, seed, winner.PlayerID, nonce),
		}
		result = outcome

	case shared.RequestShuffle:
		seed := seedFromRaw(raw)
		result = &ShuffleResult{
			MatchID: req.MatchID,
			Seed:    seed,
			Items:   DeterministicShuffle(req.Items, seed),
		}

	case shared.RequestRandomEvent:
		triggered, magnitude := deriveRandomEvent(raw, req.Probability)
		result = &RandomEventResult{
			MatchID:   req.MatchID,
			EventType: req.EventType,
			Triggered: triggered,
			Magnitude: magnitude,
		}

	default:
		return fmt.Errorf("unknown request type %q", req.Type)
	}

	r.mu.Lock()
	if req.Status != StatusPending {
		r.mu.Unlock()
		return nil
	}
	req.Status = StatusFulfilled
	req.Result = result
	req.ResolvedAt = time.Now()
	if outcome, ok := result.(*MatchOutcome); ok {
		r.outcomes[req.MatchID] = outcome
	}
	r.mu.Unlock()

	r.logSecurity("vrf_fulfilled", req, nil)
	r.observer(Event{Kind: EventFulfilled, RequestID: req.ID, MatchID: req.MatchID})
	return nil
}

// failTimeout marks a request that never received fulfillment within the
// maximum resolution delay
func (r *Resolver) failTimeout(req *Request) {
	r.mu.Lock()
	if req.Status != StatusPending {
		r.mu.Unlock()
		return
	}
	req.Status = StatusFailed
	req.ResolvedAt = time.Now()
	r.mu.Unlock()

	err := &shared.TimeoutError{RequestID: req.ID}
	r.logSecurity("vrf_timeout", req, nil)
	r.observer(Event{Kind: EventTimeout, RequestID: req.ID, MatchID: req.MatchID, Err: err})
}

// failRequest marks a request whose fulfillment computation failed.
// Other in-flight requests are unaffected.
func (r *Resolver) failRequest(req *Request, cause error) {
	r.mu.Lock()
	if req.Status != StatusPending {
		r.mu.Unlock()
		return
	}
	req.Status = StatusFailed
	req.ResolvedAt = time.Now()
	r.mu.Unlock()

	log.Printf("vrf: fulfillment failed for request %s: %v", req.ID, cause)
	r.logSecurity("vrf_failed", req, map[string]string{"error": cause.Error()})
	r.observer(Event{Kind: EventFailed, RequestID: req.ID, MatchID: req.MatchID, Err: cause})
}

// CancelRequest cancels a pending request. Cancelling a request that has
// already resolved is an error, not a race to paper over.
func (r *Resolver) CancelRequest(id string) error {
	r.mu.Lock()
	req, ok := r.requests[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("unknown randomness request %s", id)
	}
	if req.Status != StatusPending {
		status := req.Status
		r.mu.Unlock()
		return fmt.Errorf("cannot cancel request %s in state %s", id, status)
	}
	req.Status = StatusFailed
	req.ResolvedAt = time.Now()
	cancel := r.cancels[id]
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.logSecurity("vrf_cancelled", req, nil)
	r.observer(Event{Kind: EventCancelled, RequestID: req.ID, MatchID: req.MatchID})
	return nil
}

// ResolveDirect records a match outcome reached without randomness: a
// forfeit, or a timeout ruling when no fulfillment will ever arrive.
// The outcome carries full procedural confidence and a verification
// hash recomputable from the bound fields, and is created at most once
// per match.
func (r *Resolver) ResolveDirect(matchID string, winner string, loser string, method shared.ResolutionMethod) (MatchOutcome, error) {
	if matchID == "" {
		return MatchOutcome{}, shared.NewValidationError("matchId", "cannot be empty")
	}
	if winner == "" || loser == "" {
		return MatchOutcome{}, shared.NewValidationError("winner", "winner and loser must both be named")
	}
	if method != shared.MethodForfeit && method != shared.MethodTimeout {
		return MatchOutcome{}, shared.NewValidationError("method", "%s outcomes require a randomness request", method)
	}

	outcome := &MatchOutcome{
		MatchID:          matchID,
		Winner:           winner,
		Loser:            loser,
		Method:           method,
		Confidence:       maxConfidence,
		VerificationHash: computeVerificationHash(matchID, "", winner, 0),
	}

	r.mu.Lock()
	if _, exists := r.outcomes[matchID]; exists {
		r.mu.Unlock()
		return MatchOutcome{}, fmt.Errorf("match %s already has a resolved outcome", matchID)
	}
	r.outcomes[matchID] = outcome
	r.mu.Unlock()

	if r.audit != nil {
		_, err := r.audit.LogSecurity(audit.SecurityPayload{
			Kind:    "outcome_" + string(method),
			MatchID: matchID,
			Detail:  map[string]string{"winner": winner, "loser": loser},
		})
		if err != nil {
			log.Printf("vrf: audit log failed for match %s: %v", matchID, err)
		}
	}
	return *outcome, nil
}

// Request returns a copy of the tracked request state
func (r *Resolver) Request(id string) (Request, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[id]
	if !ok {
		return Request{}, false
	}
	return *req, true
}

// Outcome returns the resolved outcome for a match, if one exists
func (r *Resolver) Outcome(matchID string) (MatchOutcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	outcome, ok := r.outcomes[matchID]
	if !ok {
		return MatchOutcome{}, false
	}
	return *outcome, true
}

// VerifyOutcome recomputes the verification hash from the stored outcome
// fields and compares it to the presented hash
func (r *Resolver) VerifyOutcome(matchID string, hash string) bool {
	outcome, ok := r.Outcome(matchID)
	if !ok {
		return false
	}
	expected := computeVerificationHash(outcome.MatchID, outcome.RandomSeed, outcome.Winner, outcome.Nonce)
	return expected == hash
}

// logSecurity writes a request lifecycle transition to the security
// audit chain. Audit failures are logged but never crash the monitor.
func (r *Resolver) logSecurity(kind string, req *Request, detail map[string]string) {
	if r.audit == nil {
		return
	}
	_, err := r.audit.LogSecurity(audit.SecurityPayload{
		Kind:      kind,
		UserID:    req.RequesterID,
		RequestID: req.ID,
		MatchID:   req.MatchID,
		Detail:    detail,
	})
	if err != nil {
		log.Printf("vrf: audit log failed for request %s: %v", req.ID, err)
	}
}
