/* core.go
 * Contains the settlement core facade. It wires the audit chain,
 * randomness resolver and bracket engine onto one store and one signing
 * key, and exposes the operations callers use directly.
 */

package core

import (
	"context"
	"time"

	"settlement-core/core/audit"
	"settlement-core/core/bracket"
	"settlement-core/core/shared"
	"settlement-core/core/signer"
	"settlement-core/core/store"
	"settlement-core/core/vrf"
)

// Core is the assembled settlement system. The subsystems share one
// store and one audit chain, so every money movement and randomness
// decision lands in the same tamper-evident log.
type Core struct {
	Store    store.Interface
	Signer   *signer.Signer
	Audit    *audit.Logger
	Resolver *vrf.Resolver
	Engine   *bracket.Engine
}

// New connects to mongo and assembles a settlement core.
// Preconditions: cfg carries a mongo URI and signing secret; oracle and
// pools are the external randomness and betting pool boundaries
// Postconditions: Returns a ready core, or an error if the database
// connection or signer setup fails
func New(cfg Config, oracle vrf.Oracle, pools bracket.PoolService, observer func(vrf.Event)) (*Core, error) {
	st, err := store.NewStore(cfg.DatabaseName, cfg.MongoURI)
	if err != nil {
		return nil, err
	}
	return NewWithStore(st, cfg, oracle, pools, observer)
}

// NewWithStore assembles a settlement core on an existing store. Tests
// pass the in-memory store here.
func NewWithStore(st store.Interface, cfg Config, oracle vrf.Oracle, pools bracket.PoolService, observer func(vrf.Event)) (*Core, error) {
	sg, err := signer.NewSigner(cfg.SigningSecret)
	if err != nil {
		return nil, err
	}

	auditLog := audit.NewLogger(sg, st)
	for category, ttl := range cfg.Retention {
		auditLog.SetRetention(category, ttl)
	}

	resolver := vrf.NewResolver(oracle, auditLog, cfg.Resolver, observer)
	engine := bracket.NewEngine(st, auditLog, resolver, pools, cfg.Bracket)

	return &Core{
		Store:    st,
		Signer:   sg,
		Audit:    auditLog,
		Resolver: resolver,
		Engine:   engine,
	}, nil
}

// Close releases the database connection
func (c *Core) Close(ctx context.Context) error {
	return c.Store.Disconnect(ctx)
}

// PlaceBracketBetRaw parses a raw prediction string of the form
// `matchID="Name" ...` and places it as a bracket bet
func (c *Core) PlaceBracketBetRaw(ctx context.Context, tournamentID string, user shared.User, raw string, amount float64) error {
	predictions, err := bracket.ParsePredictions(raw)
	if err != nil {
		return err
	}
	return c.Engine.PlaceBracketBet(ctx, tournamentID, user, predictions, amount)
}

// VerifyIntegrity walks every audit chain and reports per-category
// results. A compromised chain does not stop the remaining checks.
func (c *Core) VerifyIntegrity() ([]audit.ChainReport, error) {
	return c.Audit.VerifyAll()
}

// FinancialReport aggregates the financial audit categories over a time
// window, including per-chain integrity and statistical anomalies
func (c *Core) FinancialReport(from, to time.Time) (audit.FinancialReport, error) {
	return c.Audit.GenerateFinancialReport(from, to)
}

// PruneExpiredAuditEntries applies the configured retention windows,
// removing entries that aged out. Chains stay verifiable afterwards
// because sequence numbers survive pruning.
func (c *Core) PruneExpiredAuditEntries() (map[string]int64, error) {
	return c.Audit.PruneExpired(time.Now())
}
