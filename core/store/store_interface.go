/* store_interface.go
 * Contains the Store interface for dependency injection and testing
 */

package store

import (
	"context"
	"time"
)

// Interface defines the methods that Store implements.
// This allows for mocking in tests.
type Interface interface {
	// Audit chain
	AppendAuditEntry(rec AuditEntryRecord) (int64, error)
	AuditEntries(category string) ([]AuditEntryRecord, error)
	AuditEntriesBetween(category string, from, to time.Time) ([]AuditEntryRecord, error)
	ChainHead(category string) (string, error)
	SetChainHead(category string, hash string) error
	PruneAuditEntries(category string, before time.Time) (int64, error)
	Categories() ([]string, error)

	// Tournaments
	UpsertTournament(rec TournamentRecord) error
	GetTournament(id string) (TournamentRecord, error)

	Disconnect(ctx context.Context) error
}

// Ensure Store implements Interface
var _ Interface = (*Store)(nil)
