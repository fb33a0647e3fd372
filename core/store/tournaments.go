/* tournaments.go
 * Contains the methods for interacting with the tournaments collection.
 * A tournament is stored as a single versioned document keyed by id.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrTournamentNotFound is returned when no document exists for the
// requested tournament id
var ErrTournamentNotFound = errors.New("tournament not found")

// UpsertTournament replaces the stored document for a tournament,
// bumping its version and update timestamp
func (s *Store) UpsertTournament(rec TournamentRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("tournament id cannot be empty")
	}
	rec.Version++
	rec.UpdatedAt = time.Now()

	opts := options.Replace().SetUpsert(true)
	_, err := s.Collections.Tournaments.ReplaceOne(
		context.TODO(),
		bson.D{{Key: "_id", Value: rec.ID}},
		rec,
		opts,
	)
	if err != nil {
		return fmt.Errorf("error upserting tournament %s: %w", rec.ID, err)
	}
	return nil
}

// GetTournament fetches the stored document for a tournament
func (s *Store) GetTournament(id string) (TournamentRecord, error) {
	var rec TournamentRecord
	err := s.Collections.Tournaments.FindOne(context.TODO(), bson.D{{Key: "_id", Value: id}}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return TournamentRecord{}, ErrTournamentNotFound
		}
		return TournamentRecord{}, fmt.Errorf("error fetching tournament %s: %w", id, err)
	}
	return rec, nil
}
