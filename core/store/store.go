/* store.go
 * Contains the Store struct and NewStore function. The methods for this
 * package are split across audit_entries.go and tournaments.go, each
 * containing the methods for interacting with that part of the database.
 */

package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	Client      *mongo.Client
	Database    *mongo.Database
	Collections struct {
		AuditEntries *mongo.Collection
		ChainHeads   *mongo.Collection
		Tournaments  *mongo.Collection
	}
}

// NewStore initialises the database connection and binds the collections
// used by the settlement core.
// Preconditions: Receives strings containing dbName and mongoURI
// Postconditions: Returns pointer to the Store object, or error if it occurs
func NewStore(dbName string, mongoURI string) (*Store, error) {
	if dbName == "" {
		return nil, fmt.Errorf("dbName cannot be empty")
	}

	client, err := mongo.Connect(context.TODO(), options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, err
	}
	db := client.Database(dbName)

	s := &Store{
		Client:   client,
		Database: db,
	}
	s.Collections.AuditEntries = db.Collection("audit_entries")
	s.Collections.ChainHeads = db.Collection("chain_heads")
	s.Collections.Tournaments = db.Collection("tournaments")

	return s, nil
}

// Disconnect closes the underlying client connection
func (s *Store) Disconnect(ctx context.Context) error {
	return s.Client.Disconnect(ctx)
}
