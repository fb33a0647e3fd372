/* audit_entries.go
 * Contains the methods for interacting with the audit_entries and
 * chain_heads collections
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

// GenesisHash is the distinguished previous-hash value for the first
// entry of a category chain
const GenesisHash = "genesis"

// AppendAuditEntry persists one audit entry, assigning it the next
// per-category sequence number. Callers must serialize appends per
// category; the sequence counter read is not atomic with the insert.
// Postconditions: Returns the assigned sequence number, or an error
func (s *Store) AppendAuditEntry(rec AuditEntryRecord) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var head chainHeadDoc
	err := s.Collections.ChainHeads.FindOneAndUpdate(
		context.TODO(),
		bson.D{{Key: "_id", Value: rec.Category}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "seq", Value: int64(1)}}}},
		opts,
	).Decode(&head)
	if err != nil {
		return 0, fmt.Errorf("error advancing %s chain sequence: %w", rec.Category, err)
	}

	rec.Seq = head.Seq
	if _, err := s.Collections.AuditEntries.InsertOne(context.TODO(), rec); err != nil {
		return 0, fmt.Errorf("error inserting audit entry: %w", err)
	}
	return head.Seq, nil
}

// AuditEntries returns every retained entry for a category in insertion
// order
func (s *Store) AuditEntries(category string) ([]AuditEntryRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})

	cursor, err := s.Collections.AuditEntries.Find(context.TODO(), bson.D{{Key: "category", Value: category}}, opts)
	if err != nil {
		return nil, fmt.Errorf("error fetching %s audit entries: %w", category, err)
	}

	var entries []AuditEntryRecord
	if err := cursor.All(context.TODO(), &entries); err != nil {
		return nil, fmt.Errorf("error decoding %s audit entries: %w", category, err)
	}
	return entries, nil
}

// AuditEntriesBetween returns the retained entries for a category whose
// timestamps fall within [from, to), in insertion order
func (s *Store) AuditEntriesBetween(category string, from, to time.Time) ([]AuditEntryRecord, error) {
	filter := bson.D{
		{Key: "category", Value: category},
		{Key: "timestamp", Value: bson.D{
			{Key: "$gte", Value: from},
			{Key: "$lt", Value: to},
		}},
	}
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})

	cursor, err := s.Collections.AuditEntries.Find(context.TODO(), filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error fetching %s audit entries: %w", category, err)
	}

	var entries []AuditEntryRecord
	if err := cursor.All(context.TODO(), &entries); err != nil {
		return nil, fmt.Errorf("error decoding %s audit entries: %w", category, err)
	}
	return entries, nil
}

// ChainHead returns the current head hash for a category chain, or the
// genesis value if the chain has no entries yet
func (s *Store) ChainHead(category string) (string, error) {
	var head chainHeadDoc
	err := s.Collections.ChainHeads.FindOne(context.TODO(), bson.D{{Key: "_id", Value: category}}).Decode(&head)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return GenesisHash, nil
		}
		return "", fmt.Errorf("error fetching %s chain head: %w", category, err)
	}
	if head.Hash == "" {
		return GenesisHash, nil
	}
	return head.Hash, nil
}

// SetChainHead updates the head hash pointer for a category chain
func (s *Store) SetChainHead(category string, hash string) error {
	opts := options.Update().SetUpsert(true)
	_, err := s.Collections.ChainHeads.UpdateOne(
		context.TODO(),
		bson.D{{Key: "_id", Value: category}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "hash", Value: hash}}}},
		opts,
	)
	if err != nil {
		return fmt.Errorf("error updating %s chain head: %w", category, err)
	}
	return nil
}

// PruneAuditEntries removes entries older than the cutoff from the live
// store. Because entries are appended chronologically this always removes
// a prefix of the chain, which integrity verification tolerates.
func (s *Store) PruneAuditEntries(category string, before time.Time) (int64, error) {
	filter := bson.D{
		{Key: "category", Value: category},
		{Key: "timestamp", Value: bson.D{{Key: "$lt", Value: before}}},
	}
	res, err := s.Collections.AuditEntries.DeleteMany(context.TODO(), filter)
	if err != nil {
		return 0, fmt.Errorf("error pruning %s audit entries: %w", category, err)
	}
	return res.DeletedCount, nil
}

// Categories lists every category that has ever had an entry appended
func (s *Store) Categories() ([]string, error) {
	raw, err := s.Collections.ChainHeads.Distinct(context.TODO(), "_id", bson.D{})
	if err != nil {
		return nil, fmt.Errorf("error listing audit categories: %w", err)
	}

	categories := make([]string, 0, len(raw))
	for _, v := range raw {
		if name, ok := v.(string); ok {
			categories = append(categories, name)
		}
	}
	return categories, nil
}
