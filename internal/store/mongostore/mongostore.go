// Package mongostore implements the store interfaces on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/campus-events/backend/internal/models"
	"github.com/campus-events/backend/internal/store"
)

const (
	accountsCollection      = "accounts"
	organizationsCollection = "organizations"
	eventsCollection        = "events"
)

// New returns Mongo-backed stores on db after ensuring indexes.
func New(ctx context.Context, client *mongo.Client, dbName string) (*store.Stores, error) {
	db := client.Database(dbName)
	if err := EnsureIndexes(ctx, db); err != nil {
		return nil, err
	}
	return &store.Stores{
		Accounts:      &Accounts{col: db.Collection(accountsCollection)},
		Organizations: &Organizations{col: db.Collection(organizationsCollection)},
		Events:        &Events{col: db.Collection(eventsCollection)},
		Close:         client.Disconnect,
	}, nil
}

// EnsureIndexes creates the unique and lookup indexes the stores rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(accountsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "subject_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("accounts_subject_unique"),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("accounts_email_unique"),
		},
	})
	if err != nil {
		return fmt.Errorf("accounts indexes: %w", err)
	}

	_, err = db.Collection(organizationsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "created_by", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("organizations_owner_unique"),
		},
		{
			Keys:    bson.D{{Key: "state", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().SetName("organizations_state_name"),
		},
	})
	if err != nil {
		return fmt.Errorf("organizations indexes: %w", err)
	}

	_, err = db.Collection(eventsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "start_date", Value: 1}},
			Options: options.Index().SetName("events_start_date"),
		},
		{
			Keys:    bson.D{{Key: "location.city", Value: 1}},
			Options: options.Index().SetName("events_city"),
		},
		{
			Keys:    bson.D{{Key: "event_type", Value: 1}},
			Options: options.Index().SetName("events_type"),
		},
		{
			Keys:    bson.D{{Key: "state", Value: 1}},
			Options: options.Index().SetName("events_state"),
		},
		{
			Keys:    bson.D{{Key: "organizer_id", Value: 1}},
			Options: options.Index().SetName("events_organizer"),
		},
	})
	if err != nil {
		return fmt.Errorf("events indexes: %w", err)
	}
	return nil
}

// mapErr translates driver errors into the models taxonomy.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s: %v: %w", op, err, models.ErrConflict)
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return fmt.Errorf("%s: %v: %w", op, err, models.ErrUpstream)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("id %q: %w", id, models.ErrNotFound)
	}
	return oid, nil
}

func parseIDs(ids []string) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			out = append(out, oid)
		}
	}
	return out
}

func hexOrEmpty(id *primitive.ObjectID) *string {
	if id == nil || id.IsZero() {
		return nil
	}
	s := id.Hex()
	return &s
}

func hexes(ids []primitive.ObjectID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Hex())
	}
	return out
}

// containsRegex matches s literally and case-insensitively.
func containsRegex(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

func approvedCondition(filter bson.D, approved *bool) bson.D {
	if approved == nil {
		return filter
	}
	if *approved {
		return append(filter, bson.E{Key: "state", Value: models.StateApproved})
	}
	return append(filter, bson.E{Key: "state", Value: bson.M{"$ne": models.StateApproved}})
}

func findOptions(sort bson.D, page store.Page) *options.FindOptions {
	opts := options.Find().SetSort(sort)
	if page.Paged() {
		opts.SetSkip(int64(page.Offset())).SetLimit(int64(page.Size))
	}
	return opts
}

func decodeAll[D any, M any](ctx context.Context, cur *mongo.Cursor, conv func(*D) *M) ([]*M, error) {
	defer cur.Close(ctx)
	var list []*M
	for cur.Next(ctx) {
		var d D
		if err := cur.Decode(&d); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		list = append(list, conv(&d))
	}
	return list, cur.Err()
}
