// Package mongodb stores accounts, clubs and events in MongoDB.
package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/gvpclubconnect/clubconnect/core"
)

// Collections
const (
	accountsCollection = "accounts"
	clubsCollection    = "clubs"
	eventsCollection   = "events"
)

type DB struct {
	client  *mongo.Client
	db      *mongo.Database
	timeout time.Duration
}

// Open connects to MongoDB, waits for it to be ready and ensures the indexes exist.
func Open(ctx context.Context, conf *core.Config) (*DB, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(conf.Mongo.URI))
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongo")
	}
	db := &DB{
		client:  client,
		db:      client.Database(conf.Mongo.Name),
		timeout: conf.Mongo.Timeout,
	}
	if err = db.ping(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	if err = db.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return db, nil
}

func (db *DB) Close(ctx context.Context) error {
	return db.client.Disconnect(ctx)
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func (db *DB) ping(ctx context.Context) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = db.client.Ping(ctx, readpref.Primary()); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "mongo ping")
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "mongo ping timeout")
}

func (db *DB) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		accountsCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}, {Key: "role", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "role", Value: 1}, {Key: "selectedClubs", Value: 1}}},
		},
		clubsCollection: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		eventsCollection: {
			{Keys: bson.D{{Key: "club", Value: 1}}},
			{Keys: bson.D{{Key: "clubtype", Value: 1}, {Key: "date", Value: 1}}},
		},
	}
	for coll, models := range indexes {
		if _, err := db.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return errors.Wrapf(err, "creating %s indexes", coll)
		}
	}
	return nil
}

// withTimeout bounds a single database operation.
func (db *DB) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if db.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, db.timeout)
}
