// Package mongostore implements the record store on MongoDB. Each record
// collection maps to a Mongo collection with the record id as _id.
//
// Live queries use change streams, so the server must be a replica set.
package mongostore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/dualcal/internal/common"
	"github.com/dmitrijs2005/dualcal/internal/logging"
	"github.com/dmitrijs2005/dualcal/internal/server/store"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger logging.Logger
}

// NewStore connects to uri and verifies the connection.
func NewStore(ctx context.Context, uri, dbName string, l logging.Logger) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect failed: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongostore: ping failed: %w", err)
	}

	return &Store{
		client: client,
		db:     client.Database(dbName),
		logger: l.With("module", "mongo_records"),
	}, nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) col(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func byID(id string) bson.D {
	return bson.D{{Key: "_id", Value: id}}
}

func (s *Store) Get(ctx context.Context, collection, id string) (store.Record, error) {
	raw, err := s.col(collection).FindOne(ctx, byID(id)).Raw()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return store.Record{}, common.ErrorNotFound
		}
		return store.Record{}, fmt.Errorf("mongostore: %w", err)
	}
	return toRecord(raw)
}

func (s *Store) Set(ctx context.Context, collection, id string, fields map[string]any) error {
	doc, err := store.Normalize(fields)
	if err != nil {
		return err
	}
	doc["_id"] = id

	_, err = s.col(collection).ReplaceOne(ctx, byID(id), doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongostore: %w", err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, collection, id string, partial map[string]any) error {
	patch, err := store.Normalize(partial)
	if err != nil {
		return err
	}
	delete(patch, "_id")
	if len(patch) == 0 {
		if _, err := s.Get(ctx, collection, id); err != nil {
			return err
		}
		return nil
	}

	res, err := s.col(collection).UpdateOne(ctx, byID(id), bson.D{{Key: "$set", Value: patch}})
	if err != nil {
		return fmt.Errorf("mongostore: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, common.ErrorNotFound)
	}
	return nil
}

func (s *Store) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := uuid.NewString()
	doc, err := store.Normalize(fields)
	if err != nil {
		return "", err
	}
	doc["_id"] = id

	if _, err := s.col(collection).InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("mongostore: %w", err)
	}
	return id, nil
}

func (s *Store) Query(ctx context.Context, q store.Query) ([]store.Record, error) {
	cursor, err := s.col(q.Collection).Find(ctx, filterDoc(q.Filters), options.Find().SetSort(sortDoc(q.OrderBy)))
	if err != nil {
		return nil, fmt.Errorf("mongostore: %w", err)
	}
	defer cursor.Close(ctx)

	out := make([]store.Record, 0)
	for cursor.Next(ctx) {
		rec, err := toRecord(cursor.Current)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("mongostore: %w", err)
	}
	return out, nil
}

// Watch publishes the result set of q and re-queries on every change event
// of the collection.
func (s *Store) Watch(ctx context.Context, q store.Query) (store.Subscription, error) {
	cs, err := s.col(q.Collection).Watch(ctx, mongo.Pipeline{})
	if err != nil {
		return nil, fmt.Errorf("mongostore: watch: %w", err)
	}

	wctx, cancel := context.WithCancel(ctx)
	feed := store.NewFeed(cancel)

	go func() {
		defer func() {
			_ = cs.Close(context.Background())
			_ = feed.Close()
		}()

		s.publish(wctx, feed, q)
		for cs.Next(wctx) {
			s.publish(wctx, feed, q)
		}
		if err := cs.Err(); err != nil && wctx.Err() == nil {
			s.logger.Error(wctx, "change stream failed", logging.Err(err))
			feed.Publish(store.Snapshot{Err: err})
		}
	}()

	return feed, nil
}

func (s *Store) publish(ctx context.Context, feed *store.Feed, q store.Query) {
	recs, err := s.Query(ctx, q)
	if err != nil && ctx.Err() != nil {
		return
	}
	feed.Publish(store.Snapshot{Records: recs, Err: err})
}

// filterDoc renders equality filters. A nil value matches a missing field or
// null, which is Mongo's own semantics for {field: null}.
func filterDoc(filters []store.Filter) bson.D {
	d := bson.D{}
	for _, f := range filters {
		v := f.Value
		if v != nil {
			if n, err := store.NormalizeValue(v); err == nil {
				v = n
			}
		}
		d = append(d, bson.E{Key: f.Field, Value: v})
	}
	return d
}

func sortDoc(o store.Order) bson.D {
	if o.Field == "" {
		return bson.D{{Key: "_id", Value: 1}}
	}
	dir := 1
	if o.Desc {
		dir = -1
	}
	return bson.D{{Key: o.Field, Value: dir}, {Key: "_id", Value: 1}}
}

// toRecord converts a raw document through relaxed extended JSON so values
// take the same shapes as in the other backends.
func toRecord(raw bson.Raw) (store.Record, error) {
	js, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return store.Record{}, fmt.Errorf("mongostore: decode: %w", err)
	}
	fields := map[string]any{}
	if err := json.Unmarshal(js, &fields); err != nil {
		return store.Record{}, fmt.Errorf("mongostore: decode: %w", err)
	}

	id, _ := fields["_id"].(string)
	delete(fields, "_id")
	return store.Record{ID: id, Fields: fields}, nil
}
