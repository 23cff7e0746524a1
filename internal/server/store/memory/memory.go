// Package memory implements the claims and record stores in process memory.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/dualcal/internal/common"
	"github.com/dmitrijs2005/dualcal/internal/roles"
	"github.com/dmitrijs2005/dualcal/internal/server/store"
	"github.com/google/uuid"
)

// ClaimsStore keeps claims in a map.
type ClaimsStore struct {
	mu     sync.RWMutex
	claims map[string]roles.Claims
}

func NewClaimsStore() *ClaimsStore {
	return &ClaimsStore{claims: make(map[string]roles.Claims)}
}

func (s *ClaimsStore) SetClaims(ctx context.Context, uid string, c roles.Claims) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims[uid] = c
	return nil
}

func (s *ClaimsStore) GetClaims(ctx context.Context, uid string) (roles.Claims, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.claims[uid], nil
}

type watcher struct {
	q    store.Query
	feed *store.Feed
}

// RecordStore keeps documents in nested maps and pushes snapshots to
// watchers after every write.
type RecordStore struct {
	mu       sync.RWMutex
	docs     map[string]map[string]map[string]any
	watchers map[*watcher]struct{}
}

func NewRecordStore() *RecordStore {
	return &RecordStore{
		docs:     make(map[string]map[string]map[string]any),
		watchers: make(map[*watcher]struct{}),
	}
}

func (s *RecordStore) Get(ctx context.Context, collection, id string) (store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[collection][id]
	if !ok {
		return store.Record{}, common.ErrorNotFound
	}
	fields, err := store.Normalize(doc)
	if err != nil {
		return store.Record{}, err
	}
	return store.Record{ID: id, Fields: fields}, nil
}

func (s *RecordStore) Set(ctx context.Context, collection, id string, fields map[string]any) error {
	doc, err := store.Normalize(fields)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.docs[collection] == nil {
		s.docs[collection] = make(map[string]map[string]any)
	}
	s.docs[collection][id] = doc
	s.mu.Unlock()

	s.notify(collection)
	return nil
}

func (s *RecordStore) Update(ctx context.Context, collection, id string, partial map[string]any) error {
	patch, err := store.Normalize(partial)
	if err != nil {
		return err
	}

	s.mu.Lock()
	doc, ok := s.docs[collection][id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%s/%s: %w", collection, id, common.ErrorNotFound)
	}
	for k, v := range patch {
		doc[k] = v
	}
	s.mu.Unlock()

	s.notify(collection)
	return nil
}

func (s *RecordStore) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

func (s *RecordStore) Query(ctx context.Context, q store.Query) ([]store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query(q)
}

func (s *RecordStore) query(q store.Query) ([]store.Record, error) {
	out := make([]store.Record, 0)
	for id, doc := range s.docs[q.Collection] {
		if !store.Matches(doc, q.Filters) {
			continue
		}
		fields, err := store.Normalize(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, store.Record{ID: id, Fields: fields})
	}
	store.SortRecords(out, q.OrderBy)
	return out, nil
}

func (s *RecordStore) Watch(ctx context.Context, q store.Query) (store.Subscription, error) {
	w := &watcher{q: q}
	w.feed = store.NewFeed(func() {
		s.mu.Lock()
		delete(s.watchers, w)
		s.mu.Unlock()
	})

	s.mu.Lock()
	s.watchers[w] = struct{}{}
	recs, err := s.query(q)
	w.feed.Publish(store.Snapshot{Records: recs, Err: err})
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			w.feed.Close()
		case <-w.feed.Done():
		}
	}()

	return w.feed, nil
}

// notify recomputes every watcher of collection.
func (s *RecordStore) notify(collection string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for w := range s.watchers {
		if w.q.Collection != collection {
			continue
		}
		recs, err := s.query(w.q)
		w.feed.Publish(store.Snapshot{Records: recs, Err: err})
	}
}
