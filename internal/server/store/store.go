// Package store defines the two external stores the server depends on: the
// identity-claims store and the document record store. Backends live in the
// sub-packages.
package store

import (
	"context"

	"github.com/dmitrijs2005/dualcal/internal/roles"
)

// ClaimsStore holds the claim flags attached to each identity.
type ClaimsStore interface {
	// SetClaims replaces the whole claim set of uid.
	SetClaims(ctx context.Context, uid string, c roles.Claims) error
	// GetClaims returns the claims of uid; an unknown uid has empty claims.
	GetClaims(ctx context.Context, uid string) (roles.Claims, error)
}

// RecordStore is a collection/document store.
type RecordStore interface {
	// Get returns common.ErrorNotFound when the document does not exist.
	Get(ctx context.Context, collection, id string) (Record, error)
	// Set creates or replaces a document.
	Set(ctx context.Context, collection, id string, fields map[string]any) error
	// Update merges partial into an existing document and returns
	// common.ErrorNotFound when there is none.
	Update(ctx context.Context, collection, id string, partial map[string]any) error
	// Add stores a new document under a generated id.
	Add(ctx context.Context, collection string, fields map[string]any) (string, error)
	Query(ctx context.Context, q Query) ([]Record, error)
	// Watch delivers the full result set of q now and after every change to
	// the collection, until the subscription is closed or ctx ends.
	Watch(ctx context.Context, q Query) (Subscription, error)
}

// Record is a stored document.
type Record struct {
	ID     string
	Fields map[string]any
}

// Filter matches documents whose Field equals Value.
type Filter struct {
	Field string
	Value any
}

// Order sorts by Field; an empty Field keeps backend order.
type Order struct {
	Field string
	Desc  bool
}

// Query selects documents of one collection.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    Order
}

// Where is shorthand for a single-filter query.
func Where(collection, field string, value any) Query {
	return Query{Collection: collection, Filters: []Filter{{Field: field, Value: value}}}
}

// Ordered returns q sorted by field.
func (q Query) Ordered(field string, desc bool) Query {
	q.OrderBy = Order{Field: field, Desc: desc}
	return q
}

// Snapshot is one delivery of a watched query. Err is set when the backend
// failed to produce the result set; the subscription stays open.
type Snapshot struct {
	Records []Record
	Err     error
}

// Subscription is a live query. The owner must Close it.
type Subscription interface {
	Snapshots() <-chan Snapshot
	Close() error
}
