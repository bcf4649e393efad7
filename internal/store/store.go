// Package store provides the journal's local key-value persistence.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// Collection names.
const (
	Candidates = "candidates"
	Trades     = "trades"
	Settings   = "settings"
)

// Index names.
const (
	ByDate   = "byDate"
	BySymbol = "bySymbol"
)

// SchemaVersion is recorded in PRAGMA user_version on first open.
const SchemaVersion = 1

// Engine errors returned as-is to callers.
var (
	ErrUnknownCollection = errors.New("unknown collection")
	ErrUnknownIndex      = errors.New("unknown index")
	ErrMissingKey        = errors.New("record has no valid key at key path")
)

// IndexSpec declares a non-unique secondary index over a JSONPath.
type IndexSpec struct {
	Name   string
	Path   string
	Column string
}

// CollectionSpec declares a collection, its key path and its indexes.
type CollectionSpec struct {
	Name      string
	KeyPath   string
	KeyColumn string
	Indexes   []IndexSpec
}

// Schema is the version 1 layout.
var Schema = []CollectionSpec{
	{
		Name:      Candidates,
		KeyPath:   "$.id",
		KeyColumn: "id",
		Indexes: []IndexSpec{
			{Name: ByDate, Path: "$.date", Column: "date"},
		},
	},
	{
		Name:      Trades,
		KeyPath:   "$.id",
		KeyColumn: "id",
		Indexes: []IndexSpec{
			{Name: ByDate, Path: "$.date", Column: "date"},
			{Name: BySymbol, Path: "$.symbol", Column: "symbol"},
		},
	},
	{
		Name:      Settings,
		KeyPath:   "$.key",
		KeyColumn: "key",
	},
}

// KVStore is the record store behind every panel. Each call is atomic on
// its own; no multi-call transactions are exposed.
type KVStore interface {
	// Put upserts record by its primary key. record may be any value that
	// marshals to a JSON object, including json.RawMessage.
	Put(ctx context.Context, collection string, record any) error
	// Delete removes the record; deleting an absent key succeeds.
	Delete(ctx context.Context, collection, key string) error
	// Get returns the stored document or nil when absent.
	Get(ctx context.Context, collection, key string) (json.RawMessage, error)
	// ListByIndex returns the documents whose indexed field equals value.
	ListByIndex(ctx context.Context, collection, index, value string) ([]json.RawMessage, error)
	// ListAll returns every document in the collection.
	ListAll(ctx context.Context, collection string) ([]json.RawMessage, error)
	// ClearAll empties every collection.
	ClearAll(ctx context.Context) error
}

// CachedResponse is a stored copy of an HTTP response.
type CachedResponse struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	StoredAt   time.Time
}

// CacheStore keeps named cache namespaces of HTTP responses, keyed by URL.
type CacheStore interface {
	// OpenCache creates the namespace if it does not exist.
	OpenCache(ctx context.Context, name string) error
	// CacheNames lists every namespace.
	CacheNames(ctx context.Context) ([]string, error)
	// DeleteCache drops a namespace with all its entries.
	DeleteCache(ctx context.Context, name string) (bool, error)
	// MatchCache returns the entry for url or nil on a miss.
	MatchCache(ctx context.Context, name, url string) (*CachedResponse, error)
	// PutCache stores all entries in one transaction, replacing same URLs.
	PutCache(ctx context.Context, name string, entries ...*CachedResponse) error
}

// Store is the full persistence surface.
type Store interface {
	KVStore
	CacheStore
	Close() error
}

func lookup(collection string) (*CollectionSpec, error) {
	for i := range Schema {
		if Schema[i].Name == collection {
			return &Schema[i], nil
		}
	}
	return nil, ErrUnknownCollection
}

func (c *CollectionSpec) index(name string) (*IndexSpec, error) {
	for i := range c.Indexes {
		if c.Indexes[i].Name == name {
			return &c.Indexes[i], nil
		}
	}
	return nil, ErrUnknownIndex
}
