// Package store is the document store the pipelines read campus records
// from. Backends: an in-memory store for development and tests, Postgres
// (JSONB documents) for production, and a Redis read-through cache that can
// wrap either.
package store

import (
	"context"
	"errors"
	"fmt"
)

// Collection names.
const (
	Profiles     = "profiles"
	Users        = "users"
	Connections  = "connections"
	Matches      = "matches"
	Events       = "events"
	Groups       = "groups"
	HelpArticles = "help_articles"
	FAQ          = "faq"
)

var (
	// ErrNotFound is returned by Get when no document exists.
	ErrNotFound = errors.New("document not found")
	// ErrUnavailable wraps every backend failure, so callers can tell an
	// outage apart from a missing document.
	ErrUnavailable = errors.New("store unavailable")
)

// Filter is an equality condition on a top-level field.
type Filter struct {
	Field string
	Value any
}

// Eq builds a Filter.
func Eq(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

// Store is the document store contract.
type Store interface {
	// Get returns the document, ErrNotFound, or an ErrUnavailable error.
	Get(ctx context.Context, collection, id string) (Document, error)
	// Query returns documents matching every filter in insertion order. A
	// non-positive limit means no limit.
	Query(ctx context.Context, collection string, filters []Filter, limit int) ([]Document, error)
	// Append stores a new document under a generated id and returns the id.
	Append(ctx context.Context, collection string, doc Document) (string, error)
	// Merge upserts fields into the document, keeping fields not named.
	Merge(ctx context.Context, collection, id string, fields Document) error
	// Close releases backend resources.
	Close() error
}

// unavailable wraps a backend error so errors.Is(err, ErrUnavailable) holds.
func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}

// Offline is a Store whose every call fails with ErrUnavailable.
type Offline struct{}

func (Offline) Get(context.Context, string, string) (Document, error) {
	return nil, unavailable("get", errors.New("offline"))
}

func (Offline) Query(context.Context, string, []Filter, int) ([]Document, error) {
	return nil, unavailable("query", errors.New("offline"))
}

func (Offline) Append(context.Context, string, Document) (string, error) {
	return "", unavailable("append", errors.New("offline"))
}

func (Offline) Merge(context.Context, string, string, Document) error {
	return unavailable("merge", errors.New("offline"))
}

func (Offline) Close() error { return nil }
