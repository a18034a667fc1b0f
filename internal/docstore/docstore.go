// Package docstore is a small JSON document store with two backends: an
// embedded SQLite database and a hosted MongoDB deployment.
package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/cesargomez89/quarry/internal/domain"
)

// Doc is one document to write. Data is marshaled to JSON.
type Doc struct {
	ID   string
	Data any
}

// Filter is a conjunction of equality predicates on top-level document fields.
// A nil or empty filter matches every document of the collection.
type Filter map[string]any

// Index asks a backend to index a top-level field of a collection.
type Index struct {
	Collection string
	Field      string
}

// Store persists JSON documents grouped into named collections.
type Store interface {
	// Put inserts or replaces one document.
	Put(ctx context.Context, collection, id string, doc any) error
	// BatchPut writes docs in chunks of at most maxBatch. Each chunk commits
	// atomically. On failure it stops and returns the number of documents
	// committed so far along with a *domain.PersistenceError.
	BatchPut(ctx context.Context, collection string, docs []Doc, maxBatch int) (int, error)
	// Get decodes the document into dest or returns domain.ErrNotFound.
	Get(ctx context.Context, collection, id string, dest any) error
	// Query returns matching documents ordered by id.
	Query(ctx context.Context, collection string, filter Filter) ([]json.RawMessage, error)
	// Delete removes documents by id. Missing ids are ignored.
	Delete(ctx context.Context, collection string, ids ...string) error
	Close() error
}

// QueryAs runs a query and decodes every document into T.
func QueryAs[T any](ctx context.Context, s Store, collection string, filter Filter) ([]T, error) {
	raws, err := s.Query(ctx, collection, filter)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode %s document: %w", collection, err)
		}
		out = append(out, v)
	}
	return out, nil
}

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func checkField(field string) error {
	if !fieldPattern.MatchString(field) {
		return fmt.Errorf("invalid field name %q", field)
	}
	return nil
}

// chunks splits docs into slices of at most size elements.
func chunks(docs []Doc, size int) [][]Doc {
	if size <= 0 {
		size = len(docs)
	}
	var out [][]Doc
	for start := 0; start < len(docs); start += size {
		end := min(start+size, len(docs))
		out = append(out, docs[start:end])
	}
	return out
}

func persistenceError(op string, written int, err error) error {
	return &domain.PersistenceError{Op: op, Written: written, Err: err}
}
