// Package store is the typed repository over the document store.
package store

import (
	"github.com/cesargomez89/quarry/internal/constants"
	"github.com/cesargomez89/quarry/internal/docstore"
)

type Store struct {
	docs      docstore.Store
	batchSize int
}

func New(docs docstore.Store, batchSize int) *Store {
	if batchSize <= 0 || batchSize > constants.MaxBatchSize {
		batchSize = constants.MaxBatchSize
	}
	return &Store{docs: docs, batchSize: batchSize}
}

// Indexes lists the fields the repository filters on.
func Indexes() []docstore.Index {
	return []docstore.Index{
		{Collection: constants.BaseTermsCollection, Field: "term"},
		{Collection: constants.QueriesCollection, Field: "base_term_id"},
		{Collection: constants.QueriesCollection, Field: "status"},
		{Collection: constants.QueriesCollection, Field: "term"},
		{Collection: constants.VersionsCollection, Field: "query_id"},
		{Collection: constants.VersionBusinessesCollection, Field: "version_id"},
	}
}

func (s *Store) Close() error {
	return s.docs.Close()
}
