// Package datastore defines the document storage collaborator used by the
// Document API. The gateway only shapes requests and responses; the actual
// storage and ranking semantics live behind this interface.
package datastore

import "context"

// Datastore stores, searches and deletes documents.
type Datastore interface {
	// Upsert stores the documents and returns the assigned IDs, in input
	// order. Documents without an ID get one assigned.
	Upsert(ctx context.Context, docs []Document) ([]string, error)

	// Query runs each query independently and returns one result set per
	// query, in input order.
	Query(ctx context.Context, queries []Query) ([]QueryResult, error)

	// Delete removes documents by IDs, by filter, or everything when
	// deleteAll is set. At least one criterion must be present; validating
	// that is the caller's job.
	Delete(ctx context.Context, ids []string, filter *DocumentFilter, deleteAll bool) (bool, error)
}
