package datastoremock

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/openkcm/retrieval-gateway/internal/datastore"
)

// Datastore is an in-memory datastore with injectable errors, used by the
// handler and business tests.
type Datastore struct {
	Documents map[string]datastore.Document

	// Calls records every invocation so tests can assert on exact arguments.
	UpsertCalls []([]datastore.Document)
	QueryCalls  []([]datastore.Query)
	DeleteCalls []DeleteCall

	upsertErr, queryErr, deleteErr error
}

type DeleteCall struct {
	IDs       []string
	Filter    *datastore.DocumentFilter
	DeleteAll bool
}

func NewInMemDatastore(upsertErr, queryErr, deleteErr error) *Datastore {
	return &Datastore{
		Documents: make(map[string]datastore.Document),
		upsertErr: upsertErr,
		queryErr:  queryErr,
		deleteErr: deleteErr,
	}
}

func (d *Datastore) Upsert(ctx context.Context, docs []datastore.Document) ([]string, error) {
	d.UpsertCalls = append(d.UpsertCalls, docs)

	if d.upsertErr != nil {
		return nil, d.upsertErr
	}

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc.ID == "" {
			doc.ID = uuid.NewString()
		}

		d.Documents[doc.ID] = doc
		ids = append(ids, doc.ID)
	}

	return ids, nil
}

func (d *Datastore) Query(ctx context.Context, queries []datastore.Query) ([]datastore.QueryResult, error) {
	d.QueryCalls = append(d.QueryCalls, queries)

	if d.queryErr != nil {
		return nil, d.queryErr
	}

	results := make([]datastore.QueryResult, 0, len(queries))
	for _, q := range queries {
		topK := q.TopK
		if topK <= 0 {
			topK = datastore.DefaultTopK
		}

		hits := []datastore.ScoredDocument{}
		for _, doc := range d.Documents {
			if len(hits) == topK {
				break
			}

			if !strings.Contains(strings.ToLower(doc.Text), strings.ToLower(q.Query)) {
				continue
			}

			if !matchesFilter(doc, q.Filter) {
				continue
			}

			hits = append(hits, datastore.ScoredDocument{
				ID:       doc.ID,
				Text:     doc.Text,
				Metadata: doc.Metadata,
				Score:    1,
			})
		}

		results = append(results, datastore.QueryResult{Query: q.Query, Results: hits})
	}

	return results, nil
}

func (d *Datastore) Delete(ctx context.Context, ids []string, filter *datastore.DocumentFilter, deleteAll bool) (bool, error) {
	d.DeleteCalls = append(d.DeleteCalls, DeleteCall{IDs: ids, Filter: filter, DeleteAll: deleteAll})

	if d.deleteErr != nil {
		return false, d.deleteErr
	}

	if deleteAll {
		d.Documents = make(map[string]datastore.Document)
		return true, nil
	}

	for _, id := range ids {
		delete(d.Documents, id)
	}

	if !filter.IsZero() {
		for id, doc := range d.Documents {
			if matchesFilter(doc, filter) {
				delete(d.Documents, id)
			}
		}
	}

	return true, nil
}

func matchesFilter(doc datastore.Document, filter *datastore.DocumentFilter) bool {
	if filter.IsZero() {
		return true
	}

	if filter.DocumentID != "" && doc.ID != filter.DocumentID {
		return false
	}
	if filter.Source != "" && doc.Metadata.Source != filter.Source {
		return false
	}
	if filter.SourceID != "" && doc.Metadata.SourceID != filter.SourceID {
		return false
	}
	if filter.Author != "" && doc.Metadata.Author != filter.Author {
		return false
	}
	if filter.StartDate != nil && (doc.Metadata.CreatedAt == nil || doc.Metadata.CreatedAt.Before(*filter.StartDate)) {
		return false
	}
	if filter.EndDate != nil && (doc.Metadata.CreatedAt == nil || doc.Metadata.CreatedAt.After(*filter.EndDate)) {
		return false
	}

	return true
}
