package datastore

import "time"

// Source says where a document originally came from.
type Source string

const (
	SourceEmail Source = "email"
	SourceFile  Source = "file"
	SourceChat  Source = "chat"
)

// DocumentMetadata is the caller-supplied metadata attached to a document.
type DocumentMetadata struct {
	Source    Source     `json:"source,omitempty"`
	SourceID  string     `json:"source_id,omitempty"`
	URL       string     `json:"url,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	Author    string     `json:"author,omitempty"`
}

// Document is the unit of storage. The ID is optional on upsert; the
// datastore assigns one when it is absent.
type Document struct {
	ID       string           `json:"id,omitempty"`
	Text     string           `json:"text"`
	Metadata DocumentMetadata `json:"metadata,omitempty"`
}

// DocumentFilter narrows a query or a delete to documents matching all of
// the set fields.
type DocumentFilter struct {
	DocumentID string     `json:"document_id,omitempty"`
	Source     Source     `json:"source,omitempty"`
	SourceID   string     `json:"source_id,omitempty"`
	Author     string     `json:"author,omitempty"`
	StartDate  *time.Time `json:"start_date,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
}

// IsZero reports whether no filter field is set.
func (f *DocumentFilter) IsZero() bool {
	if f == nil {
		return true
	}

	return f.DocumentID == "" && f.Source == "" && f.SourceID == "" &&
		f.Author == "" && f.StartDate == nil && f.EndDate == nil
}

// DefaultTopK is used when a query does not specify how many results it wants.
const DefaultTopK = 3

// Query is a single natural-language search request.
type Query struct {
	Query  string          `json:"query"`
	Filter *DocumentFilter `json:"filter,omitempty"`
	TopK   int             `json:"top_k,omitempty"`
}

// ScoredDocument is one query hit.
type ScoredDocument struct {
	ID       string           `json:"id"`
	Text     string           `json:"text"`
	Metadata DocumentMetadata `json:"metadata"`
	Score    float64          `json:"score"`
}

// QueryResult echoes the query string together with its ranked hits.
type QueryResult struct {
	Query   string           `json:"query"`
	Results []ScoredDocument `json:"results"`
}
