// Package datastoresql implements the datastore on PostgreSQL. Documents are
// stored in a single table with a generated tsvector column; queries run a
// ranked full-text search with optional metadata filters.
package datastoresql

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openkcm/retrieval-gateway/internal/datastore"
	"github.com/openkcm/retrieval-gateway/internal/serviceerr"
)

type Repository struct {
	db *pgxpool.Pool
}

var _ datastore.Datastore = (*Repository)(nil)

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) Upsert(ctx context.Context, docs []datastore.Document) ([]string, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ids := make([]string, 0, len(docs))

	for _, doc := range docs {
		if doc.ID == "" {
			doc.ID = uuid.NewString()
		}

		if _, err := tx.Exec(
			ctx, `INSERT INTO documents (id, text, source, source_id, url, author, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id)
	DO UPDATE SET (text, source, source_id, url, author, created_at) =
		(EXCLUDED.text, EXCLUDED.source, EXCLUDED.source_id, EXCLUDED.url, EXCLUDED.author, EXCLUDED.created_at);`,
			doc.ID, doc.Text, nullable(string(doc.Metadata.Source)), nullable(doc.Metadata.SourceID),
			nullable(doc.Metadata.URL), nullable(doc.Metadata.Author), doc.Metadata.CreatedAt,
		); err != nil {
			if err, ok := handlePgError(err); ok {
				return nil, err
			}

			return nil, fmt.Errorf("inserting into documents: %w", err)
		}

		ids = append(ids, doc.ID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing tx: %w", err)
	}

	return ids, nil
}

func (r *Repository) Query(ctx context.Context, queries []datastore.Query) ([]datastore.QueryResult, error) {
	results := make([]datastore.QueryResult, 0, len(queries))

	for _, q := range queries {
		hits, err := r.query(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("running query %q: %w", q.Query, err)
		}

		results = append(results, datastore.QueryResult{Query: q.Query, Results: hits})
	}

	return results, nil
}

func (r *Repository) query(ctx context.Context, q datastore.Query) ([]datastore.ScoredDocument, error) {
	topK := q.TopK
	if topK <= 0 {
		topK = datastore.DefaultTopK
	}

	where, args := filterClauses(q.Filter, []any{q.Query})
	args = append(args, topK)

	sql := `SELECT id, text, COALESCE(source, ''), COALESCE(source_id, ''), COALESCE(url, ''), COALESCE(author, ''), created_at,
	ts_rank(text_search, websearch_to_tsquery('english', $1)) AS rank
FROM documents
WHERE text_search @@ websearch_to_tsquery('english', $1)`
	if len(where) > 0 {
		sql += "\n\tAND " + strings.Join(where, "\n\tAND ")
	}
	sql += "\nORDER BY rank DESC\nLIMIT $" + strconv.Itoa(len(args)) + ";"

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("selecting from documents: %w", err)
	}
	defer rows.Close()

	hits := []datastore.ScoredDocument{}
	for rows.Next() {
		var hit datastore.ScoredDocument
		if err := rows.Scan(&hit.ID, &hit.Text, &hit.Metadata.Source, &hit.Metadata.SourceID,
			&hit.Metadata.URL, &hit.Metadata.Author, &hit.Metadata.CreatedAt, &hit.Score); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}

		hits = append(hits, hit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating document rows: %w", err)
	}

	return hits, nil
}

func (r *Repository) Delete(ctx context.Context, ids []string, filter *datastore.DocumentFilter, deleteAll bool) (bool, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	switch {
	case deleteAll:
		if _, err := tx.Exec(ctx, `DELETE FROM documents;`); err != nil {
			return false, fmt.Errorf("deleting all documents: %w", err)
		}
	default:
		if len(ids) > 0 {
			if _, err := tx.Exec(ctx, `DELETE FROM documents WHERE id = ANY($1);`, ids); err != nil {
				return false, fmt.Errorf("deleting documents by id: %w", err)
			}
		}

		if !filter.IsZero() {
			where, args := filterClauses(filter, nil)
			sql := `DELETE FROM documents WHERE ` + strings.Join(where, "\n\tAND ") + ";"
			if _, err := tx.Exec(ctx, sql, args...); err != nil {
				return false, fmt.Errorf("deleting documents by filter: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("committing tx: %w", err)
	}

	return true, nil
}

// filterClauses turns the set filter fields into WHERE clauses, numbering the
// placeholders after any already present in args.
func filterClauses(filter *datastore.DocumentFilter, args []any) ([]string, []any) {
	var where []string
	if filter.IsZero() {
		return where, args
	}

	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if filter.DocumentID != "" {
		add("id = $%d", filter.DocumentID)
	}
	if filter.Source != "" {
		add("source = $%d", string(filter.Source))
	}
	if filter.SourceID != "" {
		add("source_id = $%d", filter.SourceID)
	}
	if filter.Author != "" {
		add("author = $%d", filter.Author)
	}
	if filter.StartDate != nil {
		add("created_at >= $%d", *filter.StartDate)
	}
	if filter.EndDate != nil {
		add("created_at <= $%d", *filter.EndDate)
	}

	return where, args
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

// handlePgError maps constraint violations onto service errors. The second
// return value reports whether the error was handled.
func handlePgError(err error) (error, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil, false
	}

	switch pgErr.Code {
	case "23505":
		return fmt.Errorf("%w: %s", serviceerr.ErrConflict, pgErr.ConstraintName), true
	default:
		return nil, false
	}
}
