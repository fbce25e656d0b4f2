package datastoresql

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/openkcm/retrieval-gateway/internal/datastore"
	"github.com/openkcm/retrieval-gateway/internal/serviceerr"
)

var errUnknown = errors.New("unknown error")

func Test_handlePgError(t *testing.T) {
	tests := []struct {
		name     string
		inputErr error
		wantErr  error
		wantOk   bool
	}{
		{
			name:     "23505 error",
			inputErr: &pgconn.PgError{Code: "23505"},
			wantErr:  serviceerr.ErrConflict,
			wantOk:   true,
		},
		{
			name:     "Other pg error",
			inputErr: &pgconn.PgError{Code: "23503"},
			wantOk:   false,
		},
		{
			name:     "Unknown error",
			inputErr: errUnknown,
			wantOk:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err, ok := handlePgError(tt.inputErr)
			assert.Equal(t, tt.wantOk, ok)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func Test_filterClauses(t *testing.T) {
	id := "doc-1"

	where, args := filterClauses(nil, []any{"query"})
	assert.Empty(t, where)
	assert.Len(t, args, 1)

	where, args = filterClauses(&datastore.DocumentFilter{DocumentID: id, Author: "bob"}, []any{"query"})
	assert.Equal(t, []string{"id = $2", "author = $3"}, where)
	assert.Equal(t, []any{"query", id, "bob"}, args)
}
