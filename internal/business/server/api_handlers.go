package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/retrieval-gateway/internal/datastore"
	"github.com/openkcm/retrieval-gateway/internal/extract"
	"github.com/openkcm/retrieval-gateway/internal/serviceerr"
)

// errInternalService is the fixed body returned when the datastore fails.
// The real cause is logged, never sent to the caller.
var errInternalService = &serviceerr.Error{
	Err:         serviceerr.CodeUnknown,
	Description: "Internal Service Error",
}

// apiServer implements the document endpoints.
type apiServer struct {
	store          datastore.Datastore
	maxUploadBytes int64
	requestTimeout time.Duration
}

func newAPIServer(store datastore.Datastore, maxUploadBytes int64, requestTimeout time.Duration) *apiServer {
	return &apiServer{
		store:          store,
		maxUploadBytes: maxUploadBytes,
		requestTimeout: requestTimeout,
	}
}

// boundedCtx caps how long a datastore call may run on behalf of a request.
func (s *apiServer) boundedCtx(r *http.Request) (context.Context, context.CancelFunc) {
	if s.requestTimeout <= 0 {
		return r.Context(), func() {}
	}

	return context.WithTimeout(r.Context(), s.requestTimeout)
}

type upsertRequest struct {
	Documents []datastore.Document `json:"documents"`
}

type upsertResponse struct {
	IDs []string `json:"ids"`
}

type queryRequest struct {
	Queries []datastore.Query `json:"queries"`
}

type queryResponse struct {
	Results []datastore.QueryResult `json:"results"`
}

type deleteRequest struct {
	IDs       []string                  `json:"ids,omitempty"`
	Filter    *datastore.DocumentFilter `json:"filter,omitempty"`
	DeleteAll bool                      `json:"delete_all,omitempty"`
}

type deleteResponse struct {
	Success bool `json:"success"`
}

func (s *apiServer) Upsert(w http.ResponseWriter, r *http.Request) {
	var req upsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, serviceerr.InvalidRequest("malformed request body"))

		return
	}

	if len(req.Documents) == 0 {
		writeError(w, r, serviceerr.InvalidRequest("documents must not be empty"))

		return
	}

	ctx, cancel := s.boundedCtx(r)
	defer cancel()

	ids, err := s.store.Upsert(ctx, req.Documents)
	if err != nil {
		slogctx.Error(r.Context(), "Upsert failed", "error", err)
		writeError(w, r, errInternalService)

		return
	}

	writeJSON(w, http.StatusOK, upsertResponse{IDs: ids})
}

func (s *apiServer) UpsertFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeError(w, r, serviceerr.InvalidRequest("malformed multipart body"))

		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, serviceerr.InvalidRequest("missing file field"))

		return
	}
	defer file.Close()

	document, err := extract.FromUpload(file, r.FormValue("metadata"), s.maxUploadBytes)
	if err != nil {
		writeError(w, r, serviceerr.InvalidRequest(err.Error()))

		return
	}

	ctx, cancel := s.boundedCtx(r)
	defer cancel()

	ids, err := s.store.Upsert(ctx, []datastore.Document{document})
	if err != nil {
		slogctx.Error(r.Context(), "Upsert from file failed", "error", err)
		writeError(w, r, errInternalService)

		return
	}

	writeJSON(w, http.StatusOK, upsertResponse{IDs: ids})
}

func (s *apiServer) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, serviceerr.InvalidRequest("malformed request body"))

		return
	}

	if len(req.Queries) == 0 {
		writeError(w, r, serviceerr.InvalidRequest("queries must not be empty"))

		return
	}

	ctx, cancel := s.boundedCtx(r)
	defer cancel()

	results, err := s.store.Query(ctx, req.Queries)
	if err != nil {
		slogctx.Error(r.Context(), "Query failed", "error", err)
		writeError(w, r, errInternalService)

		return
	}

	writeJSON(w, http.StatusOK, queryResponse{Results: results})
}

func (s *apiServer) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, serviceerr.InvalidRequest("malformed request body"))

		return
	}

	if len(req.IDs) == 0 && req.Filter.IsZero() && !req.DeleteAll {
		writeError(w, r, serviceerr.InvalidRequest("one of ids, filter, or delete_all is required"))

		return
	}

	ctx, cancel := s.boundedCtx(r)
	defer cancel()

	success, err := s.store.Delete(ctx, req.IDs, req.Filter, req.DeleteAll)
	if err != nil {
		slogctx.Error(r.Context(), "Delete failed", "error", err)
		writeError(w, r, errInternalService)

		return
	}

	writeJSON(w, http.StatusOK, deleteResponse{Success: success})
}
