package flowmock

import (
	"context"

	"github.com/openkcm/retrieval-gateway/internal/flow"
	"github.com/openkcm/retrieval-gateway/internal/serviceerr"
)

// Repository is an in-memory flow repository with injectable errors.
type Repository struct {
	Flows map[string]flow.Flow

	loadErr, storeErr, deleteErr, listErr error
}

var _ flow.Repository = (*Repository)(nil)

func NewInMemRepository(loadErr, storeErr, deleteErr, listErr error) *Repository {
	return &Repository{
		Flows:     make(map[string]flow.Flow),
		loadErr:   loadErr,
		storeErr:  storeErr,
		deleteErr: deleteErr,
		listErr:   listErr,
	}
}

func (r *Repository) Load(ctx context.Context, flowID string) (flow.Flow, error) {
	if r.loadErr != nil {
		return flow.Flow{}, r.loadErr
	}

	if f, ok := r.Flows[flowID]; ok {
		return f, nil
	}

	return flow.Flow{}, serviceerr.ErrNotFound
}

func (r *Repository) Store(ctx context.Context, f flow.Flow) error {
	if r.storeErr != nil {
		return r.storeErr
	}

	r.Flows[f.ID] = f

	return nil
}

func (r *Repository) Delete(ctx context.Context, flowID string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}

	if _, ok := r.Flows[flowID]; !ok {
		return serviceerr.ErrNotFound
	}

	delete(r.Flows, flowID)

	return nil
}

func (r *Repository) List(ctx context.Context) ([]flow.Flow, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}

	flows := make([]flow.Flow, 0, len(r.Flows))
	for _, f := range r.Flows {
		flows = append(flows, f)
	}

	return flows, nil
}
