// Package flowvalkey stores bridge flows in ValKey, JSON-encoded under
// prefixed keys with a server-side TTL.
package flowvalkey

import (
	"context"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/openkcm/retrieval-gateway/internal/flow"
)

const objectTypeFlow = "flow"

type Repository struct {
	store *store
}

var _ flow.Repository = (*Repository)(nil)

func NewRepository(valkeyClient valkey.Client, prefix string) *Repository {
	return &Repository{
		store: newStore(valkeyClient, prefix),
	}
}

func (r *Repository) Load(ctx context.Context, flowID string) (f flow.Flow, _ error) {
	if err := r.store.Get(ctx, objectTypeFlow, flowID, &f); err != nil {
		return flow.Flow{}, fmt.Errorf("getting flow from store: %w", err)
	}

	return f, nil
}

func (r *Repository) Store(ctx context.Context, f flow.Flow) error {
	if err := r.store.Set(ctx, objectTypeFlow, f.ID, f, time.Until(f.Expiry)); err != nil {
		return fmt.Errorf("setting flow into storage: %w", err)
	}

	return nil
}

func (r *Repository) Delete(ctx context.Context, flowID string) error {
	if err := r.store.Destroy(ctx, objectTypeFlow, flowID); err != nil {
		return fmt.Errorf("deleting flow from store: %w", err)
	}

	return nil
}

func (r *Repository) List(ctx context.Context) ([]flow.Flow, error) {
	var flows []flow.Flow
	if err := getStoreObjects(ctx, r.store, objectTypeFlow, "*", &flows); err != nil {
		return nil, fmt.Errorf("getting flows from store: %w", err)
	}

	return flows, nil
}
