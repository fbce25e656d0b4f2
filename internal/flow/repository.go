// Package flow holds the OAuth bridge's session-scoped state: one Flow
// record per in-progress authorization, stored server-side and advanced
// step by step.
package flow

import "context"

type Repository interface {
	Load(ctx context.Context, flowID string) (Flow, error)
	Store(ctx context.Context, flow Flow) error
	Delete(ctx context.Context, flowID string) error
	List(ctx context.Context) ([]Flow, error)
}
