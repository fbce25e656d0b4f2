package flow

import (
	"context"

	slogctx "github.com/veqryn/slog-context"
)

// SweepExpiredFlows deletes flows that have passed their expiry. Flows in
// the valkey store also carry a TTL; the sweep covers stores without one
// and flows whose expiry was shortened after storing.
func (m *Manager) SweepExpiredFlows(ctx context.Context) error {
	flows, err := m.repository.List(ctx)
	if err != nil {
		return err
	}

	now := m.now()
	for _, f := range flows {
		if !f.Expired(now) {
			continue
		}

		if err := m.repository.Delete(ctx, f.ID); err != nil {
			slogctx.Warn(ctx, "Could not delete expired flow", "flowID", f.ID, "error", err)
			continue
		}

		slogctx.Info(ctx, "Deleted expired flow", "flowID", f.ID)
	}

	return nil
}
