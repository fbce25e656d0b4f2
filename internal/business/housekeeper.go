package business

import (
	"context"
	"fmt"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/retrieval-gateway/internal/config"
)

// HousekeeperMain runs the periodic sweep of expired authorization flows.
func HousekeeperMain(ctx context.Context, cfg *config.Config) error {
	gw, closeFn, err := initGateway(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialising the gateway: %w", err)
	}

	defer closeFn()

	c := time.Tick(cfg.Housekeeper.TriggerInterval)
	for {
		if err := gw.manager.SweepExpiredFlows(ctx); err != nil {
			slogctx.Error(ctx, "Error during flow housekeeping", "error", err)
		}

		select {
		case <-c:
			continue
		case <-ctx.Done():
			return nil
		}
	}
}
