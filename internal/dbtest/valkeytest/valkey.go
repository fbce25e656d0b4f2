package valkeytest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docker/go-connections/nat"
	"github.com/valkey-io/valkey-go"

	valkeycontainer "github.com/testcontainers/testcontainers-go/modules/valkey"

	slogctx "github.com/veqryn/slog-context"
)

// Start initialises a ValKey instance and returns a client, the mapped
// port, and a termination function.
func Start(ctx context.Context) (valkey.Client, nat.Port, func(ctx context.Context)) {
	container, err := valkeycontainer.Run(ctx, "valkey/valkey:8-alpine")
	if err != nil {
		slogctx.Error(ctx, "Failed to start ValKey", slog.String("error", err.Error()))
		panic(err)
	}

	port, err := container.MappedPort(ctx, nat.Port("6379"))
	if err != nil {
		slogctx.Error(ctx, "Failed to get mapped port for the ValKey container", slog.String("error", err.Error()))
		panic(err)
	}

	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{fmt.Sprintf("localhost:%s", port.Port())},
	})
	if err != nil {
		slogctx.Error(ctx, "Failed to create ValKey client", slog.String("error", err.Error()))
		panic(err)
	}

	terminate := func(ctx context.Context) {
		client.Close()

		if err := container.Terminate(ctx); err != nil {
			slogctx.Error(ctx, "Failed to terminate ValKey container", slog.String("error", err.Error()))
			panic(err)
		}
	}

	return client, port, terminate
}
