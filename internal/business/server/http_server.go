package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/samber/oops"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/retrieval-gateway/internal/config"
	"github.com/openkcm/retrieval-gateway/internal/datastore"
	"github.com/openkcm/retrieval-gateway/internal/flow"
	"github.com/openkcm/retrieval-gateway/pkg/fingerprint"
)

// createHTTPServer creates the API http server using the given config.
func createHTTPServer(_ context.Context, cfg *config.Config, store datastore.Datastore, manager *flow.Manager, secrets AuthorizationSecrets) *http.Server {
	api := newAPIServer(store, cfg.API.MaxUploadBytes, cfg.API.RequestTimeout)
	oauth := newOAuthServer(manager, cfg.Bridge.FlowCookie, cfg.Bridge.PremiumTier, secrets)

	gated := func(operation string, h http.HandlerFunc) http.Handler {
		return bearerMiddleware(secrets.BearerToken, withOperation(cfg, operation, h))
	}

	mux := http.NewServeMux()

	mux.Handle("POST /upsert", gated("upsert", api.Upsert))
	mux.Handle("POST /upsert-file", gated("upsert-file", api.UpsertFile))
	mux.Handle("POST /query", gated("query", api.Query))
	mux.Handle("POST /sub/query", gated("sub-query", api.Query))
	mux.Handle("DELETE /delete", gated("delete", api.Delete))

	mux.Handle("GET /oauth/login/", withOperation(cfg, "oauth-login-form", oauth.LoginGet))
	mux.Handle("POST /oauth/login/", withOperation(cfg, "oauth-login", oauth.LoginPost))
	mux.Handle("GET /oauth/callback/", withOperation(cfg, "oauth-callback-page", oauth.CallbackGet))
	mux.Handle("POST /oauth/callback/", withOperation(cfg, "oauth-exchange", oauth.CallbackPost))
	mux.Handle("POST /oauth/authorization/", withOperation(cfg, "oauth-authorization", oauth.Authorization))

	mux.HandleFunc("GET /ping", pingHandlerFunc(cfg))

	return &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: fingerprint.Middleware(mux),
	}
}

// StartHTTPServer starts the HTTP server using the given config.
func StartHTTPServer(ctx context.Context, cfg *config.Config, store datastore.Datastore, manager *flow.Manager, secrets AuthorizationSecrets) error {
	if err := initMeters(ctx, cfg); err != nil {
		return err
	}

	server := createHTTPServer(ctx, cfg, store, manager, secrets)

	slogctx.Info(ctx, "Starting a listener", "address", server.Addr)

	// Parse network if the address if provided in the format of network://address.
	// Otherwise use tcp network by default. Some integration tests are easier to implement
	// by binding a listener to a unix socket rather than a TCP port,
	// since we don't need to look up for a free port or scan /proc/net on Linux or call sysctl on macOS
	// to discover which port the process is bound to.
	network := "tcp"
	if idx := strings.IndexRune(server.Addr, ':'); idx != -1 && len(server.Addr) > idx+3 && server.Addr[idx:idx+3] == "://" {
		network = server.Addr[:idx]
		server.Addr = server.Addr[idx+3:]
	}

	listener, err := new(net.ListenConfig).Listen(ctx, network, server.Addr)
	if err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "Failed to create a listener")
	}

	slogctx.Info(ctx, "A listener started", "address", listener.Addr().String())

	go func() {
		slogctx.Info(ctx, "Serving an HTTP server", "address", listener.Addr().String())
		err := server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogctx.Error(ctx, "Failed to serve an HTTP server", "error", err)
		}

		slogctx.Info(ctx, "Stopped an HTTP server")
	}()

	<-ctx.Done()

	shutdownCtx, shutdownRelease := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
	defer shutdownRelease()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "Failed shutting down HTTP server")
	}

	slogctx.Info(ctx, "Completed graceful shutdown of HTTP server")

	return nil
}
