// Package business wires the configuration into running services: the API
// server, the flow housekeeper and the migration job.
package business

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/valkey-io/valkey-go"

	"github.com/openkcm/retrieval-gateway/internal/business/server"
	"github.com/openkcm/retrieval-gateway/internal/config"
	"github.com/openkcm/retrieval-gateway/internal/datastore"
	datastoresql "github.com/openkcm/retrieval-gateway/internal/datastore/sql"
	"github.com/openkcm/retrieval-gateway/internal/flow"
	flowvalkey "github.com/openkcm/retrieval-gateway/internal/flow/valkey"
	"github.com/openkcm/retrieval-gateway/internal/upstream"
)

const minCSRFSecretLength = 32

// Main starts the public HTTP API server.
func Main(ctx context.Context, cfg *config.Config) error {
	gw, closeFn, err := initGateway(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialising the gateway: %w", err)
	}

	defer closeFn()

	return server.StartHTTPServer(ctx, cfg, gw.store, gw.manager, gw.secrets)
}

// gateway bundles the collaborators the servers need.
type gateway struct {
	store   datastore.Datastore
	manager *flow.Manager
	secrets server.AuthorizationSecrets
}

func initGateway(ctx context.Context, cfg *config.Config) (_ gateway, closeFn func(), _ error) {
	secrets, err := loadSecrets(cfg)
	if err != nil {
		return gateway{}, nil, err
	}

	if len(cfg.Bridge.CSRFSecret) < minCSRFSecretLength {
		return gateway{}, nil, fmt.Errorf("csrf secret must be at least %d bytes", minCSRFSecretLength)
	}

	connStr, err := config.MakeConnStr(cfg.Database)
	if err != nil {
		return gateway{}, nil, fmt.Errorf("making dsn from config: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return gateway{}, nil, fmt.Errorf("parsing pgxpool config: %w", err)
	}

	poolCfg.ConnConfig.Tracer = otelpgx.NewTracer()

	db, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return gateway{}, nil, fmt.Errorf("initialising pgxpool connection: %w", err)
	}

	valkeyClient, err := newValkeyClient(cfg)
	if err != nil {
		db.Close()

		return gateway{}, nil, err
	}

	providerClientID, err := commoncfg.LoadValueFromSourceRef(cfg.Bridge.Provider.ClientID)
	if err != nil {
		db.Close()
		valkeyClient.Close()

		return gateway{}, nil, fmt.Errorf("loading provider client id: %w", err)
	}

	upstreamClient := upstream.NewClient(upstream.Config{
		LoginURL:        cfg.Bridge.Provider.LoginURL,
		TokenURL:        cfg.Bridge.Provider.TokenURL,
		SubscriptionURL: cfg.Bridge.Provider.SubscriptionURL,
		ClientID:        string(providerClientID),
		Timeout:         cfg.Bridge.Provider.Timeout,
		SubscriptionTTL: cfg.Bridge.Provider.SubscriptionTTL,
	}, http.DefaultClient)

	manager := flow.NewManager(
		flowvalkey.NewRepository(valkeyClient, cfg.ValKey.Prefix),
		upstreamClient,
		flow.ManagerConfig{
			PremiumTier:  cfg.Bridge.PremiumTier,
			FallbackURL:  cfg.Bridge.FallbackURL,
			IssuedCode:   string(secrets.IssuedCode),
			FlowDuration: cfg.Bridge.FlowDuration,
			CSRFKey:      []byte(cfg.Bridge.CSRFSecret),
		},
	)

	gw := gateway{
		store:   datastoresql.NewRepository(db),
		manager: manager,
		secrets: secrets,
	}

	closeFn = func() {
		valkeyClient.Close()
		db.Close()
	}

	return gw, closeFn, nil
}

// loadSecrets resolves the static secrets. A missing bearer token is fatal:
// without it every document endpoint would be either open or dead.
func loadSecrets(cfg *config.Config) (server.AuthorizationSecrets, error) {
	bearerToken, err := commoncfg.LoadValueFromSourceRef(cfg.API.BearerToken)
	if err != nil {
		return server.AuthorizationSecrets{}, fmt.Errorf("loading bearer token: %w", err)
	}

	if len(bearerToken) == 0 {
		return server.AuthorizationSecrets{}, errors.New("bearer token is required")
	}

	clientID, err := commoncfg.LoadValueFromSourceRef(cfg.Bridge.Provider.ClientID)
	if err != nil {
		return server.AuthorizationSecrets{}, fmt.Errorf("loading client id: %w", err)
	}

	clientSecret, err := commoncfg.LoadValueFromSourceRef(cfg.Bridge.ClientSecret)
	if err != nil {
		return server.AuthorizationSecrets{}, fmt.Errorf("loading client secret: %w", err)
	}

	if len(clientSecret) == 0 {
		return server.AuthorizationSecrets{}, errors.New("client secret is required")
	}

	issuedCode, err := commoncfg.LoadValueFromSourceRef(cfg.Bridge.IssuedCode)
	if err != nil {
		return server.AuthorizationSecrets{}, fmt.Errorf("loading issued code: %w", err)
	}

	if len(issuedCode) == 0 {
		return server.AuthorizationSecrets{}, errors.New("issued code is required")
	}

	return server.AuthorizationSecrets{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		IssuedCode:   issuedCode,
		BearerToken:  bearerToken,
	}, nil
}

func newValkeyClient(cfg *config.Config) (valkey.Client, error) {
	valkeyHost, err := commoncfg.LoadValueFromSourceRef(cfg.ValKey.Host)
	if err != nil {
		return nil, fmt.Errorf("loading valkey host: %w", err)
	}

	valkeyUsername, err := commoncfg.LoadValueFromSourceRef(cfg.ValKey.User)
	if err != nil {
		return nil, fmt.Errorf("loading valkey username: %w", err)
	}

	valkeyPassword, err := commoncfg.LoadValueFromSourceRef(cfg.ValKey.Password)
	if err != nil {
		return nil, fmt.Errorf("loading valkey password: %w", err)
	}

	valkeyClient, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{string(valkeyHost)},
		Username:    string(valkeyUsername),
		Password:    string(valkeyPassword),
	})
	if err != nil {
		return nil, fmt.Errorf("creating a new valkey client: %w", err)
	}

	return valkeyClient, nil
}
