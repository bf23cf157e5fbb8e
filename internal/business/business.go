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

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/session-client/internal/config"
	"github.com/openkcm/session-client/pkg/gateway"
	"github.com/openkcm/session-client/pkg/session"
	sessionfile "github.com/openkcm/session-client/pkg/session/file"
	sessionmemory "github.com/openkcm/session-client/pkg/session/memory"
	sessionsql "github.com/openkcm/session-client/pkg/session/sql"
	sessionvalkey "github.com/openkcm/session-client/pkg/session/valkey"
)

// initEngine builds the session engine described by the configuration.
// closeFn releases the storage backend and must always be called.
func initEngine(ctx context.Context, cfg *config.Config) (_ *session.Engine, closeFn func(), _ error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("validating config: %w", err)
	}

	slots, closeFn, err := openSlotStore(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("opening the credential storage: %w", err)
	}

	httpClient, err := loadHTTPClient(cfg)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("loading http client: %w", err)
	}

	store := session.NewCredentialStore(slots)
	gw := gateway.NewClient(cfg.Client.BaseURL, httpClient, session.TokenSource(store))

	engine := session.NewEngine(
		cfg.Client.Endpoints,
		store,
		gw,
		session.WithOnLoginSuccess(func() {
			slogctx.Info(ctx, "Signed in", "profile", cfg.Storage.Profile)
		}),
		session.WithOnLogout(func() {
			slogctx.Info(ctx, "Signed out", "profile", cfg.Storage.Profile)
		}),
	)

	return engine, closeFn, nil
}

func openSlotStore(ctx context.Context, cfg *config.Config) (_ session.SlotStore, closeFn func(), _ error) {
	noop := func() {}

	switch cfg.Storage.Type {
	case config.StorageMemory:
		return sessionmemory.NewStore(), noop, nil
	case config.StorageFile:
		return sessionfile.NewStore(cfg.Storage.StoragePath()), noop, nil
	case config.StorageValKey:
		client, err := loadValKeyClient(cfg)
		if err != nil {
			return nil, nil, err
		}

		store := sessionvalkey.NewStore(client, cfg.ValKey.Prefix, cfg.Storage.Profile,
			sessionvalkey.WithTimeout(cfg.Storage.Timeout))

		return store, client.Close, nil
	case config.StoragePostgres:
		db, err := loadPGXPool(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}

		store := sessionsql.NewStore(db, cfg.Storage.Profile,
			sessionsql.WithTimeout(cfg.Storage.Timeout))

		return store, db.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrUnknownStorageType, cfg.Storage.Type)
	}
}

func loadValKeyClient(cfg *config.Config) (valkey.Client, error) {
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

	valkeyOpts := valkey.ClientOption{
		InitAddress: []string{string(valkeyHost)},
		Username:    string(valkeyUsername),
		Password:    string(valkeyPassword),
	}

	if cfg.ValKey.SecretRef.Type == commoncfg.MTLSSecretType {
		tlsConfig, err := commoncfg.LoadMTLSConfig(&cfg.ValKey.SecretRef.MTLS)
		if err != nil {
			return nil, fmt.Errorf("loading valkey mTLS config from secret ref: %w", err)
		}

		valkeyOpts.TLSConfig = tlsConfig
	}

	client, err := valkey.NewClient(valkeyOpts)
	if err != nil {
		return nil, fmt.Errorf("creating a new valkey client: %w", err)
	}

	return client, nil
}

func loadPGXPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	connStr, err := config.MakeConnStr(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("making dsn from config: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parsing pgxpool config: %w", err)
	}
	poolCfg.ConnConfig.Tracer = otelpgx.NewTracer()

	db, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("initialising pgxpool connection: %w", err)
	}

	return db, nil
}

func loadHTTPClient(cfg *config.Config) (*http.Client, error) {
	client := &http.Client{
		Timeout: cfg.Client.Timeout,
	}

	switch cfg.Client.SecretRef.Type {
	case commoncfg.MTLSSecretType:
		tlsConfig, err := commoncfg.LoadMTLSConfig(&cfg.Client.SecretRef.MTLS)
		if err != nil {
			return nil, fmt.Errorf("loading mTLS config: %w", err)
		}

		client.Transport = &http.Transport{
			TLSClientConfig: tlsConfig,
		}
	case "":
	default:
		return nil, errors.New("unsupported client secret type")
	}

	return client, nil
}
