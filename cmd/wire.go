package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/bnema/tokenpool/internal/adapters/events/fanout"
	"github.com/bnema/tokenpool/internal/adapters/events/logsink"
	"github.com/bnema/tokenpool/internal/adapters/events/metrics"
	statusadapter "github.com/bnema/tokenpool/internal/adapters/render/status"
	tomlrepo "github.com/bnema/tokenpool/internal/adapters/repo/toml"
	chainstore "github.com/bnema/tokenpool/internal/adapters/secrets/chain"
	filesource "github.com/bnema/tokenpool/internal/adapters/sources/file"
	"github.com/bnema/tokenpool/internal/adapters/sources/inline"
	"github.com/bnema/tokenpool/internal/adapters/sources/legacy"
	"github.com/bnema/tokenpool/internal/application"
	"github.com/bnema/tokenpool/internal/config"
	"github.com/bnema/tokenpool/internal/logger"
	"github.com/bnema/tokenpool/internal/ports"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

const configPathEnv = "TOKENPOOL_CONFIG"

type app struct {
	cfg            config.Config
	logger         zerolog.Logger
	secretStore    ports.SecretStore
	sources        []ports.CredentialSource
	metrics        *metrics.Sink
	sink           ports.EventSink
	clock          clockwork.Clock
	runtime        ports.RuntimeRepository
	statusRenderer func(statusadapter.View, statusadapter.RenderOptions) (string, error)
}

func wireApp() (*app, error) {
	v, err := config.NewViper(os.Getenv(configPathEnv))
	if err != nil {
		return nil, fmt.Errorf("wire config: %w", err)
	}

	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("wire config: %w", err)
	}

	log := logger.New(cfg.Log)

	secretStore, err := chainstore.NewPassFirstWithFileFallback(cfg.SecretsDir)
	if err != nil {
		return nil, fmt.Errorf("wire secret store chain: %w", err)
	}

	runtime, err := tomlrepo.NewRuntimeRepository(v)
	if err != nil {
		return nil, fmt.Errorf("wire pool runtime repository: %w", err)
	}

	metricsSink := metrics.NewSink()

	return &app{
		cfg:         cfg,
		logger:      log,
		secretStore: secretStore,
		sources: []ports.CredentialSource{
			inline.NewSource(cfg.Tokens),
			filesource.NewSource(cfg.TokensFile),
			legacy.NewSource(cfg.Token, secretStore, cfg.SecretKey),
		},
		metrics:        metricsSink,
		sink:           fanout.NewSink(logsink.NewSink(log), metricsSink),
		clock:          clockwork.NewRealClock(),
		runtime:        runtime,
		statusRenderer: statusadapter.Render,
	}, nil
}

func (a *app) newPool() *application.Pool {
	return application.NewPool(
		a.sources,
		application.WithEventSink(a.sink),
		application.WithClock(a.clock),
		application.WithLogger(a.logger),
	)
}

// openPoolService builds a pool from the configured sources and restores the
// persisted runtime into it.
func (a *app) openPoolService(ctx context.Context) (*application.PoolService, error) {
	svc := application.NewPoolService(a.newPool(), a.runtime)
	if err := svc.Open(ctx); err != nil {
		return nil, err
	}

	return svc, nil
}
