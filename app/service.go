// Package app wires the session registry, the charge-point proxy and the
// HTTP surfaces from the configuration.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/voltgrid/sessiond/api/sessions"
	"github.com/voltgrid/sessiond/config"
	"github.com/voltgrid/sessiond/core/session"
	coretelemetry "github.com/voltgrid/sessiond/core/telemetry"
	"github.com/voltgrid/sessiond/infra/cpproxy"
	"github.com/voltgrid/sessiond/infra/inventory"
	"github.com/voltgrid/sessiond/infra/ledger"
	"github.com/voltgrid/sessiond/infra/logger"
	"github.com/voltgrid/sessiond/infra/metrics"
	"github.com/voltgrid/sessiond/infra/telemetry"
	"github.com/voltgrid/sessiond/internal/eventbus"
)

// Service orchestrates the session registry and its adapters.
type Service struct {
	Registry *session.Registry
	Proxy    *cpproxy.Proxy

	bus         eventbus.EventBus
	log         logger.Logger
	apiAddr     string
	promEnabled bool
	promPort    int
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	if err := logger.Configure(cfg.Logging.Level, cfg.Logging.Console); err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	logg := logger.New("service")

	directory := inventory.NewMemoryDirectory()
	catalog := inventory.NewMemoryCatalog()
	accounts := ledger.NewMemoryLedger()
	if cfg.SeedFile != "" {
		seeds, err := config.LoadSeeds(cfg.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("seeds: %w", err)
		}
		for _, c := range seeds.Connectors {
			directory.Add(c)
		}
		for i := range seeds.Tariffs {
			if err := catalog.Put(&seeds.Tariffs[i]); err != nil {
				return nil, fmt.Errorf("seed tariff: %w", err)
			}
		}
		for _, a := range seeds.Accounts {
			accounts.Credit(a.Account, a.Balance)
		}
	}

	var sink coretelemetry.Sink = coretelemetry.NopSink{}
	if cfg.Telemetry.Enabled {
		sink = telemetry.NewInfluxSinkWithFallback(cfg.Telemetry)
	}

	bus := eventbus.New()
	registry, err := session.NewRegistry(cfg.Registry, directory, catalog, accounts, nil, bus, sink, logger.New("registry"))
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	proxy, err := cpproxy.New(cfg.Proxy, registry, bus, logger.New("cpproxy"))
	if err != nil {
		return nil, fmt.Errorf("charge point proxy: %w", err)
	}

	return &Service{
		Registry:    registry,
		Proxy:       proxy,
		bus:         bus,
		log:         logg,
		apiAddr:     cfg.API.Addr,
		promEnabled: cfg.Metrics.PrometheusEnabled,
		promPort:    cfg.Metrics.PrometheusPort,
	}, nil
}

// Run starts the service and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	go s.Proxy.Run(ctx)

	srv := &http.Server{Addr: s.apiAddr, Handler: sessions.NewHandler(s.Registry)}
	go func() {
		s.log.Infof("session API listening on %s", s.apiAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Errorf("api server: %v", err)
		}
	}()
	if s.promEnabled {
		go func() {
			addr := fmt.Sprintf(":%d", s.promPort)
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Errorf("api shutdown: %v", err)
	}
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.Proxy.Disconnect()
	s.bus.Close()
	return nil
}
