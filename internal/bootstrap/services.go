package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/modubang/notify-api/config"
	"github.com/modubang/notify-api/internal/adapters/dispatcher"
	"github.com/modubang/notify-api/internal/adapters/provider"
	"github.com/modubang/notify-api/internal/core"
	"github.com/modubang/notify-api/internal/data"
	"github.com/modubang/notify-api/internal/observability/statsd"
	"github.com/modubang/notify-api/internal/service"
)

const shutdownWaitTimeout = 15 * time.Second

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Dispatch *service.DispatchService
	Runner   *dispatcher.Runner
	Metrics  *statsd.Client
}

// ServiceDeps groups the external dependencies services are built from.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB               // nil in dev mode
	RedisClient redis.UniversalClient // nil when the Redis cache is disabled
	Logger      *slog.Logger
}

// NewServices wires the repositories, resolver, worker, and dispatch service.
// Dev mode swaps in the in-memory store, the seeded directory, and the
// logging sender so the whole engine runs without Postgres or a provider.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service dependencies are required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	metricsSink, err := statsd.NewClient(statsd.Config{
		Enabled: cfg.Observability.Metrics.IsEnabled(),
		Address: cfg.Observability.Metrics.StatsdAddress,
		Prefix:  cfg.Observability.Metrics.StatsdPrefix,
		Logger:  logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create metrics client: %w", err)
	}

	var (
		repo      core.JobRepository
		directory core.RecipientDirectory
	)
	switch {
	case deps.DB != nil:
		repoCfg := data.RepoConfig{Logger: logger}
		repo = data.NewJobRepo(deps.DB, repoCfg)
		directory = data.NewDirectoryRepo(deps.DB, repoCfg)
	case cfg.IsDev:
		repo = data.NewMemJobStore(nil)
		directory = data.DevSeedDirectory()
		logger.Info("using in-memory store and seeded directory")
	default:
		return ServiceContainer{}, errors.New("a database connection is required outside dev mode")
	}

	var cache core.CacheRepository
	if deps.RedisClient != nil {
		cache = data.NewRedisCacheRepo(deps.RedisClient)
	} else if cfg.IsDev {
		cache = data.NewMemCache(nil)
	}

	var sender core.MessageSender
	if cfg.Provider.BaseURL != "" {
		gateway, gwErr := provider.NewGateway(provider.GatewayOptions{
			BaseURL: cfg.Provider.BaseURL,
			APIKey:  cfg.Provider.APIKey,
			Timeout: cfg.Provider.Timeout,
			Logger:  logger,
		})
		if gwErr != nil {
			return ServiceContainer{}, fmt.Errorf("create provider gateway: %w", gwErr)
		}
		sender = gateway
	} else if cfg.IsDev {
		sender = &provider.DevSender{Logger: logger}
	} else {
		return ServiceContainer{}, errors.New("PROVIDER_BASE_URL is required outside dev mode")
	}

	runner, err := dispatcher.NewRunner(dispatcher.RunnerOptions{
		Repo:          repo,
		Sender:        sender,
		QueueSize:     cfg.Dispatch.QueueSize,
		Concurrency:   cfg.Dispatch.Concurrency,
		RatePerSecond: cfg.Dispatch.RatePerSecond,
		StuckAfter:    cfg.Dispatch.StuckAfter,
		Logger:        logger,
		Metrics:       metricsSink,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create dispatch runner: %w", err)
	}

	resolver, err := service.NewRecipientResolver(service.ResolverOptions{
		Directory: directory,
		Logger:    logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create recipient resolver: %w", err)
	}

	dispatch, err := service.NewDispatchService(service.DispatchServiceOptions{
		Repo:             repo,
		Resolver:         resolver,
		Enqueuer:         runner,
		BatchSize:        cfg.Dispatch.BatchSize,
		Cache:            cache,
		Logger:           logger,
		TerminalCacheTTL: cfg.Cache.TerminalTTL,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create dispatch service: %w", err)
	}

	return ServiceContainer{
		Dispatch: dispatch,
		Runner:   runner,
		Metrics:  metricsSink,
	}, nil
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// backgroundService describes a startable background component.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

// backgroundServiceHandle tracks a running background service.
type backgroundServiceHandle struct {
	name string
	done <-chan struct{}
}

// RunServicesWithShutdown starts all enabled services and manages their
// lifecycle. It blocks until a shutdown signal arrives or a service fails;
// the first service error wins and triggers a graceful stop of the rest.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil {
		return errors.New("service orchestration config is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabled, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}

	serviceCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, len(enabled)+1)

	var httpServer *http.Server
	if enabled[config.ServiceModeHTTP] {
		httpServer = StartHTTPServer(&HTTPServerConfig{
			Config:   cfg.Config,
			Services: cfg.Services,
			Logger:   logger,
		})
	}

	var handles []backgroundServiceHandle
	for _, svc := range buildBackgroundServices(cfg) {
		if !enabled[svc.mode] {
			continue
		}
		handles = append(handles, backgroundServiceHandle{
			name: svc.name,
			done: launchBackground(serviceCtx, logger, errCh, svc),
		})
	}

	return waitForShutdown(shutdownParams{
		ctx:         serviceCtx,
		cancel:      cancel,
		errCh:       errCh,
		httpServer:  httpServer,
		metrics:     cfg.Services.Metrics,
		logger:      logger,
		backgrounds: handles,
	})
}

func buildBackgroundServices(cfg *ServiceOrchestrationConfig) []backgroundService {
	return []backgroundService{
		{
			mode: config.ServiceModeDispatcher,
			name: "dispatch worker",
			start: func(ctx context.Context) error {
				err := cfg.Services.Runner.Run(ctx)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			},
		},
	}
}

func launchBackground(ctx context.Context, logger *slog.Logger, errCh chan<- error, svc backgroundService) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := svc.start(ctx); err != nil {
			errMsg := fmt.Errorf("%s failed: %w", svc.name, err)
			select {
			case errCh <- errMsg:
			default:
				logger.WarnContext(ctx, "dropping background service error", "service", svc.name, "error", errMsg)
			}
		}
	}()
	logger.InfoContext(ctx, "background service started", "service", svc.name, "mode", svc.mode)
	return done
}

type shutdownParams struct {
	ctx         context.Context
	cancel      context.CancelFunc
	errCh       <-chan error
	httpServer  *http.Server
	metrics     *statsd.Client
	logger      *slog.Logger
	backgrounds []backgroundServiceHandle
}

func waitForShutdown(p shutdownParams) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		p.logger.Info("shutting down services...")
		p.cancel()
		return gracefulStop(p)
	case err := <-p.errCh:
		p.logger.Error("service error", "error", err)
		p.cancel()
		if stopErr := gracefulStop(p); stopErr != nil {
			p.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

func gracefulStop(p shutdownParams) error {
	if p.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWaitTimeout)
		defer cancel()

		if err := ShutdownHTTPServer(ShutdownConfig{
			Context: shutdownCtx,
			Server:  p.httpServer,
			Logger:  p.logger,
		}); err != nil {
			return err
		}
	}

	for _, svc := range p.backgrounds {
		waitForService(svc.done, svc.name, p.logger)
	}

	if p.metrics != nil {
		if err := p.metrics.Close(); err != nil {
			p.logger.Warn("failed to close metrics client", "error", err)
		}
	}
	return nil
}

func waitForService(done <-chan struct{}, name string, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-time.After(shutdownWaitTimeout):
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}
