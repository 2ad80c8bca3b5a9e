package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/auto-dns/docker-mqtt-sync/internal/config"
	"github.com/auto-dns/docker-mqtt-sync/internal/core"
	"github.com/auto-dns/docker-mqtt-sync/internal/domain"
	"github.com/auto-dns/docker-mqtt-sync/internal/event"
	"github.com/auto-dns/docker-mqtt-sync/internal/sink"
	dockerCli "github.com/docker/docker/client"
	"github.com/rs/zerolog"
	clientv3 "go.etcd.io/etcd/client/v3"
)

const shutdownTimeout = 5 * time.Second

type engine interface {
	Run(ctx context.Context) error
}

type statePublisher interface {
	Connect(ctx context.Context) error
	Close(ctx context.Context) error
}

type generator interface {
	Inventory(ctx context.Context) ([]domain.ContainerSummary, error)
	Subscribe(ctx context.Context, since time.Time) (<-chan domain.ContainerEvent, error)
}

type App struct {
	closers   []io.Closer
	publisher statePublisher
	engine    engine
	logger    zerolog.Logger
}

// New creates a new App by wiring up all dependencies.
func New(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	a := &App{logger: logger}

	// Publish sink
	topics := sink.NewTopics(cfg.MQTT.TopicPrefix, cfg.App.Hostname)
	backend, err := a.newBackend(cfg, topics.Liveness())
	if err != nil {
		return nil, err
	}
	publisher := sink.NewStatePublisher(backend, topics, logger.With().Str("component", "sink").Logger())

	// Event source
	gen, err := a.newGenerator(cfg)
	if err != nil {
		return nil, err
	}

	// Engine
	a.publisher = publisher
	a.engine = core.NewSyncEngine(logger.With().Str("component", "engine").Logger(), &cfg.App, gen, publisher)
	return a, nil
}

func (a *App) newBackend(cfg *config.Config, liveness sink.Liveness) (sink.Backend, error) {
	logger := a.logger.With().Str("component", "backend").Logger()
	switch cfg.Sink.Backend {
	case config.BackendEtcd:
		etcdClient, err := clientv3.New(clientv3.Config{
			Endpoints:   cfg.Etcd.Endpoints,
			DialTimeout: cfg.Etcd.DialTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to etcd: %w", err)
		}
		// The backend closes the client on Disconnect.
		return sink.NewEtcdBackend(etcdClient, &cfg.Etcd, liveness, logger), nil
	default:
		return sink.NewMQTTBackend(&cfg.MQTT, liveness, logger), nil
	}
}

func (a *App) newGenerator(cfg *config.Config) (generator, error) {
	logger := a.logger.With().Str("component", "event").Logger()
	switch cfg.App.EventSource {
	case config.EventSourceCLI:
		return event.NewLineGenerator(cfg.App.DockerBinary, cfg.App.QueueSize, logger), nil
	default:
		dockerClient, err := dockerCli.NewClientWithOpts(dockerCli.FromEnv, dockerCli.WithAPIVersionNegotiation())
		if err != nil {
			return nil, fmt.Errorf("failed to create docker client: %w", err)
		}
		a.closers = append(a.closers, dockerClient)
		return event.NewDockerGenerator(dockerClient, cfg.App.QueueSize, logger), nil
	}
}

// Run connects the sink, runs the engine until ctx is done or the event
// source fails, and always announces offline before disconnecting.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info().Msg("Application starting")
	if err := a.publisher.Connect(ctx); err != nil {
		return fmt.Errorf("connect publish sink: %w", err)
	}
	defer func() {
		// ctx is usually cancelled by now; teardown gets its own deadline.
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.publisher.Close(closeCtx); err != nil {
			a.logger.Error().Err(err).Msg("Closing publish sink")
		}
		a.logger.Info().Msg("Application stopped")
	}()

	err := a.engine.Run(ctx)
	if errors.Is(err, core.ErrEventSourceClosed) {
		a.logger.Error().Err(err).Msg("Event source terminated")
	}
	return err
}

func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
