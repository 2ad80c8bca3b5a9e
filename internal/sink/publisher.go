package sink

import (
	"context"
	"errors"
	"sync"

	"github.com/auto-dns/docker-mqtt-sync/internal/domain"
	"github.com/rs/zerolog"
)

type retainedLister interface {
	RetainedContainers(ctx context.Context, base string) ([]string, error)
}

// StatePublisher renders container records and liveness onto a Backend.
type StatePublisher struct {
	backend Backend
	topics  Topics
	logger  zerolog.Logger

	offlineOnce sync.Once
	offlineErr  error
}

func NewStatePublisher(backend Backend, topics Topics, logger zerolog.Logger) *StatePublisher {
	return &StatePublisher{
		backend: backend,
		topics:  topics,
		logger:  logger,
	}
}

// Connect opens the backend and announces the process online.
func (p *StatePublisher) Connect(ctx context.Context) error {
	if err := p.backend.Connect(ctx); err != nil {
		return err
	}
	return p.Online(ctx)
}

func (p *StatePublisher) Online(ctx context.Context) error {
	return p.backend.Publish(ctx, p.topics.Status(), []byte(PayloadOnline), true)
}

// Offline publishes the retained offline message; repeated calls are no-ops.
func (p *StatePublisher) Offline(ctx context.Context) error {
	p.offlineOnce.Do(func() {
		p.offlineErr = p.backend.Publish(ctx, p.topics.Status(), []byte(PayloadOffline), true)
	})
	return p.offlineErr
}

func (p *StatePublisher) PublishContainer(ctx context.Context, record domain.ContainerRecord) error {
	payload, err := marshalContainer(record)
	if err != nil {
		return err
	}
	return p.backend.Publish(ctx, p.topics.Container(record.Name), payload, true)
}

// RetractContainer clears the retained message of a container that no longer exists under name.
func (p *StatePublisher) RetractContainer(ctx context.Context, name string) error {
	return p.backend.Publish(ctx, p.topics.Container(name), []byte{}, true)
}

// RetainedContainers lists names with a retained record, when the backend can enumerate them.
func (p *StatePublisher) RetainedContainers(ctx context.Context) ([]string, bool, error) {
	lister, ok := p.backend.(retainedLister)
	if !ok {
		return nil, false, nil
	}
	names, err := lister.RetainedContainers(ctx, p.topics.base())
	return names, true, err
}

// Close announces offline and releases the backend connection.
func (p *StatePublisher) Close(ctx context.Context) error {
	offErr := p.Offline(ctx)
	if offErr != nil {
		p.logger.Error().Err(offErr).Msg("Failed to publish offline status")
	}
	return errors.Join(offErr, p.backend.Disconnect(ctx))
}
