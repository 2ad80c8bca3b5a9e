package core

import (
	"context"
	"time"

	"github.com/auto-dns/docker-mqtt-sync/internal/domain"
)

type generator interface {
	Inventory(ctx context.Context) ([]domain.ContainerSummary, error)
	Subscribe(ctx context.Context, since time.Time) (<-chan domain.ContainerEvent, error)
}

type publisher interface {
	PublishContainer(ctx context.Context, record domain.ContainerRecord) error
	RetractContainer(ctx context.Context, name string) error
	RetainedContainers(ctx context.Context) ([]string, bool, error)
}
