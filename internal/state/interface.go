package state

import (
	"context"

	"github.com/auto-dns/docker-mqtt-sync/internal/domain"
)

type publisher interface {
	PublishContainer(ctx context.Context, record domain.ContainerRecord) error
	RetractContainer(ctx context.Context, name string) error
}
