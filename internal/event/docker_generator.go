package event

import (
	"context"
	"fmt"
	"time"

	"github.com/auto-dns/docker-mqtt-sync/internal/domain"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/events"
	"github.com/docker/docker/api/types/filters"
	"github.com/rs/zerolog"
)

type DockerGenerator struct {
	logger     zerolog.Logger
	cli        dockerClient
	bufferSize int
}

func NewDockerGenerator(cli dockerClient, bufferSize int, logger zerolog.Logger) *DockerGenerator {
	return &DockerGenerator{
		logger:     logger,
		cli:        cli,
		bufferSize: bufferSize,
	}
}

// Inventory lists every container, running or not.
func (dw *DockerGenerator) Inventory(ctx context.Context) ([]domain.ContainerSummary, error) {
	containers, err := dw.cli.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return nil, fmt.Errorf("getting list of containers: %w", err)
	}
	out := make([]domain.ContainerSummary, 0, len(containers))
	for _, c := range containers {
		summary, err := fromContainerSummary(c)
		if err != nil {
			dw.logger.Warn().Err(err).Str("id", c.ID).Msg("Skipping container in inventory")
			continue
		}
		out = append(out, summary)
	}
	return out, nil
}

// Subscribe streams container events emitted since the given time. The
// returned channel is closed when the stream ends for any reason.
func (dw *DockerGenerator) Subscribe(ctx context.Context, since time.Time) (<-chan domain.ContainerEvent, error) {
	out := make(chan domain.ContainerEvent, dw.bufferSize)

	// Set up channel to get docker container events
	filterArgs := filters.NewArgs()
	filterArgs.Add("type", string(events.ContainerEventType))
	for _, et := range domain.WatchedEventTypes {
		filterArgs.Add("event", string(et))
	}

	options := events.ListOptions{
		Filters: filterArgs,
		Since:   since.Format(time.RFC3339Nano),
	}
	eventCh, errCh := dw.cli.Events(ctx, options)

	go func() {
		defer close(out)

		for {
			select {
			case <-ctx.Done():
				dw.logger.Info().Msg("Docker watcher cancelled by context")
				return
			case err := <-errCh:
				// The client stops the stream after reporting an error.
				if ctx.Err() == nil {
					dw.logger.Error().Err(err).Msg("Docker events stream ended")
				}
				return
			case msg, ok := <-eventCh:
				if !ok {
					dw.logger.Info().Msg("Docker events channel closed")
					return
				}

				event, convErr := fromEventsMessage(msg)
				if convErr != nil {
					if _, ok := convErr.(*UnsupportedEventTypeError); ok {
						dw.logger.Debug().Err(convErr).Msg("Error converting docker event message to container event")
					} else {
						dw.logger.Error().Err(convErr).Msg("converting docker event message to container event")
					}
					continue
				}

				dw.logger.Debug().Msgf("Received Docker event: %+v", event)
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (dw *DockerGenerator) Close() error {
	return dw.cli.Close()
}
