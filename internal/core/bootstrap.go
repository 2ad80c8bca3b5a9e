package core

import (
	"context"
	"strings"

	"github.com/auto-dns/docker-mqtt-sync/internal/domain"
)

// StatusFromDescription maps the free text status of a container listing
// ("Up 3 days", "Up 2 hours (Paused)", "Exited (0) ...") onto a Status.
func StatusFromDescription(description string) domain.Status {
	switch {
	case strings.Contains(description, "Paused"):
		return domain.StatusPaused
	case strings.Contains(description, "Up"):
		return domain.StatusRunning
	default:
		return domain.StatusStopped
	}
}

// bootstrap seeds the registry from the inventory, then retracts retained
// records of containers that disappeared while the bridge was not running.
func (se *SyncEngine) bootstrap(ctx context.Context, inventory []domain.ContainerSummary) {
	for _, c := range inventory {
		record := domain.NewContainerRecord(c.Name, c.Image, StatusFromDescription(c.StatusText))
		se.registry.Register(ctx, record)
		se.logger.Debug().Msgf("Prepopulated %s", record.Render())
	}
	se.logger.Info().Msgf("Prepopulated state for %d containers", len(inventory))

	retained, ok, err := se.publisher.RetainedContainers(ctx)
	if err != nil {
		se.logger.Error().Err(err).Msg("Listing retained container records")
		return
	}
	if !ok {
		return
	}
	for _, name := range retained {
		if _, exists := se.registry.Lookup(name); exists {
			continue
		}
		se.logger.Info().Str("container", name).Msg("Retracting record of container that no longer exists")
		se.registry.Remove(ctx, name)
	}
}
