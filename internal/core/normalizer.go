package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/auto-dns/docker-mqtt-sync/internal/domain"
	"github.com/auto-dns/docker-mqtt-sync/internal/state"
	"github.com/rs/zerolog"
)

// statusAfter is the status an existing container moves to for each in-place transition.
var statusAfter = map[domain.EventType]domain.Status{
	domain.EventTypeContainerDestroyed: domain.StatusDestroyed,
	domain.EventTypeContainerDied:      domain.StatusStopped,
	domain.EventTypeContainerStopped:   domain.StatusStopped,
	domain.EventTypeContainerPaused:    domain.StatusPaused,
	domain.EventTypeContainerUnpaused:  domain.StatusRunning,
	domain.EventTypeContainerStarted:   domain.StatusRunning,
}

// handleEvent applies one lifecycle event to the registry.
func (se *SyncEngine) handleEvent(ctx context.Context, evt domain.ContainerEvent) {
	logger := se.logger.With().
		Str("event", string(evt.EventType)).
		Str("container", evt.Name).
		Logger()

	if evt.Name == "" {
		logger.Warn().Msg("Ignoring event without container name")
		return
	}

	switch evt.EventType {
	case domain.EventTypeContainerCreated:
		if se.pending.Cancel(evt.Name) {
			logger.Info().Msg("Cancelled pending destroy")
		}
		se.registry.Register(ctx, domain.NewContainerRecord(evt.Name, evt.Image, domain.StatusCreated))

	case domain.EventTypeContainerRenamed:
		oldName := strings.TrimPrefix(evt.OldName, "/")
		newName := strings.TrimPrefix(evt.Name, "/")
		if oldName == "" {
			logger.Warn().Msg("Ignoring rename without previous name")
			return
		}
		if _, err := se.registry.Rename(ctx, oldName, newName); err != nil {
			se.logSkipped(logger, err)
			return
		}
		logger.Info().Str("old_name", oldName).Msg("Renamed container")

	default:
		status, ok := statusAfter[evt.EventType]
		if !ok {
			logger.Debug().Msg("Ignoring unwatched event")
			return
		}
		if _, exists := se.registry.Lookup(evt.Name); !exists {
			se.logSkipped(logger, state.ErrContainerNotFound)
			return
		}
		if evt.EventType == domain.EventTypeContainerDestroyed {
			se.pending.Mark(evt.Name, se.markTime(evt))
		}
		record, err := se.registry.Update(ctx, evt.Name, status)
		if err != nil {
			se.logSkipped(logger, err)
			return
		}
		logger.Debug().Msgf("Updated %s", record.Render())
	}
}

// markTime prefers the daemon's event timestamp; events without one are stamped on arrival.
func (se *SyncEngine) markTime(evt domain.ContainerEvent) time.Time {
	if evt.Time.IsZero() {
		return se.now()
	}
	return evt.Time
}

func (se *SyncEngine) logSkipped(logger zerolog.Logger, err error) {
	if errors.Is(err, state.ErrContainerNotFound) {
		logger.Warn().Err(err).Msg("Skipping event for unknown container")
		return
	}
	logger.Error().Err(err).Msg("Skipping event")
}
