package core

import (
	"context"
	"fmt"
	"time"

	"github.com/auto-dns/docker-mqtt-sync/internal/config"
	"github.com/auto-dns/docker-mqtt-sync/internal/domain"
	"github.com/auto-dns/docker-mqtt-sync/internal/state"
	"github.com/rs/zerolog"
)

// SyncEngine coordinates inventory bootstrap, event ingestion and registry updates.
//
// Run is the only goroutine that touches the registry and the pending-destroy ledger.
type SyncEngine struct {
	logger    zerolog.Logger
	cfg       *config.AppConfig
	generator generator
	publisher publisher
	registry  *state.Registry
	pending   *state.PendingDestroys
	now       func() time.Time
}

func NewSyncEngine(logger zerolog.Logger, cfg *config.AppConfig, gen generator, pub publisher) *SyncEngine {
	return &SyncEngine{
		logger:    logger,
		cfg:       cfg,
		generator: gen,
		publisher: pub,
		registry:  state.NewRegistry(pub, logger),
		pending:   state.NewPendingDestroys(),
		now:       time.Now,
	}
}

func (se *SyncEngine) Run(ctx context.Context) error {
	se.logger.Info().Msg("Starting SyncEngine")

	// Step 1: Remember where the live stream has to resume from.
	since := se.now()

	// Step 2: Prepopulate state from the container inventory.
	se.logger.Info().Msg("Prepopulating the state with existing containers")
	inventory, err := se.generator.Inventory(ctx)
	if err != nil {
		return fmt.Errorf("failed to list containers: %w", err)
	}
	se.bootstrap(ctx, inventory)

	// Step 3: Subscribe to events, replaying anything since step 1.
	eventCh, err := se.generator.Subscribe(ctx, since)
	if err != nil {
		return fmt.Errorf("failed to subscribe to Docker events: %w", err)
	}

	// Step 4: Apply events one at a time; the ticker drives retention.
	se.logger.Info().Msg("Processing container events")
	interval := se.cfg.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case evt, ok := <-eventCh:
			if !ok {
				if ctx.Err() != nil {
					se.logger.Info().Msg("SyncEngine shutting down")
					return nil
				}
				return ErrEventSourceClosed
			}
			se.handleEvent(ctx, evt)
		case <-ticker.C:
			se.expireDestroyed(ctx)
		case <-ctx.Done():
			se.logger.Info().Msg("SyncEngine shutting down")
			return nil
		}
	}
}

// expireDestroyed drops records that have stayed destroyed longer than the retention window.
func (se *SyncEngine) expireDestroyed(ctx context.Context) {
	retention := se.cfg.DestroyedRetention
	if retention <= 0 {
		return
	}
	for _, name := range se.pending.Expired(se.now(), retention) {
		se.pending.Forget(name)
		record, ok := se.registry.Lookup(name)
		if !ok || record.Status != domain.StatusDestroyed {
			continue
		}
		se.logger.Info().Str("container", name).Msg("Expiring destroyed container")
		se.registry.Remove(ctx, name)
	}
}
