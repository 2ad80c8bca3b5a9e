package state

import (
	"context"
	"fmt"
	"sort"

	"github.com/auto-dns/docker-mqtt-sync/internal/domain"
	"github.com/rs/zerolog"
)

// Registry maps container identity to its canonical record and publishes every change.
//
// It is owned by the engine's consumer loop and is not safe for concurrent use.
type Registry struct {
	containers map[string]domain.ContainerRecord
	publisher  publisher
	logger     zerolog.Logger
}

func NewRegistry(pub publisher, logger zerolog.Logger) *Registry {
	return &Registry{
		containers: make(map[string]domain.ContainerRecord),
		publisher:  pub,
		logger:     logger,
	}
}

// Register inserts or overwrites the record and publishes it.
func (r *Registry) Register(ctx context.Context, record domain.ContainerRecord) {
	r.containers[record.Name] = record
	r.publish(ctx, record)
}

func (r *Registry) Lookup(name string) (domain.ContainerRecord, bool) {
	record, ok := r.containers[name]
	return record, ok
}

// Update moves an existing record to status and republishes the full record.
func (r *Registry) Update(ctx context.Context, name string, status domain.Status) (domain.ContainerRecord, error) {
	record, ok := r.containers[name]
	if !ok {
		return domain.ContainerRecord{}, fmt.Errorf("update %q to %s: %w", name, status, ErrContainerNotFound)
	}
	record = record.WithStatus(status)
	r.containers[name] = record
	r.publish(ctx, record)
	return record, nil
}

// Rename migrates the record held under oldName to newName, retracting the old topic.
func (r *Registry) Rename(ctx context.Context, oldName, newName string) (domain.ContainerRecord, error) {
	record, ok := r.containers[oldName]
	if !ok {
		return domain.ContainerRecord{}, fmt.Errorf("rename %q to %q: %w", oldName, newName, ErrContainerNotFound)
	}
	renamed := record.Renamed(newName)
	r.Register(ctx, renamed)
	if oldName != newName {
		r.Remove(ctx, oldName)
	}
	return renamed, nil
}

// Remove drops the record and publishes an empty retained payload for it.
func (r *Registry) Remove(ctx context.Context, name string) {
	delete(r.containers, name)
	if err := r.publisher.RetractContainer(ctx, name); err != nil {
		r.logger.Error().Err(err).Str("container", name).Msg("Failed to retract container topic")
	}
}

func (r *Registry) Len() int {
	return len(r.containers)
}

// Snapshot returns all records ordered by name.
func (r *Registry) Snapshot() []domain.ContainerRecord {
	out := make([]domain.ContainerRecord, 0, len(r.containers))
	for _, rec := range r.containers {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Registry) publish(ctx context.Context, record domain.ContainerRecord) {
	if err := r.publisher.PublishContainer(ctx, record); err != nil {
		r.logger.Error().Err(err).Str("container", record.Name).Msg("Failed to publish container state")
		return
	}
	r.logger.Debug().Msgf("Published %s", record.Render())
}
