package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/auto-dns/docker-mqtt-sync/internal/domain"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDockerClient struct {
	containers  []container.Summary
	listErr     error
	listOptions container.ListOptions
	msgs        chan events.Message
	errs        chan error
	options     events.ListOptions
	closed      bool
}

func newFakeDockerClient() *fakeDockerClient {
	return &fakeDockerClient{
		msgs: make(chan events.Message, 10),
		errs: make(chan error, 1),
	}
}

func (f *fakeDockerClient) Events(_ context.Context, options events.ListOptions) (<-chan events.Message, <-chan error) {
	f.options = options
	return f.msgs, f.errs
}

func (f *fakeDockerClient) ContainerList(_ context.Context, options container.ListOptions) ([]container.Summary, error) {
	f.listOptions = options
	return f.containers, f.listErr
}

func (f *fakeDockerClient) Close() error {
	f.closed = true
	return nil
}

func drain(t *testing.T, ch <-chan domain.ContainerEvent) []domain.ContainerEvent {
	t.Helper()
	var got []domain.ContainerEvent
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return got
			}
			got = append(got, ev)
		case <-timeout:
			t.Fatal("channel was not closed")
		}
	}
}

func TestDockerGenerator_InventoryListsAll(t *testing.T) {
	cli := newFakeDockerClient()
	cli.containers = []container.Summary{
		{ID: "1", Names: []string{"/web"}, Image: "nginx", Status: "Up 1 hour"},
		{ID: "2", Names: nil, Image: "broken"},
	}
	gen := NewDockerGenerator(cli, 10, zerolog.Nop())

	got, err := gen.Inventory(context.Background())
	require.NoError(t, err)
	assert.True(t, cli.listOptions.All)
	assert.Equal(t, []domain.ContainerSummary{{Name: "web", Image: "nginx", StatusText: "Up 1 hour"}}, got)
}

func TestDockerGenerator_InventoryError(t *testing.T) {
	cli := newFakeDockerClient()
	cli.listErr = errors.New("daemon down")
	gen := NewDockerGenerator(cli, 10, zerolog.Nop())

	_, err := gen.Inventory(context.Background())
	assert.ErrorContains(t, err, "daemon down")
}

func TestDockerGenerator_SubscribeFiltersAndConverts(t *testing.T) {
	cli := newFakeDockerClient()
	gen := NewDockerGenerator(cli, 10, zerolog.Nop())
	since := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	ch, err := gen.Subscribe(context.Background(), since)
	require.NoError(t, err)

	assert.Equal(t, since.Format(time.RFC3339Nano), cli.options.Since)
	assert.ElementsMatch(t, []string{"container"}, cli.options.Filters.Get("type"))
	assert.Len(t, cli.options.Filters.Get("event"), len(domain.WatchedEventTypes))

	cli.msgs <- events.Message{Type: events.ContainerEventType, Action: events.ActionStart, Actor: events.Actor{Attributes: map[string]string{"name": "web"}}}
	cli.msgs <- events.Message{Type: events.ContainerEventType, Action: "health_status: healthy", Actor: events.Actor{Attributes: map[string]string{"name": "web"}}}
	cli.msgs <- events.Message{Type: events.ContainerEventType, Action: events.ActionDie, Actor: events.Actor{Attributes: map[string]string{"name": "web"}}}
	close(cli.msgs)

	got := drain(t, ch)
	require.Len(t, got, 2)
	assert.Equal(t, domain.EventTypeContainerStarted, got[0].EventType)
	assert.Equal(t, domain.EventTypeContainerDied, got[1].EventType)
}

func TestDockerGenerator_StreamErrorClosesChannel(t *testing.T) {
	cli := newFakeDockerClient()
	gen := NewDockerGenerator(cli, 10, zerolog.Nop())

	ch, err := gen.Subscribe(context.Background(), time.Now())
	require.NoError(t, err)

	cli.errs <- errors.New("unexpected EOF")
	assert.Empty(t, drain(t, ch))
}

func TestDockerGenerator_ContextCancelClosesChannel(t *testing.T) {
	cli := newFakeDockerClient()
	gen := NewDockerGenerator(cli, 10, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := gen.Subscribe(ctx, time.Now())
	require.NoError(t, err)
	cancel()

	assert.Empty(t, drain(t, ch))
	require.NoError(t, gen.Close())
	assert.True(t, cli.closed)
}
