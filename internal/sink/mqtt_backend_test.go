package sink

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMQTTBackend(client *fakeMQTTClient) *MQTTBackend {
	return &MQTTBackend{
		client:   client,
		qos:      1,
		timeout:  50 * time.Millisecond,
		liveness: NewTopics("p", "h").Liveness(),
		logger:   zerolog.Nop(),
	}
}

func TestBrokerURL(t *testing.T) {
	assert.Equal(t, "tcp://broker.lan:1883", BrokerURL("broker.lan", 1883))
	assert.Equal(t, "tcp://[::1]:8883", BrokerURL("::1", 8883))
}

func TestMQTTBackend_PublishRetained(t *testing.T) {
	client := &fakeMQTTClient{}
	mb := newTestMQTTBackend(client)

	require.NoError(t, mb.Connect(context.Background()))
	require.NoError(t, mb.Publish(context.Background(), "p/h/docker/web", []byte("{}"), true))

	require.Len(t, client.publishes, 1)
	got := client.publishes[0]
	assert.Equal(t, "p/h/docker/web", got.topic)
	assert.Equal(t, byte(1), got.qos)
	assert.True(t, got.retained)
	assert.Equal(t, []byte("{}"), got.payload)
}

func TestMQTTBackend_ConnectError(t *testing.T) {
	mb := newTestMQTTBackend(&fakeMQTTClient{connectErr: errors.New("not authorized")})

	err := mb.Connect(context.Background())
	assert.ErrorContains(t, err, "not authorized")
	assert.False(t, mb.connected.Load())
}

func TestMQTTBackend_PublishTimeout(t *testing.T) {
	mb := newTestMQTTBackend(&fakeMQTTClient{hang: true})

	err := mb.Publish(context.Background(), "t", []byte("x"), true)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestMQTTBackend_PublishCancelled(t *testing.T) {
	mb := newTestMQTTBackend(&fakeMQTTClient{hang: true})
	mb.timeout = time.Minute
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := mb.Publish(ctx, "t", []byte("x"), true)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMQTTBackend_OnConnectReannouncesOnlyAfterReconnect(t *testing.T) {
	client := &fakeMQTTClient{}
	mb := newTestMQTTBackend(client)

	mb.onConnect(nil)
	assert.Empty(t, client.publishes)

	require.NoError(t, mb.Connect(context.Background()))
	mb.onConnect(nil)
	require.Len(t, client.publishes, 1)
	assert.Equal(t, "p/h/docker/status", client.publishes[0].topic)
	assert.Equal(t, "online", client.publishes[0].payload)
	assert.True(t, client.publishes[0].retained)
}

func TestMQTTBackend_Disconnect(t *testing.T) {
	client := &fakeMQTTClient{}
	mb := newTestMQTTBackend(client)

	require.NoError(t, mb.Disconnect(context.Background()))
	assert.True(t, client.disconnected)
}
