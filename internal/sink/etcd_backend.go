package sink

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/auto-dns/docker-mqtt-sync/internal/config"
	"github.com/rs/zerolog"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// EtcdBackend stores retained messages as etcd keys under the configured prefix.
//
// The liveness key is written with a kept-alive lease, so when the process
// dies without publishing offline the lease expires and the key disappears.
// Readers treat a missing liveness key as offline.
type EtcdBackend struct {
	client   etcdClient
	cfg      *config.EtcdConfig
	liveness Liveness
	logger   zerolog.Logger

	mu            sync.Mutex
	lease         clientv3.LeaseID
	stopKeepAlive context.CancelFunc
}

func NewEtcdBackend(client etcdClient, cfg *config.EtcdConfig, liveness Liveness, logger zerolog.Logger) *EtcdBackend {
	return &EtcdBackend{
		client:   client,
		cfg:      cfg,
		liveness: liveness,
		logger:   logger,
	}
}

// Connect grants the liveness lease and keeps it alive until Disconnect.
func (eb *EtcdBackend) Connect(ctx context.Context) error {
	leaseResp, err := eb.client.Grant(ctx, eb.cfg.LeaseTTL)
	if err != nil {
		return fmt.Errorf("failed to create lease: %w", err)
	}

	keepCtx, cancel := context.WithCancel(context.Background())
	ch, err := eb.client.KeepAlive(keepCtx, leaseResp.ID)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to keep lease alive: %w", err)
	}

	eb.mu.Lock()
	eb.lease = leaseResp.ID
	eb.stopKeepAlive = cancel
	eb.mu.Unlock()

	go func() {
		for range ch {
		}
		if keepCtx.Err() == nil {
			eb.logger.Warn().Msg("[etcd_backend] Lease keepalive stopped; liveness key will expire")
		}
	}()
	return nil
}

// Publish puts payload under the topic's key; an empty payload deletes it.
func (eb *EtcdBackend) Publish(ctx context.Context, topic string, payload []byte, retain bool) error {
	key := keyForTopic(eb.cfg.PathPrefix, topic)
	if len(payload) == 0 {
		if _, err := eb.client.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
		eb.logger.Debug().Msgf("[etcd_backend] Deleted key %s", key)
		return nil
	}

	var opts []clientv3.OpOption
	if topic == eb.liveness.Topic && string(payload) != eb.liveness.Offline {
		eb.mu.Lock()
		lease := eb.lease
		eb.mu.Unlock()
		if lease != clientv3.NoLease {
			opts = append(opts, clientv3.WithLease(lease))
		}
	} else if !retain {
		// etcd has no transient messages; non-retained publishes are not stored.
		return nil
	}

	if _, err := eb.client.Put(ctx, key, string(payload), opts...); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// RetainedContainers lists container names that currently hold a retained record below base.
func (eb *EtcdBackend) RetainedContainers(ctx context.Context, base string) ([]string, error) {
	prefix := keyForTopic(eb.cfg.PathPrefix, base) + "/"
	resp, err := eb.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}
	var names []string
	for _, kv := range resp.Kvs {
		topic := topicFromKey(eb.cfg.PathPrefix, string(kv.Key))
		if topic == eb.liveness.Topic {
			continue
		}
		rec, err := unmarshalContainer(kv.Value)
		if err != nil {
			eb.logger.Warn().Err(err).Msgf("[etcd_backend] Could not parse key %s", kv.Key)
			continue
		}
		name := rec.Name
		if name == "" {
			name = topic[strings.LastIndex(topic, "/")+1:]
		}
		names = append(names, name)
	}
	return names, nil
}

// Disconnect stops the keepalive, revokes the lease and closes the client.
func (eb *EtcdBackend) Disconnect(ctx context.Context) error {
	eb.mu.Lock()
	lease := eb.lease
	stop := eb.stopKeepAlive
	eb.lease = clientv3.NoLease
	eb.stopKeepAlive = nil
	eb.mu.Unlock()

	if stop != nil {
		stop()
	}
	if lease != clientv3.NoLease {
		if _, err := eb.client.Revoke(ctx, lease); err != nil {
			eb.logger.Warn().Err(err).Msg("[etcd_backend] Failed to revoke liveness lease")
		}
	}
	return eb.client.Close()
}
