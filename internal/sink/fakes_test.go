package sink

import (
	"context"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"
)

type published struct {
	topic   string
	payload string
	retain  bool
}

type fakeBackend struct {
	mu           sync.Mutex
	log          []string
	published    []published
	publishErr   error
	connectErr   error
	disconnected int
}

func (f *fakeBackend) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log = append(f.log, "connect")
	return f.connectErr
}

func (f *fakeBackend) Publish(_ context.Context, topic string, payload []byte, retain bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log = append(f.log, "publish "+topic+" "+string(payload))
	f.published = append(f.published, published{topic: topic, payload: string(payload), retain: retain})
	return f.publishErr
}

func (f *fakeBackend) Disconnect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log = append(f.log, "disconnect")
	f.disconnected++
	return nil
}

// fakeToken completes immediately unless pending is set.
type fakeToken struct {
	err     error
	pending bool
	done    chan struct{}
}

func newFakeToken(err error, pending bool) *fakeToken {
	t := &fakeToken{err: err, pending: pending, done: make(chan struct{})}
	if !pending {
		close(t.done)
	}
	return t
}

func (t *fakeToken) Wait() bool                       { <-t.done; return true }
func (t *fakeToken) WaitTimeout(d time.Duration) bool { return !t.pending }
func (t *fakeToken) Done() <-chan struct{}            { return t.done }
func (t *fakeToken) Error() error                     { return t.err }

type mqttPublish struct {
	topic    string
	qos      byte
	retained bool
	payload  interface{}
}

type fakeMQTTClient struct {
	mu           sync.Mutex
	publishes    []mqttPublish
	connectErr   error
	hang         bool
	disconnected bool
}

func (c *fakeMQTTClient) Connect() mqtt.Token {
	return newFakeToken(c.connectErr, c.hang)
}

func (c *fakeMQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publishes = append(c.publishes, mqttPublish{topic: topic, qos: qos, retained: retained, payload: payload})
	return newFakeToken(nil, c.hang)
}

func (c *fakeMQTTClient) Disconnect(uint) {
	c.disconnected = true
}

func (c *fakeMQTTClient) IsConnectionOpen() bool {
	return !c.disconnected
}

type fakeEtcd struct {
	mu      sync.Mutex
	kv      map[string]string
	leases  map[string]clientv3.LeaseID
	granted clientv3.LeaseID
	revoked []clientv3.LeaseID
	keepCh  chan *clientv3.LeaseKeepAliveResponse
	closed  bool
}

func newFakeEtcd() *fakeEtcd {
	return &fakeEtcd{
		kv:     make(map[string]string),
		leases: make(map[string]clientv3.LeaseID),
		keepCh: make(chan *clientv3.LeaseKeepAliveResponse),
	}
}

func (f *fakeEtcd) Get(_ context.Context, key string, _ ...clientv3.OpOption) (*clientv3.GetResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	resp := &clientv3.GetResponse{}
	for k, v := range f.kv {
		if len(k) >= len(key) && k[:len(key)] == key {
			resp.Kvs = append(resp.Kvs, &mvccpb.KeyValue{Key: []byte(k), Value: []byte(v)})
		}
	}
	return resp, nil
}

func (f *fakeEtcd) Put(_ context.Context, key, val string, opts ...clientv3.OpOption) (*clientv3.PutResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kv[key] = val
	// the backend only ever passes WithLease
	if len(opts) > 0 {
		f.leases[key] = f.granted
	} else {
		delete(f.leases, key)
	}
	return &clientv3.PutResponse{}, nil
}

func (f *fakeEtcd) Delete(_ context.Context, key string, _ ...clientv3.OpOption) (*clientv3.DeleteResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.kv, key)
	delete(f.leases, key)
	return &clientv3.DeleteResponse{}, nil
}

func (f *fakeEtcd) Grant(_ context.Context, ttl int64) (*clientv3.LeaseGrantResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.granted = clientv3.LeaseID(42)
	return &clientv3.LeaseGrantResponse{ID: f.granted, TTL: ttl}, nil
}

func (f *fakeEtcd) KeepAlive(ctx context.Context, _ clientv3.LeaseID) (<-chan *clientv3.LeaseKeepAliveResponse, error) {
	go func() {
		<-ctx.Done()
		close(f.keepCh)
	}()
	return f.keepCh, nil
}

func (f *fakeEtcd) Revoke(_ context.Context, id clientv3.LeaseID) (*clientv3.LeaseRevokeResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, id)
	for k, lease := range f.leases {
		if lease == id {
			delete(f.kv, k)
			delete(f.leases, k)
		}
	}
	return &clientv3.LeaseRevokeResponse{}, nil
}

func (f *fakeEtcd) Close() error {
	f.closed = true
	return nil
}
