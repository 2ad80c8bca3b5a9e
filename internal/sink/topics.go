package sink

import (
	"fmt"
	"strings"
)

const (
	PayloadOnline  = "online"
	PayloadOffline = "offline"
)

// Topics builds `{prefix}/{host}/docker/...` topic names.
type Topics struct {
	Prefix string
	Host   string
}

func NewTopics(prefix, host string) Topics {
	return Topics{
		Prefix: strings.Trim(prefix, "/"),
		Host:   host,
	}
}

func (t Topics) base() string {
	if t.Prefix == "" {
		return fmt.Sprintf("%s/docker", t.Host)
	}
	return fmt.Sprintf("%s/%s/docker", t.Prefix, t.Host)
}

// Container is the retained state topic of one container.
func (t Topics) Container(name string) string {
	return t.base() + "/" + strings.TrimPrefix(name, "/")
}

// Status is the retained process liveness topic.
func (t Topics) Status() string {
	return t.base() + "/status"
}

func (t Topics) Liveness() Liveness {
	return Liveness{
		Topic:   t.Status(),
		Online:  PayloadOnline,
		Offline: PayloadOffline,
	}
}
