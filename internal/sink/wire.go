package sink

import (
	"encoding/json"
	"fmt"

	"github.com/auto-dns/docker-mqtt-sync/internal/domain"
)

type containerPayload struct {
	Name   string        `json:"name"`
	Image  string        `json:"image"`
	Status domain.Status `json:"status"`
	State  domain.State  `json:"state"`
}

func marshalContainer(rec domain.ContainerRecord) ([]byte, error) {
	wire := containerPayload{
		Name:   rec.Name,
		Image:  rec.Image,
		Status: rec.Status,
		State:  rec.State,
	}
	b, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("encode container %q: %w", rec.Name, err)
	}
	return b, nil
}

func unmarshalContainer(raw []byte) (domain.ContainerRecord, error) {
	var wire containerPayload
	if err := json.Unmarshal(raw, &wire); err != nil {
		return domain.ContainerRecord{}, fmt.Errorf("decode container payload: %w", err)
	}
	return domain.ContainerRecord{
		Name:   wire.Name,
		Image:  wire.Image,
		Status: wire.Status,
		State:  wire.State,
	}, nil
}
