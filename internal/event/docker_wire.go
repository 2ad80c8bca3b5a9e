package event

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/auto-dns/docker-mqtt-sync/internal/domain"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/events"
)

var errMissingName = errors.New("missing container name")

func fromContainerSummary(c container.Summary) (domain.ContainerSummary, error) {
	if len(c.Names) == 0 || c.Names[0] == "" {
		return domain.ContainerSummary{}, errMissingName
	}
	return domain.ContainerSummary{
		Name:       strings.TrimPrefix(c.Names[0], "/"),
		Image:      c.Image,
		StatusText: c.Status,
	}, nil
}

func fromEventsMessage(msg events.Message) (domain.ContainerEvent, error) {
	et := domain.EventType(msg.Action)
	if (msg.Type != "" && msg.Type != events.ContainerEventType) || !et.IsValid() {
		return domain.ContainerEvent{}, NewUnsupportedEventTypeError(et)
	}

	attrs := msg.Actor.Attributes
	name := attrs["name"]
	if name == "" {
		return domain.ContainerEvent{}, errMissingName
	}

	ts := time.Unix(0, msg.TimeNano)
	if msg.TimeNano == 0 {
		ts = time.Unix(msg.Time, 0)
	}

	return domain.ContainerEvent{
		EventType: et,
		Name:      name,
		OldName:   attrs["oldName"],
		Image:     attrs["image"],
		Time:      ts,
	}, nil
}

// cliEvent is one line of `docker events --format '{{json .}}'`. Older
// daemons only fill the lower-case status/from fields.
type cliEvent struct {
	Status   string   `json:"status"`
	From     string   `json:"from"`
	Type     string   `json:"Type"`
	Action   string   `json:"Action"`
	Actor    cliActor `json:"Actor"`
	Time     int64    `json:"time"`
	TimeNano int64    `json:"timeNano"`
}

type cliActor struct {
	ID         string            `json:"ID"`
	Attributes map[string]string `json:"Attributes"`
}

func (w cliEvent) message() events.Message {
	action := w.Action
	if action == "" {
		action = w.Status
	}
	attrs := make(map[string]string, len(w.Actor.Attributes)+1)
	for k, v := range w.Actor.Attributes {
		attrs[k] = v
	}
	if attrs["image"] == "" && w.From != "" {
		attrs["image"] = w.From
	}
	return events.Message{
		Type:     events.Type(w.Type),
		Action:   events.Action(action),
		Actor:    events.Actor{ID: w.Actor.ID, Attributes: attrs},
		Time:     w.Time,
		TimeNano: w.TimeNano,
	}
}

// decodeEventLine parses one line of `docker events --format '{{json .}}'`.
func decodeEventLine(line []byte) (domain.ContainerEvent, error) {
	var wire cliEvent
	if err := json.Unmarshal(line, &wire); err != nil {
		return domain.ContainerEvent{}, &DecodeError{Line: string(line), Err: err}
	}
	ev, err := fromEventsMessage(wire.message())
	if err != nil {
		var unsupported *UnsupportedEventTypeError
		if errors.As(err, &unsupported) {
			return domain.ContainerEvent{}, err
		}
		return domain.ContainerEvent{}, &DecodeError{Line: string(line), Err: err}
	}
	return ev, nil
}

// cliContainer is one line of `docker ps --format '{{json .}}'`. The CLI
// renders Names as a comma separated string, the Engine API as an array.
type cliContainer struct {
	Names  json.RawMessage `json:"Names"`
	Image  string          `json:"Image"`
	Status string          `json:"Status"`
}

func decodeInventoryLine(line []byte) (domain.ContainerSummary, error) {
	var wire cliContainer
	if err := json.Unmarshal(line, &wire); err != nil {
		return domain.ContainerSummary{}, &DecodeError{Line: string(line), Err: err}
	}

	var names []string
	var joined string
	switch {
	case len(wire.Names) == 0:
	case json.Unmarshal(wire.Names, &joined) == nil:
		names = strings.Split(joined, ",")
	case json.Unmarshal(wire.Names, &names) == nil:
	default:
		return domain.ContainerSummary{}, &DecodeError{Line: string(line), Err: errors.New("unrecognised Names field")}
	}

	summary, err := fromContainerSummary(container.Summary{Names: names, Image: wire.Image, Status: wire.Status})
	if err != nil {
		return domain.ContainerSummary{}, &DecodeError{Line: string(line), Err: err}
	}
	return summary, nil
}
