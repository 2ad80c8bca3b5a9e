package domain

import "time"

type EventType string

const (
	EventTypeContainerCreated   EventType = "create"
	EventTypeContainerDestroyed EventType = "destroy"
	EventTypeContainerDied      EventType = "die"
	EventTypeContainerPaused    EventType = "pause"
	EventTypeContainerRenamed   EventType = "rename"
	EventTypeContainerStarted   EventType = "start"
	EventTypeContainerStopped   EventType = "stop"
	EventTypeContainerUnpaused  EventType = "unpause"
)

// WatchedEventTypes is the vocabulary the event sources subscribe to.
var WatchedEventTypes = []EventType{
	EventTypeContainerCreated,
	EventTypeContainerDestroyed,
	EventTypeContainerDied,
	EventTypeContainerPaused,
	EventTypeContainerRenamed,
	EventTypeContainerStarted,
	EventTypeContainerStopped,
	EventTypeContainerUnpaused,
}

func (et EventType) IsValid() bool {
	switch et {
	case EventTypeContainerCreated,
		EventTypeContainerDestroyed,
		EventTypeContainerDied,
		EventTypeContainerPaused,
		EventTypeContainerRenamed,
		EventTypeContainerStarted,
		EventTypeContainerStopped,
		EventTypeContainerUnpaused:
		return true
	}
	return false
}

// ContainerEvent is one lifecycle notification decoded from the event source.
type ContainerEvent struct {
	EventType EventType
	Name      string
	OldName   string // rename only
	Image     string // create only, may be empty otherwise
	Time      time.Time
}

// ContainerSummary is one entry of the startup inventory.
type ContainerSummary struct {
	Name       string
	Image      string
	StatusText string // free text, e.g. "Up 3 days" or "Exited (0) 2 hours ago"
}
