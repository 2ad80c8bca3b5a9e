package domain

import "fmt"

type Status string

const (
	StatusCreated   Status = "created"
	StatusRunning   Status = "running"
	StatusStopped   Status = "stopped"
	StatusPaused    Status = "paused"
	StatusDestroyed Status = "destroyed"
)

type State string

const (
	StateOn  State = "on"
	StateOff State = "off"
)

// StateFor derives the coarse on/off flag from a status.
func StateFor(s Status) State {
	if s == StatusRunning {
		return StateOn
	}
	return StateOff
}

// ContainerRecord is the canonical state of one container as seen by subscribers.
type ContainerRecord struct {
	Name   string
	Image  string
	Status Status
	State  State
}

// NewContainerRecord builds a record whose State is derived from status.
func NewContainerRecord(name, image string, status Status) ContainerRecord {
	return ContainerRecord{
		Name:   name,
		Image:  image,
		Status: status,
		State:  StateFor(status),
	}
}

// WithStatus returns a copy of the record moved to status.
func (r ContainerRecord) WithStatus(status Status) ContainerRecord {
	r.Status = status
	r.State = StateFor(status)
	return r
}

// Renamed returns a copy of the record under a new identity.
func (r ContainerRecord) Renamed(name string) ContainerRecord {
	r.Name = name
	return r
}

func (r ContainerRecord) Render() string {
	return fmt.Sprintf("%s (image=%s, status=%s, state=%s)", r.Name, r.Image, r.Status, r.State)
}
