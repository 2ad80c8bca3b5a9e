package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateFor(t *testing.T) {
	cases := map[Status]State{
		StatusCreated:   StateOff,
		StatusRunning:   StateOn,
		StatusStopped:   StateOff,
		StatusPaused:    StateOff,
		StatusDestroyed: StateOff,
	}
	for status, want := range cases {
		assert.Equal(t, want, StateFor(status), "status %s", status)
	}
}

func TestContainerRecord_WithStatusKeepsIdentityAndImage(t *testing.T) {
	rec := NewContainerRecord("web", "nginx:1.27", StatusCreated)
	assert.Equal(t, StateOff, rec.State)

	running := rec.WithStatus(StatusRunning)
	assert.Equal(t, "web", running.Name)
	assert.Equal(t, "nginx:1.27", running.Image)
	assert.Equal(t, StatusRunning, running.Status)
	assert.Equal(t, StateOn, running.State)

	// original is a value and stays untouched
	assert.Equal(t, StatusCreated, rec.Status)
}

func TestContainerRecord_Renamed(t *testing.T) {
	rec := NewContainerRecord("a", "x", StatusRunning).Renamed("b")
	assert.Equal(t, ContainerRecord{Name: "b", Image: "x", Status: StatusRunning, State: StateOn}, rec)
}

func TestEventType_IsValid(t *testing.T) {
	for _, et := range WatchedEventTypes {
		assert.True(t, et.IsValid(), string(et))
	}
	assert.False(t, EventType("exec_start").IsValid())
	assert.False(t, EventType("").IsValid())
}
