package core

import "errors"

// ErrEventSourceClosed is returned by Run when the event stream ends while the engine is still meant to be running.
var ErrEventSourceClosed = errors.New("event source closed")
