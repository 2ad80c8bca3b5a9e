package state

import "errors"

// ErrContainerNotFound is returned when a transition references an identity the registry does not hold.
var ErrContainerNotFound = errors.New("container not found")
