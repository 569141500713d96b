package session

import "errors"

var (
	// ErrNoSessionDefined is returned by Current when the lane is empty and
	// no default session is set.
	ErrNoSessionDefined = errors.New("no default session is defined")

	// ErrContextCorruption is returned by Scope.Exit when the lane's top
	// entry is not the one the scope pushed. The stack is left as is.
	ErrContextCorruption = errors.New("session stack mismatch")
)
