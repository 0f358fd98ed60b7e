package pubsub

import "errors"

var (
	// ErrStopped is returned by Publish once Stop has been called.
	ErrStopped = errors.New("cannot publish to stopped pubsub")
	// ErrNoValue is returned by Last when nothing has been published.
	ErrNoValue = errors.New("no last value")
)
