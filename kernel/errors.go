package kernel

import "errors"

var (
	// ErrKernelNotFound is returned for ids that are not in the registry.
	ErrKernelNotFound = errors.New("kernel not found")

	// ErrExecutionNotFound is returned for unknown execution ids.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrNotConnected is returned by Submit while the kernel's channels are
	// not open.
	ErrNotConnected = errors.New("kernel not connected")

	// ErrKernelDeleted settles KernelInfo waiters when the kernel is removed
	// before it replied.
	ErrKernelDeleted = errors.New("kernel deleted")

	// ErrManagerClosed is returned by every operation after Close.
	ErrManagerClosed = errors.New("manager closed")
)
