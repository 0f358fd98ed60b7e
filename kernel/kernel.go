// Package kernel tracks the live state of a set of compute kernels and the
// executions submitted to them.
//
// A Manager observes a registry of kernels. Inserting a kernel opens its iopub
// and shell channels through a Transport and requests kernel metadata;
// removing it tears down every broadcast channel the kernel owns. Inbound
// messages are classified per channel and correlated with the execution that
// caused them, and every state change is published on a pubsub.PubSub so
// subscribers that attach late can still read the latest value.
//
//	m, err := kernel.New(ctx, cfg.Tracker, kernel.WithTransport(client))
//	m.Kernels().Insert(id, kernel.NewKernel(id, "python3"))
//	execID, err := m.Submit(ctx, id, "1 + 1")
package kernel

import (
	"sync"
	"time"
)

// ExecutionState is a kernel's execution-state label as reported by its
// status messages. Labels outside the constants below pass through unchanged.
type ExecutionState string

const (
	StateStarting   ExecutionState = "starting"
	StateIdle       ExecutionState = "idle"
	StateBusy       ExecutionState = "busy"
	StateRestarting ExecutionState = "restarting"
	StateDead       ExecutionState = "dead"
)

// ConnectionState is the lifecycle of a kernel's channel connection.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
)

func (s ConnectionState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Kernel is a tracked kernel process. The execution state is a passive copy
// written only by the Manager; subscribe through the Manager for changes.
type Kernel struct {
	ID   string
	Name string

	mu           sync.RWMutex
	state        ExecutionState
	lastActivity time.Time
}

// NewKernel creates a Kernel in the starting state.
func NewKernel(id, name string) *Kernel {
	return &Kernel{
		ID:           id,
		Name:         name,
		state:        StateStarting,
		lastActivity: time.Now(),
	}
}

func (k *Kernel) ExecutionState() ExecutionState {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.state
}

func (k *Kernel) LastActivity() time.Time {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.lastActivity
}

// Touch records activity reported by the process manager.
func (k *Kernel) Touch(at time.Time) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if at.After(k.lastActivity) {
		k.lastActivity = at
	}
}

func (k *Kernel) setState(state ExecutionState) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.state = state
}
