package bridge

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/yaoapp/xbridge/abi"
	"github.com/yaoapp/xbridge/logger"
)

var rlog = logger.New("bridge")

// Registration owns the cell and record of one registered Receiver and
// tracks the validity of the Context the library returned for it.
//
// The cell and record are released only by Release, which refuses while the
// context is active.
type Registration struct {
	id   string
	dest string
	lib  Library

	mu    sync.Mutex
	state State
	ctx   abi.Context
	cell  abi.Handle
	rec   *abi.Record
}

// NewRegistration wraps recv and builds its record. Nothing is registered
// yet; call Register.
func NewRegistration(lib Library, dest string, recv abi.Receiver) *Registration {
	cell := abi.Wrap(recv)
	return &Registration{
		id:    uuid.NewString(),
		dest:  dest,
		lib:   lib,
		state: StateUnregistered,
		cell:  cell,
		rec:   abi.Build(dispatch, cell),
	}
}

// ID returns a unique identifier for logs.
func (r *Registration) ID() string { return r.id }

// Destination returns the destination the registration applies to.
func (r *Registration) Destination() string { return r.dest }

// State returns the current lifecycle state.
func (r *Registration) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Context returns the token issued by the library, or NullContext.
func (r *Registration) Context() abi.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ctx
}

// Register hands the record to the library. On failure the registration
// stays unregistered and can be released or retried.
func (r *Registration) Register() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateUnregistered {
		return fmt.Errorf("%w: register in state %s", ErrState, r.state)
	}

	ctx := r.lib.Register(r.dest, r.rec)
	if !ctx.Valid() {
		rlog.Warn("register failed: dest=%s id=%s", r.dest, r.id)
		return fmt.Errorf("%w: dest=%s", ErrRegistration, r.dest)
	}
	r.ctx = ctx
	r.state = StateActive
	rlog.Debug("registered: dest=%s id=%s %s", r.dest, r.id, ctx)
	return nil
}

// Cancel invalidates the context. When it returns, the library no longer
// calls the trampoline for this registration.
//
// Cancelling a registration that is not active forwards the stale token to
// the library, which rejects it; the returned error wraps
// abi.ErrInvalidContext and nothing is dispatched.
//
// Cancel must not be called from the registration's own OnSend.
func (r *Registration) Cancel() error {
	r.mu.Lock()
	state, ctx := r.state, r.ctx
	r.mu.Unlock()

	status := r.lib.Cancel(r.dest, ctx)
	if state != StateActive {
		if status == abi.StatusOK {
			return fmt.Errorf("%w: library accepted cancel in state %s", ErrState, state)
		}
		return fmt.Errorf("bridge: cancel %s: %w", r.dest, status.Err())
	}

	r.mu.Lock()
	if r.state == StateActive {
		r.state = StateCancelled
	}
	r.mu.Unlock()

	switch status {
	case abi.StatusOK, abi.StatusShutdown:
		// A shut-down library has already invalidated every context.
		rlog.Debug("cancelled: dest=%s id=%s %s (%s)", r.dest, r.id, ctx, status)
		return nil
	default:
		return fmt.Errorf("bridge: cancel %s: %w", r.dest, status.Err())
	}
}

// Invalidate marks an active registration cancelled without calling the
// library. Use it only after the library was shut down.
func (r *Registration) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateActive {
		r.state = StateCancelled
	}
}

// Release frees the cell and record. It returns ErrStillActive while the
// context is active and is a no-op once released.
func (r *Registration) Release() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case StateActive:
		return fmt.Errorf("%w: dest=%s id=%s", ErrStillActive, r.dest, r.id)
	case StateReleased:
		return nil
	}

	r.cell.Delete()
	r.rec = nil
	r.state = StateReleased
	return nil
}
