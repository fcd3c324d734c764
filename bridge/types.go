// Package bridge is the registering side of the callback boundary.
//
// A Receiver is wrapped into an abi.Cell, paired with the package trampoline
// in an abi.Record and registered with a Library. The Library later calls the
// trampoline with the cell handle; the trampoline recovers the Receiver and
// calls OnSend. Registrations are released explicitly after Cancel, never by
// the garbage collector, because only the Library knows when it is done.
package bridge

import (
	"errors"
	"fmt"

	"github.com/yaoapp/xbridge/abi"
)

// Library is the far side as seen from here.
type Library interface {
	Send(dest string, payload []byte) abi.Status
	Register(dest string, rec *abi.Record) abi.Context
	Cancel(dest string, ctx abi.Context) abi.Status
	Shutdown()
}

// Poster is implemented by libraries that support asynchronous delivery.
type Poster interface {
	Post(dest string, payload []byte) abi.Status
}

// ReceiverFunc adapts a plain function to abi.Receiver.
type ReceiverFunc func(dest string, payload []byte)

// OnSend calls f(dest, payload).
func (f ReceiverFunc) OnSend(dest string, payload []byte) { f(dest, payload) }

// Sentinel errors.
var (
	ErrRegistration = errors.New("bridge: registration failed")
	ErrStillActive  = errors.New("bridge: registration is still active")
	ErrState        = errors.New("bridge: invalid registration state")
	ErrClosed       = errors.New("bridge: client closed")
	ErrUnsupported  = errors.New("bridge: operation not supported by library")
)

// State is the lifecycle state of a Registration.
type State int32

const (
	StateUnregistered State = iota
	StateActive
	StateCancelled
	StateReleased
)

var stateNames = [...]string{"unregistered", "active", "cancelled", "released"}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int32(s))
}
