// Package abi holds the layout shared by both sides of the callback boundary.
//
// Only single-word values cross the boundary: a Handle (reference to a Cell),
// a Context, a *Record and the payload pointer/length pair. A Receiver is a Go
// interface value (data word + itab word) and is never passed across directly.
package abi

import (
	"errors"
	"fmt"
)

// Receiver is the capability a registering side implements.
// payload is a borrowed view that is only valid for the duration of the call.
type Receiver interface {
	OnSend(dest string, payload []byte)
}

// Trampoline is the plain function the far side calls back into.
type Trampoline func(cell Handle, dest string, payload *byte, n uintptr)

// Context is the opaque token returned by the far side on registration.
type Context uintptr

// NullContext is returned when a registration fails.
const NullContext Context = 0

// Valid reports whether c is a non-null token. It says nothing about whether
// the far side still considers it active.
func (c Context) Valid() bool { return c != NullContext }

func (c Context) String() string { return fmt.Sprintf("ctx-%d", uintptr(c)) }

// Status is the result code of a far-side entry point.
type Status int32

// Status codes returned by the far side.
const (
	StatusOK Status = iota
	StatusNoRoute
	StatusUnresolvable
	StatusInvalidContext
	StatusQueueFull
	StatusShutdown
	StatusInvalidRecord
)

// Status errors, one per non-OK code.
var (
	ErrNoRoute        = errors.New("abi: no registration for destination")
	ErrUnresolvable   = errors.New("abi: destination cannot be resolved")
	ErrInvalidContext = errors.New("abi: context is not active")
	ErrQueueFull      = errors.New("abi: delivery queue is full")
	ErrShutdown       = errors.New("abi: library is shut down")
	ErrInvalidRecord  = errors.New("abi: registration record is incomplete")
	ErrLayoutMismatch = errors.New("abi: record layout mismatch")
)

var statusNames = map[Status]string{
	StatusOK:             "ok",
	StatusNoRoute:        "no-route",
	StatusUnresolvable:   "unresolvable",
	StatusInvalidContext: "invalid-context",
	StatusQueueFull:      "queue-full",
	StatusShutdown:       "shutdown",
	StatusInvalidRecord:  "invalid-record",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int32(s))
}

// Err maps a status code to its sentinel error. StatusOK maps to nil.
func (s Status) Err() error {
	switch s {
	case StatusOK:
		return nil
	case StatusNoRoute:
		return ErrNoRoute
	case StatusUnresolvable:
		return ErrUnresolvable
	case StatusInvalidContext:
		return ErrInvalidContext
	case StatusQueueFull:
		return ErrQueueFull
	case StatusShutdown:
		return ErrShutdown
	case StatusInvalidRecord:
		return ErrInvalidRecord
	}
	return fmt.Errorf("abi: unknown status %d", int32(s))
}
