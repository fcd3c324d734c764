package abi

import (
	"errors"
	"sync"
	"sync/atomic"
)

// Cell is the fixed-layout indirection cell. It holds the two-word Receiver
// so that only a one-word Handle to it has to cross the boundary.
// A Cell is never mutated after Wrap.
type Cell struct {
	opaque Receiver
}

// Receiver returns the wrapped capability.
func (c *Cell) Receiver() Receiver { return c.opaque }

// Handle is the single-word reference to a Cell.
// Handles are issued from a monotonic counter and never reused, so a stale
// handle can not alias a newer cell.
type Handle uintptr

// ErrInvalidHandle is the panic value raised when a released or unknown
// handle is dereferenced. It is fatal and must not be recovered.
var ErrInvalidHandle = errors.New("abi: misuse of a released or invalid cell handle")

var (
	cells       sync.Map // Handle -> *Cell
	cellCounter atomic.Uintptr
	cellLive    atomic.Int64
)

// Wrap moves r into a new Cell and returns the Handle referencing it.
// The caller owns the cell and must Delete it exactly once, after the
// far side has stopped using the handle.
func Wrap(r Receiver) Handle {
	if r == nil {
		panic("abi: Wrap called with a nil receiver")
	}
	h := Handle(cellCounter.Add(1))
	cells.Store(h, &Cell{opaque: r})
	cellLive.Add(1)
	return h
}

// Cell returns the cell referenced by h.
// Using a handle after Delete is a use-after-free and panics.
func (h Handle) Cell() *Cell {
	v, ok := cells.Load(h)
	if !ok {
		panic(ErrInvalidHandle)
	}
	return v.(*Cell)
}

// Valid reports whether h still references a live cell.
func (h Handle) Valid() bool {
	_, ok := cells.Load(h)
	return ok
}

// Delete releases the cell. Deleting twice panics.
func (h Handle) Delete() {
	if _, ok := cells.LoadAndDelete(h); !ok {
		panic("abi: cell handle released twice")
	}
	cellLive.Add(-1)
}

// Live returns the number of cells that have been wrapped and not deleted.
func Live() int {
	return int(cellLive.Load())
}
