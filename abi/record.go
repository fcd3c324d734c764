package abi

import (
	"fmt"
	"unsafe"
)

// Record is the registration record handed to the far side.
// Field order and widths are part of the boundary contract: one function
// word followed by one cell word, no padding.
type Record struct {
	Trampoline Trampoline
	Cell       Handle
}

// LayoutVersion is bumped whenever Record or Cell change shape.
const LayoutVersion = 1

const (
	wordSize     = unsafe.Sizeof(uintptr(0))
	recordSize   = unsafe.Sizeof(Record{})
	cellOffset   = unsafe.Offsetof(Record{}.Cell)
	trampOffset  = unsafe.Offsetof(Record{}.Trampoline)
	handleSize   = unsafe.Sizeof(Handle(0))
	contextSize  = unsafe.Sizeof(Context(0))
	trampSize    = unsafe.Sizeof(Trampoline(nil))
	receiverSize = unsafe.Sizeof(Receiver(nil))
)

// Compile-time layout checks. Any drift fails the build.
var (
	_ = [1]struct{}{}[recordSize-2*wordSize]
	_ = [1]struct{}{}[trampOffset]
	_ = [1]struct{}{}[cellOffset-wordSize]
	_ = [1]struct{}{}[handleSize-wordSize]
	_ = [1]struct{}{}[contextSize-wordSize]
	_ = [1]struct{}{}[trampSize-wordSize]
)

// Build pairs a trampoline with a cell handle.
func Build(tr Trampoline, cell Handle) *Record {
	return &Record{Trampoline: tr, Cell: cell}
}

// Complete reports whether both fields are set.
func (r *Record) Complete() bool {
	return r != nil && r.Trampoline != nil && r.Cell != 0
}

// Layout describes the record shape as one side understands it.
type Layout struct {
	Version          int     `json:"version"`
	WordSize         uintptr `json:"word_size"`
	Size             uintptr `json:"size"`
	TrampolineOffset uintptr `json:"trampoline_offset"`
	CellOffset       uintptr `json:"cell_offset"`
}

// CurrentLayout returns the layout this build was compiled with.
func CurrentLayout() Layout {
	return Layout{
		Version:          LayoutVersion,
		WordSize:         wordSize,
		Size:             recordSize,
		TrampolineOffset: trampOffset,
		CellOffset:       cellOffset,
	}
}

// Compatible returns ErrLayoutMismatch if l and other disagree on any field.
func (l Layout) Compatible(other Layout) error {
	if l != other {
		return fmt.Errorf("%w: have %+v, want %+v", ErrLayoutMismatch, l, other)
	}
	return nil
}
