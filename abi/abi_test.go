package abi_test

import (
	"errors"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yaoapp/xbridge/abi"
)

type counter struct{ n int }

func (c *counter) OnSend(dest string, payload []byte) { c.n++ }

type named string

func (n named) OnSend(dest string, payload []byte) {}

type wide struct {
	a, b, c, d uint64
}

func (w wide) OnSend(dest string, payload []byte) {}

// --- Cell ---

func TestWrap_RoundTripThroughSlot(t *testing.T) {
	receivers := []abi.Receiver{
		&counter{},
		named("topic-a"),
		wide{1, 2, 3, 4},
		&counter{n: 7},
	}

	for _, r := range receivers {
		h := abi.Wrap(r)

		var slot abi.Slot
		slot.Store(h.Word())
		back := abi.HandleFromWord(slot.Load())

		require.Equal(t, h, back)
		assert.Equal(t, r, back.Cell().Receiver())
		h.Delete()
	}
}

func TestWrap_NilPanics(t *testing.T) {
	assert.Panics(t, func() { abi.Wrap(nil) })
}

func TestHandle_DeleteOnce(t *testing.T) {
	before := abi.Live()
	h := abi.Wrap(&counter{})
	assert.Equal(t, before+1, abi.Live())
	assert.True(t, h.Valid())

	h.Delete()
	assert.False(t, h.Valid())
	assert.Equal(t, before, abi.Live())

	assert.Panics(t, func() { h.Delete() })
	assert.PanicsWithValue(t, abi.ErrInvalidHandle, func() { h.Cell() })
}

func TestHandle_NeverReused(t *testing.T) {
	h1 := abi.Wrap(&counter{})
	h1.Delete()
	h2 := abi.Wrap(&counter{})
	defer h2.Delete()
	assert.NotEqual(t, h1, h2)
}

// --- Slot widths ---

func TestSlot_InterfaceIsTwoWords(t *testing.T) {
	assert.Equal(t, 2, abi.Words(abi.SizeOfReceiver))
	assert.False(t, abi.Fits(abi.SizeOfReceiver))
	assert.Equal(t, 1, abi.Words(abi.SizeOfHandle))
	assert.True(t, abi.Fits(abi.SizeOfHandle))
}

func TestSlot_TruncationDropsTypeWord(t *testing.T) {
	var r abi.Receiver = &counter{}
	words := *(*[2]uintptr)(unsafe.Pointer(&r))
	require.NotZero(t, words[0])
	require.NotZero(t, words[1])

	// A single slot keeps one word; the other one is gone.
	var slot abi.Slot
	slot.Store(words[0])
	kept := slot.Load()
	assert.True(t, kept == words[0] && kept != words[1])
}

// --- Record ---

func TestBuild_Complete(t *testing.T) {
	tr := func(abi.Handle, string, *byte, uintptr) {}
	h := abi.Wrap(&counter{})
	defer h.Delete()

	rec := abi.Build(tr, h)
	assert.True(t, rec.Complete())
	assert.Equal(t, h, rec.Cell)

	assert.False(t, abi.Build(nil, h).Complete())
	assert.False(t, abi.Build(tr, 0).Complete())

	var nilRec *abi.Record
	assert.False(t, nilRec.Complete())
}

func TestLayout(t *testing.T) {
	l := abi.CurrentLayout()
	assert.Equal(t, abi.LayoutVersion, l.Version)
	assert.Equal(t, 2*l.WordSize, l.Size)
	assert.Zero(t, l.TrampolineOffset)
	assert.Equal(t, l.WordSize, l.CellOffset)
	assert.NoError(t, l.Compatible(abi.CurrentLayout()))

	other := l
	other.Version++
	err := l.Compatible(other)
	assert.True(t, errors.Is(err, abi.ErrLayoutMismatch))
}

// --- Status ---

func TestStatus_Err(t *testing.T) {
	assert.NoError(t, abi.StatusOK.Err())
	assert.ErrorIs(t, abi.StatusNoRoute.Err(), abi.ErrNoRoute)
	assert.ErrorIs(t, abi.StatusInvalidContext.Err(), abi.ErrInvalidContext)
	assert.ErrorIs(t, abi.StatusShutdown.Err(), abi.ErrShutdown)
	assert.Error(t, abi.Status(99).Err())
	assert.Equal(t, "invalid-context", abi.StatusInvalidContext.String())
	assert.Equal(t, "status(99)", abi.Status(99).String())
}

func TestContext_Valid(t *testing.T) {
	assert.False(t, abi.NullContext.Valid())
	assert.True(t, abi.Context(3).Valid())
	assert.Equal(t, "ctx-3", abi.Context(3).String())
}
