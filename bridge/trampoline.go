package bridge

import (
	"unsafe"

	"github.com/yaoapp/xbridge/abi"
	"github.com/yaoapp/xbridge/logger"
)

var tlog = logger.New("trampoline")

// dispatch is the trampoline stored in every Record.
//
// An invalid cell handle panics: the library called back after Cancel
// returned, which breaks its contract and is not recovered here. Panics from
// the receiver are logged and swallowed; there is no way to report them back
// across the boundary.
func dispatch(cell abi.Handle, dest string, payload *byte, n uintptr) {
	recv := cell.Cell().Receiver()

	view := []byte{}
	if n > 0 {
		view = unsafe.Slice(payload, n)
	}

	defer func() {
		if r := recover(); r != nil {
			tlog.Error("receiver panic: dest=%s len=%d err=%v", dest, n, r)
		}
	}()
	recv.OnSend(dest, view)
}

// Compile-time check that dispatch fits the record's function slot.
var _ abi.Trampoline = dispatch
