package abi

// SizeOfReceiver and SizeOfHandle are the in-memory widths of a capability
// reference and of its indirected form.
const (
	SizeOfReceiver = receiverSize
	SizeOfHandle   = handleSize
	WordSize       = wordSize
)

// Slot models a parameter slot of the boundary calling convention: it
// carries exactly one machine word.
type Slot struct {
	w uintptr
}

// Store puts w into the slot.
func (s *Slot) Store(w uintptr) { s.w = w }

// Load returns the word held by the slot.
func (s *Slot) Load() uintptr { return s.w }

// Words returns how many slots a value of the given size occupies.
func Words(size uintptr) int {
	return int((size + wordSize - 1) / wordSize)
}

// Fits reports whether a value of the given size survives a single slot.
func Fits(size uintptr) bool {
	return Words(size) <= 1
}

// Word returns the handle as a raw slot word.
func (h Handle) Word() uintptr { return uintptr(h) }

// HandleFromWord rebuilds a handle from a slot word.
func HandleFromWord(w uintptr) Handle { return Handle(w) }
