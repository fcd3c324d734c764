package farside

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/yaoapp/xbridge/abi"
)

// Contexts are never reused, across libraries too.
var ctxCounter atomic.Uintptr

// handler is the far side's view of one registration: the record it was
// given and whether the context is still active.
type handler struct {
	ctx  abi.Context
	dest string
	rec  *abi.Record

	// Dispatch holds the read lock, cancel takes the write lock, so cancel
	// returns only after in-flight dispatches for this context are done.
	mu        sync.RWMutex
	cancelled bool
}

// onSend invokes the record's trampoline. Returns false if the context
// was cancelled.
func (h *handler) onSend(dest string, payload []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.cancelled {
		return false
	}
	h.rec.Trampoline(h.rec.Cell, dest, unsafe.SliceData(payload), uintptr(len(payload)))
	return true
}

func (h *handler) cancel() {
	h.mu.Lock()
	h.cancelled = true
	h.mu.Unlock()
}

// Register stores rec for dest and returns the context tied to it.
// rec must stay valid until Cancel (or Shutdown) returns for that context.
// NullContext is returned when the library is shut down, rec is incomplete,
// dest does not resolve, or the duplicate policy rejects it.
func (l *Library) Register(dest string, rec *abi.Record) abi.Context {
	if !rec.Complete() {
		l.log.Warn("register: incomplete record for dest=%s", dest)
		l.stats.rejected.Add(1)
		return abi.NullContext
	}
	if !l.resolver.resolve(dest) {
		l.log.Warn("register: unresolvable dest=%q", dest)
		l.stats.rejected.Add(1)
		return abi.NullContext
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		l.stats.rejected.Add(1)
		return abi.NullContext
	}
	if l.opts.duplicates == DuplicateReject && len(l.routes[dest]) > 0 {
		l.log.Warn("register: dest=%s already registered (policy=%s)", dest, l.opts.duplicates)
		l.stats.rejected.Add(1)
		return abi.NullContext
	}

	h := &handler{
		ctx:  abi.Context(ctxCounter.Add(1)),
		dest: dest,
		rec:  rec,
	}
	l.handlers[h.ctx] = h
	l.routes[dest] = append(l.routes[dest], h)
	l.stats.registered.Add(1)
	l.log.Debug("register: dest=%s %s", dest, h.ctx)
	return h.ctx
}

// Cancel invalidates ctx. When it returns StatusOK the trampoline of the
// associated record will not be called again and the caller may release
// the record and its cell. Unknown, already cancelled, or mismatched
// (dest, ctx) pairs return StatusInvalidContext.
//
// Cancel must not be called from inside a dispatch of the same context.
func (l *Library) Cancel(dest string, ctx abi.Context) abi.Status {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return abi.StatusShutdown
	}
	h, ok := l.handlers[ctx]
	if !ok || h.dest != dest {
		l.mu.Unlock()
		l.log.Debug("cancel: invalid dest=%s %s", dest, ctx)
		return abi.StatusInvalidContext
	}
	delete(l.handlers, ctx)
	l.routes[dest] = removeHandler(l.routes[dest], h)
	empty := len(l.routes[dest]) == 0
	if empty {
		delete(l.routes, dest)
	}
	l.mu.Unlock()

	h.cancel()
	if empty {
		l.queues.release(dest)
	}
	l.stats.cancelled.Add(1)
	l.log.Debug("cancel: dest=%s %s", dest, ctx)
	return abi.StatusOK
}

func removeHandler(list []*handler, h *handler) []*handler {
	out := list[:0:0]
	for _, x := range list {
		if x != h {
			out = append(out, x)
		}
	}
	return out
}

// targets snapshots the active handlers of dest.
func (l *Library) targets(dest string) ([]*handler, abi.Status) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, abi.StatusShutdown
	}
	list := l.routes[dest]
	if len(list) == 0 {
		return nil, abi.StatusNoRoute
	}
	cp := make([]*handler, len(list))
	copy(cp, list)
	return cp, abi.StatusOK
}
