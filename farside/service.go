// Package farside is the library on the far side of the callback boundary.
//
// It stores registration records, hands out Context tokens and calls the
// record's trampoline with the record's cell handle. It never looks inside
// the cell.
package farside

import (
	"sync"
	"sync/atomic"

	"github.com/yaoapp/xbridge/abi"
	"github.com/yaoapp/xbridge/logger"
)

// Library is one loaded instance of the far side.
type Library struct {
	mu       sync.RWMutex
	closed   bool
	opts     options
	resolver resolver
	handlers map[abi.Context]*handler // ctx -> registration
	routes   map[string][]*handler    // dest -> registrations, in registration order
	queues   *queueManager
	pool     *workerPool
	stats    counters
	log      *logger.Logger
}

type counters struct {
	registered atomic.Int64
	rejected   atomic.Int64
	cancelled  atomic.Int64
	dispatched atomic.Int64
	posted     atomic.Int64
	dropped    atomic.Int64
}

// Stats is a snapshot of library counters.
type Stats struct {
	Active     int   `json:"active"`
	Registered int64 `json:"registered"`
	Rejected   int64 `json:"rejected"`
	Cancelled  int64 `json:"cancelled"`
	Dispatched int64 `json:"dispatched"`
	Posted     int64 `json:"posted"`
	Dropped    int64 `json:"dropped"`
	Closed     bool  `json:"closed"`
}

// New creates a Library. It fails with abi.ErrLayoutMismatch when the
// record layout it expects differs from the caller's.
func New(opts ...Option) (*Library, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := abi.CurrentLayout().Compatible(o.layout); err != nil {
		return nil, err
	}

	l := &Library{
		opts:     o,
		resolver: resolver{patterns: o.patterns},
		handlers: make(map[abi.Context]*handler),
		routes:   make(map[string][]*handler),
		log:      logger.New("farside"),
	}
	l.pool = newWorkerPool(o.maxWorkers, l.log)
	l.queues = newQueueManager(o.queueSize, l.pool, &l.stats.dropped)
	return l, nil
}

// Shutdown invalidates the whole library. Pending posts are discarded,
// in-flight deliveries are waited for, and every context becomes invalid.
// Every later call returns StatusShutdown or NullContext.
//
// Shutdown must not be called from inside a dispatch.
func (l *Library) Shutdown() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	handlers := make([]*handler, 0, len(l.handlers))
	for _, h := range l.handlers {
		handlers = append(handlers, h)
	}
	l.handlers = make(map[abi.Context]*handler)
	l.routes = make(map[string][]*handler)
	l.mu.Unlock()

	l.queues.abortAll()
	l.pool.close()

	for _, h := range handlers {
		h.cancel()
	}
	l.log.Info("shutdown: invalidated %d contexts", len(handlers))
}

// Closed reports whether Shutdown has been called.
func (l *Library) Closed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.closed
}

// Stats returns a snapshot of the library counters.
func (l *Library) Stats() Stats {
	l.mu.RLock()
	active := len(l.handlers)
	closed := l.closed
	l.mu.RUnlock()

	return Stats{
		Active:     active,
		Registered: l.stats.registered.Load(),
		Rejected:   l.stats.rejected.Load(),
		Cancelled:  l.stats.cancelled.Load(),
		Dispatched: l.stats.dispatched.Load(),
		Posted:     l.stats.posted.Load(),
		Dropped:    l.stats.dropped.Load(),
		Closed:     closed,
	}
}
