package farside

import (
	"sync"
	"sync/atomic"

	"github.com/yaoapp/xbridge/abi"
)

type deliverFunc func(dest string, payload []byte)

// queueItem is one posted payload waiting for delivery.
type queueItem struct {
	payload []byte
	deliver deliverFunc
}

// destQueue is a FIFO bound to a single destination.
// Items are consumed serially by a dedicated goroutine.
type destQueue struct {
	dest     string
	ch       chan queueItem
	released bool
	aborted  bool
	mu       sync.Mutex
	done     chan struct{} // closed when consumer goroutine exits
}

// enqueue adds an item. The send to q.ch happens under q.mu so release/abort
// cannot close the channel between the flag check and the send.
func (q *destQueue) enqueue(item queueItem) abi.Status {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.released || q.aborted {
		return abi.StatusShutdown
	}

	select {
	case q.ch <- item:
		return abi.StatusOK
	default:
		return abi.StatusQueueFull
	}
}

// release stops accepting items and lets the consumer drain what is left.
func (q *destQueue) release() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.released || q.aborted {
		return
	}
	q.released = true
	close(q.ch)
}

// abort stops accepting items and discards pending ones.
func (q *destQueue) abort() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.aborted {
		return
	}
	wasReleased := q.released
	q.aborted = true
	q.released = true
	if !wasReleased {
		close(q.ch)
	}
}

func (q *destQueue) consumer(pool *workerPool, dropped *atomic.Int64) {
	defer close(q.done)
	for item := range q.ch {
		q.mu.Lock()
		aborted := q.aborted
		q.mu.Unlock()
		if aborted {
			dropped.Add(1)
			continue
		}

		item := item
		done, ok := pool.run(q.dest, func() { item.deliver(q.dest, item.payload) })
		if !ok {
			dropped.Add(1)
			continue
		}
		<-done
	}
}

// queueManager owns one queue per destination, created on first Post.
// Released queues stay tracked in draining until their consumer exits, so
// abortAll can stop and wait for them too.
type queueManager struct {
	mu       sync.Mutex
	queues   map[string]*destQueue
	draining map[*destQueue]struct{}
	size     int
	pool     *workerPool
	dropped  *atomic.Int64
}

func newQueueManager(size int, pool *workerPool, dropped *atomic.Int64) *queueManager {
	return &queueManager{
		queues:   make(map[string]*destQueue),
		draining: make(map[*destQueue]struct{}),
		size:     size,
		pool:     pool,
		dropped:  dropped,
	}
}

// enqueue appends payload to the queue of dest, creating it if needed.
// qm.mu is held across the queue lookup and the send so a concurrent
// release never closes the queue in between.
func (qm *queueManager) enqueue(dest string, payload []byte, fn deliverFunc) abi.Status {
	qm.mu.Lock()
	defer qm.mu.Unlock()

	if qm.queues == nil {
		return abi.StatusShutdown
	}
	q, ok := qm.queues[dest]
	if !ok {
		q = &destQueue{
			dest: dest,
			ch:   make(chan queueItem, qm.size),
			done: make(chan struct{}),
		}
		qm.queues[dest] = q
		go q.consumer(qm.pool, qm.dropped)
	}
	return q.enqueue(queueItem{payload: payload, deliver: fn})
}

// release gracefully retires the queue of dest, if any.
func (qm *queueManager) release(dest string) {
	qm.mu.Lock()
	q, ok := qm.queues[dest]
	if ok {
		delete(qm.queues, dest)
		qm.draining[q] = struct{}{}
	}
	qm.mu.Unlock()

	if !ok {
		return
	}
	q.release()
	go func() {
		<-q.done
		qm.mu.Lock()
		delete(qm.draining, q)
		qm.mu.Unlock()
	}()
}

// abortAll discards every pending item, including those of queues still
// draining after release, and waits for all consumers to exit.
// No queue can be created afterwards.
func (qm *queueManager) abortAll() {
	qm.mu.Lock()
	queues := make([]*destQueue, 0, len(qm.queues)+len(qm.draining))
	for _, q := range qm.queues {
		queues = append(queues, q)
	}
	for q := range qm.draining {
		queues = append(queues, q)
	}
	qm.queues = nil
	qm.mu.Unlock()

	for _, q := range queues {
		q.abort()
	}
	for _, q := range queues {
		<-q.done
	}

	qm.mu.Lock()
	for _, q := range queues {
		delete(qm.draining, q)
	}
	qm.mu.Unlock()
}

// count returns the number of live queues.
func (qm *queueManager) count() int {
	qm.mu.Lock()
	defer qm.mu.Unlock()
	return len(qm.queues)
}

// drainingCount returns the number of released queues whose consumer is
// still running.
func (qm *queueManager) drainingCount() int {
	qm.mu.Lock()
	defer qm.mu.Unlock()
	return len(qm.draining)
}
