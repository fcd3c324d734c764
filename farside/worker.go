package farside

import (
	"errors"
	"sync"

	"github.com/yaoapp/xbridge/abi"
	"github.com/yaoapp/xbridge/logger"
)

// workerPool bounds the number of concurrent Post deliveries.
// Workers are fire-and-forget: each goroutine runs one delivery then exits.
type workerPool struct {
	sem chan struct{}
	wg  sync.WaitGroup
	log *logger.Logger

	mu     sync.Mutex
	closed bool
}

func newWorkerPool(maxWorkers int, log *logger.Logger) *workerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &workerPool{
		sem: make(chan struct{}, maxWorkers),
		log: log,
	}
}

// run executes fn in a new goroutine once a slot is free.
// The returned channel is closed when fn returns. ok is false when the pool
// was closed; fn is not run and the channel is already closed.
func (wp *workerPool) run(dest string, fn func()) (done <-chan struct{}, ok bool) {
	wp.sem <- struct{}{}

	// wg.Add happens under mu so it can never race with close's Wait.
	wp.mu.Lock()
	if wp.closed {
		wp.mu.Unlock()
		<-wp.sem
		ch := make(chan struct{})
		close(ch)
		return ch, false
	}
	wp.wg.Add(1)
	wp.mu.Unlock()

	ch := make(chan struct{})
	go func() {
		defer close(ch)
		defer wp.wg.Done()
		defer func() { <-wp.sem }()
		defer wp.recoverPanic(dest)
		fn()
	}()
	return ch, true
}

// recoverPanic contains receiver panics. An invalid cell handle means the
// library called back after Cancel returned; that is re-raised, as on the
// synchronous Send path.
func (wp *workerPool) recoverPanic(dest string) {
	r := recover()
	if r == nil {
		return
	}
	if fatal(r) {
		panic(r)
	}
	wp.log.Error("delivery panic: dest=%s err=%v", dest, r)
}

func fatal(r any) bool {
	err, ok := r.(error)
	return ok && errors.Is(err, abi.ErrInvalidHandle)
}

// close refuses further work and blocks until active workers finish.
// Used during Shutdown.
func (wp *workerPool) close() {
	wp.mu.Lock()
	wp.closed = true
	wp.mu.Unlock()
	wp.wg.Wait()
}
