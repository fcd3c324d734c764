package farside

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yaoapp/xbridge/abi"
	"github.com/yaoapp/xbridge/logger"
)

func TestMatchPattern(t *testing.T) {
	assert.True(t, matchPattern("*", "anything"))
	assert.True(t, matchPattern("events.*", "events.login"))
	assert.False(t, matchPattern("events.*", "eventsx"))
	assert.True(t, matchPattern("topic-a", "topic-a"))
	assert.False(t, matchPattern("topic-a", "topic-ab"))
}

func TestResolver(t *testing.T) {
	open := resolver{}
	assert.True(t, open.resolve("x"))
	assert.False(t, open.resolve(""))
	assert.False(t, open.resolve("a\x00"))

	closed := resolver{patterns: []string{"events.*"}}
	assert.True(t, closed.resolve("events.a"))
	assert.False(t, closed.resolve("topic-a"))
}

func TestQueue_ReleasedWhenLastContextCancelled(t *testing.T) {
	lib, err := New()
	require.NoError(t, err)
	defer lib.Shutdown()

	tr := func(abi.Handle, string, *byte, uintptr) {}
	cell := abi.Wrap(nopReceiver{})
	ctx := lib.Register("topic-a", abi.Build(tr, cell))
	require.True(t, ctx.Valid())

	require.Equal(t, abi.StatusOK, lib.Post("topic-a", []byte("x")))
	assert.Equal(t, 1, lib.queues.count())

	require.Equal(t, abi.StatusOK, lib.Cancel("topic-a", ctx))
	assert.Equal(t, 0, lib.queues.count())
	require.Eventually(t, func() bool { return lib.Stats().Dispatched+lib.Stats().Dropped == 1 }, time.Second, time.Millisecond)
	cell.Delete()
}

func TestWorkerPool_RecoversPanic(t *testing.T) {
	lib, err := New(MaxWorkers(1))
	require.NoError(t, err)
	defer lib.Shutdown()

	done, ok := lib.pool.run("topic-a", func() { panic("boom") })
	require.True(t, ok)
	<-done
	ran := false
	done, ok = lib.pool.run("topic-a", func() { ran = true })
	require.True(t, ok)
	<-done
	assert.True(t, ran)
}

func TestWorkerPool_InvalidHandleIsFatal(t *testing.T) {
	assert.True(t, fatal(abi.ErrInvalidHandle))
	assert.True(t, fatal(fmt.Errorf("deliver: %w", abi.ErrInvalidHandle)))
	assert.False(t, fatal("boom"))
	assert.False(t, fatal(errors.New("boom")))

	pool := newWorkerPool(1, logger.New("test"))
	assert.PanicsWithValue(t, abi.ErrInvalidHandle, func() {
		defer pool.recoverPanic("topic-a")
		abi.Handle(0).Cell()
	})
	assert.NotPanics(t, func() {
		defer pool.recoverPanic("topic-a")
		panic("boom")
	})
}

func TestWorkerPool_RefusesAfterClose(t *testing.T) {
	pool := newWorkerPool(2, logger.New("test"))
	pool.close()

	ran := false
	done, ok := pool.run("topic-a", func() { ran = true })
	assert.False(t, ok)
	<-done
	assert.False(t, ran)
}

func TestShutdown_AbortsDrainingQueue(t *testing.T) {
	lib, err := New(MaxWorkers(1), QueueSize(64))
	require.NoError(t, err)

	entered := make(chan struct{}, 1)
	gate := make(chan struct{})
	var delivered atomic.Int64
	tr := func(abi.Handle, string, *byte, uintptr) {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-gate
		delivered.Add(1)
	}
	cell := abi.Wrap(nopReceiver{})
	ctx := lib.Register("topic-a", abi.Build(tr, cell))
	require.True(t, ctx.Valid())

	for i := 0; i < 10; i++ {
		require.Equal(t, abi.StatusOK, lib.Post("topic-a", []byte("x")))
	}
	// The first delivery holds the consumer while Cancel releases the queue
	// with the rest of the backlog still in it.
	<-entered
	cancelled := make(chan abi.Status)
	go func() { cancelled <- lib.Cancel("topic-a", ctx) }()
	require.Eventually(t, func() bool { return lib.Stats().Active == 0 }, time.Second, time.Millisecond)
	close(gate)
	require.Equal(t, abi.StatusOK, <-cancelled)

	lib.Shutdown()
	assert.Equal(t, 0, lib.queues.drainingCount())
	assert.Equal(t, int64(10), lib.Stats().Dispatched+lib.Stats().Dropped)
	assert.Equal(t, int64(1), delivered.Load())
	cell.Delete()
}

type nopReceiver struct{}

func (nopReceiver) OnSend(string, []byte) {}
