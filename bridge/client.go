package bridge

import (
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/yaoapp/xbridge/abi"
)

// Client tracks the live registrations made against one Library and
// releases them in the right order on Close.
type Client struct {
	lib Library

	mu     sync.Mutex
	closed bool
	regs   map[string]*Registration // id -> registration
}

// New creates a Client for lib.
func New(lib Library) *Client {
	return &Client{
		lib:  lib,
		regs: make(map[string]*Registration),
	}
}

// Send fires a one-shot synchronous send.
func (c *Client) Send(dest string, payload []byte) error {
	if c.isClosed() {
		return ErrClosed
	}
	if err := c.lib.Send(dest, payload).Err(); err != nil {
		return fmt.Errorf("bridge: send %s: %w", dest, err)
	}
	return nil
}

// Post queues an asynchronous send, if the library supports it.
func (c *Client) Post(dest string, payload []byte) error {
	if c.isClosed() {
		return ErrClosed
	}
	p, ok := c.lib.(Poster)
	if !ok {
		return ErrUnsupported
	}
	if err := p.Post(dest, payload).Err(); err != nil {
		return fmt.Errorf("bridge: post %s: %w", dest, err)
	}
	return nil
}

// Register registers recv for dest and tracks the result.
func (c *Client) Register(dest string, recv abi.Receiver) (*Registration, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}

	r := NewRegistration(c.lib, dest, recv)
	if err := r.Register(); err != nil {
		_ = r.Release()
		return nil, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = r.Cancel()
		_ = r.Release()
		return nil, ErrClosed
	}
	c.regs[r.id] = r
	c.mu.Unlock()
	return r, nil
}

// Cancel cancels r and, once the library has let go of it, releases it.
func (c *Client) Cancel(r *Registration) error {
	err := r.Cancel()
	if r.State() == StateCancelled {
		if relErr := r.Release(); relErr != nil && err == nil {
			err = relErr
		}
	}
	c.forget(r)
	return err
}

// Scoped registers recv for dest, runs fn, then cancels and releases the
// registration whatever fn returns.
func (c *Client) Scoped(dest string, recv abi.Receiver, fn func(*Registration) error) (err error) {
	r, err := c.Register(dest, recv)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := c.Cancel(r); cerr != nil {
			err = multierror.Append(err, cerr).ErrorOrNil()
		}
	}()
	return fn(r)
}

// Active returns the number of tracked registrations.
func (c *Client) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.regs)
}

// Close cancels every tracked registration, shuts the library down, and
// releases all cells. Errors are collected, not short-circuited.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	regs := make([]*Registration, 0, len(c.regs))
	for _, r := range c.regs {
		regs = append(regs, r)
	}
	c.regs = make(map[string]*Registration)
	c.mu.Unlock()

	var result *multierror.Error
	for _, r := range regs {
		if err := r.Cancel(); err != nil {
			result = multierror.Append(result, err)
		}
	}

	c.lib.Shutdown()

	for _, r := range regs {
		r.Invalidate()
		if err := r.Release(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	rlog.Info("client closed: released %d registrations", len(regs))
	return result.ErrorOrNil()
}

func (c *Client) forget(r *Registration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.regs, r.id)
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
