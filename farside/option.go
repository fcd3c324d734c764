package farside

import (
	"fmt"
	"strings"

	"github.com/yaoapp/xbridge/abi"
	"github.com/yaoapp/xbridge/config"
)

// DuplicatePolicy decides what Register does with a destination that already
// has an active context.
type DuplicatePolicy int

const (
	// DuplicateAllow keeps every registration; Send fans out in registration order.
	DuplicateAllow DuplicatePolicy = iota
	// DuplicateReject refuses a second registration with NullContext.
	DuplicateReject
)

func (p DuplicatePolicy) String() string {
	if p == DuplicateReject {
		return "reject"
	}
	return "allow"
}

// ParseDuplicatePolicy accepts "allow" or "reject".
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch strings.ToLower(s) {
	case "", "allow":
		return DuplicateAllow, nil
	case "reject":
		return DuplicateReject, nil
	}
	return DuplicateAllow, fmt.Errorf("farside: unknown duplicate policy %q", s)
}

// Option configures a Library.
type Option func(*options)

type options struct {
	patterns   []string
	duplicates DuplicatePolicy
	maxWorkers int
	queueSize  int
	layout     abi.Layout
}

func defaultOptions() options {
	return options{
		duplicates: DuplicateAllow,
		maxWorkers: config.DefaultMaxWorkers,
		queueSize:  config.DefaultQueueSize,
		layout:     abi.CurrentLayout(),
	}
}

// Destinations restricts which destinations resolve.
//   - "*" matches everything
//   - "foo.*" matches any destination starting with "foo."
//   - "foo" matches exactly "foo"
//
// With no patterns every well-formed destination resolves.
func Destinations(patterns ...string) Option {
	return func(o *options) {
		o.patterns = append(o.patterns, patterns...)
	}
}

// Duplicates sets the duplicate registration policy. Default is DuplicateAllow.
func Duplicates(p DuplicatePolicy) Option {
	return func(o *options) {
		o.duplicates = p
	}
}

// MaxWorkers sets the max concurrent Post deliveries across destinations.
func MaxWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxWorkers = n
		}
	}
}

// QueueSize sets the per-destination Post queue capacity.
// When a queue is full, Post returns StatusQueueFull immediately.
func QueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// ExpectLayout sets the record layout the library was built against.
// New fails if it differs from the caller's abi.CurrentLayout.
func ExpectLayout(l abi.Layout) Option {
	return func(o *options) {
		o.layout = l
	}
}

// WithConfig maps a loaded configuration onto library options.
func WithConfig(c config.Config) Option {
	return func(o *options) {
		o.patterns = append(o.patterns, c.Destinations...)
		if p, err := ParseDuplicatePolicy(c.Duplicates); err == nil {
			o.duplicates = p
		}
		MaxWorkers(c.MaxWorkers)(o)
		QueueSize(c.QueueSize)(o)
	}
}
