// Package osascript is the process execution layer: the only code in the
// bridge that spawns a subprocess.
package osascript

import (
	"context"
	"time"
)

// Class selects the default timeout of a request.
type Class int

const (
	// ClassItem covers single-item reads and every mutation.
	ClassItem Class = iota
	// ClassCollection covers full-collection reads.
	ClassCollection
)

func (c Class) String() string {
	if c == ClassCollection {
		return "collection"
	}
	return "item"
}

// Request is one script execution.
type Request struct {
	// Label names the operation in logs, e.g. "tasks.update".
	Label  string
	Script string
	Class  Class
	// Timeout overrides the class default when positive. It is clamped to
	// the policy maximum.
	Timeout time.Duration
}

// Runner executes generated scripts. Client is the production
// implementation; tests substitute fakes.
type Runner interface {
	Run(ctx context.Context, request Request) (string, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, request Request) (string, error)

func (f RunnerFunc) Run(ctx context.Context, request Request) (string, error) {
	return f(ctx, request)
}

const (
	DefaultItemTimeout       = 60 * time.Second
	DefaultCollectionTimeout = 120 * time.Second
	DefaultMaxTimeout        = 300 * time.Second
)

// TimeoutPolicy holds per-class defaults and the hard ceiling.
type TimeoutPolicy struct {
	Item       time.Duration
	Collection time.Duration
	Max        time.Duration
}

func DefaultTimeoutPolicy() TimeoutPolicy {
	return TimeoutPolicy{
		Item:       DefaultItemTimeout,
		Collection: DefaultCollectionTimeout,
		Max:        DefaultMaxTimeout,
	}
}

// Resolve returns the effective timeout for a request of class with the
// caller override applied and capped at Max.
func (p TimeoutPolicy) Resolve(class Class, override time.Duration) time.Duration {
	defaults := DefaultTimeoutPolicy()
	if p.Item <= 0 {
		p.Item = defaults.Item
	}
	if p.Collection <= 0 {
		p.Collection = defaults.Collection
	}
	if p.Max <= 0 {
		p.Max = defaults.Max
	}

	timeout := p.Item
	if class == ClassCollection {
		timeout = p.Collection
	}
	if override > 0 {
		timeout = override
	}
	if timeout > p.Max {
		timeout = p.Max
	}
	return timeout
}
