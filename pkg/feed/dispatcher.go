// Package feed delivers DOM change notifications to handlers one at a time, in order.
package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/net/html"

	"github.com/bastiangx/birdserve/internal/logger"
)

// Change reports a subtree that was added to or replaced in the document.
type Change struct {
	Root *html.Node
	At   time.Time
}

// Handler reacts to one change. Returned errors are logged.
type Handler func(Change) error

type subscription struct {
	name    string
	handler Handler
}

// Dispatcher is an ordered change queue. Each change is delivered to every handler,
// in subscription order, before the next one is dequeued.
type Dispatcher struct {
	mu       sync.Mutex
	subs     []subscription
	queue    []Change
	draining bool
	notify   chan struct{}
	log      *log.Logger
}

// NewDispatcher returns an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		notify: make(chan struct{}, 1),
		log:    logger.New("feed"),
	}
}

// Subscribe appends a named handler.
func (d *Dispatcher) Subscribe(name string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs = append(d.subs, subscription{name: name, handler: h})
}

// Publish enqueues a change. Changes with a nil root are dropped.
func (d *Dispatcher) Publish(c Change) {
	if c.Root == nil {
		return
	}
	if c.At.IsZero() {
		c.At = time.Now()
	}
	d.mu.Lock()
	d.queue = append(d.queue, c)
	d.mu.Unlock()

	select {
	case d.notify <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued changes.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Drain delivers queued changes until the queue is empty and returns how many were
// delivered. Changes published by a handler are delivered by the same drain; a nested
// call returns 0 immediately.
func (d *Dispatcher) Drain() int {
	d.mu.Lock()
	if d.draining {
		d.mu.Unlock()
		return 0
	}
	d.draining = true
	d.mu.Unlock()

	delivered := 0
	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			d.draining = false
			d.mu.Unlock()
			return delivered
		}
		c := d.queue[0]
		d.queue[0] = Change{}
		d.queue = d.queue[1:]
		subs := d.subs
		d.mu.Unlock()

		for _, s := range subs {
			d.deliver(s, c)
		}
		delivered++
	}
}

func (d *Dispatcher) deliver(s subscription, c Change) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("handler panicked", "handler", s.name, "panic", r)
		}
	}()
	if err := s.handler(c); err != nil {
		d.log.Warn("handler failed", "handler", s.name, "err", err)
	}
}

// Run drains the queue whenever a change is published until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("feed: %w", ctx.Err())
		case <-d.notify:
			d.Drain()
		}
	}
}
