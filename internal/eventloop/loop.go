// Package eventloop provides the cooperative event loop the build driver runs
// on. Callbacks may be enqueued from any goroutine but always execute
// serially, one at a time, on the goroutine that drains the loop.
package eventloop

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mattjoyce/accrete/internal/log"
)

// PanicHandler receives panics raised by callbacks posted through a Group.
type PanicHandler interface {
	HandlePanic(v any)
}

type callback struct {
	fn    func()
	group *Group
	gen   uint64
}

// Manager owns the callback queue. One goroutine drains it; any goroutine may
// enqueue.
type Manager struct {
	mu     sync.Mutex
	queue  []callback
	wake   chan struct{}
	logger *slog.Logger
}

// New creates an empty event loop.
func New() *Manager {
	return &Manager{
		wake:   make(chan struct{}, 1),
		logger: log.WithComponent("eventloop"),
	}
}

// RunAsynchronously schedules a one-shot callback. Panics from manager-level
// callbacks are recovered and logged; use a Group to route them to a handler.
func (m *Manager) RunAsynchronously(fn func()) {
	m.enqueue(callback{fn: fn})
}

// NewGroup creates a cancellable sub-scope whose callbacks route panics to
// handler.
func (m *Manager) NewGroup(handler PanicHandler) *Group {
	return &Group{manager: m, handler: handler}
}

func (m *Manager) enqueue(cb callback) {
	m.mu.Lock()
	m.queue = append(m.queue, cb)
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Manager) pop() (callback, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for len(m.queue) > 0 {
		cb := m.queue[0]
		m.queue = m.queue[1:]
		if cb.group != nil && cb.gen != cb.group.generation() {
			continue // cancelled
		}
		return cb, true
	}
	return callback{}, false
}

// RunUntilIdle drains the queue on the calling goroutine and returns the
// number of callbacks executed. Callbacks enqueued while draining are run too.
func (m *Manager) RunUntilIdle() int {
	ran := 0
	for {
		cb, ok := m.pop()
		if !ok {
			return ran
		}
		m.invoke(cb)
		ran++
	}
}

// DrainWhile drains callbacks until the queue is empty and busy reports
// false, or ctx is cancelled. It blocks waiting for new work while busy.
func (m *Manager) DrainWhile(ctx context.Context, busy func() bool) error {
	for {
		m.RunUntilIdle()
		if !busy() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.wake:
		}
	}
}

func (m *Manager) invoke(cb callback) {
	defer func() {
		if v := recover(); v != nil {
			if cb.group != nil && cb.group.handler != nil {
				cb.group.handler.HandlePanic(v)
				return
			}
			m.logger.Error("callback panicked", "panic", v)
		}
	}()
	cb.fn()
}

// Group is a cancellable callback scope bound to a panic handler.
type Group struct {
	manager *Manager
	handler PanicHandler

	mu  sync.Mutex
	gen uint64
}

// RunAsynchronously schedules a callback in this group. If the callback
// panics, the panic is routed to the group's handler.
func (g *Group) RunAsynchronously(fn func()) {
	g.manager.enqueue(callback{fn: fn, group: g, gen: g.generation()})
}

// CancelAll drops every pending callback registered through this group.
// Callbacks enqueued afterwards run normally.
func (g *Group) CancelAll() {
	g.mu.Lock()
	g.gen++
	g.mu.Unlock()
}

func (g *Group) generation() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gen
}
