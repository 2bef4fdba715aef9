// Package debounce schedules cancellable delayed tasks keyed by name. Scheduling
// a key again cancels the pending task for that key.
package debounce

import (
	"sync"
	"time"
)

// Group holds at most one pending task per key.
type Group struct {
	mu      sync.Mutex
	timers  map[string]*entry
	stopped bool
	wg      sync.WaitGroup
}

type entry struct {
	timer *time.Timer
	fn    func()
}

// NewGroup returns an empty Group.
func NewGroup() *Group {
	return &Group{timers: make(map[string]*entry)}
}

// Schedule runs fn after delay unless key is scheduled again, cancelled, or the
// group is stopped first. A non-positive delay runs fn synchronously.
func (g *Group) Schedule(key string, delay time.Duration, fn func()) {
	g.mu.Lock()
	if g.stopped {
		g.mu.Unlock()
		return
	}
	g.cancelLocked(key)
	if delay <= 0 {
		g.mu.Unlock()
		fn()
		return
	}
	e := &entry{fn: fn}
	g.wg.Add(1)
	e.timer = time.AfterFunc(delay, func() {
		defer g.wg.Done()
		g.mu.Lock()
		current, ok := g.timers[key]
		if !ok || current != e || g.stopped {
			g.mu.Unlock()
			return
		}
		delete(g.timers, key)
		g.mu.Unlock()
		fn()
	})
	g.timers[key] = e
	g.mu.Unlock()
}

// Cancel drops the pending task for key, if any.
func (g *Group) Cancel(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelLocked(key)
}

// Trigger runs the pending task for key now instead of after its delay, on the
// calling goroutine. It reports whether a task was pending.
func (g *Group) Trigger(key string) bool {
	g.mu.Lock()
	e, ok := g.timers[key]
	if !ok {
		g.mu.Unlock()
		return false
	}
	g.cancelLocked(key)
	g.mu.Unlock()
	e.fn()
	return true
}

// Pending reports whether key has a task waiting to run.
func (g *Group) Pending(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.timers[key]
	return ok
}

// Flush blocks until every scheduled task has either run or been cancelled.
func (g *Group) Flush() {
	g.wg.Wait()
}

// Stop cancels every pending task; later Schedule calls are ignored.
func (g *Group) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopped = true
	for key := range g.timers {
		g.cancelLocked(key)
	}
}

func (g *Group) cancelLocked(key string) {
	e, ok := g.timers[key]
	if !ok {
		return
	}
	if e.timer.Stop() {
		g.wg.Done()
	}
	delete(g.timers, key)
}
