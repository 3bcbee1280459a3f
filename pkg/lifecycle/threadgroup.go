// Package lifecycle provides ThreadGroup, a wait-group with an attached stop
// signal: goroutines register with Add/Done the way they would with
// sync.WaitGroup, but can also select on StopChan() to unwind early, and
// Stop() runs registered cleanup callbacks before waiting for everyone to
// finish. Every long-lived subsystem in the fabric (peer service listener,
// gossip timers, health checker, keep-alive) is given its own ThreadGroup so
// that Close/Stop drains it deterministically instead of leaking goroutines.
package lifecycle

import (
	"errors"
	"sync"
)

// ErrStopped is returned by Add and Stop once the ThreadGroup has already
// been stopped.
var ErrStopped = errors.New("thread group already stopped")

// ThreadGroup tracks a set of goroutines and a one-shot stop signal. The
// zero value is ready to use.
type ThreadGroup struct {
	once     sync.Once
	stopChan chan struct{}

	onStopFns    []func()
	afterStopFns []func()

	mu       sync.Mutex
	wg       sync.WaitGroup
	stopped  bool
}

func (tg *ThreadGroup) init() {
	tg.once.Do(func() {
		tg.stopChan = make(chan struct{})
	})
}

// StopChan returns a channel that is closed when Stop is called.
func (tg *ThreadGroup) StopChan() <-chan struct{} {
	tg.init()
	return tg.stopChan
}

// isStopped reports whether Stop has been called.
func (tg *ThreadGroup) isStopped() bool {
	tg.mu.Lock()
	defer tg.mu.Unlock()
	return tg.stopped
}

// Add registers a new goroutine with the group. Every successful Add must be
// matched by exactly one Done. Add fails with ErrStopped once Stop has been
// called, so that new work is rejected during shutdown.
func (tg *ThreadGroup) Add() error {
	tg.init()
	tg.mu.Lock()
	defer tg.mu.Unlock()
	if tg.stopped {
		return ErrStopped
	}
	tg.wg.Add(1)
	return nil
}

// Done marks a goroutine registered via Add as finished.
func (tg *ThreadGroup) Done() {
	tg.wg.Done()
}

// OnStop queues fn to run when Stop is called, before Stop waits for
// in-flight goroutines to finish. Functions run in LIFO order. If the group
// is already stopped, fn runs immediately.
func (tg *ThreadGroup) OnStop(fn func()) {
	tg.init()
	tg.mu.Lock()
	if tg.stopped {
		tg.mu.Unlock()
		fn()
		return
	}
	tg.onStopFns = append(tg.onStopFns, fn)
	tg.mu.Unlock()
}

// AfterStop queues fn to run after Stop has waited for every registered
// goroutine to finish. Functions run in LIFO order. If the group is already
// stopped, fn runs immediately.
func (tg *ThreadGroup) AfterStop(fn func()) {
	tg.init()
	tg.mu.Lock()
	if tg.stopped {
		tg.mu.Unlock()
		fn()
		return
	}
	tg.afterStopFns = append(tg.afterStopFns, fn)
	tg.mu.Unlock()
}

// Stop closes StopChan, runs the OnStop callbacks (LIFO), waits for every
// outstanding Add/Done pair to resolve, then runs the AfterStop callbacks
// (LIFO). Stop is idempotent: subsequent calls return ErrStopped.
func (tg *ThreadGroup) Stop() error {
	tg.init()
	tg.mu.Lock()
	if tg.stopped {
		tg.mu.Unlock()
		return ErrStopped
	}
	tg.stopped = true
	close(tg.stopChan)
	onStop := tg.onStopFns
	afterStop := tg.afterStopFns
	tg.onStopFns = nil
	tg.afterStopFns = nil
	tg.mu.Unlock()

	for i := len(onStop) - 1; i >= 0; i-- {
		onStop[i]()
	}
	tg.wg.Wait()
	for i := len(afterStop) - 1; i >= 0; i-- {
		afterStop[i]()
	}
	return nil
}

// Flush waits for every currently outstanding Add/Done pair to resolve
// without stopping the group, so callers can drain in-flight work between
// configuration changes.
func (tg *ThreadGroup) Flush() {
	tg.wg.Wait()
}
