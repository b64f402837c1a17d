// Package async implements a simple Promise API.
package async

import (
	"time"
)

// Promise is a simple notification primitive for asynchronous events,
// such as the completion of a buffer flush or drain.
type Promise chan struct{}

// New returns an unresolved Promise.
func New() Promise { return make(Promise) }

// Resolved returns a Promise which has already been resolved.
func Resolved() Promise {
	var p = make(Promise)
	p.Resolve()
	return p
}

// Resolve wakes any clients currently waiting on the Promise.
func (p Promise) Resolve() {
	close(p)
}

// Wait synchronously blocks until the Promise is resolved.
func (p Promise) Wait() {
	<-p
}

// WaitWithTimeout blocks until the Promise is resolved or |timeout| elapses,
// and returns whether the Promise resolved.
func (p Promise) WaitWithTimeout(timeout time.Duration) bool {
	var timer = time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-p:
		return true
	case <-timer.C:
		return false
	}
}
