// Package cancel provides a propagatable cancellation token.
//
// A Token is a monotonic Active -> Cancelled signal with an optional deadline
// and explicit Cancel action. Tokens form a tree: cancelling a parent cancels
// every derived child, while cancelling a child never affects its parent or
// siblings.
//
// Token implements context.Context, so it can be handed directly to any
// ctx-aware API (rate limiter acquisition, pool submission, pipeline stages)
// while still exposing the explicit Cancel/IsDone/Wait surface.
package cancel

import (
	"context"
	"sync"
	"time"
)

// Token is a shared cancellation signal. The zero value is not usable;
// construct with New, WithDeadline, or WithTimeout.
//
// Once cancelled a Token is terminal: IsDone never reverts to false and the
// Done channel stays closed. A Token is never reused.
type Token struct {
	mu       sync.Mutex
	done     chan struct{}
	err      error
	deadline time.Time
	hasDL    bool
	timer    *time.Timer
	parent   *Token
	children []*Token
}

// New returns an active Token with no deadline.
func New() *Token {
	return &Token{done: make(chan struct{})}
}

// WithDeadline returns a child Token that auto-cancels at the given instant.
// A parent deadline earlier than at takes precedence, matching
// context.WithDeadline. A deadline that has already passed cancels the token
// synchronously before the constructor returns. parent may be nil for a root
// token.
func WithDeadline(parent *Token, at time.Time) *Token {
	if parent != nil {
		if pd, ok := parent.Deadline(); ok && pd.Before(at) {
			at = pd
		}
	}

	t := &Token{
		done:     make(chan struct{}),
		deadline: at,
		hasDL:    true,
	}

	if parent != nil {
		parent.adopt(t)
	}

	if t.IsDone() {
		return t
	}

	d := time.Until(at)
	if d <= 0 {
		t.cancel(context.DeadlineExceeded)
		return t
	}

	t.mu.Lock()
	if t.err == nil {
		t.timer = time.AfterFunc(d, func() {
			t.cancel(context.DeadlineExceeded)
		})
	}
	t.mu.Unlock()
	return t
}

// WithTimeout is shorthand for WithDeadline(parent, time.Now().Add(d)).
func WithTimeout(parent *Token, d time.Duration) *Token {
	return WithDeadline(parent, time.Now().Add(d))
}

// Child returns a derived Token without a deadline of its own. It is
// cancelled when either it or the parent is cancelled, and it reports the
// parent's deadline, matching context.WithCancel semantics.
func Child(parent *Token) *Token {
	t := &Token{done: make(chan struct{})}
	if parent != nil {
		if pd, ok := parent.Deadline(); ok {
			t.deadline = pd
			t.hasDL = true
		}
		parent.adopt(t)
	}
	return t
}

// Cancel cancels the token and every derived child. It is idempotent and safe
// to call from any number of concurrent callers.
func (t *Token) Cancel() {
	t.cancel(context.Canceled)
}

// IsDone reports whether the token has been cancelled or its deadline passed.
func (t *Token) IsDone() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the token is cancelled or its deadline elapses.
func (t *Token) Wait() {
	<-t.done
}

// Done returns a channel closed once the token is cancelled.
func (t *Token) Done() <-chan struct{} {
	return t.done
}

// Err returns nil while the token is active, context.Canceled after an
// explicit Cancel, or context.DeadlineExceeded after a deadline expiry.
func (t *Token) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Deadline reports the token's deadline, if one was set.
func (t *Token) Deadline() (time.Time, bool) {
	return t.deadline, t.hasDL
}

// Value implements context.Context. Tokens carry no values.
func (t *Token) Value(key any) any {
	return nil
}

func (t *Token) cancel(err error) {
	t.mu.Lock()
	if t.err != nil {
		t.mu.Unlock()
		return
	}
	t.err = err
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	children := t.children
	t.children = nil
	parent := t.parent
	t.parent = nil
	close(t.done)
	t.mu.Unlock()

	for _, c := range children {
		c.cancel(err)
	}

	// Detach so a long-lived parent does not accumulate dead children.
	if parent != nil {
		parent.forget(t)
	}
}

// forget removes a cancelled child from the children slice. A no-op when the
// parent itself initiated the cancellation, as it has already cleared the
// slice.
func (t *Token) forget(child *Token) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, c := range t.children {
		if c == child {
			last := len(t.children) - 1
			t.children[i] = t.children[last]
			t.children[last] = nil
			t.children = t.children[:last]
			return
		}
	}
}

// adopt registers a child so parent cancellation propagates to it.
// A child adopted by an already-cancelled parent is cancelled immediately.
func (t *Token) adopt(child *Token) {
	t.mu.Lock()
	if t.err != nil {
		err := t.err
		t.mu.Unlock()
		child.cancel(err)
		return
	}
	child.parent = t
	t.children = append(t.children, child)
	t.mu.Unlock()
}

var _ context.Context = (*Token)(nil)
