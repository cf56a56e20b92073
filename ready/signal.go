// Package ready provides a one-shot readiness signal that producer modules settle once
// their resources exist, and that dependents wait on instead of polling.
package ready

import (
	"context"
	"errors"
	"sync"

	"github.com/josephniet/audiovis/errs"
)

// State is the lifecycle of a Signal. Resolved and Rejected are terminal.
type State int

const (
	Pending State = iota
	Resolved
	Rejected
)

func (s State) String() string {
	switch s {
	case Resolved:
		return "resolved"
	case Rejected:
		return "rejected"
	default:
		return "pending"
	}
}

// ErrRejected is reported when a signal is rejected with a nil reason.
var ErrRejected = errors.New("ready: rejected")

// Signal settles at most once, to a value or to an error.
type Signal[T any] struct {
	mu    sync.Mutex
	state State
	value T
	err   error
	done  chan struct{}
	conts []func(T, error)
}

// New returns a pending Signal.
func New[T any]() *Signal[T] {
	return &Signal[T]{done: make(chan struct{})}
}

// Resolve settles the signal with v. It returns false if the signal was already settled.
func (s *Signal[T]) Resolve(v T) bool {
	return s.settle(Resolved, v, nil)
}

// Reject settles the signal with reason. It returns false if the signal was already settled.
func (s *Signal[T]) Reject(reason error) bool {
	if reason == nil {
		reason = ErrRejected
	}
	var zero T
	return s.settle(Rejected, zero, reason)
}

func (s *Signal[T]) settle(state State, v T, err error) bool {
	s.mu.Lock()
	if s.state != Pending {
		s.mu.Unlock()
		return false
	}
	s.state = state
	s.value = v
	s.err = err
	conts := s.conts
	s.conts = nil
	close(s.done)
	s.mu.Unlock()

	for _, fn := range conts {
		fn(v, err)
	}
	return true
}

// State returns the current state.
func (s *Signal[T]) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Result returns the settled value and error. ok is false while pending.
func (s *Signal[T]) Result() (v T, err error, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Pending {
		return v, nil, false
	}
	return s.value, s.err, true
}

// Done is closed once the signal settles.
func (s *Signal[T]) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the signal settles or ctx ends. A rejection is returned to every waiter.
// Ending ctx yields a Timeout error wrapping ctx.Err().
func (s *Signal[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-s.done:
		v, err, _ := s.Result()
		return v, err
	case <-ctx.Done():
		var zero T
		return zero, errs.Timeout("ready.Wait", ctx.Err())
	}
}

// Then registers fn to run with the settled result. If the signal has already settled,
// fn runs immediately on the caller's goroutine; otherwise it runs on the settler's.
func (s *Signal[T]) Then(fn func(T, error)) {
	s.mu.Lock()
	if s.state == Pending {
		s.conts = append(s.conts, fn)
		s.mu.Unlock()
		return
	}
	v, err := s.value, s.err
	s.mu.Unlock()
	fn(v, err)
}
