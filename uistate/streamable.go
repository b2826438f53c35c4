package uistate

import (
	"context"
	"sync"
)

// Streamable is a single-assignment cell: resolved at most once, read many
// times. Live flags on UI elements (generating, collapsed) are Streamables so
// the render layer can observe the resolution without polling.
type Streamable[T any] struct {
	mu    sync.Mutex
	done  chan struct{}
	value T
}

// NewStreamable returns an unresolved cell.
func NewStreamable[T any]() *Streamable[T] {
	return &Streamable[T]{done: make(chan struct{})}
}

// Resolved returns a cell already holding v. Used when projecting finalized
// history, where every flag is known up front.
func Resolved[T any](v T) *Streamable[T] {
	s := NewStreamable[T]()
	s.Resolve(v)
	return s
}

// Resolve sets the value. Calls after the first are ignored.
func (s *Streamable[T]) Resolve(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
		return
	default:
	}
	s.value = v
	close(s.done)
}

// Value returns the resolved value and whether resolution has happened.
func (s *Streamable[T]) Value() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
		return s.value, true
	default:
		var zero T
		return zero, false
	}
}

// Done returns a channel closed on resolution.
func (s *Streamable[T]) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the cell resolves or ctx is cancelled.
func (s *Streamable[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-s.done:
		v, _ := s.Value()
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
