// Package comref provides scoped tracking of reference-counted COM-style
// handles. A Scope owns a set of handles and releases them in reverse
// acquisition order when it is popped, on every exit path. Handles that must
// outlive their creating scope are promoted to the parent (ultimately a
// long-lived global scope) with Promote.
package comref

// Releaser is any handle with COM-style release semantics.
type Releaser interface {
	Release()
}

// Scope tracks handles acquired within one region of code.
type Scope struct {
	parent  *Scope
	handles []Releaser
	popped  bool
}

// NewScope creates a root scope, typically one per session.
func NewScope(capacity int) *Scope {
	if capacity < 0 {
		capacity = 0
	}
	return &Scope{handles: make([]Releaser, 0, capacity)}
}

// Push creates a child scope. The caller must Pop it (usually via defer).
func (s *Scope) Push(capacity int) *Scope {
	if capacity < 0 {
		capacity = 0
	}
	return &Scope{parent: s, handles: make([]Releaser, 0, capacity)}
}

// Track registers a handle for release when this scope is popped.
// Returns the handle unchanged for call-site chaining. Nil handles are
// ignored so failed acquisitions can be tracked unconditionally.
func (s *Scope) Track(r Releaser) Releaser {
	if r == nil {
		return nil
	}
	s.handles = append(s.handles, r)
	return r
}

// Promote transfers a tracked handle to the parent scope so it survives
// this scope's Pop. Promoting from a root scope is a no-op: the root owns
// the handle until the root itself is popped.
func (s *Scope) Promote(r Releaser) {
	if r == nil {
		return
	}
	for i, h := range s.handles {
		if h == r {
			s.handles = append(s.handles[:i], s.handles[i+1:]...)
			break
		}
	}
	if s.parent != nil {
		s.parent.Track(r)
	} else {
		s.handles = append(s.handles, r)
	}
}

// Drop stops tracking a handle without releasing it. Used when ownership
// moves outside the scope machinery entirely.
func (s *Scope) Drop(r Releaser) {
	for i, h := range s.handles {
		if h == r {
			s.handles = append(s.handles[:i], s.handles[i+1:]...)
			return
		}
	}
}

// Pop releases every tracked handle in reverse acquisition order.
// Safe to call more than once.
func (s *Scope) Pop() {
	if s.popped {
		return
	}
	s.popped = true
	for i := len(s.handles) - 1; i >= 0; i-- {
		s.handles[i].Release()
	}
	s.handles = s.handles[:0]
}

// Len reports the number of handles currently tracked.
func (s *Scope) Len() int {
	return len(s.handles)
}
