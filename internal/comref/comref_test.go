package comref

import "testing"

type fakeHandle struct {
	released bool
	order    *[]*fakeHandle
}

func (f *fakeHandle) Release() {
	f.released = true
	if f.order != nil {
		*f.order = append(*f.order, f)
	}
}

func TestPopReleasesInReverseOrder(t *testing.T) {
	var order []*fakeHandle
	a := &fakeHandle{order: &order}
	b := &fakeHandle{order: &order}
	c := &fakeHandle{order: &order}

	s := NewScope(4)
	s.Track(a)
	s.Track(b)
	s.Track(c)
	s.Pop()

	if !a.released || !b.released || !c.released {
		t.Fatal("all handles should be released")
	}
	if order[0] != c || order[1] != b || order[2] != a {
		t.Fatal("release order should be reverse of acquisition")
	}
}

func TestPopIsIdempotent(t *testing.T) {
	var order []*fakeHandle
	a := &fakeHandle{order: &order}

	s := NewScope(1)
	s.Track(a)
	s.Pop()
	s.Pop()

	if len(order) != 1 {
		t.Fatalf("handle released %d times, want 1", len(order))
	}
}

func TestPromoteSurvivesChildPop(t *testing.T) {
	root := NewScope(4)
	child := root.Push(4)

	a := &fakeHandle{}
	child.Track(a)
	child.Promote(a)
	child.Pop()

	if a.released {
		t.Fatal("promoted handle must not be released by the child scope")
	}

	root.Pop()
	if !a.released {
		t.Fatal("root pop should release promoted handle")
	}
}

func TestPromoteOnRootKeepsOwnership(t *testing.T) {
	root := NewScope(1)
	a := &fakeHandle{}
	root.Track(a)
	root.Promote(a)

	if root.Len() != 1 {
		t.Fatalf("root should still own the handle, len=%d", root.Len())
	}
	root.Pop()
	if !a.released {
		t.Fatal("root pop should release the handle")
	}
}

func TestDropStopsTrackingWithoutRelease(t *testing.T) {
	s := NewScope(1)
	a := &fakeHandle{}
	s.Track(a)
	s.Drop(a)
	s.Pop()

	if a.released {
		t.Fatal("dropped handle must not be released")
	}
}

func TestTrackNilIsIgnored(t *testing.T) {
	s := NewScope(1)
	if s.Track(nil) != nil {
		t.Fatal("tracking nil should return nil")
	}
	if s.Len() != 0 {
		t.Fatal("nil must not be tracked")
	}
	s.Pop()
}
