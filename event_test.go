// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package logsim

import (
	"math/rand"
	"testing"
)

func TestQueueOrdering(t *testing.T) {
	// events pop in (time, seq) order no matter the insertion order
	q := newEventQueue()
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		if _, ok := q.schedule(Delay(rng.Intn(100)), event{kind: evComponentUpdate}); !ok {
			t.Fatal("unexpected overflow")
		}
	}
	var prev event
	first := true
	for {
		e, ok := q.pop()
		if !ok {
			break
		}
		if !first && prev.before(&e) == false {
			t.Fatalf("popped (%d,%d) after (%d,%d)", e.time, e.seq, prev.time, prev.seq)
		}
		if e.time != q.now {
			t.Fatalf("time cursor %d does not match popped event %d", q.now, e.time)
		}
		first = false
		prev = e
	}
}

func TestQueueZeroDelayOrdering(t *testing.T) {
	// a zero-delay event lands after everything already scheduled at the
	// current timestamp
	q := newEventQueue()
	q.schedule(0, event{kind: evComponentUpdate, comp: 1})
	q.schedule(0, event{kind: evComponentUpdate, comp: 2})
	e, _ := q.pop()
	if e.comp != 1 {
		t.Fatalf("popped component %d, want 1", e.comp)
	}
	q.schedule(0, event{kind: evComponentUpdate, comp: 3})
	e, _ = q.pop()
	if e.comp != 2 {
		t.Fatalf("popped component %d, want 2", e.comp)
	}
	e, _ = q.pop()
	if e.comp != 3 {
		t.Fatalf("popped component %d, want 3", e.comp)
	}
}

func TestQueueCancel(t *testing.T) {
	q := newEventQueue()
	id1, _ := q.schedule(5, event{kind: evComponentUpdate, comp: 1})
	q.schedule(10, event{kind: evComponentUpdate, comp: 2})
	if !q.cancel(id1) {
		t.Fatal("cancel of a live event failed")
	}
	if q.cancel(EventID(999)) {
		t.Fatal("cancel of an unknown id succeeded")
	}
	e, ok := q.pop()
	if !ok || e.comp != 2 {
		t.Fatalf("popped %v, want component 2", e.comp)
	}
	if q.now != 10 {
		t.Fatalf("time cursor %d, want 10", q.now)
	}
}

func TestQueuePeekTime(t *testing.T) {
	q := newEventQueue()
	if _, ok := q.peekTime(); ok {
		t.Fatal("peek on empty queue")
	}
	q.schedule(7, event{kind: evComponentUpdate})
	ts, ok := q.peekTime()
	if !ok || ts != 7 {
		t.Fatalf("peekTime = %d, want 7", ts)
	}
	// peeking must not advance the cursor
	if q.now != 0 {
		t.Fatalf("cursor moved to %d on peek", q.now)
	}
}

func TestQueueOverflow(t *testing.T) {
	q := newEventQueue()
	q.now = ^Timestamp(0) - 1
	if _, ok := q.schedule(5, event{kind: evComponentUpdate}); ok {
		t.Fatal("schedule past the end of time succeeded")
	}
	if !q.overflow {
		t.Fatal("overflow not flagged")
	}
	// reset clears the flag and rewinds
	q.reset()
	if q.overflow || q.now != 0 {
		t.Fatal("reset did not clear overflow state")
	}
}

func TestQueueClockEdgeCount(t *testing.T) {
	q := newEventQueue()
	q.schedule(0, event{kind: evClockEdge})
	q.schedule(1, event{kind: evClockEdge})
	q.schedule(0, event{kind: evComponentUpdate})
	if q.clockEdges != 2 {
		t.Fatalf("clockEdges = %d, want 2", q.clockEdges)
	}
	q.pop()
	if q.clockEdges != 1 {
		t.Fatalf("clockEdges = %d, want 1 after pop", q.clockEdges)
	}
	q.drain()
	if q.clockEdges != 0 {
		t.Fatalf("clockEdges = %d, want 0 after drain", q.clockEdges)
	}
}
