// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package logsim

import (
	"container/heap"
)

// A Timestamp is a point in simulation time, in abstract time units.
//
type Timestamp uint64

// A Delay is a duration in simulation time units.
//
type Delay uint64

// An EventID identifies a scheduled event. Ids are monotonic and never
// reused within one simulation.
//
type EventID uint64

// An Edge is a clock transition direction.
//
type Edge uint8

// Clock edges.
//
const (
	Rising Edge = iota
	Falling
)

func (e Edge) String() string {
	if e == Rising {
		return "rising"
	}
	return "falling"
}

type eventKind uint8

const (
	evSignalChange eventKind = iota
	evComponentUpdate
	evClockEdge
	evReset
)

// An event is one entry in the time queue. Payload fields are used
// according to kind.
//
type event struct {
	id   EventID
	time Timestamp
	seq  uint64 // tie break: insertion order within an instant
	kind eventKind

	node     NodeID      // evSignalChange, evClockEdge
	signal   Signal      // evSignalChange
	strength Strength    // evSignalChange
	source   ComponentID // evSignalChange, evClockEdge (the clock source)
	comp     ComponentID // evComponentUpdate
	edge     Edge        // evClockEdge
}

// before orders events by (time, seq). Two live events never share a key.
//
func (e *event) before(o *event) bool {
	if e.time != o.time {
		return e.time < o.time
	}
	return e.seq < o.seq
}

type eventHeap []event

func (h eventHeap) Len() int            { return len(h) }
func (h eventHeap) Less(i, j int) bool  { return h[i].before(&h[j]) }
func (h eventHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x interface{}) { *h = append(*h, x.(event)) }
func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old) - 1
	e := old[n]
	*h = old[:n]
	return e
}

// An eventQueue is a priority queue over (time, seq) with a logical time
// cursor. Cancellation is implemented by tombstoning: cancelled ids are
// dropped when popped.
//
type eventQueue struct {
	h          eventHeap
	now        Timestamp
	nextSeq    uint64
	nextID     EventID
	cancelled  map[EventID]struct{}
	overflow   bool
	clockEdges int // pending evClockEdge count, used by Tick
}

func newEventQueue() *eventQueue {
	return &eventQueue{h: make(eventHeap, 0, 64)}
}

// schedule inserts an event at now+delay. It reports overflow of the
// timestamp domain by returning ok == false; the event is not inserted.
//
func (q *eventQueue) schedule(delay Delay, e event) (EventID, bool) {
	t := q.now + Timestamp(delay)
	if t < q.now {
		q.overflow = true
		return 0, false
	}
	e.time = t
	e.seq = q.nextSeq
	e.id = q.nextID
	q.nextSeq++
	q.nextID++
	heap.Push(&q.h, e)
	if e.kind == evClockEdge {
		q.clockEdges++
	}
	return e.id, true
}

// pop removes and returns the next live event, advancing the time cursor.
//
func (q *eventQueue) pop() (event, bool) {
	for len(q.h) > 0 {
		e := heap.Pop(&q.h).(event)
		if q.cancelled != nil {
			if _, dead := q.cancelled[e.id]; dead {
				delete(q.cancelled, e.id)
				if e.kind == evClockEdge {
					q.clockEdges--
				}
				continue
			}
		}
		if e.kind == evClockEdge {
			q.clockEdges--
		}
		q.now = e.time
		return e, true
	}
	return event{}, false
}

// peek returns the next live event without removing it.
//
func (q *eventQueue) peek() (*event, bool) {
	if _, ok := q.peekTime(); !ok {
		return nil, false
	}
	return &q.h[0], true
}

// peekTime returns the timestamp of the next live event.
//
func (q *eventQueue) peekTime() (Timestamp, bool) {
	for len(q.h) > 0 {
		e := &q.h[0]
		if q.cancelled != nil {
			if _, dead := q.cancelled[e.id]; dead {
				delete(q.cancelled, e.id)
				if e.kind == evClockEdge {
					q.clockEdges--
				}
				heap.Pop(&q.h)
				continue
			}
		}
		return e.time, true
	}
	return 0, false
}

// cancel tags an event so that it is ignored when reached. It returns false
// for ids that were never scheduled.
//
func (q *eventQueue) cancel(id EventID) bool {
	if id >= q.nextID {
		return false
	}
	if q.cancelled == nil {
		q.cancelled = make(map[EventID]struct{})
	}
	q.cancelled[id] = struct{}{}
	return true
}

// drain discards all pending events without advancing time.
//
func (q *eventQueue) drain() {
	q.h = q.h[:0]
	q.cancelled = nil
	q.clockEdges = 0
}

// reset drains the queue and rewinds the time cursor to zero. Sequence and
// id counters keep running so that ids are never reused.
//
func (q *eventQueue) reset() {
	q.drain()
	q.now = 0
	q.overflow = false
}

func (q *eventQueue) empty() bool {
	_, ok := q.peekTime()
	return !ok
}
