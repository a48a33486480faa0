// SPDX-License-Identifier: GPL-3.0

// Package event implements the simulator's discrete-event scheduler (§4.1):
// a min-heap of Events ordered by fire time, supporting soft deactivation by
// ID or by callback identity. The heap itself is grounded on packet.go's
// pktbuf type, which already implements container/heap.Interface to
// order in-flight segments; here the same container/heap idiom orders
// Events by fire time instead of sequence number.
//
// Per §5, the scheduler is the sole source of ordering for the whole
// simulation: there is no OS-level concurrency anywhere in this package or
// its callers. A Callback is an ordinary Go function value; cancellation
// uses an explicit (Owner, Tag) identity pair instead of comparing function
// pointers, per the "tagged enum Wakeup" guidance in §9 — Owner is normally
// a small integer handle (e.g. a MAC's TerminalID) and Tag identifies which
// kind of timeout it is (e.g. "ack_timeout").
package event

import (
	"container/heap"
	"fmt"

	"github.com/wlansim/wlansim/internal/simtime"
)

// ErrSchedulingInThePast is returned by Schedule when the event's time is
// before the scheduler's current time.
type ErrSchedulingInThePast struct {
	Now, Requested simtime.Timestamp
}

func (e *ErrSchedulingInThePast) Error() string {
	return fmt.Sprintf("event: scheduling in the past: now=%s requested=%s", e.Now, e.Requested)
}

// ErrDeadlock is returned by Run when the queue drains before t_max, which
// per §4.1 indicates a protocol deadlock in the caller.
type ErrDeadlock struct {
	At simtime.Timestamp
}

func (e *ErrDeadlock) Error() string {
	return fmt.Sprintf("event: scheduler drained before t_max at %s", e.At)
}

// Callback is invoked when an Event fires.
type Callback func(now simtime.Timestamp)

// entry is one heap slot. Entries are never physically removed on
// cancellation; Active is flipped instead, and Run skips inactive entries.
type entry struct {
	id     simtime.EventID
	time   simtime.Timestamp
	owner  uint64
	tag    string
	fn     Callback
	active bool
	seq    uint64 // insertion sequence, breaks time ties deterministically
}

type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].time != h[j].time {
		return h[i].time < h[j].time
	}
	// Equal timestamps: §4.1 says no component may depend on tie order, but
	// the order must still be fixed and deterministic run-to-run.
	return h[i].seq < h[j].seq
}
func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x any)   { *h = append(*h, x.(*entry)) }
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Scheduler is a min-heap of Events keyed by fire time.
type Scheduler struct {
	heap  entryHeap
	now   simtime.Timestamp
	ids   *simtime.EventIDGen
	seq   uint64
	index map[simtime.EventID]*entry
}

// New returns a freshly-initialized Scheduler with now=0.
func New() *Scheduler {
	s := &Scheduler{}
	s.Init()
	return s
}

// Init clears all events and resets now to 0 (§4.1).
func (s *Scheduler) Init() {
	s.heap = nil
	heap.Init(&s.heap)
	s.now = 0
	s.ids = simtime.NewEventIDGen()
	s.seq = 0
	s.index = make(map[simtime.EventID]*entry)
}

// Now returns the scheduler's current virtual time.
func (s *Scheduler) Now() simtime.Timestamp {
	return s.now
}

// Schedule inserts a new Event firing at t, invoking fn when it does.
// owner/tag identify the event for Remove/RemoveByCallback; tag may be
// empty if the caller only ever cancels by ID.
func (s *Scheduler) Schedule(t simtime.Timestamp, owner uint64, tag string, fn Callback) (simtime.EventID, error) {
	if t < s.now {
		return 0, &ErrSchedulingInThePast{Now: s.now, Requested: t}
	}
	id := s.ids.Next()
	e := &entry{
		id:     id,
		time:   t,
		owner:  owner,
		tag:    tag,
		fn:     fn,
		active: true,
		seq:    s.seq,
	}
	s.seq++
	heap.Push(&s.heap, e)
	s.index[id] = e
	return id, nil
}

// RemoveByID deactivates the event with the given ID, if it exists and is
// still active. It is a no-op (not an error) if the ID is unknown or
// already inactive/fired.
func (s *Scheduler) RemoveByID(id simtime.EventID) {
	if e, ok := s.index[id]; ok {
		e.active = false
	}
}

// RemoveByCallback deactivates the first still-active event matching the
// given (owner, tag) identity. Per §4.1 this flips active=false; it does
// not physically remove the entry.
func (s *Scheduler) RemoveByCallback(owner uint64, tag string) {
	for _, e := range s.heap {
		if e.active && e.owner == owner && e.tag == tag {
			e.active = false
			return
		}
	}
}

// Pending reports whether an active event with the given (owner, tag)
// identity is currently scheduled.
func (s *Scheduler) Pending(owner uint64, tag string) bool {
	for _, e := range s.heap {
		if e.active && e.owner == owner && e.tag == tag {
			return true
		}
	}
	return false
}

// Run pops and dispatches events in time order until the queue drains or
// the next event's time exceeds tMax. now is advanced to each popped
// event's time even if the event turns out to be inactive (§4.1: "an
// inactive event is a no-op but still advances now"). If the queue drains
// before tMax is reached, ErrDeadlock is returned.
func (s *Scheduler) Run(tMax simtime.Timestamp) error {
	for {
		if s.heap.Len() == 0 {
			if s.now < tMax {
				return &ErrDeadlock{At: s.now}
			}
			return nil
		}
		if s.heap[0].time > tMax {
			return nil
		}
		e := heap.Pop(&s.heap).(*entry)
		delete(s.index, e.id)
		s.now = e.time
		if e.active && e.fn != nil {
			e.fn(s.now)
		}
	}
}

// Len returns the number of events still in the heap, active or not.
func (s *Scheduler) Len() int {
	return s.heap.Len()
}
