// Package task defines an accepted proc-file request and the pending
// queue it waits in before admission.
package task

import (
	"container/heap"
	"fmt"

	"sdstore/internal/filter"
)

// ClientTask is an accepted proc-file request: which client it came
// from, its priority, the input/output paths, and the ordered,
// non-empty sequence of filters to apply.
type ClientTask struct {
	ClientPID uint32
	Priority  uint64
	Input     string
	Output    string
	Filters   []filter.Filter
}

// Validate enforces the invariant that every ClientTask carries at
// least one filter. Paths are opaque strings the server does not
// validate before worker start (spec.md §3).
func (t ClientTask) Validate() error {
	if len(t.Filters) == 0 {
		return fmt.Errorf("task for client %d: filter sequence must be non-empty", t.ClientPID)
	}
	return nil
}

// Multiset returns the componentwise count of t's requested filters.
func (t ClientTask) Multiset() filter.Counts {
	return filter.Multiset(t.Filters)
}

// entry wraps a ClientTask with the insertion sequence used to break
// priority ties FIFO, per spec.md's Design Notes: "wrap priority as
// (user_priority, -insertion_sequence) or equivalent".
type entry struct {
	task ClientTask
	seq  uint64
}

// PendingQueue is a max-heap of ClientTask keyed by priority, with
// ties among equal priorities broken by insertion order (earliest
// first). It is not safe for concurrent use; spec.md §5 makes the
// coordinator its sole owner.
type PendingQueue struct {
	items   entryHeap
	nextSeq uint64
}

// NewPendingQueue returns an empty queue ready for use.
func NewPendingQueue() *PendingQueue {
	return &PendingQueue{}
}

// Push enqueues t, assigning it the next insertion sequence number.
func (q *PendingQueue) Push(t ClientTask) {
	heap.Push(&q.items, entry{task: t, seq: q.nextSeq})
	q.nextSeq++
}

// Peek returns the head-of-queue task (highest priority, then
// earliest inserted) without removing it. ok is false if the queue is
// empty.
func (q *PendingQueue) Peek() (t ClientTask, ok bool) {
	if len(q.items) == 0 {
		return ClientTask{}, false
	}
	return q.items[0].task, true
}

// Pop removes and returns the head-of-queue task. ok is false if the
// queue was empty.
func (q *PendingQueue) Pop() (t ClientTask, ok bool) {
	if len(q.items) == 0 {
		return ClientTask{}, false
	}
	e := heap.Pop(&q.items).(entry)
	return e.task, true
}

// Len reports the number of tasks currently queued.
func (q *PendingQueue) Len() int { return len(q.items) }

// entryHeap implements container/heap.Interface as a max-heap on
// (priority desc, seq asc) — highest priority first, and among equal
// priorities, lowest (earliest) sequence number first.
type entryHeap []entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].task.Priority != h[j].task.Priority {
		return h[i].task.Priority > h[j].task.Priority
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) {
	*h = append(*h, x.(entry))
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
