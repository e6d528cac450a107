// Package coordinator implements the sole mutator of engine state: the
// pending queue, the running filter counts, and the table of active
// workers. Everything here runs on one goroutine; no locking is used
// because nothing outside this goroutine ever touches this state
// directly (spec.md's Design Notes REDESIGN FLAG: the Rust original
// shares state behind Arc+channels, this rewrite gives the state a
// single owner instead).
//
// Grounded on the Rust original's core/server/state.rs (ServerState's
// new_task/try_pop_task/process_task/handle_task_result), restated as
// a single event loop instead of methods called from multiple
// threads.
package coordinator

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"sdstore/internal/admission"
	"sdstore/internal/filter"
	"sdstore/internal/logging"
	"sdstore/internal/protocol"
	"sdstore/internal/task"
	"sdstore/internal/worker"
)

// ClientSender delivers a message to the client identified by PID.
// Implemented by internal/messenger; the coordinator only depends on
// this narrow interface, matching spec.md §2's "leaves first"
// layering (Coordinator composes its collaborators, not the other
// way around).
type ClientSender interface {
	// Send delivers one of the MessageToClient sum type's variants.
	Send(clientPID uint32, msg protocol.MessageToClient)
	// SendText delivers a status reply, which spec.md §6.4 defines as
	// "a single encoded UTF-8 string, not one of the [MessageToClient]
	// variants".
	SendText(clientPID uint32, text string)
}

// PipelineRunner executes one task's filter pipeline and returns its
// outcome. internal/worker.Run, bound to a fixed binary directory,
// satisfies this; tests substitute a fake.
type PipelineRunner func(ctx context.Context, t task.ClientTask) worker.Result

// workerRecord is the Engine State's per-running-task bookkeeping:
// bound 1:1 to an admitted task from the moment it leaves the queue
// to the moment its completion event is processed.
type workerRecord struct {
	task       task.ClientTask
	taskNumber uint64
}

// completionEvent is what a spawned worker goroutine posts back to
// the coordinator exactly once.
type completionEvent struct {
	workerID string
	result   worker.Result
}

// inbound pairs a decoded ClientRequest with the PID the listener
// read off the datagram's sender address. The server derives the
// reply destination from this sender-observed PID, not from any
// field the client claims inside the request payload (spec.md §9's
// "client socket discovery" note: reply paths are derived from the
// client PID, and a Unix datagram's source address is the
// authoritative source of it).
type inbound struct {
	clientPID uint32
	request   protocol.ClientRequest
}

// Coordinator owns the engine state described in spec.md §3: task
// counter, pending queue, running FilterCounts, worker table, plus
// the immutable limits and the pipeline runner (which carries the
// filter-binary directory).
type Coordinator struct {
	log    *logging.Logger
	limits filter.Counts
	run    PipelineRunner
	sender ClientSender

	requests    chan inbound
	completions chan completionEvent

	// Engine State — touched only inside Run's goroutine.
	taskCounter uint64
	queue       *task.PendingQueue
	running     filter.Counts
	workers     map[string]workerRecord
}

// New constructs a Coordinator. run executes an admitted task's
// pipeline (typically worker.Run bound to a fixed binary directory);
// sender delivers messages to clients (typically internal/messenger).
func New(log *logging.Logger, limits filter.Counts, run PipelineRunner, sender ClientSender) *Coordinator {
	return &Coordinator{
		log:         log,
		limits:      limits,
		run:         run,
		sender:      sender,
		requests:    make(chan inbound, 64),
		completions: make(chan completionEvent, 64),
		queue:       task.NewPendingQueue(),
		workers:     make(map[string]workerRecord),
	}
}

// Submit enqueues a decoded client request for the coordinator to
// process, tagged with the PID the listener observed as the
// datagram's sender. Safe to call from the listener's goroutine.
func (c *Coordinator) Submit(clientPID uint32, req protocol.ClientRequest) {
	c.requests <- inbound{clientPID: clientPID, request: req}
}

// Run is the coordinator's single goroutine: it serializes all engine
// state mutation by consuming one event at a time from the merged
// stream of client requests and worker completions, per spec.md §4.1
// and §5. It returns when ctx is canceled.
func (c *Coordinator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case in := <-c.requests:
			c.handleRequest(ctx, in)
			c.drain(ctx)
		case comp := <-c.completions:
			c.handleCompletion(comp)
			c.drain(ctx)
		}
	}
}

func (c *Coordinator) handleRequest(_ context.Context, in inbound) {
	switch in.request.Kind {
	case protocol.StatusRequest:
		// No state mutation, per spec.md §4.1.
		c.sender.SendText(in.clientPID, c.Status())
	case protocol.ProcFileRequest:
		req := in.request
		t := task.ClientTask{
			ClientPID: in.clientPID,
			Priority:  req.Priority,
			Input:     req.Input,
			Output:    req.Output,
			Filters:   req.Filters,
		}
		if err := t.Validate(); err != nil {
			c.log.Warn("rejecting malformed proc-file request", logging.Fields{"client_pid": t.ClientPID, "err": err})
			c.sender.Send(t.ClientPID, protocol.Msg(protocol.RequestInitError))
			return
		}
		c.queue.Push(t)
		c.sender.Send(t.ClientPID, protocol.Msg(protocol.Pending))
	default:
		c.log.Error("received client request with unknown kind", logging.Fields{"kind": in.request.Kind})
	}
}

// drain repeatedly admits the queue head while admissible, per
// spec.md §4.1's drain loop: strict priority order, no skipping a
// blocked head to try a lower-priority task behind it.
func (c *Coordinator) drain(ctx context.Context) {
	for {
		t, ok := c.queue.Peek()
		if !ok {
			return
		}
		if !admission.Admissible(c.running, c.limits, t.Filters) {
			return
		}
		t, _ = c.queue.Pop()
		c.admit(ctx, t)
	}
}

// admit starts a worker for t: updates running counts, assigns the
// next task number, notifies the client, indexes the worker record,
// and spawns the pipeline goroutine.
func (c *Coordinator) admit(ctx context.Context, t task.ClientTask) {
	c.running = c.running.Add(t.Multiset())
	taskNumber := c.taskCounter
	c.taskCounter++

	workerID := uuid.NewString()
	c.workers[workerID] = workerRecord{task: t, taskNumber: taskNumber}

	c.sender.Send(t.ClientPID, protocol.Msg(protocol.Processing))
	c.log.Info("admitted task", logging.Fields{"worker_id": workerID, "task_number": taskNumber, "client_pid": t.ClientPID})

	go func() {
		result := c.run(ctx, t)
		c.completions <- completionEvent{workerID: workerID, result: result}
	}()
}

// handleCompletion processes a worker's result: a worker id absent
// from the table is a programmer error (spec.md §7) and is treated as
// fatal, matching the Rust original's unconditional panic on the same
// condition in handle_task_result.
func (c *Coordinator) handleCompletion(comp completionEvent) {
	rec, ok := c.workers[comp.workerID]
	if !ok {
		panic(fmt.Sprintf("coordinator: completion for unknown worker %q", comp.workerID))
	}
	delete(c.workers, comp.workerID)
	c.running = c.running.Sub(rec.task.Multiset())

	switch {
	case comp.result.Outcome == worker.Ok:
		c.log.Info("task concluded", logging.Fields{"worker_id": comp.workerID, "client_pid": rec.task.ClientPID})
		c.sender.Send(rec.task.ClientPID, protocol.NewConcluded(comp.result.BytesIn, comp.result.BytesOut))
	case comp.result.Outcome.PreExecution():
		c.log.Error("worker failed before execution", logging.Fields{"worker_id": comp.workerID, "client_pid": rec.task.ClientPID, "err": comp.result.Err})
		c.sender.Send(rec.task.ClientPID, protocol.Msg(protocol.RequestInitError))
	default:
		c.log.Error("worker failed during execution", logging.Fields{"worker_id": comp.workerID, "client_pid": rec.task.ClientPID, "err": comp.result.Err})
		c.sender.Send(rec.task.ClientPID, protocol.Msg(protocol.RequestError))
	}
}

// Status renders the deterministic status snapshot described in
// spec.md §4.1: one line per running task ordered by ascending task
// number, followed by one line per filter in declaration order.
func (c *Coordinator) Status() string {
	records := make([]workerRecord, 0, len(c.workers))
	for _, rec := range c.workers {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].taskNumber < records[j].taskNumber })

	var b strings.Builder
	for _, rec := range records {
		fmt.Fprintf(&b, "task #%d: proc-file %d %s %s", rec.taskNumber, rec.task.Priority, rec.task.Input, rec.task.Output)
		for _, f := range rec.task.Filters {
			fmt.Fprintf(&b, " %s", f)
		}
		b.WriteByte('\n')
	}
	for _, f := range filter.All {
		fmt.Fprintf(&b, "transformation %s: %d/%d (running/max)\n", f, c.running.Get(f), c.limits.Get(f))
	}
	return b.String()
}
