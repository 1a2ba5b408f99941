// Package simclock is the discrete-event kernel underneath the serverless
// compute simulation: a minimal virtual clock, a monotonic simulated time and
// a min-heap of timestamped callbacks, standing in for a full actor runtime's
// timed scheduling and message passing over named ports. It drives the head
// controller's admission/scheduling/dispatch pipeline against simulated
// durations instead of wall time.
//
// Every component that would, in a full actor runtime, block on a named port
// or sleep instead schedules a callback on the Engine for the moment that
// block would resolve and returns immediately; FunctionManager.WaitOne and
// WaitAll (pkg/functionmanager) model the caller's block by repeatedly
// Step()-ing the engine until the condition they're waiting on holds.
package simclock

import (
	"container/heap"
	"time"
)

// Port is an opaque named endpoint a message is addressed to or replied on.
// cirrus does not route bytes through it and charges no transfer time against
// it.
type Port string

type event struct {
	at  time.Duration
	seq uint64
	fn  func()
}

type eventHeap []*event

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x interface{}) { *h = append(*h, x.(*event)) }
func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Engine is a single-threaded discrete-event scheduler: all callbacks run
// synchronously, in nondecreasing timestamp order (FIFO within a timestamp),
// on whatever goroutine calls Step/Run/RunUntil.
type Engine struct {
	now   time.Duration
	heap  eventHeap
	seq   uint64
}

// NewEngine creates an Engine whose clock starts at zero.
func NewEngine() *Engine {
	e := &Engine{}
	heap.Init(&e.heap)
	return e
}

// Now returns the current simulated time.
func (e *Engine) Now() time.Duration {
	return e.now
}

// After schedules fn to run once the clock has advanced by delay from now. A
// negative or zero delay runs fn at the current time, after any already-queued
// same-timestamp events (it is appended with a fresh, larger sequence number).
func (e *Engine) After(delay time.Duration, fn func()) {
	if delay < 0 {
		delay = 0
	}
	e.seq++
	heap.Push(&e.heap, &event{at: e.now + delay, seq: e.seq, fn: fn})
}

// Pending reports how many events are queued.
func (e *Engine) Pending() int {
	return e.heap.Len()
}

// Step runs the single earliest-queued event, advancing the clock to its
// timestamp first. It reports whether an event was run.
func (e *Engine) Step() bool {
	if e.heap.Len() == 0 {
		return false
	}
	ev := heap.Pop(&e.heap).(*event)
	e.now = ev.at
	ev.fn()
	return true
}

// Run drains every event currently queued, including ones scheduled by other
// events as they run, until the queue is empty.
func (e *Engine) Run() {
	for e.Step() {
	}
}

// RunUntil steps the engine until done() reports true or there are no more
// events to process (in which case it reports false — the condition will never
// become true without further external input).
func (e *Engine) RunUntil(done func() bool) bool {
	for !done() {
		if !e.Step() {
			return false
		}
	}
	return true
}
