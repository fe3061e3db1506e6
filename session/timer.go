// Package session implements the Session (C6): the per-instance engine
// that owns a socket, a timer wheel, the acking-node tree, the tx cache,
// and drives GRTT probing and congestion control.
/*
 * Copyright (c) 2024, U.S. Naval Research Laboratory.
 */
package session

import (
	"container/heap"
	"time"

	"github.com/USNavalResearchLaboratory/normcore/cmn/cos"
	"github.com/USNavalResearchLaboratory/normcore/cmn/mono"
)

// TimerKind names the six timer classes a Session multiplexes (spec §5:
// tx, probe, repair, flush, flow-control, activity/CC).
type TimerKind int

const (
	TimerTx TimerKind = iota
	TimerProbe
	TimerRepair
	TimerFlush
	TimerFlowControl
	TimerActivity
)

// timerEntry is one scheduled firing, ordered in the wheel's min-heap by
// deadline (spec §5's "earliest-deadline-first" timer wheel).
type timerEntry struct {
	kind     TimerKind
	key      any // e.g. a wire.ObjectId or a node.Identity, disambiguating repeated kinds
	deadline time.Time
	mono     int64 // deadline expressed as mono.NanoTime(), immune to wall-clock steps
	index    int
	canceled bool
}

// timerCtrl is a wheel mutation request, following the
// transport/collect.go collector's add/remove-via-channel idiom so the
// heap is only ever touched from the wheel's own goroutine.
type timerCtrl struct {
	entry  *timerEntry
	remove bool
}

// TimerWheel multiplexes every Session timer onto one goroutine and one
// min-heap, firing callbacks in deadline order. Grounded on
// transport/collect.go's collector: a container/heap ordered by
// deadline, mutated only via a control channel, with a cos.StopCh for
// shutdown.
type TimerWheel struct {
	heap    []*timerEntry
	ctrlCh  chan timerCtrl
	stopCh  cos.StopCh
	fireCh  chan *timerEntry
}

// NewTimerWheel returns an idle wheel; call Run in its own goroutine.
func NewTimerWheel() *TimerWheel {
	w := &TimerWheel{
		ctrlCh: make(chan timerCtrl, 64),
		fireCh: make(chan *timerEntry, 64),
	}
	w.stopCh.Init()
	return w
}

// Schedule arms a new timer, returning a handle that Cancel accepts.
// deadline is wall-clock for the caller's convenience, but firing order
// is driven entirely by mono.NanoTime() so an NTP step or DST change
// mid-wait can't reorder or stall a repair/probe/activity deadline.
func (w *TimerWheel) Schedule(kind TimerKind, key any, deadline time.Time) *timerEntry {
	e := &timerEntry{kind: kind, key: key, deadline: deadline, mono: mono.NanoTime() + int64(time.Until(deadline))}
	w.ctrlCh <- timerCtrl{entry: e}
	return e
}

// Cancel removes a previously scheduled timer; a no-op if it already fired.
func (w *TimerWheel) Cancel(e *timerEntry) {
	w.ctrlCh <- timerCtrl{entry: e, remove: true}
}

// Fired is the channel of entries whose deadline has passed, in order.
func (w *TimerWheel) Fired() <-chan *timerEntry { return w.fireCh }

// Stop shuts the wheel down; Run returns once drained.
func (w *TimerWheel) Stop() { w.stopCh.Close() }

// Run drives the wheel until Stop is called. Intended to run in its own
// goroutine, one per Session.
func (w *TimerWheel) Run() {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.fireDue()
		case c := <-w.ctrlCh:
			if c.remove {
				w.removeEntry(c.entry)
			} else {
				heap.Push(w, c.entry)
			}
		case <-w.stopCh.Listen():
			return
		}
	}
}

func (w *TimerWheel) fireDue() {
	now := mono.NanoTime()
	for len(w.heap) > 0 && w.heap[0].mono <= now {
		e := heap.Pop(w).(*timerEntry)
		if e.canceled {
			continue
		}
		select {
		case w.fireCh <- e:
		default: // drop rather than block the wheel; caller should drain promptly
		}
	}
}

func (w *TimerWheel) removeEntry(e *timerEntry) {
	e.canceled = true
	if e.index >= 0 && e.index < len(w.heap) && w.heap[e.index] == e {
		heap.Remove(w, e.index)
	}
}

// heap.Interface implementation: min-heap by deadline.

func (w *TimerWheel) Len() int { return len(w.heap) }

func (w *TimerWheel) Less(i, j int) bool { return w.heap[i].mono < w.heap[j].mono }

func (w *TimerWheel) Swap(i, j int) {
	w.heap[i], w.heap[j] = w.heap[j], w.heap[i]
	w.heap[i].index = i
	w.heap[j].index = j
}

func (w *TimerWheel) Push(x any) {
	e := x.(*timerEntry)
	e.index = len(w.heap)
	w.heap = append(w.heap, e)
}

func (w *TimerWheel) Pop() any {
	old := w.heap
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	w.heap = old[:n-1]
	return e
}
