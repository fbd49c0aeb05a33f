// Copyright by Thorsten von Eicken 2016, see LICENSE file

// This file implements a debug buffer into which the interrupt handlers push events that can
// later be printed. The buffer is a fixed ring so pushing never allocates.

package cc1101

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// EventKind identifies what happened in the driver.
type EventKind byte

const (
	EvRxStart   EventKind = iota + 1 // sync word received
	EvRxChunk                        // threshold unload
	EvRxDone                         // end of packet drain
	EvTxStart                        // first chunk loaded and STX issued
	EvTxSync                         // sync word sent
	EvTxChunk                        // threshold refill
	EvTxDone                         // end of packet
	EvUnderflow                      // end of packet with bytes left unsent
	EvSpurious                       // edge without matching transfer
	EvCCAClear                       // channel clear, transmitting
	EvCCABusy                        // channel busy, packet dropped
	EvOverflow                       // RX FIFO overflow recovered by flushing
	EvBusError                       // bus transfer failed in a handler
)

var evNames = [...]string{"?", "rx-start", "rx-chunk", "rx-done", "tx-start", "tx-sync",
	"tx-chunk", "tx-done", "underflow", "spurious", "cca-clear", "cca-busy", "overflow", "bus-error"}

func (k EventKind) String() string {
	if int(k) < len(evNames) {
		return evNames[k]
	}
	return fmt.Sprintf("event(%d)", byte(k))
}

// Event is one entry in the trace.
type Event struct {
	At    time.Time
	Kind  EventKind
	N     int // bytes moved, or the GDO level for spurious edges
	Index int // byte index after the event
}

const traceLen = 256

type trace struct {
	mu  sync.Mutex
	buf [traceLen]Event
	n   int // total events pushed
}

func (t *trace) push(kind EventKind, n, index int) {
	t.mu.Lock()
	t.buf[t.n%traceLen] = Event{At: time.Now(), Kind: kind, N: n, Index: index}
	t.n++
	t.mu.Unlock()
}

// events returns the recorded events, oldest first, and clears the trace.
func (t *trace) events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	start := 0
	if t.n > traceLen {
		start = t.n - traceLen
	}
	ev := make([]Event, 0, t.n-start)
	for i := start; i < t.n; i++ {
		ev = append(ev, t.buf[i%traceLen])
	}
	t.n = 0
	return ev
}

// Trace returns the most recent driver events, oldest first, and clears them.
func (r *Radio) Trace() []Event { return r.trace.events() }

// PrintTrace writes the most recent driver events to w and clears them.
func (r *Radio) PrintTrace(w io.Writer) {
	ev := r.trace.events()
	if len(ev) == 0 {
		fmt.Fprintf(w, "No events were recorded\n")
		return
	}
	t0 := ev[0].At
	for _, e := range ev {
		fmt.Fprintf(w, "%.6fs: %-9s n=%d idx=%d\n", e.At.Sub(t0).Seconds(), e.Kind, e.N, e.Index)
	}
}
