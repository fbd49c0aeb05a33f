// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package cc1101

import (
	"sync/atomic"
	"time"
)

// Mode is the driver's operating mode, which drives how interrupts are interpreted.
type Mode uint32

const (
	Idle Mode = iota
	Receiving
	Transmitting
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case Receiving:
		return "receiving"
	case Transmitting:
		return "transmitting"
	}
	return "unknown"
}

// state is the transceiver state shared between the interrupt handlers and Send. The flags and
// counters are atomics so they can be polled without the lock, everything else is only touched
// while holding Radio.isr.
type state struct {
	mode      atomic.Uint32
	rxActive  atomic.Bool // sync received, packet being unloaded
	txActive  atomic.Bool // sync sent, packet being streamed
	pktLen    int         // configured fixed packet length
	txBuf     [MaxPacket]byte
	txLen     int
	rxBuf     [MaxPacket]byte
	rxLen     int
	index     int // next byte in rxBuf or txBuf
	remaining int // bytes left in the transfer in progress
	total     int // length of the transfer in progress, index+remaining
	rxCount   atomic.Uint32
	txCount   atomic.Uint32
	dropCount atomic.Uint32
	last      [MaxPacket]byte // last completely received packet
	lastLen   int
	lastAt    time.Time
}

// Snapshot is a consistent copy of the transceiver state.
type Snapshot struct {
	Mode      Mode
	RxActive  bool
	TxActive  bool
	Index     int
	Remaining int
	Total     int
	RxLen     int
	TxLen     int
	RxCount   uint32
	TxCount   uint32
	DropCount uint32
}

// Snapshot returns a copy of the state taken while no interrupt is being handled.
func (r *Radio) Snapshot() Snapshot {
	r.isr.Lock()
	defer r.isr.Unlock()
	return Snapshot{
		Mode:      Mode(r.st.mode.Load()),
		RxActive:  r.st.rxActive.Load(),
		TxActive:  r.st.txActive.Load(),
		Index:     r.st.index,
		Remaining: r.st.remaining,
		Total:     r.st.total,
		RxLen:     r.st.rxLen,
		TxLen:     r.st.txLen,
		RxCount:   r.st.rxCount.Load(),
		TxCount:   r.st.txCount.Load(),
		DropCount: r.st.dropCount.Load(),
	}
}

// setMode must be called with r.isr held.
func (r *Radio) setMode(m Mode) { r.st.mode.Store(uint32(m)) }

// startTransfer resets the byte accounting, must be called with r.isr held.
func (r *Radio) startTransfer(index, total int) {
	r.st.index = index
	r.st.total = total
	r.st.remaining = total - index
}

// advance moves n bytes from remaining to index, must be called with r.isr held.
func (r *Radio) advance(n int) {
	r.st.index += n
	r.st.remaining -= n
}
