// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package cc1101

import (
	"time"

	"github.com/tve/subghz"
	"github.com/tve/subghz/thread"
)

// HandlePacketEdge processes an edge on GDO0. A rising edge means the sync word has been
// received or sent, a falling edge marks the end of the packet. Edges that don't match a
// transfer in progress are ignored.
func (r *Radio) HandlePacketEdge() {
	r.isr.Lock()
	defer r.isr.Unlock()
	high := r.gdo0.Read() == subghz.GpioHigh

	switch Mode(r.st.mode.Load()) {
	case Receiving:
		if high {
			r.st.rxLen = 0
			r.startTransfer(0, r.st.pktLen)
			r.st.rxActive.Store(true)
			r.trace.push(EvRxStart, r.st.total, 0)
		} else if r.st.rxActive.Load() {
			r.rxDone()
		} else {
			r.trace.push(EvSpurious, 0, r.st.index)
		}
	case Transmitting:
		if high {
			r.st.txActive.Store(true)
			r.trace.push(EvTxSync, 0, r.st.index)
		} else if r.st.txActive.Load() {
			r.txDone()
		} else {
			r.trace.push(EvSpurious, 0, r.st.index)
		}
	}
}

// HandleThresholdEdge processes an edge on GDO2. In receive mode a rising edge means the RX
// FIFO is at its threshold and gets unloaded, in transmit mode a falling edge means the TX FIFO
// is running low and gets refilled.
func (r *Radio) HandleThresholdEdge() {
	r.isr.Lock()
	defer r.isr.Unlock()
	high := r.gdo2.Read() == subghz.GpioHigh

	switch Mode(r.st.mode.Load()) {
	case Receiving:
		if !high {
			return
		}
		if !r.st.rxActive.Load() || r.st.remaining == 0 {
			r.trace.push(EvSpurious, 1, r.st.index)
			return
		}
		n := min(rxChunk, r.st.remaining)
		if err := r.readBurst(REG_FIFO, r.st.rxBuf[r.st.index:r.st.index+n]); err != nil {
			r.busError(err)
			return
		}
		r.advance(n)
		r.trace.push(EvRxChunk, n, r.st.index)
	case Transmitting:
		if high {
			return
		}
		if !r.st.txActive.Load() || r.st.remaining == 0 {
			return
		}
		n := min(txChunk, r.st.remaining)
		if err := r.writeBurst(REG_FIFO, r.st.txBuf[r.st.index:r.st.index+n]); err != nil {
			r.busError(err)
			return
		}
		r.advance(n)
		r.trace.push(EvTxChunk, n, r.st.index)
	}
}

// rxDone drains the rest of the packet, publishes it, and re-arms the receiver.
func (r *Radio) rxDone() {
	for r.st.remaining > 0 {
		n := min(FifoSize, r.st.remaining)
		if err := r.readBurst(REG_FIFO, r.st.rxBuf[r.st.index:r.st.index+n]); err != nil {
			r.busError(err)
			r.idle()
			r.rearmRx()
			return
		}
		r.advance(n)
	}
	r.st.rxLen = r.st.index
	r.st.rxActive.Store(false)
	r.st.lastLen = copy(r.st.last[:], r.st.rxBuf[:r.st.rxLen])
	r.st.lastAt = time.Now()
	r.st.rxCount.Add(1)
	r.trace.push(EvRxDone, r.st.rxLen, r.st.index)
	select {
	case r.rxNotify <- struct{}{}:
	default:
	}
	r.rearmRx()
}

// txDone finishes a transmission and re-arms the receiver. If bytes were left over the TX
// FIFO underflowed and both FIFOs get flushed.
func (r *Radio) txDone() {
	r.st.txActive.Store(false)
	r.st.txCount.Add(1)
	if r.st.remaining > 0 {
		r.trace.push(EvUnderflow, r.st.remaining, r.st.index)
		if err := r.flush(); err != nil {
			r.busError(err)
		}
	} else {
		r.trace.push(EvTxDone, r.st.total, r.st.index)
	}
	r.rearmRx()
}

// armRx switches GDO2 to the RX threshold function and strobes RX, must be called with r.isr
// held. It does not wait for the chip to reach RX.
func (r *Radio) armRx() error {
	r.st.rxActive.Store(false)
	r.st.txActive.Store(false)
	r.setMode(Receiving)
	if err := r.writeReg(REG_IOCFG2, GDO_RX_THRESHOLD); err != nil {
		return err
	}
	return r.strobe(SRX)
}

// rearmRx is armRx for the handlers, which have nowhere to return an error to.
func (r *Radio) rearmRx() {
	if err := r.armRx(); err != nil {
		r.busError(err)
	}
}

func (r *Radio) busError(err error) {
	r.trace.push(EvBusError, 0, r.st.index)
	r.setErr(err)
}

// WaitForState polls MARCSTATE every millisecond until the chip reaches target or the timeout
// expires. If it times out sitting in RX FIFO overflow both FIFOs are flushed. It must not be
// called from an interrupt handler.
func (r *Radio) WaitForState(target byte, timeout time.Duration) (bool, error) {
	polls := int(timeout / time.Millisecond)
	if polls < 1 {
		polls = 1
	}
	var s byte
	for ; polls > 0; polls-- {
		v, err := r.readStatus(REG_MARCSTATE)
		if err != nil {
			return false, err
		}
		s = v & 0x1F
		if s == target {
			return true, nil
		}
		r.sleep(time.Millisecond)
	}
	if s == STATE_RXFIFO_OVERFLOW {
		r.trace.push(EvOverflow, 0, 0)
		r.log("RX FIFO overflow waiting for %s, flushing", StateName(target))
		if err := r.flush(); err != nil {
			return false, err
		}
	}
	return false, nil
}

// dispatch converts edges on a pin into calls of handler until the radio is closed.
func (r *Radio) dispatch(pin subghz.GPIO, handler func()) {
	defer r.wg.Done()
	if r.realtime > 0 {
		if err := thread.Realtime(r.realtime); err != nil {
			r.log("cannot set realtime priority for gpio%d: %s", pin.Number(), err)
		}
	}
	for {
		select {
		case <-r.stop:
			return
		default:
		}
		if pin.WaitForEdge(100 * time.Millisecond) {
			handler()
		}
	}
}

// deliver publishes completed packets on RxChan, off the interrupt path.
func (r *Radio) deliver() {
	defer r.wg.Done()
	for {
		select {
		case <-r.stop:
			return
		case <-r.rxNotify:
		}
		r.isr.Lock()
		pkt := &RxPacket{Payload: append([]byte(nil), r.st.last[:r.st.lastLen]...), At: r.st.lastAt}
		r.isr.Unlock()
		select {
		case r.rxChan <- pkt:
		default:
			r.log("rxChan full")
		}
	}
}
