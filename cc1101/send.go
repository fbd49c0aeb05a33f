// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package cc1101

import (
	"fmt"
	"time"

	"github.com/tve/subghz"
)

const (
	ccaAttempts = 3                // channel samples before giving up
	ccaSettle   = time.Millisecond // time for RSSI to become valid after entering RX
)

// Send transmits a packet. The payload is zero-padded to the configured packet length and must
// not be longer. Send waits for any packet being received or transmitted to complete, then
// listens for up to three random back-off periods of 0-255ms for the channel to be clear. If it
// never is the packet is dropped, the drop counter incremented, and ErrChannelBusy returned.
// Otherwise the first FIFO-full of the packet is loaded and the transmission started; Send
// returns while the interrupt handlers stream the rest and then switch back to receive.
func (r *Radio) Send(payload []byte) error {
	r.isr.Lock()
	configured, pktLen := r.configured, r.st.pktLen
	r.isr.Unlock()
	if !configured {
		return fmt.Errorf("cc1101: cannot send: %w", ErrNotConfigured)
	}
	if len(payload) > pktLen {
		return fmt.Errorf("cc1101: payload of %d bytes exceeds packet length %d: %w",
			len(payload), pktLen, ErrTooLong)
	}

	r.sendMu.Lock()
	defer r.sendMu.Unlock()

	// Wait for the transfer in progress to finish, then take the radio out of receive while
	// holding the lock so no new packet can start in between.
	var waited time.Duration
	for {
		r.isr.Lock()
		if !r.st.rxActive.Load() && Mode(r.st.mode.Load()) != Transmitting {
			break
		}
		r.isr.Unlock()
		if r.sendTimeout > 0 && waited >= r.sendTimeout {
			return fmt.Errorf("cc1101: transfer in progress for %s: %w", waited, ErrBusy)
		}
		r.sleep(time.Millisecond)
		waited += time.Millisecond
	}
	r.setMode(Idle)
	err := r.idle()
	if err == nil {
		st := &r.st
		for i := range st.txBuf[:pktLen] {
			st.txBuf[i] = 0
		}
		copy(st.txBuf[:], payload)
		st.txLen = pktLen
	}
	r.isr.Unlock()
	if err != nil {
		return r.recoverRx(err)
	}

	// Listen with GDO2 showing the clear channel indication.
	if err := r.writeReg(REG_PKTLEN, byte(pktLen)); err != nil {
		return r.recoverRx(err)
	}
	if err := r.writeReg(REG_IOCFG2, GDO_CCA); err != nil {
		return r.recoverRx(err)
	}
	if err := r.strobe(SRX); err != nil {
		return r.recoverRx(err)
	}
	if _, err := r.WaitForState(STATE_RX, 10*time.Millisecond); err != nil {
		return r.recoverRx(err)
	}
	r.sleep(ccaSettle)

	clear := false
	for i := 0; i < ccaAttempts && !clear; i++ {
		r.sleep(r.backoff())
		clear = r.gdo2.Read() == subghz.GpioHigh
	}
	if !clear {
		r.st.dropCount.Add(1)
		r.trace.push(EvCCABusy, pktLen, 0)
		r.log("channel busy, dropping %d byte packet", len(payload))
		if err := r.recoverRx(nil); err != nil {
			return err
		}
		return fmt.Errorf("cc1101: %d attempts: %w", ccaAttempts, ErrChannelBusy)
	}

	// Channel is clear: load what fits and start transmitting, the handlers do the rest.
	r.isr.Lock()
	defer r.isr.Unlock()
	if err := r.writeReg(REG_IOCFG2, GDO_TX_THRESHOLD); err != nil {
		return r.recoverRxLocked(err)
	}
	r.st.txActive.Store(false)
	r.setMode(Transmitting)
	n := min(r.st.txLen, FifoSize-1)
	if err := r.writeBurst(REG_FIFO, r.st.txBuf[:n]); err != nil {
		return r.recoverRxLocked(err)
	}
	r.startTransfer(n, r.st.txLen)
	if err := r.strobe(STX); err != nil {
		return r.recoverRxLocked(err)
	}
	r.trace.push(EvCCAClear, n, n)
	r.trace.push(EvTxStart, n, n)
	return nil
}

// recoverRx idles the chip, flushes the FIFOs, and turns the receiver back on. It returns err,
// or the error encountered while recovering if err is nil.
func (r *Radio) recoverRx(err error) error {
	r.isr.Lock()
	rerr := r.recoverRxLocked(err)
	r.isr.Unlock()
	if rerr != nil && err == nil {
		return rerr
	}
	if _, werr := r.WaitForState(STATE_RX, 10*time.Millisecond); werr != nil && err == nil {
		return werr
	}
	return err
}

// recoverRxLocked is recoverRx without waiting for RX, must be called with r.isr held.
func (r *Radio) recoverRxLocked(err error) error {
	r.setMode(Idle)
	rerr := r.idle()
	if rerr == nil {
		rerr = r.writeReg(REG_PKTLEN, byte(r.st.pktLen))
	}
	if rerr == nil {
		rerr = r.armRx()
	}
	if err != nil {
		return err
	}
	return rerr
}
