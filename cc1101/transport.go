// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package cc1101

import (
	"fmt"
)

// All register access goes through the preallocated transfer buffers so the interrupt path
// does not allocate. The first byte clocked back on every transfer is the chip status byte.

// xfer exchanges the first n bytes of the transfer buffers, the caller must hold r.bus.
func (r *Radio) xfer(n int) error {
	if err := r.spi.Tx(r.wBuf[:n], r.rBuf[:n]); err != nil {
		return fmt.Errorf("cc1101: %w: %w", ErrBus, err)
	}
	r.status.Store(uint32(r.rBuf[0]))
	return nil
}

// writeReg writes a single configuration register.
func (r *Radio) writeReg(addr, value byte) error {
	r.bus.Lock()
	defer r.bus.Unlock()
	r.wBuf[0] = addr
	r.wBuf[1] = value
	return r.xfer(2)
}

// writeBurst writes up to 64 bytes starting at addr. For the FIFO address all bytes go into
// the TX FIFO.
func (r *Radio) writeBurst(addr byte, data []byte) error {
	if len(data) > FifoSize {
		return fmt.Errorf("cc1101: burst write of %d bytes", len(data))
	}
	r.bus.Lock()
	defer r.bus.Unlock()
	r.wBuf[0] = addr | WRITE_BURST
	copy(r.wBuf[1:], data)
	return r.xfer(len(data) + 1)
}

// readReg reads a single configuration register.
func (r *Radio) readReg(addr byte) (byte, error) {
	r.bus.Lock()
	defer r.bus.Unlock()
	r.wBuf[0] = addr | READ_SINGLE
	r.wBuf[1] = 0
	if err := r.xfer(2); err != nil {
		return 0, err
	}
	return r.rBuf[1], nil
}

// readBurst fills dst, up to 64 bytes, starting at addr. For the FIFO address all bytes come
// from the RX FIFO.
func (r *Radio) readBurst(addr byte, dst []byte) error {
	if len(dst) > FifoSize {
		return fmt.Errorf("cc1101: burst read of %d bytes", len(dst))
	}
	r.bus.Lock()
	defer r.bus.Unlock()
	r.wBuf[0] = addr | READ_BURST
	for i := 1; i <= len(dst); i++ {
		r.wBuf[i] = 0
	}
	if err := r.xfer(len(dst) + 1); err != nil {
		return err
	}
	copy(dst, r.rBuf[1:len(dst)+1])
	return nil
}

// readStatus reads a status register, these share their addresses with the strobes and are
// distinguished by the burst bit.
func (r *Radio) readStatus(addr byte) (byte, error) {
	r.bus.Lock()
	defer r.bus.Unlock()
	r.wBuf[0] = addr | READ_BURST
	r.wBuf[1] = 0
	if err := r.xfer(2); err != nil {
		return 0, err
	}
	return r.rBuf[1], nil
}

// strobe issues a command strobe.
func (r *Radio) strobe(cmd byte) error {
	r.bus.Lock()
	defer r.bus.Unlock()
	r.wBuf[0] = cmd
	return r.xfer(1)
}

// flush empties both FIFOs, the chip must be idle or in an overflow/underflow state.
func (r *Radio) flush() error {
	if err := r.strobe(SFRX); err != nil {
		return err
	}
	return r.strobe(SFTX)
}

// idle forces the chip into IDLE and empties both FIFOs.
func (r *Radio) idle() error {
	if err := r.strobe(SIDLE); err != nil {
		return err
	}
	return r.flush()
}

// logRegs prints all the configuration registers.
func (r *Radio) logRegs() error {
	var regs [NUM_CONFIG_REG]byte
	if err := r.readBurst(REG_IOCFG2, regs[:]); err != nil {
		return err
	}
	r.log("     0  1  2  3  4  5  6  7  8  9  A  B  C  D  E  F")
	for i := 0; i < len(regs); i += 16 {
		line := fmt.Sprintf("%02x:", i)
		for j := 0; j < 16 && i+j < len(regs); j++ {
			line += fmt.Sprintf(" %02x", regs[i+j])
		}
		r.log(line)
	}
	return nil
}
