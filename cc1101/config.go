// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package cc1101

import (
	"fmt"
)

// Registers derives the parameters for the config and returns the register settings as pairs
// of <address, data> in the order Configure writes them after a reset.
func Registers(c Config) ([]byte, Params, error) {
	p, err := Derive(c)
	if err != nil {
		return nil, p, err
	}
	b2i := func(b bool) byte {
		if b {
			return 1
		}
		return 0
	}
	return []byte{
		REG_IOCFG2, GDO_RX_THRESHOLD, // GDO2 follows the RX FIFO threshold, switched for TX
		REG_IOCFG0, GDO_SYNC_WORD, // GDO0 asserts on sync, deasserts at end of packet
		REG_FIFOTHR, fifoThreshold, // 60 bytes RX, 5 bytes TX
		REG_PKTLEN, byte(c.PacketLength),
		REG_PKTCTRL0, b2i(c.Whitening)<<6 | 0x04, // CRC on, FIFO mode, fixed length
		REG_PKTCTRL1, 0x00, // no status append, no address check
		REG_ADDR, 0x00,
		REG_CHANNR, 0x00,
		REG_FSCTRL0, 0x00,
		REG_FSCTRL1, p.IFWord & 0x1F,
		REG_FREQ2, byte(p.FreqWord >> 16),
		REG_FREQ1, byte(p.FreqWord >> 8),
		REG_FREQ0, byte(p.FreqWord),
		REG_MDMCFG4, p.ChanBWE<<6 | p.ChanBWM<<4 | p.DrateE,
		REG_MDMCFG3, p.DrateM,
		REG_MDMCFG2, p.ModCode<<4 | c.SyncMode,
		REG_MDMCFG1, b2i(c.FEC)<<7 | p.Preamble<<4 | p.ChanSpcE,
		REG_MDMCFG0, p.ChanSpcM,
		REG_DEVIATN, p.DeviatE<<4 | p.DeviatM,
		REG_MCSM2, 0x00,
		REG_MCSM1, 0x30, // CCA: RSSI below threshold unless receiving, idle after RX and TX
		REG_MCSM0, 0x18, // calibrate when going from idle to RX or TX
		REG_FOCCFG, 0x1D,
		REG_BSCFG, 0x1C,
		REG_AGCCTRL2, 0xC7,
		REG_AGCCTRL1, 0x00,
		REG_AGCCTRL0, 0xB2,
		REG_FREND1, 0xB6,
		REG_FREND0, 0x10, // PATABLE[0]
		REG_FSCAL3, 0xEA,
		REG_FSCAL2, 0x0A,
		REG_FSCAL1, 0x00,
		REG_FSCAL0, 0x11,
		REG_FSTEST, 0x59,
		REG_TEST2, 0x88,
		REG_TEST1, 0x31,
		REG_TEST0, 0x09,
	}, p, nil
}

// Configure resets the radio and loads the config. The radio is left idle with the receiver
// off, call Start to turn it on, also if it had been started before. An invalid config is
// rejected before anything is written. A bus error aborts the sequence and leaves the chip
// partially configured, Configure must then be called again.
func (r *Radio) Configure(c Config) (Params, error) {
	regs, p, err := Registers(c)
	if err != nil {
		return p, err
	}

	r.isr.Lock()
	r.setMode(Idle)
	r.st.rxActive.Store(false)
	r.st.txActive.Store(false)
	r.configured = false
	r.isr.Unlock()

	if err := r.strobe(SRES); err != nil {
		return p, err
	}
	for i := 0; i < len(regs)-1; i += 2 {
		if err := r.writeReg(regs[i], regs[i+1]); err != nil {
			r.log("error writing register %#02x", regs[i])
			return p, err
		}
	}

	r.isr.Lock()
	r.cfg = c
	r.params = p
	r.st.pktLen = c.PacketLength
	r.configured = true
	r.isr.Unlock()
	r.log("configured %s", p)
	return p, nil
}

// ReadRegs reads back all configuration registers.
func (r *Radio) ReadRegs() ([NUM_CONFIG_REG]byte, error) {
	var regs [NUM_CONFIG_REG]byte
	err := r.readBurst(REG_IOCFG2, regs[:])
	return regs, err
}

// PartInfo returns the chip's part number and version, a CC1101 reports 0x00 and 0x14 (or 0x04
// on old silicon).
func (r *Radio) PartInfo() (part, version byte, err error) {
	if part, err = r.readStatus(REG_PARTNUM); err != nil {
		return
	}
	version, err = r.readStatus(REG_VERSION)
	return
}

// RSSI returns the current received signal strength in dBm.
func (r *Radio) RSSI() (float64, error) {
	v, err := r.readStatus(REG_RSSI)
	if err != nil {
		return 0, err
	}
	return RSSIdBm(v), nil
}

// PowerTable maps output power in dBm to PATABLE values for 433MHz.
var PowerTable = []struct {
	DBm   int
	Value byte
}{
	{-30, 0x12}, {-20, 0x0E}, {-15, 0x1D}, {-10, 0x34}, {0, 0x60}, {5, 0x84}, {7, 0xC8}, {10, 0xC0},
}

// SetPower configures the highest output power that does not exceed dbm and returns it. Power
// levels below the table's minimum select the minimum.
func (r *Radio) SetPower(dbm int) (int, error) {
	e := PowerTable[0]
	for _, pt := range PowerTable {
		if pt.DBm <= dbm {
			e = pt
		}
	}
	if err := r.writeReg(REG_PATABLE, e.Value); err != nil {
		return 0, err
	}
	r.log("SetPower %ddBm (%#02x)", e.DBm, e.Value)
	return e.DBm, nil
}

// SetFrequency changes the carrier frequency. The radio is briefly idled to reprogram the
// synthesizer and the receiver is re-armed afterwards if it was on. It fails with ErrBusy if a
// packet is being transmitted.
func (r *Radio) SetFrequency(hz uint32) error {
	r.isr.Lock()
	defer r.isr.Unlock()
	if !r.configured {
		return fmt.Errorf("cc1101: cannot set frequency: %w", ErrNotConfigured)
	}
	c := r.cfg
	c.Freq = hz
	if err := c.Validate(); err != nil {
		return err
	}
	if Mode(r.st.mode.Load()) == Transmitting || r.st.rxActive.Load() {
		return fmt.Errorf("cc1101: cannot set frequency: %w", ErrBusy)
	}
	wasRx := Mode(r.st.mode.Load()) == Receiving
	r.setMode(Idle)
	if err := r.strobe(SIDLE); err != nil {
		return err
	}
	fw := FreqWord(Xtal, hz)
	for _, rv := range [][2]byte{{REG_FREQ2, byte(fw >> 16)}, {REG_FREQ1, byte(fw >> 8)}, {REG_FREQ0, byte(fw)}} {
		if err := r.writeReg(rv[0], rv[1]); err != nil {
			return err
		}
	}
	r.cfg = c
	r.params.FreqWord = fw
	r.log("SetFrequency: %dHz", hz)
	if wasRx {
		return r.armRx()
	}
	return nil
}
