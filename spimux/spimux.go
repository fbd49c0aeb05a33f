// Copyright 2017 by Thorsten von Eicken, see LICENSE file

package spimux

import (
	"sync"

	"github.com/tve/subghz"
)

// Conn represents a connection to a device on an SPI bus with a multiplexed chip select.
//
// The purpose of spimux.Conn is to allow two devices to be connected to SPI buses
// that only have a single chip select line. This is accomplished by placing a demux
// on the CS line such that a an extra gpio pin can direct the chip select to either
// of the two devices. The way this functions is that the spimux.Conn Tx function sets
// the demux select for the appropriate device and then performs a std transaction.
//
// A sample circuit is to use an 74LVC1G19 demux with the SPI CS connected to E, the
// gpio select pin connected to A, and the CS inputs of the two devices attached to
// Y0 and Y1 respectively. A pull-down resitor on the A input of the demux is recommended
// to ensure both CS remain inactive when the SPI CS is not driven.
//
// A limitation of the current implementation is that the speed setting and the configuration
// (SPI mode and number of bits) is shared between the two devices, i.e., it is not possible
// to use different settings.
type Conn struct {
	shared     *shared
	subghz.SPI      // the underlying SPI bus with shared chip select
	sel        int  // select value for this device
	closed     bool // this device has been closed
}

type shared struct {
	mu     sync.Mutex  // prevent concurrent access to shared SPI bus
	selPin subghz.GPIO // pin to select between two devices
	open   int         // number of Conns not closed yet
}

// New returns two connections for the provided SPI device, the first one using Low for the
// select pin, and the second using High.
func New(dev subghz.SPI, selPin subghz.GPIO) (*Conn, *Conn) {
	s := &shared{selPin: selPin, open: 2}
	return &Conn{shared: s, SPI: dev, sel: subghz.GpioLow},
		&Conn{shared: s, SPI: dev, sel: subghz.GpioHigh}
}

// Tx sets the select pin to the correct value and calls the underlying Tx.
func (c *Conn) Tx(w, r []byte) error {
	c.shared.mu.Lock()
	defer c.shared.mu.Unlock()

	c.shared.selPin.Out(c.sel)
	return c.SPI.Tx(w, r)
}

// Speed sets the speed of the shared bus.
func (c *Conn) Speed(hz int64) error {
	c.shared.mu.Lock()
	defer c.shared.mu.Unlock()

	return c.SPI.Speed(hz)
}

// Configure sets the mode of the shared bus.
func (c *Conn) Configure(mode int, bits int) error {
	c.shared.mu.Lock()
	defer c.shared.mu.Unlock()

	return c.SPI.Configure(mode, bits)
}

// Close closes the underlying bus once both Conns are closed.
func (c *Conn) Close() error {
	c.shared.mu.Lock()
	defer c.shared.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.shared.open--
	if c.shared.open > 0 {
		return nil
	}
	return c.SPI.Close()
}
