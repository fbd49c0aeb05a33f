// Copyright 2017 by Thorsten von Eicken, see LICENSE file

package subghz

import (
	"errors"
	"fmt"
	"time"

	pgpio "periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/conn/physic"
	pspi "periph.io/x/periph/conn/spi"
	"periph.io/x/periph/conn/spi/spireg"
	"periph.io/x/periph/host"
)

// InitPeriph loads the periph host drivers. It must be called once before opening any periph
// SPI port or pin.
func InitPeriph() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("periph: %s", err)
	}
	return nil
}

// PeriphSPI is an SPI backed by a periph port. The port is connected lazily by Configure
// because periph fixes speed, mode, and word size when connecting.
type PeriphSPI struct {
	port pspi.PortCloser
	conn pspi.Conn
	hz   physic.Frequency
}

// NewPeriphSPI opens the SPI port by name, "" selects the first port found.
func NewPeriphSPI(name string) (*PeriphSPI, error) {
	p, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("periph: cannot open SPI port %q: %s", name, err)
	}
	return &PeriphSPI{port: p, hz: 4 * physic.MegaHertz}, nil
}

// Tx performs a full-duplex transaction.
func (s *PeriphSPI) Tx(w, r []byte) error {
	if s.conn == nil {
		return errors.New("periph: SPI port used before Configure")
	}
	return s.conn.Tx(w, r)
}

// Speed sets the clock used by the next Configure.
func (s *PeriphSPI) Speed(hz int64) error {
	if hz <= 0 {
		return fmt.Errorf("periph: invalid SPI speed %d", hz)
	}
	s.hz = physic.Frequency(hz) * physic.Hertz
	return nil
}

// Configure connects to the port using the given mode and word size.
func (s *PeriphSPI) Configure(mode int, bits int) error {
	c, err := s.port.Connect(s.hz, pspi.Mode(mode), bits)
	if err != nil {
		return fmt.Errorf("periph: cannot connect SPI: %s", err)
	}
	s.conn = c
	return nil
}

// Close releases the port.
func (s *PeriphSPI) Close() error { return s.port.Close() }

// PeriphGPIO is a GPIO backed by a periph pin.
type PeriphGPIO struct {
	p pgpio.PinIO
}

// NewPeriphGPIO looks a pin up by name or number, e.g. "GPIO25" or "25".
func NewPeriphGPIO(name string) (*PeriphGPIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("periph: cannot open pin %s", name)
	}
	return &PeriphGPIO{p}, nil
}

var periphEdges = [...]pgpio.Edge{pgpio.NoEdge, pgpio.RisingEdge, pgpio.FallingEdge, pgpio.BothEdges}

func (g *PeriphGPIO) In(edge int) error {
	return g.p.In(pgpio.PullDown, periphEdges[edge&3])
}

func (g *PeriphGPIO) Read() int {
	if g.p.Read() == pgpio.High {
		return GpioHigh
	}
	return GpioLow
}

func (g *PeriphGPIO) WaitForEdge(timeout time.Duration) bool { return g.p.WaitForEdge(timeout) }

func (g *PeriphGPIO) Out(level int) { g.p.Out(level != GpioLow) }

func (g *PeriphGPIO) Number() int { return g.p.Number() }

func (g *PeriphGPIO) Close() error { return g.p.Halt() }
