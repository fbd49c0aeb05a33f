// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package subghz

// The interfaces in here decouple the radio driver from the library used to reach the hardware.
// Two backends exist: embd (below) and periph (periph.go).

import (
	"errors"
	"fmt"
	"time"

	"github.com/kidoman/embd"
)

// SPI is a full-duplex byte exchange with a single device on an SPI bus. Tx clocks out w and
// concurrently fills r, which must have the same length.
type SPI interface {
	Tx(w, r []byte) error
	Speed(hz int64) error
	Configure(mode int, bits int) error
	Close() error
}

const (
	SPIMode0 = 0x0 // CPOL=0, CPHA=0
	SPIMode1 = 0x1 // CPOL=0, CPHA=1
	SPIMode2 = 0x2 // CPOL=1, CPHA=0
	SPIMode3 = 0x3 // CPOL=1, CPHA=1
)

// GPIO is a digital pin. In configures it as input and selects which edges WaitForEdge
// reports. Read returns the current level.
type GPIO interface {
	In(edge int) error
	Read() int
	WaitForEdge(timeout time.Duration) bool
	Out(level int)
	Number() int
	Close() error
}

const (
	GpioLow  = 0
	GpioHigh = 1

	GpioNoEdge      = 0
	GpioRisingEdge  = 1
	GpioFallingEdge = 2
	GpioBothEdges   = 3
)

//===== SPI shim for embd

// NewSPI opens SPI channel (chip select) ch using embd. embd has to be initialized by the
// caller using embd.InitSPI.
func NewSPI(ch byte, hz int) SPI {
	return &spi{SPIBus: embd.NewSPIBus(embd.SPIMode0, ch, hz, 8, 0), hz: int64(hz)}
}

type spi struct {
	embd.SPIBus
	hz int64
}

func (s *spi) Tx(w, r []byte) error {
	if len(w) != len(r) {
		return fmt.Errorf("SPI: tx of %d bytes with rx buffer of %d", len(w), len(r))
	}
	copy(r, w)
	return s.TransferAndReceiveData(r)
}

func (s *spi) Speed(hz int64) error {
	if hz != s.hz {
		return fmt.Errorf("SPI: sorry, speed is fixed at %dHz when opening the bus", s.hz)
	}
	return nil
}

func (s *spi) Configure(mode int, bits int) error {
	if mode != SPIMode0 {
		return errors.New("SPI: sorry, only SPI mode 0 supported")
	}
	if bits != 8 {
		return errors.New("SPI: sorry, only 8-bit mode supported")
	}
	return nil
}

//===== GPIO shim for embd

// NewGPIO opens a pin by name using embd. embd has to be initialized by the caller using
// embd.InitGPIO.
func NewGPIO(name string) (GPIO, error) {
	g, err := embd.NewDigitalPin(name)
	if err != nil {
		return nil, fmt.Errorf("NewDigitalPin %s: %s", name, err)
	}
	return &gpio{p: g, dir: embd.In, edge: make(chan struct{}, 1)}, nil
}

type gpio struct {
	p        embd.DigitalPin
	dir      embd.Direction
	watching bool
	edge     chan struct{}
}

func (g *gpio) In(edge int) error {
	if err := g.p.SetDirection(embd.In); err != nil {
		return err
	}
	g.dir = embd.In
	if g.watching {
		g.p.StopWatching()
		g.watching = false
	}
	if edge == GpioNoEdge {
		return nil
	}
	e := []embd.Edge{embd.EdgeNone, embd.EdgeRising, embd.EdgeFalling, embd.EdgeBoth}[edge&3]
	if err := g.p.Watch(e, g.edgeCB); err != nil {
		return err
	}
	g.watching = true
	return nil
}

func (g *gpio) Read() int {
	v, _ := g.p.Read()
	return v
}

func (g *gpio) WaitForEdge(timeout time.Duration) bool {
	if timeout <= 0 {
		select {
		case <-g.edge:
			return true
		default:
			return false
		}
	}
	to := time.NewTimer(timeout)
	defer to.Stop()
	select {
	case <-g.edge:
		return true
	case <-to.C:
		return false
	}
}

func (g *gpio) Out(level int) {
	if g.dir != embd.Out {
		g.p.SetDirection(embd.Out)
		g.dir = embd.Out
	}
	g.p.Write(level)
}

func (g *gpio) Number() int {
	return g.p.N()
}

func (g *gpio) Close() error {
	if g.watching {
		g.p.StopWatching()
		g.watching = false
	}
	return g.p.Close()
}

func (g *gpio) edgeCB(embd.DigitalPin) {
	select {
	case g.edge <- struct{}{}:
	default:
	}
}
