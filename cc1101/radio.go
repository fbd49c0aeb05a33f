// Copyright 2016 by Thorsten von Eicken, see LICENSE file

// The cc1101 package drives a TI CC1101 sub-GHz transceiver connected to an SPI bus with its two
// GDO pins wired to interrupt capable GPIO pins.
//
// The driver operates the radio in fixed packet length mode with packets of up to 255 bytes.
// Since the chip's FIFOs only hold 64 bytes, packets are streamed through the FIFO using two
// interrupt lines. GDO0 signals the packet boundaries: it rises when the sync word has been
// sent or received and falls at the end of the packet. GDO2 signals FIFO thresholds: in receive
// mode it rises when 60 bytes are waiting to be unloaded, in transmit mode it falls when fewer
// than 5 bytes are left to send. During channel assessment before a transmission GDO2 shows
// the clear channel indication instead.
//
// The radio is receive-first: every path through the driver, including all recoverable faults
// (FIFO overflow or underflow, busy channel, spurious edges) ends by re-arming the receiver.
//
// Received packets are published on RxChan, which has a small amount of buffering, and the last
// completed packet can also be retrieved using LastPacket. Packets are transmitted using Send,
// which performs a clear channel assessment with random back-off first.
//
// Errors talking to the chip that occur in the interrupt path are recorded as a persistent error
// retrievable with Error, all other errors are returned to the caller.
package cc1101

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tve/subghz"
)

const rxChanCap = 4 // queue up to 4 received packets before dropping

// Errors returned by the driver, test for them using errors.Is.
var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrBus           = errors.New("bus transfer failed")
	ErrChannelBusy   = errors.New("channel busy")
	ErrTooLong       = errors.New("packet too long")
	ErrBusy          = errors.New("radio busy")
	ErrNotConfigured = errors.New("radio not configured")
)

// Radio represents a CC1101 transceiver.
type Radio struct {
	RxChan <-chan *RxPacket // channel for received packets
	// hardware
	spi  subghz.SPI  // SPI device to access the radio
	gdo0 subghz.GPIO // packet boundary interrupt
	gdo2 subghz.GPIO // FIFO threshold interrupt and clear channel indication
	// bus
	bus    sync.Mutex // guards the transfer buffers
	wBuf   [FifoSize + 1]byte
	rBuf   [FifoSize + 1]byte
	status atomic.Uint32 // chip status byte of the most recent transfer
	// state
	isr        sync.Mutex // serializes interrupt handlers and state updates from Send/Configure
	sendMu     sync.Mutex // serializes concurrent Send calls
	st         state
	cfg        Config
	params     Params
	configured bool
	trace      trace
	rxNotify   chan struct{} // completed receive, never blocks the handler
	rxChan     chan *RxPacket
	errMu      sync.Mutex
	err        error // persistent error
	log        LogPrintf
	// options
	sendTimeout time.Duration
	realtime    int
	sleep       func(time.Duration)
	backoff     func() time.Duration
	// goroutines
	stop      chan struct{}
	wg        sync.WaitGroup
	started   bool
	closeOnce sync.Once
}

// RadioOpts contains options used when initializing a Radio.
type RadioOpts struct {
	SpeedHz     int64         // SPI clock, default 4MHz, the chip supports up to 6.5MHz bursts
	SendTimeout time.Duration // max time Send waits for a transfer in progress, 0: forever
	Realtime    int           // >0: realtime priority for the interrupt goroutines
	Logger      LogPrintf     // function to use for logging
}

// RxPacket is a received packet.
type RxPacket struct {
	Payload []byte    // full fixed-length packet
	At      time.Time // time of end of packet interrupt
}

// LogPrintf is a function used by the driver to print logging info.
type LogPrintf func(format string, v ...interface{})

// New initializes a Radio given an SPI device and the two interrupt pins. It does not touch the
// radio's registers: call Configure to load a configuration and then Start to turn the receiver
// on.
func New(dev subghz.SPI, gdo0, gdo2 subghz.GPIO, opts RadioOpts) (*Radio, error) {
	r := &Radio{
		spi: dev, gdo0: gdo0, gdo2: gdo2,
		rxNotify:    make(chan struct{}, 1),
		rxChan:      make(chan *RxPacket, rxChanCap),
		stop:        make(chan struct{}),
		sendTimeout: opts.SendTimeout,
		realtime:    opts.Realtime,
		sleep:       time.Sleep,
		backoff:     func() time.Duration { return time.Duration(rand.Intn(256)) * time.Millisecond },
		log:         func(format string, v ...interface{}) {},
	}
	r.RxChan = r.rxChan
	r.SetLogger(opts.Logger)

	speed := opts.SpeedHz
	if speed == 0 {
		speed = 4 * 1000 * 1000
	}
	if err := dev.Speed(speed); err != nil {
		return nil, fmt.Errorf("cc1101: cannot set speed, %v", err)
	}
	if err := dev.Configure(subghz.SPIMode0, 8); err != nil {
		return nil, fmt.Errorf("cc1101: cannot set mode, %v", err)
	}
	return r, nil
}

// SetLogger sets a logging function, nil may be used to disable logging, which is the default.
func (r *Radio) SetLogger(l LogPrintf) {
	if l != nil {
		r.log = func(format string, v ...interface{}) { l("cc1101: "+format, v...) }
	} else {
		r.log = func(format string, v ...interface{}) {}
	}
}

// Error returns any persistent error that may have been encountered.
func (r *Radio) Error() error {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	return r.err
}

func (r *Radio) setErr(err error) {
	r.errMu.Lock()
	if r.err == nil {
		r.err = err
	}
	r.errMu.Unlock()
}

// Status returns the chip status byte captured during the most recent bus transfer.
func (r *Radio) Status() byte { return byte(r.status.Load()) }

// Mode returns the current operating mode.
func (r *Radio) Mode() Mode { return Mode(r.st.mode.Load()) }

// RxCount returns the number of packets received.
func (r *Radio) RxCount() uint32 { return r.st.rxCount.Load() }

// TxCount returns the number of packets transmitted.
func (r *Radio) TxCount() uint32 { return r.st.txCount.Load() }

// DropCount returns the number of packets not sent because the channel stayed busy.
func (r *Radio) DropCount() uint32 { return r.st.dropCount.Load() }

// LastPacket returns a copy of the last completely received packet, or nil.
func (r *Radio) LastPacket() []byte {
	r.isr.Lock()
	defer r.isr.Unlock()
	if r.st.lastLen == 0 {
		return nil
	}
	return append([]byte(nil), r.st.last[:r.st.lastLen]...)
}

// Config returns the configuration and derived parameters last loaded by Configure.
func (r *Radio) Config() (Config, Params) {
	r.isr.Lock()
	defer r.isr.Unlock()
	return r.cfg, r.params
}

// Start turns the receiver on and, the first time, starts the goroutines that dispatch
// interrupts.
func (r *Radio) Start() error {
	r.isr.Lock()
	ok, started := r.configured, r.started
	r.isr.Unlock()
	if !ok {
		return fmt.Errorf("cc1101: cannot start: %w", ErrNotConfigured)
	}

	if !started {
		for _, p := range []subghz.GPIO{r.gdo0, r.gdo2} {
			if err := p.In(subghz.GpioBothEdges); err != nil {
				return fmt.Errorf("cc1101: error initializing interrupt pin: %s", err)
			}
			for p.WaitForEdge(0) {
			}
		}
	}

	r.isr.Lock()
	err := r.armRx()
	r.isr.Unlock()
	if err != nil {
		return err
	}
	if ok, err := r.WaitForState(STATE_RX, 10*time.Millisecond); err != nil {
		return err
	} else if !ok {
		r.log("receiver did not reach RX")
	}
	if started {
		return nil
	}

	r.isr.Lock()
	r.started = true
	r.isr.Unlock()
	r.wg.Add(3)
	go r.dispatch(r.gdo0, r.HandlePacketEdge)
	go r.dispatch(r.gdo2, r.HandleThresholdEdge)
	go r.deliver()
	r.log("receiver started, %s", r.params)
	return nil
}

// Close stops the interrupt goroutines, closes RxChan, and closes the SPI device.
func (r *Radio) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.stop)
		r.isr.Lock()
		started := r.started
		r.isr.Unlock()
		if started {
			r.gdo0.In(subghz.GpioNoEdge)
			r.gdo2.In(subghz.GpioNoEdge)
		}
		r.wg.Wait()
		close(r.rxChan)
		r.strobe(SIDLE)
		err = r.spi.Close()
	})
	return err
}
