// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package cc1101

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// op is one bus transaction as seen by the fake chip.
type op struct {
	kind byte // 'w': register write, 'r': register read, 's': strobe, 'S': status read,
	//          'F': TX FIFO burst write, 'f': RX FIFO burst read, 'B': burst write, 'b': burst read
	addr byte
	val  byte // value written or read, for FIFO bursts the byte count
}

var errInjected = errors.New("injected bus failure")

// fakeChip emulates enough of a CC1101 behind an SPI bus to exercise the driver: a register
// file, both FIFOs, MARCSTATE driven by the strobes, and a transaction log.
type fakeChip struct {
	mu      sync.Mutex
	regs    [0x40]byte
	marc    byte   // current MARCSTATE
	marcSeq []byte // MARCSTATE values to report before falling back to marc
	rssi    byte
	rxFIFO  []byte
	txFIFO  []byte
	ops     []op
	n       int // transactions so far
	failAt  int // transaction number that fails, 0: never
	closed  bool
}

func newFakeChip() *fakeChip { return &fakeChip{marc: STATE_IDLE} }

func (f *fakeChip) Speed(hz int64) error               { return nil }
func (f *fakeChip) Configure(mode int, bits int) error { return nil }
func (f *fakeChip) Close() error                       { f.closed = true; return nil }

func (f *fakeChip) Tx(w, r []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	if f.failAt > 0 && f.n == f.failAt {
		return errInjected
	}
	if len(w) != len(r) || len(w) == 0 {
		return errors.New("bad transfer length")
	}
	for i := range r {
		r[i] = 0
	}
	r[0] = f.marc << 4 & 0x70

	hdr := w[0]
	addr := hdr & 0x3F
	read := hdr&READ_SINGLE != 0
	burst := hdr&WRITE_BURST != 0

	switch {
	case len(w) == 1 && addr >= SRES && addr <= SNOP:
		f.strobe(addr)
	case addr == REG_FIFO && read:
		for i := 1; i < len(w); i++ {
			if len(f.rxFIFO) > 0 {
				r[i] = f.rxFIFO[0]
				f.rxFIFO = f.rxFIFO[1:]
			}
		}
		f.ops = append(f.ops, op{'f', addr, byte(len(w) - 1)})
	case addr == REG_FIFO:
		f.txFIFO = append(f.txFIFO, w[1:]...)
		f.ops = append(f.ops, op{'F', addr, byte(len(w) - 1)})
	case read && burst && addr >= REG_PARTNUM && addr < REG_PATABLE:
		r[1] = f.statusReg(addr)
		f.ops = append(f.ops, op{'S', addr, r[1]})
	case read && burst:
		for i := 1; i < len(w); i++ {
			r[i] = f.regs[(int(addr)+i-1)&0x3F]
		}
		f.ops = append(f.ops, op{'b', addr, byte(len(w) - 1)})
	case read:
		r[1] = f.regs[addr]
		f.ops = append(f.ops, op{'r', addr, r[1]})
	case burst:
		for i := 1; i < len(w); i++ {
			f.regs[(int(addr)+i-1)&0x3F] = w[i]
		}
		f.ops = append(f.ops, op{'B', addr, byte(len(w) - 1)})
	default:
		f.regs[addr] = w[1]
		f.ops = append(f.ops, op{'w', addr, w[1]})
	}
	return nil
}

func (f *fakeChip) strobe(cmd byte) {
	f.ops = append(f.ops, op{'s', cmd, 0})
	switch cmd {
	case SRES:
		f.regs = [0x40]byte{}
		f.marc = STATE_IDLE
	case SRX:
		f.marc = STATE_RX
	case STX:
		f.marc = STATE_TX
	case SIDLE:
		f.marc = STATE_IDLE
	case SFRX:
		f.rxFIFO = nil
	case SFTX:
		f.txFIFO = nil
	}
}

func (f *fakeChip) statusReg(addr byte) byte {
	switch addr {
	case REG_PARTNUM:
		return 0x00
	case REG_VERSION:
		return 0x14
	case REG_RSSI:
		return f.rssi
	case REG_MARCSTATE:
		if len(f.marcSeq) > 0 {
			s := f.marcSeq[0]
			f.marcSeq = f.marcSeq[1:]
			return s
		}
		return f.marc | 0xE0 // the top bits are undefined
	case REG_RXBYTES:
		return byte(len(f.rxFIFO))
	case REG_TXBYTES:
		return byte(len(f.txFIFO))
	}
	return 0
}

// receive puts bytes into the RX FIFO as if they had come in over the air.
func (f *fakeChip) receive(b []byte) {
	f.mu.Lock()
	f.rxFIFO = append(f.rxFIFO, b...)
	f.mu.Unlock()
}

// log returns the transactions so far, and clears them.
func (f *fakeChip) log() []op {
	f.mu.Lock()
	defer f.mu.Unlock()
	ops := f.ops
	f.ops = nil
	return ops
}

// sent returns and clears the bytes written into the TX FIFO.
func (f *fakeChip) sent() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.txFIFO
	f.txFIFO = nil
	return b
}

func (f *fakeChip) state() byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.marc
}

func count(ops []op, kind, addr byte) int {
	n := 0
	for _, o := range ops {
		if o.kind == kind && o.addr == addr {
			n++
		}
	}
	return n
}

// fakePin is a GPIO whose level is set by the test. Reads can be scripted.
type fakePin struct {
	mu    sync.Mutex
	num   int
	level int
	seq   []int // levels returned by Read before falling back to level
	reads int
	edge  chan struct{}
	mode  int
}

func newFakePin(num int) *fakePin { return &fakePin{num: num, edge: make(chan struct{}, 1)} }

func (p *fakePin) In(edge int) error { p.mu.Lock(); p.mode = edge; p.mu.Unlock(); return nil }
func (p *fakePin) Out(level int)     { p.set(level) }
func (p *fakePin) Number() int       { return p.num }
func (p *fakePin) Close() error      { return nil }

func (p *fakePin) Read() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reads++
	if len(p.seq) > 0 {
		l := p.seq[0]
		p.seq = p.seq[1:]
		return l
	}
	return p.level
}

func (p *fakePin) WaitForEdge(timeout time.Duration) bool {
	if timeout <= 0 {
		select {
		case <-p.edge:
			return true
		default:
			return false
		}
	}
	select {
	case <-p.edge:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (p *fakePin) set(level int) {
	p.mu.Lock()
	p.level = level
	p.mu.Unlock()
}

// toggle sets the level and signals an edge to a waiting dispatcher.
func (p *fakePin) toggle(level int) {
	p.set(level)
	p.edge <- struct{}{}
}

func (p *fakePin) readCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reads
}

// testRadio returns a configured radio on a fake chip, with sleeps and back-off disabled and
// receive armed without starting the dispatch goroutines.
func testRadio(t *testing.T, cfg Config) (*Radio, *fakeChip, *fakePin, *fakePin) {
	chip := newFakeChip()
	gdo0, gdo2 := newFakePin(24), newFakePin(25)
	r, err := New(chip, gdo0, gdo2, RadioOpts{Logger: t.Logf})
	if err != nil {
		t.Fatal(err)
	}
	r.sleep = func(time.Duration) {}
	r.backoff = func() time.Duration { return 0 }
	if _, err := r.Configure(cfg); err != nil {
		t.Fatal(err)
	}
	r.isr.Lock()
	err = r.armRx()
	r.isr.Unlock()
	if err != nil {
		t.Fatal(err)
	}
	chip.log()
	return r, chip, gdo0, gdo2
}

// pattern returns n bytes starting with first and counting up.
func pattern(first byte, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = first + byte(i)
	}
	return b
}

// checkAccounting verifies the state invariants that must hold between events.
func checkAccounting(t *testing.T, r *Radio) {
	t.Helper()
	s := r.Snapshot()
	if s.RxActive && s.TxActive {
		t.Fatalf("both rx and tx in progress: %+v", s)
	}
	if (s.RxActive || s.TxActive) && s.Index+s.Remaining != s.Total {
		t.Fatalf("index %d + remaining %d != total %d", s.Index, s.Remaining, s.Total)
	}
	if s.Index < 0 || s.Remaining < 0 || s.Index > MaxPacket {
		t.Fatalf("accounting out of range: %+v", s)
	}
}
