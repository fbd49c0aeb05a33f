// Copyright 2017 by Thorsten von Eicken, see LICENSE file

package spimux

import (
	"testing"
	"time"
)

type fakeSPI struct {
	sel    *fakePin
	seen   []int // select level at each Tx
	closed int
}

func (f *fakeSPI) Tx(w, r []byte) error               { f.seen = append(f.seen, f.sel.level); return nil }
func (f *fakeSPI) Speed(hz int64) error               { return nil }
func (f *fakeSPI) Configure(mode int, bits int) error { return nil }
func (f *fakeSPI) Close() error                       { f.closed++; return nil }

type fakePin struct{ level int }

func (p *fakePin) In(edge int) error                      { return nil }
func (p *fakePin) Read() int                              { return p.level }
func (p *fakePin) WaitForEdge(timeout time.Duration) bool { return false }
func (p *fakePin) Out(level int)                          { p.level = level }
func (p *fakePin) Number() int                            { return 7 }
func (p *fakePin) Close() error                           { return nil }

func TestSelect(t *testing.T) {
	pin := &fakePin{}
	bus := &fakeSPI{sel: pin}
	c0, c1 := New(bus, pin)
	buf := make([]byte, 2)
	c1.Tx(buf, buf)
	c0.Tx(buf, buf)
	c1.Tx(buf, buf)
	want := []int{1, 0, 1}
	for i := range want {
		if bus.seen[i] != want[i] {
			t.Fatalf("Tx %d: select was %d, expected %d", i, bus.seen[i], want[i])
		}
	}
}

func TestClose(t *testing.T) {
	pin := &fakePin{}
	bus := &fakeSPI{sel: pin}
	c0, c1 := New(bus, pin)
	c0.Close()
	c0.Close()
	if bus.closed != 0 {
		t.Fatalf("bus closed while c1 still open")
	}
	c1.Close()
	if bus.closed != 1 {
		t.Fatalf("expected bus to be closed once, got %d", bus.closed)
	}
}
