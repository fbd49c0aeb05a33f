// Copyright (c) 2016 by Thorsten von Eicken, see LICENSE file for details

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tve/subghz/cc1101"
)

// fakeRadio records the packets sent.
type fakeRadio struct {
	mu      sync.Mutex
	cfg     cc1101.Config
	sent    [][]byte
	sendErr error
	snap    cc1101.Snapshot
	err     error
}

func newFakeRadio(pktLen int) *fakeRadio {
	c := cc1101.DefaultConfig()
	c.PacketLength = pktLen
	return &fakeRadio{cfg: c, snap: cc1101.Snapshot{Mode: cc1101.Receiving}}
}

func (f *fakeRadio) Send(p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, append([]byte(nil), p...))
	if f.sendErr == nil {
		f.snap.TxCount++
	}
	return f.sendErr
}

func (f *fakeRadio) Snapshot() cc1101.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeRadio) Config() (cc1101.Config, cc1101.Params) {
	p, _ := cc1101.Derive(f.cfg)
	return f.cfg, p
}

func (f *fakeRadio) Error() error { return f.err }

func (f *fakeRadio) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func testGateway(t *testing.T, format string) (*gateway, *fakeRadio) {
	conf := defaultGatewayConfig()
	conf.Format = format
	conf.QueueLen = 3
	r := newFakeRadio(20)
	g := newGateway(r, conf, nil)
	t.Cleanup(g.close)
	return g, r
}

func TestHandleTx(t *testing.T) {
	for name := range formats {
		g, _ := testGateway(t, name)
		buf, err := g.format.marshal(TxMessage{Packet: []byte("hello")})
		if err != nil {
			t.Fatal(err)
		}
		if err := g.handleTx(buf); err != nil {
			t.Fatalf("%s: %s", name, err)
		}
		items, err := g.txq.Get(1)
		if err != nil {
			t.Fatal(err)
		}
		if pkt := items[0].([]byte); string(pkt) != "hello" {
			t.Errorf("%s: queued %q", name, pkt)
		}
		if err := g.handleTx([]byte{0xff, 0x00}); err == nil {
			t.Errorf("%s: garbage accepted", name)
		}
	}
}

func TestEnqueueLimits(t *testing.T) {
	g, _ := testGateway(t, "json")
	if err := g.enqueue(nil); err == nil {
		t.Errorf("empty packet accepted")
	}
	if err := g.enqueue(make([]byte, 21)); !errors.Is(err, cc1101.ErrTooLong) {
		t.Errorf("long packet: got %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := g.enqueue([]byte{byte(i)}); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.enqueue([]byte{3}); err != errQueueFull {
		t.Fatalf("expected full queue, got %v", err)
	}
	if s := g.stats(); s.Queued != 3 || s.QueueDrops != 1 {
		t.Errorf("stats %+v", s)
	}
}

func TestTransmit(t *testing.T) {
	g, r := testGateway(t, "json")
	done := make(chan struct{})
	go func() { g.transmit(); close(done) }()

	g.enqueue([]byte{1})
	g.enqueue([]byte{2, 2})
	waitFor(t, func() bool { return r.sentCount() == 2 })
	r.mu.Lock()
	r.sendErr = cc1101.ErrChannelBusy
	r.mu.Unlock()
	g.enqueue([]byte{3})
	waitFor(t, func() bool { return g.stats().TxFailed == 1 })

	if !bytes.Equal(r.sent[0], []byte{1}) || !bytes.Equal(r.sent[1], []byte{2, 2}) {
		t.Errorf("sent %x", r.sent)
	}
	if s := g.stats(); s.TxCount != 2 || s.Queued != 0 {
		t.Errorf("stats %+v", s)
	}
	g.close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("transmit did not exit")
	}
}

func TestReceive(t *testing.T) {
	for name, f := range formats {
		g, r := testGateway(t, name)
		r.snap.RxCount = 7
		var topics []string
		var msgs [][]byte
		g.pub = func(topic string, payload []byte) error {
			topics = append(topics, topic)
			msgs = append(msgs, payload)
			return nil
		}
		rx := make(chan *cc1101.RxPacket, 1)
		at := time.Date(2016, 5, 1, 12, 0, 0, 0, time.UTC)
		rx <- &cc1101.RxPacket{Payload: []byte{0xde, 0xad}, At: at}
		close(rx)
		g.receive(rx)

		if len(msgs) != 1 || topics[0] != "radio/cc1101/rx" {
			t.Fatalf("%s: published %v", name, topics)
		}
		var m RxMessage
		if err := f.unmarshal(msgs[0], &m); err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(m.Packet, []byte{0xde, 0xad}) || !m.At.Equal(at) || m.Count != 7 {
			t.Errorf("%s: got %+v", name, m)
		}
	}
}

func TestHTTP(t *testing.T) {
	g, r := testGateway(t, "json")
	r.err = errors.New("boom")
	h := g.router()
	do := func(method, path, body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(body)))
		return w
	}

	tests := []struct {
		method, path, body string
		code               int
	}{
		{"POST", "/tx", `{"packet": "AQID"}`, http.StatusAccepted},
		{"POST", "/tx", `{"packet": `, http.StatusBadRequest},
		{"POST", "/tx", `{}`, http.StatusBadRequest},
		{"POST", "/tx", `{"packet": "AAAAAAAAAAAAAAAAAAAAAAAAAAAA"}`, http.StatusBadRequest}, // 21 bytes
		{"GET", "/tx", ``, http.StatusMethodNotAllowed},
		{"POST", "/tx", `{"packet": "BA=="}`, http.StatusAccepted},
		{"POST", "/tx", `{"packet": "BQ=="}`, http.StatusAccepted},
		{"POST", "/tx", `{"packet": "Bg=="}`, http.StatusServiceUnavailable},
	}
	for i, tc := range tests {
		if w := do(tc.method, tc.path, tc.body); w.Code != tc.code {
			t.Errorf("%d: %s %s: got %d expected %d (%s)", i, tc.method, tc.path, w.Code, tc.code, w.Body)
		}
	}

	w := do("GET", "/stats", "")
	var s Stats
	if err := json.NewDecoder(w.Body).Decode(&s); err != nil {
		t.Fatal(err)
	}
	if s.Mode != "receiving" || s.Queued != 3 || s.QueueDrops != 1 || s.Error != "boom" {
		t.Errorf("stats %+v", s)
	}

	w = do("GET", "/params", "")
	var p paramsResp
	if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
		t.Fatal(err)
	}
	regs, params, _ := cc1101.Registers(r.cfg)
	if len(p.Registers) != len(regs)/2 || p.Params != params || p.Config.PacketLength != 20 {
		t.Errorf("params %+v", p)
	}
	if p.Registers[0] != [2]byte{cc1101.REG_IOCFG2, cc1101.GDO_RX_THRESHOLD} {
		t.Errorf("first register %v", p.Registers[0])
	}
}

func TestWebsocket(t *testing.T) {
	g, _ := testGateway(t, "json")
	srv := httptest.NewServer(g.router())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	waitFor(t, func() bool { return g.hub.count() == 1 })

	g.hub.broadcast(&RxMessage{Packet: []byte{1, 2, 3}, Count: 1})
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var m RxMessage
	if err := conn.ReadJSON(&m); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(m.Packet, []byte{1, 2, 3}) || m.Count != 1 {
		t.Errorf("got %+v", m)
	}

	// Disconnecting removes the client.
	conn.Close()
	waitFor(t, func() bool { return g.hub.count() == 0 })
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	for start := time.Now(); time.Since(start) < 2*time.Second; {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timeout")
}
