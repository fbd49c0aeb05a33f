// Copyright (c) 2016 by Thorsten von Eicken, see LICENSE file for details

package main

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/Workiva/go-datastructures/queue"
	"github.com/tve/subghz/cc1101"
)

// radio is the part of cc1101.Radio used by the gateway.
type radio interface {
	Send(payload []byte) error
	Snapshot() cc1101.Snapshot
	Config() (cc1101.Config, cc1101.Params)
	Error() error
}

// publisher sends an encoded message to a topic.
type publisher func(topic string, payload []byte) error

var errQueueFull = errors.New("transmit queue full")

// gateway moves packets between a radio and MQTT. Packets to be transmitted are queued so
// neither the MQTT callbacks nor the HTTP handlers block on the clear channel assessment.
type gateway struct {
	radio  radio
	prefix string
	format format
	pub    publisher
	hub    *hub

	qMu    sync.Mutex // makes the length check and Put atomic
	txq    *queue.Queue
	maxLen int

	queueDrops atomic.Uint32 // packets rejected because the queue was full
	txFailed   atomic.Uint32 // packets Send returned an error for
}

func newGateway(r radio, conf GatewayConfig, pub publisher) *gateway {
	return &gateway{
		radio:  r,
		prefix: conf.Prefix,
		format: formats[conf.Format],
		pub:    pub,
		hub:    newHub(),
		txq:    queue.New(int64(conf.QueueLen)),
		maxLen: conf.QueueLen,
	}
}

// receive publishes the packets coming from the radio until rx is closed.
func (g *gateway) receive(rx <-chan *cc1101.RxPacket) {
	for pkt := range rx {
		msg := &RxMessage{Packet: pkt.Payload, At: pkt.At, Count: g.radio.Snapshot().RxCount}
		log.Printf("RX %db: %x", len(pkt.Payload), pkt.Payload)
		g.hub.broadcast(msg)
		if g.pub == nil {
			continue
		}
		buf, err := g.format.marshal(msg)
		if err != nil {
			log.Printf("cannot encode packet: %s", err)
			continue
		}
		if err := g.pub(g.prefix+"/rx", buf); err != nil {
			log.Printf("cannot publish packet: %s", err)
		}
	}
	log.Printf("%s: radio->mqtt goroutine exiting", g.prefix)
}

// handleTx decodes a message from the tx topic and queues its packet.
func (g *gateway) handleTx(payload []byte) error {
	var msg TxMessage
	if err := g.format.unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("cannot decode tx message: %s", err)
	}
	return g.enqueue(msg.Packet)
}

// enqueue queues a packet for transmission.
func (g *gateway) enqueue(pkt []byte) error {
	if len(pkt) == 0 {
		return errors.New("empty packet")
	}
	if c, _ := g.radio.Config(); len(pkt) > c.PacketLength {
		return fmt.Errorf("%d byte packet exceeds packet length %d: %w",
			len(pkt), c.PacketLength, cc1101.ErrTooLong)
	}
	g.qMu.Lock()
	defer g.qMu.Unlock()
	if g.txq.Len() >= int64(g.maxLen) {
		g.queueDrops.Add(1)
		return errQueueFull
	}
	return g.txq.Put(pkt)
}

// transmit sends the queued packets one at a time until the queue is disposed.
func (g *gateway) transmit() {
	for {
		items, err := g.txq.Get(1)
		if err != nil {
			log.Printf("%s: mqtt->radio goroutine exiting", g.prefix)
			return
		}
		for _, it := range items {
			pkt := it.([]byte)
			if err := g.radio.Send(pkt); err != nil {
				g.txFailed.Add(1)
				log.Printf("TX %db failed: %s", len(pkt), err)
				continue
			}
			log.Printf("TX %db: %x", len(pkt), pkt)
		}
	}
}

// Stats is the gateway status returned by the HTTP API.
type Stats struct {
	Mode       string `json:"mode"`
	RxCount    uint32 `json:"rx_count"`
	TxCount    uint32 `json:"tx_count"`
	DropCount  uint32 `json:"drop_count"` // busy channel
	Queued     int64  `json:"queued"`
	QueueDrops uint32 `json:"queue_drops"`
	TxFailed   uint32 `json:"tx_failed"`
	Error      string `json:"error,omitempty"`
}

func (g *gateway) stats() Stats {
	s := g.radio.Snapshot()
	st := Stats{
		Mode:       s.Mode.String(),
		RxCount:    s.RxCount,
		TxCount:    s.TxCount,
		DropCount:  s.DropCount,
		Queued:     g.txq.Len(),
		QueueDrops: g.queueDrops.Load(),
		TxFailed:   g.txFailed.Load(),
	}
	if err := g.radio.Error(); err != nil {
		st.Error = err.Error()
	}
	return st
}

func (g *gateway) close() {
	g.txq.Dispose()
	g.hub.close()
}
