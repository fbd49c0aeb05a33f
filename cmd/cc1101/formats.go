// Copyright (c) 2016 by Thorsten von Eicken, see LICENSE file for details

package main

import (
	"encoding/json"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// format is a payload encoding for MQTT messages.
type format struct {
	marshal   func(v interface{}) ([]byte, error)
	unmarshal func(data []byte, v interface{}) error
}

var formats = map[string]format{
	"json": {json.Marshal, json.Unmarshal},
	"cbor": {cbor.Marshal, cbor.Unmarshal},
}

// RxMessage is published for every packet received.
type RxMessage struct {
	Packet []byte    `json:"packet" cbor:"packet"` // full fixed-length packet
	At     time.Time `json:"at" cbor:"at"`         // time of the end of packet interrupt
	Count  uint32    `json:"count" cbor:"count"`   // packets received so far
}

// TxMessage is expected on the tx topic for packets to be transmitted.
type TxMessage struct {
	Packet []byte `json:"packet" cbor:"packet"`
}
