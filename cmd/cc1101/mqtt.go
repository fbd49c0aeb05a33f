// Copyright (c) 2016 by Thorsten von Eicken, see LICENSE file for details

package main

import (
	"fmt"
	"log"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// mq is a handle onto a MQTT broker connection.
type mq struct {
	conn mqtt.Client
}

// newMQ connects to a broker and returns a new mq object. The connection is persistent, i.e.,
// re-establishes itself if there is a disconnect, and the subscriptions in subs are renewed
// on every connect.
func newMQ(conf MqttConfig, subs map[string]mqtt.MessageHandler, debug LogPrintf) (*mq, error) {
	hostname, _ := os.Hostname()
	id := "cc1101gw-" + hostname
	if debug != nil {
		debug("Configuring MQTT with client id %s: %s:%d", id, conf.Host, conf.Port)
	}
	mqtt.ERROR = log.New(os.Stderr, "", 0)
	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", conf.Host, conf.Port)).
		SetClientID(id).
		SetUsername(conf.User).
		SetPassword(conf.Password).
		SetAutoReconnect(true)
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		for topic, h := range subs {
			t := c.Subscribe(topic, 1, h)
			if !t.WaitTimeout(2 * time.Second) {
				log.Printf("MQTT subscribe to %s timed out", topic)
			} else if err := t.Error(); err != nil {
				log.Printf("MQTT subscribe to %s: %s", topic, err)
			}
		}
		log.Printf("MQTT connected")
	})

	conn := mqtt.NewClient(opts)
	token := conn.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("timeout connecting to MQTT broker %s:%d", conf.Host, conf.Port)
	}
	if err := token.Error(); err != nil {
		return nil, err
	}
	return &mq{conn: conn}, nil
}

// Publish publishes a message with QoS 1.
func (mq *mq) Publish(topic string, payload []byte) error {
	t := mq.conn.Publish(topic, 1, false, payload)
	if !t.WaitTimeout(2 * time.Second) {
		return fmt.Errorf("timeout publishing to %s", topic)
	}
	return t.Error()
}

func (mq *mq) Close() {
	mq.conn.Disconnect(250)
}
