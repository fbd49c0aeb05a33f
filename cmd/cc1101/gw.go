// Copyright (c) 2016 by Thorsten von Eicken, see LICENSE file for details

package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/spf13/cobra"
)

// LogPrintf is a function used for debug output.
type LogPrintf func(format string, v ...interface{})

var (
	gwConfigPath string
	gwFormat     string
	gwHTTP       string
	gwPrefix     string
	gwBroker     string
)

var gwCmd = &cobra.Command{
	Use:   "gw",
	Short: "Gateway packets between the radio and an MQTT broker",
	Long: `gw publishes every packet received to <prefix>/rx and transmits the packets published to
<prefix>/tx. Settings come from the config file (default ~/.cc1101gw.json), flags override them.
With an HTTP address it also serves /stats, /params, POST /tx, and a websocket on /ws
streaming the received packets.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig(gwConfigPath)
		if err != nil {
			return err
		}
		f := cmd.Flags()
		if f.Changed("format") {
			conf.Format = gwFormat
		}
		if f.Changed("http") {
			conf.HTTP = gwHTTP
		}
		if f.Changed("prefix") {
			conf.Prefix = gwPrefix
		}
		if f.Changed("mqtt") {
			if err := conf.Mqtt.setBroker(gwBroker); err != nil {
				return err
			}
		}
		if err := conf.check(); err != nil {
			return err
		}
		return runGateway(conf)
	},
}

func runGateway(conf GatewayConfig) error {
	var dbg LogPrintf
	if debug {
		dbg = log.Printf
		dbg("Gateway config: %+v", conf)
	}

	radio, err := openRadio()
	if err != nil {
		return err
	}
	defer radio.Close()

	gw := newGateway(radio, conf, nil)
	tx := func(c mqtt.Client, m mqtt.Message) {
		if err := gw.handleTx(m.Payload()); err != nil {
			log.Printf("%s: %s", m.Topic(), err)
		}
	}
	mq, err := newMQ(conf.Mqtt, map[string]mqtt.MessageHandler{conf.Prefix + "/tx": tx}, dbg)
	if err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %s", err)
	}
	defer mq.Close()
	gw.pub = mq.Publish

	if err := radio.Start(); err != nil {
		return err
	}
	go gw.receive(radio.RxChan)
	go gw.transmit()
	defer gw.close()

	if conf.HTTP != "" {
		srv := &http.Server{Addr: conf.HTTP, Handler: gw.router()}
		go func() {
			if err := srv.ListenAndServe(); err != http.ErrServerClosed {
				log.Printf("HTTP server: %s", err)
			}
		}()
		defer srv.Close()
		log.Printf("HTTP API on %s", conf.HTTP)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	tick := time.NewTicker(10 * time.Second)
	defer tick.Stop()
	for {
		select {
		case <-sig:
			log.Printf("Exiting")
			return nil
		case <-tick.C:
			if err := radio.Error(); err != nil {
				return err
			}
			if dbg != nil {
				dbg("%+v", gw.stats())
			}
		}
	}
}

func init() {
	f := gwCmd.Flags()
	f.StringVarP(&gwConfigPath, "config", "c", "", "config file, default ~/"+configFile)
	f.StringVar(&gwFormat, "format", "json", "MQTT payload format: json or cbor")
	f.StringVar(&gwHTTP, "http", "", "listen address for the HTTP API, e.g. :8080")
	f.StringVar(&gwPrefix, "prefix", "radio/cc1101", "MQTT topic prefix")
	f.StringVar(&gwBroker, "mqtt", "localhost:1883", "host:port of MQTT broker")
	rootCmd.AddCommand(gwCmd)
}
