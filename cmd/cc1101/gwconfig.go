// Copyright (c) 2016 by Thorsten von Eicken, see LICENSE file for details

package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mitchellh/go-homedir"
)

// MqttConfig describes the connection to the MQTT broker.
type MqttConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

// setBroker parses a host:port broker address.
func (c *MqttConfig) setBroker(hostPort string) error {
	host, port, err := net.SplitHostPort(hostPort)
	if err != nil {
		return err
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("invalid MQTT port %q", port)
	}
	c.Host, c.Port = host, p
	return nil
}

// GatewayConfig is the content of the gateway config file.
type GatewayConfig struct {
	Mqtt     MqttConfig `json:"mqtt"`
	Prefix   string     `json:"prefix"`    // topic prefix, packets go to <prefix>/rx and come from <prefix>/tx
	Format   string     `json:"format"`    // payload encoding: json or cbor
	HTTP     string     `json:"http"`      // listen address for the HTTP API, empty: disabled
	QueueLen int        `json:"queue_len"` // max packets waiting to be transmitted
}

const configFile = ".cc1101gw.json"

func defaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		Mqtt:     MqttConfig{Host: "localhost", Port: 1883},
		Prefix:   "radio/cc1101",
		Format:   "json",
		QueueLen: 10,
	}
}

// loadConfig reads the gateway config file. An empty path means ~/.cc1101gw.json, which may be
// missing in which case the defaults are used. Fields missing from the file keep their default.
func loadConfig(path string) (GatewayConfig, error) {
	conf := defaultGatewayConfig()
	optional := path == ""
	if optional {
		home, err := homedir.Dir()
		if err != nil {
			return conf, err
		}
		path = filepath.Join(home, configFile)
	} else {
		p, err := homedir.Expand(path)
		if err != nil {
			return conf, err
		}
		path = p
	}

	buf, err := os.ReadFile(path)
	switch {
	case err != nil && optional && os.IsNotExist(err):
		return conf, nil
	case err != nil:
		return conf, err
	}
	if err := json.Unmarshal(buf, &conf); err != nil {
		return conf, fmt.Errorf("cannot parse %s: %s", path, err)
	}
	return conf, conf.check()
}

func (c *GatewayConfig) check() error {
	if _, ok := formats[c.Format]; !ok {
		return fmt.Errorf("unknown format %q", c.Format)
	}
	if c.Prefix == "" {
		return fmt.Errorf("empty topic prefix")
	}
	if c.Mqtt.Host == "" || c.Mqtt.Port <= 0 || c.Mqtt.Port > 65535 {
		return fmt.Errorf("invalid MQTT broker %s:%d", c.Mqtt.Host, c.Mqtt.Port)
	}
	if c.QueueLen < 1 {
		return fmt.Errorf("queue_len must be at least 1")
	}
	return nil
}
