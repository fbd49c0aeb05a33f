// Copyright (c) 2016 by Thorsten von Eicken, see LICENSE file for details

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
)

func withHome(t *testing.T) string {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	homedir.DisableCache = true
	return dir
}

func TestLoadConfigMissingDefault(t *testing.T) {
	withHome(t)
	conf, err := loadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if conf != defaultGatewayConfig() {
		t.Fatalf("got %+v", conf)
	}
}

func TestLoadConfig(t *testing.T) {
	home := withHome(t)
	data := `{"mqtt": {"host": "broker", "port": 1884, "user": "gw"}, "format": "cbor", "http": ":8080"}`
	if err := os.WriteFile(filepath.Join(home, configFile), []byte(data), 0600); err != nil {
		t.Fatal(err)
	}
	for _, path := range []string{"", "~/" + configFile, filepath.Join(home, configFile)} {
		conf, err := loadConfig(path)
		if err != nil {
			t.Fatalf("%q: %s", path, err)
		}
		want := defaultGatewayConfig()
		want.Mqtt = MqttConfig{Host: "broker", Port: 1884, User: "gw"}
		want.Format = "cbor"
		want.HTTP = ":8080"
		if conf != want {
			t.Errorf("%q: got %+v\nexpected %+v", path, conf, want)
		}
	}
}

func TestLoadConfigErrors(t *testing.T) {
	home := withHome(t)
	tests := map[string]string{
		"bad.json":    `{"mqtt": `,
		"format.json": `{"format": "xml"}`,
		"port.json":   `{"mqtt": {"port": 0}}`,
		"queue.json":  `{"queue_len": 0}`,
		"prefix.json": `{"prefix": ""}`,
	}
	for name, data := range tests {
		path := filepath.Join(home, name)
		if err := os.WriteFile(path, []byte(data), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := loadConfig(path); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
	// An explicitly named file must exist.
	if _, err := loadConfig(filepath.Join(home, "missing.json")); err == nil {
		t.Errorf("missing file: expected an error")
	}
}

func TestSetBroker(t *testing.T) {
	var c MqttConfig
	if err := c.setBroker("core.local:1999"); err != nil {
		t.Fatal(err)
	}
	if c.Host != "core.local" || c.Port != 1999 {
		t.Errorf("got %+v", c)
	}
	for _, s := range []string{"core.local", "core.local:mqtt"} {
		if err := c.setBroker(s); err == nil {
			t.Errorf("%q: expected an error", s)
		}
	}
}
