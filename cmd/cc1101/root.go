// Copyright (c) 2016 by Thorsten von Eicken, see LICENSE file for details

package main

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/kidoman/embd"
	_ "github.com/kidoman/embd/host/chip"
	_ "github.com/kidoman/embd/host/rpi"
	"github.com/spf13/cobra"
	"github.com/tve/subghz"
	"github.com/tve/subghz/cc1101"
	"github.com/tve/subghz/spimux"
)

var (
	// hardware flags
	backend  string
	spiName  string
	speedHz  int64
	gdo0Name string
	gdo2Name string
	csMux    string
	csValue  int
	realtime int
	debug    bool

	// radio flags
	freq      uint32
	ifFreq    uint32
	rate      uint32
	modIndex  float64
	modName   string
	pktLen    int
	preamble  int
	syncMode  uint8
	whitening bool
	fec       bool
	power     int
)

var rootCmd = &cobra.Command{
	Use:   "cc1101",
	Short: "CC1101 433MHz radio tool",
	Long: `cc1101 configures a CC1101 transceiver and receives, transmits, or gateways packets.

Hardware access goes through embd (--backend embd, --spi is the chip select number) or
periph (--backend periph, --spi is a periph SPI port name, empty for the default).
Two radios can share one chip select using --csmux with the pin that selects between them.`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&backend, "backend", "embd", "hardware access library: embd or periph")
	pf.StringVar(&spiName, "spi", "", "SPI device")
	pf.Int64Var(&speedHz, "speed", 4000000, "SPI clock in Hz")
	pf.StringVar(&gdo0Name, "gdo0", "XIO-P0", "pin connected to GDO0 (packet boundaries)")
	pf.StringVar(&gdo2Name, "gdo2", "XIO-P1", "pin connected to GDO2 (FIFO threshold)")
	pf.StringVar(&csMux, "csmux", "", "chip select mux pin, empty if not muxed")
	pf.IntVar(&csValue, "csval", 0, "chip select mux value for this radio (0 or 1)")
	pf.IntVar(&realtime, "realtime", 0, "realtime priority for the interrupt goroutines, 0: off")
	pf.BoolVarP(&debug, "debug", "d", false, "enable debug output")

	d := cc1101.DefaultConfig()
	pf.Uint32VarP(&freq, "freq", "f", d.Freq, "carrier frequency in Hz")
	pf.Uint32Var(&ifFreq, "if", d.IF, "intermediate frequency in Hz")
	pf.Uint32VarP(&rate, "rate", "r", d.Rate, "data rate in baud")
	pf.Float64Var(&modIndex, "index", d.ModIndex, "modulation index")
	pf.StringVarP(&modName, "mod", "m", d.Modulation.String(), "modulation: 2-FSK, GFSK, OOK, 4-FSK, MSK")
	pf.IntVarP(&pktLen, "len", "l", d.PacketLength, "fixed packet length in bytes")
	pf.IntVar(&preamble, "preamble", d.Preamble, "preamble bytes")
	pf.Uint8Var(&syncMode, "sync", d.SyncMode, "sync word qualifier mode 0..7")
	pf.BoolVar(&whitening, "whitening", d.Whitening, "enable data whitening")
	pf.BoolVar(&fec, "fec", d.FEC, "enable forward error correction")
	pf.IntVarP(&power, "power", "p", 10, "output power in dBm")
}

// radioConfig assembles the radio configuration from the command line.
func radioConfig() (cc1101.Config, error) {
	m, err := cc1101.ParseModulation(modName)
	if err != nil {
		return cc1101.Config{}, err
	}
	c := cc1101.Config{
		Freq: freq, IF: ifFreq, Modulation: m, Rate: rate, ModIndex: modIndex,
		PacketLength: pktLen, FEC: fec, Whitening: whitening, Preamble: preamble,
		SyncMode: syncMode,
	}
	return c, c.Validate()
}

func logger() cc1101.LogPrintf {
	if debug {
		return log.Printf
	}
	return nil
}

// openHardware opens the SPI device and the two interrupt pins using the selected backend.
func openHardware() (subghz.SPI, subghz.GPIO, subghz.GPIO, error) {
	var dev subghz.SPI
	var openPin func(string) (subghz.GPIO, error)

	switch backend {
	case "embd":
		if err := embd.InitGPIO(); err != nil {
			return nil, nil, nil, fmt.Errorf("embd gpio init: %s", err)
		}
		if err := embd.InitSPI(); err != nil {
			return nil, nil, nil, fmt.Errorf("embd spi init: %s", err)
		}
		ch := uint64(0)
		if spiName != "" {
			var err error
			if ch, err = strconv.ParseUint(spiName, 0, 8); err != nil {
				return nil, nil, nil, fmt.Errorf("--spi must be a chip select number with embd: %s", err)
			}
		}
		dev = subghz.NewSPI(byte(ch), int(speedHz))
		openPin = subghz.NewGPIO
	case "periph":
		if err := subghz.InitPeriph(); err != nil {
			return nil, nil, nil, err
		}
		d, err := subghz.NewPeriphSPI(spiName)
		if err != nil {
			return nil, nil, nil, err
		}
		dev = d
		openPin = func(name string) (subghz.GPIO, error) { return subghz.NewPeriphGPIO(name) }
	default:
		return nil, nil, nil, fmt.Errorf("unknown backend %q", backend)
	}

	if csMux != "" {
		if csValue < 0 || csValue > 1 {
			return nil, nil, nil, fmt.Errorf("--csval must be 0 or 1")
		}
		sel, err := openPin(csMux)
		if err != nil {
			return nil, nil, nil, err
		}
		lo, hi := spimux.New(dev, sel)
		dev = lo
		if csValue == 1 {
			dev = hi
		}
	}

	gdo0, err := openPin(gdo0Name)
	if err != nil {
		return nil, nil, nil, err
	}
	gdo2, err := openPin(gdo2Name)
	if err != nil {
		return nil, nil, nil, err
	}
	return dev, gdo0, gdo2, nil
}

// openRadio opens the hardware and loads the configuration from the command line into the
// radio. The receiver is not started.
func openRadio() (*cc1101.Radio, error) {
	c, err := radioConfig()
	if err != nil {
		return nil, err
	}
	dev, gdo0, gdo2, err := openHardware()
	if err != nil {
		return nil, err
	}
	radio, err := cc1101.New(dev, gdo0, gdo2, cc1101.RadioOpts{
		SpeedHz:  speedHz,
		Realtime: realtime,
		Logger:   logger(),
	})
	if err != nil {
		return nil, err
	}
	t0 := time.Now()
	p, err := radio.Configure(c)
	if err != nil {
		radio.Close()
		return nil, err
	}
	dbm, err := radio.SetPower(power)
	if err != nil {
		radio.Close()
		return nil, err
	}
	log.Printf("Radio ready (%.1fms): %s, %ddBm", time.Since(t0).Seconds()*1000, p, dbm)
	return radio, nil
}
