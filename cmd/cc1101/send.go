// Copyright (c) 2016 by Thorsten von Eicken, see LICENSE file for details

package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/tve/subghz/cc1101"
)

var (
	sendCount    int
	sendInterval time.Duration
)

var sendCmd = &cobra.Command{
	Use:   "send <hex>...",
	Short: "Transmit packets given in hex, padded with zeroes to the packet length",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var pkts [][]byte
		for _, a := range args {
			b, err := hex.DecodeString(a)
			if err != nil {
				return fmt.Errorf("cannot parse %q: %s", a, err)
			}
			pkts = append(pkts, b)
		}

		radio, err := openRadio()
		if err != nil {
			return err
		}
		defer radio.Close()
		if err := radio.Start(); err != nil {
			return err
		}

		for i := 0; i < sendCount; i++ {
			for _, pkt := range pkts {
				t0 := time.Now()
				err := radio.Send(pkt)
				switch {
				case err == nil:
					log.Printf("TX %db: %x", len(pkt), pkt)
				case errors.Is(err, cc1101.ErrChannelBusy):
					log.Printf("TX %db dropped: %s", len(pkt), err)
				default:
					return err
				}
				waitIdle(radio, time.Second)
				if debug {
					log.Printf("  %.1fms", time.Since(t0).Seconds()*1000)
				}
				time.Sleep(sendInterval)
			}
		}
		s := radio.Snapshot()
		fmt.Fprintf(cmd.OutOrStdout(), "sent %d, dropped %d\n", s.TxCount, s.DropCount)
		return radio.Error()
	},
}

// waitIdle waits for a transmission in progress to end.
func waitIdle(radio *cc1101.Radio, timeout time.Duration) {
	for t0 := time.Now(); time.Since(t0) < timeout; time.Sleep(time.Millisecond) {
		if radio.Mode() != cc1101.Transmitting {
			return
		}
	}
	log.Printf("transmission did not complete in %s", timeout)
}

func init() {
	sendCmd.Flags().IntVarP(&sendCount, "count", "n", 1, "number of times to send the packets")
	sendCmd.Flags().DurationVar(&sendInterval, "interval", 100*time.Millisecond, "delay between packets")
	rootCmd.AddCommand(sendCmd)
}
