// Copyright (c) 2016 by Thorsten von Eicken, see LICENSE file for details

package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var showTrace bool

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Receive packets and print them until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		radio, err := openRadio()
		if err != nil {
			return err
		}
		defer radio.Close()
		if err := radio.Start(); err != nil {
			return err
		}
		log.Printf("Listening...")

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		tick := time.NewTicker(10 * time.Second)
		defer tick.Stop()
		out := cmd.OutOrStdout()
		for {
			select {
			case pkt, ok := <-radio.RxChan:
				if !ok {
					return radio.Error()
				}
				fmt.Fprintf(out, "%s RX %db: %x\n", pkt.At.Format("15:04:05.000"), len(pkt.Payload), pkt.Payload)
			case <-tick.C:
				if err := radio.Error(); err != nil {
					return err
				}
				if debug {
					s := radio.Snapshot()
					log.Printf("rx=%d tx=%d drop=%d mode=%s", s.RxCount, s.TxCount, s.DropCount, s.Mode)
				}
			case <-sig:
				if showTrace {
					radio.PrintTrace(out)
				}
				return nil
			}
		}
	},
}

func init() {
	listenCmd.Flags().BoolVar(&showTrace, "trace", false, "print the driver event trace on exit")
	rootCmd.AddCommand(listenCmd)
}
