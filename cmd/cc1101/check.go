// Copyright (c) 2016 by Thorsten von Eicken, see LICENSE file for details

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tve/subghz/cc1101"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the radio responds and that the configuration reads back",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		radio, err := openRadio()
		if err != nil {
			return err
		}
		defer radio.Close()
		out := cmd.OutOrStdout()

		part, version, err := radio.PartInfo()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "part 0x%02x version 0x%02x, status 0x%02x\n", part, version, radio.Status())
		if version == 0 || version == 0xFF {
			return fmt.Errorf("no CC1101 found, version reads 0x%02x", version)
		}

		c, _ := radio.Config()
		want, _, err := cc1101.Registers(c)
		if err != nil {
			return err
		}
		regs, err := radio.ReadRegs()
		if err != nil {
			return err
		}
		bad := 0
		for i := 0; i < len(want); i += 2 {
			if got := regs[want[i]]; got != want[i+1] {
				fmt.Fprintf(out, "  reg 0x%02x reads 0x%02x, wrote 0x%02x\n", want[i], got, want[i+1])
				bad++
			}
		}
		if bad > 0 {
			return fmt.Errorf("%d registers did not read back", bad)
		}

		if err := radio.Start(); err != nil {
			return err
		}
		rssi, err := radio.RSSI()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "configuration OK, RSSI %.1fdBm\n", rssi)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
