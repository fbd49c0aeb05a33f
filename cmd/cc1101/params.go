// Copyright (c) 2016 by Thorsten von Eicken, see LICENSE file for details

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tve/subghz/cc1101"
)

var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "Print the register values for the configuration, without touching the radio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := radioConfig()
		if err != nil {
			return err
		}
		regs, p, err := cc1101.Registers(c)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s\n", p)
		fmt.Fprintf(out, "carrier %.0fHz, IF %.0fHz, rate %.1fbaud, deviation %.0fHz, bandwidth %.0fHz\n",
			p.Carrier(), p.IntermediateFreq(), p.DataRate(), p.Deviation(), p.Bandwidth())
		for i := 0; i < len(regs); i += 2 {
			fmt.Fprintf(out, "  0x%02x = 0x%02x\n", regs[i], regs[i+1])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(paramsCmd)
}
