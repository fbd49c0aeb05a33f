// Copyright (c) 2016 by Thorsten von Eicken, see LICENSE file for details

// Command cc1101 drives a CC1101 sub-GHz radio: it prints the register values derived from a
// configuration, checks that the chip responds, receives and transmits packets, and gateways
// packets between the radio and an MQTT broker.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
