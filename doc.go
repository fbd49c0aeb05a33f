// Copyright 2016 by Thorsten von Eicken, see LICENSE file

// github.com/tve/subghz contains a driver for TI CC1101 sub-GHz transceivers attached to an SPI
// bus and two interrupt-capable gpio pins, plus the helpers needed to run it on a Linux board.
// The root package defines the SPI and GPIO capabilities the driver consumes and provides
// backends for them based on kidoman/embd and on periph. The driver itself is in cc1101 and a
// command to exercise it is in cmd/cc1101.
package subghz
