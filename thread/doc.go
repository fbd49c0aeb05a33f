// Copyright 2016 by Thorsten von Eicken, see LICENSE file

// Package thread gives goroutines that service hardware interrupts realtime scheduling so
// FIFO thresholds get handled before the radio's FIFO overflows.
package thread
