// Copyright 2016 by Thorsten von Eicken, see LICENSE file

//go:build !linux

package thread

import "errors"

// Realtime is only supported on Linux.
func Realtime(prio int) error {
	return errors.New("thread: realtime scheduling not supported on this OS")
}
