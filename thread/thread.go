// Copyright 2016 by Thorsten von Eicken, see LICENSE file

//go:build linux

package thread

import (
	"fmt"
	"runtime"
	"syscall"
	"unsafe"
)

// Realtime locks the calling goroutine to its own kernel thread and elevates that
// thread's priority to realtime. It sets the round-robin schduling policy and uses
// the given priority level, 1..99, 10 is somewhere in the lower middle of the range
// used by kernel threads.
func Realtime(prio int) error {
	if prio < 1 || prio > 99 {
		return fmt.Errorf("thread: invalid realtime priority %d", prio)
	}
	// First pin goroutine to its own kernel thread.
	runtime.LockOSThread()
	// Get the ID of the thread.
	tid := syscall.Gettid()
	// Give this thread realtime priority.
	res, _, err := syscall.RawSyscall(syscall.SYS_SCHED_SETSCHEDULER, uintptr(tid),
		uintptr(RR), uintptr(unsafe.Pointer(&schedParam{int32(prio)})))
	if res == 0 {
		return nil
	}
	runtime.UnlockOSThread()
	return err
}

const FIFO = 1 // fifo scheduling policy
const RR = 2   // round-robin scheduling policy

type schedParam struct {
	Priority int32
}
