//go:build linux

package sched

import (
	"golang.org/x/sys/unix"

	rlerr "opusrelay/internal/errors"
)

// The kernel reports priority as 20 - nice from the raw syscall.
const kernelNiceBase = 20

func raise(nice int) Report {
	r := Report{Requested: nice}
	tid := unix.Gettid()

	if err := unix.Setpriority(unix.PRIO_PROCESS, tid, nice); err != nil {
		r.Warnings = append(r.Warnings, &rlerr.SchedulingWarning{Op: "setpriority", Err: err})
	} else {
		r.Applied = true
	}

	raw, err := unix.Getpriority(unix.PRIO_PROCESS, tid)
	if err != nil {
		r.Warnings = append(r.Warnings, &rlerr.SchedulingWarning{Op: "getpriority", Err: err})
		return r
	}
	r.Nice = kernelNiceBase - raw
	r.ReadBack = true
	return r
}
