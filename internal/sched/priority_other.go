//go:build !linux

package sched

import (
	"fmt"
	"runtime"

	rlerr "opusrelay/internal/errors"
)

func raise(nice int) Report {
	return Report{
		Requested: nice,
		Warnings: []error{&rlerr.SchedulingWarning{
			Op:  "setpriority",
			Err: fmt.Errorf("per-thread priority is not supported on %s", runtime.GOOS),
		}},
	}
}
