// Package sched raises the scheduling priority of the calling OS thread
// on a best-effort basis.  Decoding is correct at any priority; a higher
// one only lowers the chance of the consumer's audio buffer running dry.
//
// Raise affects the current thread only, so callers lock their goroutine
// to its thread with runtime.LockOSThread before calling it.
package sched

import (
	"fmt"
	"strings"
)

// DefaultNice is the niceness requested for a decode thread.
const DefaultNice = -16

// Report describes the outcome of a priority request.  Warnings are
// *errors.SchedulingWarning values; they are meant to be logged, never
// returned as failures.
type Report struct {
	Requested int
	Nice      int  // niceness read back after the request
	ReadBack  bool // Nice is valid
	Applied   bool // the request succeeded
	Warnings  []error
}

// String renders the report for a diagnostic line.
func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "requested nice %d", r.Requested)
	if r.Applied {
		b.WriteString(", applied")
	} else {
		b.WriteString(", not applied")
	}
	if r.ReadBack {
		fmt.Fprintf(&b, ", now %d", r.Nice)
	}
	return b.String()
}

// Raise requests niceness nice for the calling thread and reads the
// result back.  It never fails; problems are listed in Report.Warnings.
func Raise(nice int) Report {
	return raise(nice)
}
