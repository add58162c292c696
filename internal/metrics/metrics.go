// Package metrics provides lock-free counters describing the decode
// sessions of one opusrelay process.
//
// All methods are safe for concurrent use.  A nil *Collector is a valid
// no-op receiver, so the session loop never needs to nil-check.
package metrics

import (
	"encoding/json"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Collector accumulates process-wide statistics.
type Collector struct {
	sessionsStarted atomic.Int64
	sessionsActive  atomic.Int64
	cancellations   atomic.Int64
	framesDecoded   atomic.Int64
	samplesRelayed  atomic.Int64
	bytesIn         atomic.Int64
	bytesOut        atomic.Int64
	gatewayDials    atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	errorsByKind map[string]int64
	lastError    time.Time
	lastErrorMsg string
}

// New creates a collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now(), errorsByKind: make(map[string]int64)}
}

// ── Sessions ─────────────────────────────────────────────────────────

// SessionStarted records a session entering its setup phase.
func (c *Collector) SessionStarted() {
	if c == nil {
		return
	}
	c.sessionsStarted.Add(1)
	c.sessionsActive.Add(1)
}

// SessionEnded records a session reaching Terminated.
func (c *Collector) SessionEnded(cancelled bool) {
	if c == nil {
		return
	}
	c.sessionsActive.Add(-1)
	if cancelled {
		c.cancellations.Add(1)
	}
}

// ActiveSessions returns the number of sessions not yet terminated.
func (c *Collector) ActiveSessions() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsActive.Load()
}

// ── Frames ───────────────────────────────────────────────────────────

// FrameRelayed records one frame end to end: wire bytes read (header
// included), samples per channel decoded and PCM bytes written.
func (c *Collector) FrameRelayed(wireBytes, samples, pcmBytes int) {
	if c == nil {
		return
	}
	c.framesDecoded.Add(1)
	c.bytesIn.Add(int64(wireBytes))
	c.samplesRelayed.Add(int64(samples))
	c.bytesOut.Add(int64(pcmBytes))
}

// BytesSent records PCM or wire bytes written outside a relayed frame,
// such as by the reference producer.
func (c *Collector) BytesSent(n int64) {
	if c == nil {
		return
	}
	c.bytesOut.Add(n)
}

// Frames returns the number of frames relayed.
func (c *Collector) Frames() int64 {
	if c == nil {
		return 0
	}
	return c.framesDecoded.Load()
}

// TotalBytesIn returns wire bytes consumed.
func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return c.bytesIn.Load()
}

// TotalBytesOut returns bytes delivered downstream.
func (c *Collector) TotalBytesOut() int64 {
	if c == nil {
		return 0
	}
	return c.bytesOut.Load()
}

// ── Gateway ──────────────────────────────────────────────────────────

// GatewayDial records an upstream connection made through the SSH
// gateway.
func (c *Collector) GatewayDial() {
	if c == nil {
		return
	}
	c.gatewayDials.Add(1)
}

// ── Errors ───────────────────────────────────────────────────────────

// RecordError counts a session-ending error under kind and keeps its
// message.
func (c *Collector) RecordError(kind, msg string) {
	if c == nil {
		return
	}
	if kind == "" {
		kind = "other"
	}
	c.mu.Lock()
	c.errorsByKind[kind]++
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the number of errors of kind, or of all kinds when
// kind is empty.
func (c *Collector) ErrorCount(kind string) int64 {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if kind != "" {
		return c.errorsByKind[kind]
	}
	var total int64
	for _, n := range c.errorsByKind {
		total += n
	}
	return total
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime           string           `json:"uptime"`
	SessionsStarted  int64            `json:"sessions_started"`
	SessionsActive   int64            `json:"sessions_active"`
	Cancellations    int64            `json:"cancellations"`
	FramesDecoded    int64            `json:"frames_decoded"`
	SamplesRelayed   int64            `json:"samples_relayed"`
	BytesIn          int64            `json:"bytes_in"`
	BytesOut         int64            `json:"bytes_out"`
	GatewayDials     int64            `json:"gateway_dials,omitempty"`
	Errors           map[string]int64 `json:"errors,omitempty"`
	ErrorKinds       []string         `json:"-"`
	LastError        string           `json:"last_error,omitempty"`
	LastErrorMessage string           `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:          time.Since(c.startTime).Truncate(time.Second).String(),
		SessionsStarted: c.sessionsStarted.Load(),
		SessionsActive:  c.sessionsActive.Load(),
		Cancellations:   c.cancellations.Load(),
		FramesDecoded:   c.framesDecoded.Load(),
		SamplesRelayed:  c.samplesRelayed.Load(),
		BytesIn:         c.bytesIn.Load(),
		BytesOut:        c.bytesOut.Load(),
		GatewayDials:    c.gatewayDials.Load(),
	}
	if len(c.errorsByKind) > 0 {
		s.Errors = make(map[string]int64, len(c.errorsByKind))
		for k, n := range c.errorsByKind {
			s.Errors[k] = n
			s.ErrorKinds = append(s.ErrorKinds, k)
		}
		sort.Strings(s.ErrorKinds)
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as indented JSON.
func (c *Collector) JSON() string {
	data, _ := json.MarshalIndent(c.Snapshot(), "", "  ")
	return string(data)
}
