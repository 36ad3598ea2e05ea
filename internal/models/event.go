// Package models contains domain types for the License Log Insight backend.
package models

import "time"

// EventKind classifies an interpreted log line. A line maps to exactly one
// kind, chosen by the interpreter's priority cascade.
type EventKind string

const (
	EventCheckout    EventKind = "checkout"
	EventReturn      EventKind = "return"
	EventDenied      EventKind = "denied"
	EventUnsupported EventKind = "unsupported"
	EventTimestamp   EventKind = "timestamp"
	EventVersion     EventKind = "version"
	EventReserving   EventKind = "reserving"
	EventError       EventKind = "error"
	EventInfo        EventKind = "info"
)

// LogEvent is one interpreted line of a license daemon activity log.
// Time carries only the clock reading from the line; Date is the running
// date context established by the most recent TIMESTAMP line.
type LogEvent struct {
	Time    string    `json:"time"` // "HH:MM:SS"
	Date    string    `json:"date"` // "M/D/YYYY"
	Daemon  string    `json:"daemon"`
	Kind    EventKind `json:"kind"`
	User    string    `json:"user,omitempty"`
	Host    string    `json:"host,omitempty"`
	Feature string    `json:"feature,omitempty"`
	Reason  string    `json:"reason,omitempty"`
	Raw     string    `json:"raw"`
}

// Timestamp combines the event's date context and clock time into a single
// instant. Returns false if either part is missing or malformed.
func (e *LogEvent) Timestamp() (time.Time, bool) {
	if e.Date == "" || e.Time == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse("1/2/2006 15:04:05", e.Date+" "+e.Time)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// HasIdentity reports whether the event carries the full feature/user/host
// triple needed for session reconciliation. Marker lines whose tail failed to
// match are kept for audit display but return false here.
func (e *LogEvent) HasIdentity() bool {
	return e.Feature != "" && e.User != "" && e.Host != ""
}
