package domain

import "time"

// CallStatus is the state of a simulated outgoing call.
type CallStatus string

const (
	CallIdle      CallStatus = "idle"
	CallCalling   CallStatus = "calling"
	CallConnected CallStatus = "connected"
	CallFailed    CallStatus = "failed"
)

// CallRecord is the immutable history entry produced when a call ends.
// ID is the call-start time in Unix milliseconds.
type CallRecord struct {
	ID              int64      `json:"id"`
	DialedNumber    string     `json:"dialedNumber"`
	Status          CallStatus `json:"status"`
	StartedAt       time.Time  `json:"startedAt"`
	DurationSeconds int64      `json:"durationSeconds"`
}
