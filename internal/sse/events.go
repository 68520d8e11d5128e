// Package sse implements Server-Sent Events so a reader's other devices see
// scan candidates change without polling.
package sse

import "time"

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventScanStarted is sent when a barcode resolves and scoring begins.
	EventScanStarted EventType = "scan.started"
	// EventScanReady is sent when the candidate's prediction is available.
	EventScanReady EventType = "scan.ready"
	// EventScanDiscarded is sent when a candidate is dropped. The payload
	// carries the reason: discarded, superseded or expired.
	EventScanDiscarded EventType = "scan.discarded"
	// EventScanAccepted is sent when a candidate becomes a library entry.
	EventScanAccepted EventType = "scan.accepted"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
	// ReaderID scopes delivery. Empty means every connected reader.
	ReaderID string `json:"-"`
}

// DiscardedData is the payload of EventScanDiscarded.
type DiscardedData struct {
	CandidateID string `json:"candidateId"`
	Reason      string `json:"reason"`
}

// NewEvent creates an event for one reader.
func NewEvent(t EventType, readerID string, data any) Event {
	return Event{
		Type:      t,
		ReaderID:  readerID,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// NewHeartbeatEvent creates a keepalive event.
func NewHeartbeatEvent() Event {
	return Event{
		Type:      EventHeartbeat,
		Data:      map[string]any{},
		Timestamp: time.Now(),
	}
}
