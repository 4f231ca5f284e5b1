package apnsgate

import (
	"time"

	"github.com/takimoto3/apnsgate/wire"
)

// disconnectionsToKeep bounds the per-app log of error-frame events.
const disconnectionsToKeep = 5000

// DisconnectionEvent records one error frame received from the
// gateway, which always precedes Apple closing the connection.
type DisconnectionEvent struct {
	// Code is Apple's status code for the rejection.
	Code wire.Status

	// Timestamp is the UTC time the frame was decoded.
	Timestamp time.Time

	// Identifier is the internal identifier Apple echoed back.
	Identifier uint16

	// OffendingNotification is the remembered notification the
	// identifier resolved to, or nil when it had already been evicted
	// from the ring.
	OffendingNotification *Notification
}

// disconnectionLog is a bounded FIFO of DisconnectionEvents with
// drain-on-read semantics. Not safe for concurrent use; the owning App
// serializes access.
type disconnectionLog struct {
	capacity int
	events   []DisconnectionEvent
}

func newDisconnectionLog(capacity int) *disconnectionLog {
	return &disconnectionLog{capacity: capacity}
}

func (l *disconnectionLog) append(event DisconnectionEvent) {
	if len(l.events) == l.capacity {
		l.events = append(l.events[:0], l.events[1:]...)
	}
	l.events = append(l.events, event)
}

// drain returns the logged events and clears the log.
func (l *disconnectionLog) drain() []DisconnectionEvent {
	events := l.events
	l.events = nil
	return events
}

func (l *disconnectionLog) size() int { return len(l.events) }
