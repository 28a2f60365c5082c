// Package analytics records what share sessions did, for a local event log
// and Prometheus.
package analytics

import (
	"time"

	"github.com/moyoez/sharesession/tool"
)

type Category int

const (
	CategoryUnknown Category = iota
	CategorySending
	CategoryReceiving
)

func (c Category) String() string {
	switch c {
	case CategorySending:
		return "sending"
	case CategoryReceiving:
		return "receiving"
	default:
		return "unknown"
	}
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

type EventType int

const (
	EventUnknown EventType = iota
	EventSendIntroduction
	EventSendAttachmentsStart
	EventSendAttachmentsEnd
	EventReceiveIntroduction
	EventRespondToIntroduction
	EventReceiveAttachmentsStart
	EventReceiveAttachmentsEnd
)

var eventTypeNames = map[EventType]string{
	EventUnknown:                 "UNKNOWN",
	EventSendIntroduction:        "SEND_INTRODUCTION",
	EventSendAttachmentsStart:    "SEND_ATTACHMENTS_START",
	EventSendAttachmentsEnd:      "SEND_ATTACHMENTS_END",
	EventReceiveIntroduction:     "RECEIVE_INTRODUCTION",
	EventRespondToIntroduction:   "RESPOND_TO_INTRODUCTION",
	EventReceiveAttachmentsStart: "RECEIVE_ATTACHMENTS_START",
	EventReceiveAttachmentsEnd:   "RECEIVE_ATTACHMENTS_END",
}

func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}
	return eventTypeNames[EventUnknown]
}

func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Category  Category       `json:"category"`
	SessionID int64          `json:"sessionId"`
	Timestamp time.Time      `json:"timestamp"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// EventLogger is where recorded events go. Implementations must be safe for
// concurrent use; sessions log from their own runners.
type EventLogger interface {
	Log(event Event)
}

type EventLoggerFunc func(Event)

func (f EventLoggerFunc) Log(event Event) { f(event) }

// Fanout forwards every event to each logger in order.
type Fanout []EventLogger

func (f Fanout) Log(event Event) {
	for _, l := range f {
		if l != nil {
			l.Log(event)
		}
	}
}

// DebugLogger writes events to the process log at debug level.
type DebugLogger struct{}

func (DebugLogger) Log(event Event) {
	tool.DefaultLogger.Debugf("[Analytics] %s session=%d category=%s fields=%v", event.Type, event.SessionID, event.Category, event.Fields)
}
