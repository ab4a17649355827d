package engine

import "time"

type EventType string

const (
	EventEntry       EventType = "entry"
	EventExit        EventType = "exit"
	EventBarRejected EventType = "bar_rejected"
)

type Event struct {
	At      time.Time         `json:"at"`
	Type    EventType         `json:"type"`
	Symbol  string            `json:"symbol"`
	Details map[string]string `json:"details,omitempty"`
}

// EventLog is an append-only journal of what a run did
type EventLog struct {
	Events []Event `json:"events"`
}

func (l *EventLog) Append(e Event) { l.Events = append(l.Events, e) }

func (l *EventLog) Count(t EventType) int {
	n := 0
	for _, e := range l.Events {
		if e.Type == t {
			n++
		}
	}
	return n
}
