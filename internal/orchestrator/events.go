package orchestrator

import "time"

// Event types published on the refresh feed.
const (
	EventRunStarted  = "run.started"
	EventRunFinished = "run.finished"
	EventRunFailed   = "run.failed"
)

// Event is one refresh lifecycle notification. The report is a snapshot
// taken at publish time and safe to marshal after the run has moved on.
type Event struct {
	Type   string    `json:"type"`
	Time   time.Time `json:"time"`
	Report *Report   `json:"report"`
}

// Publisher receives refresh events. Implementations must not block; the
// orchestrator publishes from the cycle's critical path.
type Publisher interface {
	Publish(Event)
}

// NopPublisher drops every event. It stands in when no feed is wired.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}
