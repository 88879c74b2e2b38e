package bulk

import "time"

const maxStoredErrors = 100

// Counters accumulates per-record outcomes for one run. The verb counters
// (Created/Modified/Deleted) depend on the operation; at any point
// Processed equals the sum of the verb counters, NoChanges, Skipped and
// Failed. Counters only ever increase.
type Counters struct {
	Processed int      `json:"processed"`
	Created   int      `json:"created"`
	Modified  int      `json:"modified,omitempty"`
	Deleted   int      `json:"deleted,omitempty"`
	NoChanges int      `json:"noChanges,omitempty"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

func (c *Counters) AddFailure(message string) {
	c.Processed++
	c.Failed++
	if len(c.Errors) < maxStoredErrors {
		c.Errors = append(c.Errors, message)
	}
}

func (c *Counters) AddSkip() {
	c.Processed++
	c.Skipped++
}

type EventType string

const (
	EventProgress   EventType = "progress"
	EventCompletion EventType = "completion"
	EventError      EventType = "error"
)

type EventUser struct {
	Username   string `json:"username"`
	LineNumber int    `json:"lineNumber"`
}

// Event is the wire-level progress message pushed to the client that
// initiated the session. For a single session events are emitted in
// record-processing order and a completion or error event is always last.
type Event struct {
	Type           EventType  `json:"type"`
	Current        int        `json:"current"`
	Total          int        `json:"total"`
	Message        string     `json:"message"`
	Counts         Counters   `json:"counts"`
	User           *EventUser `json:"user,omitempty"`
	PopulationName string     `json:"populationName,omitempty"`
	PopulationID   string     `json:"populationId,omitempty"`
	Timestamp      time.Time  `json:"timestamp"`
}
