package bulk

import "time"

type SessionStatus string

const (
	StatusStarting  SessionStatus = "starting"
	StatusRunning   SessionStatus = "running"
	StatusCompleted SessionStatus = "completed"
	StatusFailed    SessionStatus = "failed"
)

// Session is one in-flight bulk operation. It is owned by the session store
// and deleted unconditionally when its run terminates; there is no
// time-based eviction.
type Session struct {
	ID                 string
	FileName           string
	Records            []Record
	PopulationID       string
	PopulationName     string
	ExpectedTotal      int
	SkipDuplicateCheck bool
	StartTime          time.Time
	Status             SessionStatus
}
