package bulk

import "time"

type OperationType string

const (
	OperationImport OperationType = "import"
	OperationModify OperationType = "modify"
	OperationDelete OperationType = "delete"
	OperationExport OperationType = "export"
)

// HistoryEntry is one completed (or failed) bulk operation, appended to the
// on-disk history log for the audit listing.
type HistoryEntry struct {
	ID             string        `json:"id"`
	Type           OperationType `json:"type"`
	Timestamp      time.Time     `json:"timestamp"`
	FileName       string        `json:"fileName,omitempty"`
	PopulationID   string        `json:"populationId,omitempty"`
	PopulationName string        `json:"populationName,omitempty"`
	Counts         Counters      `json:"counts"`
	Message        string        `json:"message"`
	Success        bool          `json:"success"`
}
