package model

import "time"

// Row is one result row keyed by column name.
type Row map[string]any

// Column describes one spreadsheet column: its header text, the result
// column it reads and its width in character units.
type Column struct {
	Header string `json:"header"`
	Key    string `json:"key"`
	Width  int    `json:"width"`
}

// Export modes
const (
	ModeBuffered  = "buffered"
	ModeStreaming = "streaming"
)

// RunStatus is the lifecycle state of an export run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// ExportRun is the audit record of one export request.
type ExportRun struct {
	ID           string     `json:"id"`
	ExportType   string     `json:"exportType"`
	Mode         string     `json:"mode"`
	Status       RunStatus  `json:"status"`
	RowCount     int64      `json:"rowCount"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	StartedAt    time.Time  `json:"startedAt"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty"`
}
