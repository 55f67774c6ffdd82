package types

import (
	"encoding/json"
	"time"
)

// Outcome records how the server finished with a request
type Outcome string

const (
	OutcomeOK      Outcome = "ok"      // handler returned a result
	OutcomeError   Outcome = "error"   // handler failed, error response written
	OutcomeDropped Outcome = "dropped" // request claimed but unreadable, nothing written
	OutcomeLost    Outcome = "lost"    // handler ran but the response could not be written
)

// CallRecord represents one request handled by the bridge server
type CallRecord struct {
	Key          string          `json:"key"`
	RequestID    string          `json:"request_id,omitempty"`
	Method       string          `json:"method,omitempty"`
	Params       json.RawMessage `json:"params,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
	ErrorCode    int             `json:"error_code,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Outcome      Outcome         `json:"outcome"`
	StartedAt    time.Time       `json:"started_at"`
	Duration     time.Duration   `json:"duration"`
}

// Failed reports whether the call did not produce a result.
func (r *CallRecord) Failed() bool {
	return r.Outcome != OutcomeOK
}

// HistoryOptions defines options for retrieving the call journal
type HistoryOptions struct {
	Limit   int       `json:"limit" yaml:"limit"`
	Method  string    `json:"method" yaml:"method"`
	Outcome Outcome   `json:"outcome" yaml:"outcome"`
	Since   time.Time `json:"since" yaml:"since"`
	Reverse bool      `json:"reverse" yaml:"reverse"` // newest first
}

// JournalStats summarizes the call journal
type JournalStats struct {
	TotalEntries int             `json:"total_entries"`
	TotalSize    int64           `json:"total_size"`
	Oldest       time.Time       `json:"oldest_entry"`
	Newest       time.Time       `json:"newest_entry"`
	ByOutcome    map[Outcome]int `json:"entries_by_outcome"`
	ByMethod     map[string]int  `json:"entries_by_method"`
}
