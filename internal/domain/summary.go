package domain

// Sample is one retained example error, kept for illustrative display.
// At most three are held per process or transaction; once full the list
// never evicts.
type Sample struct {
	QueueID string `json:"queueId,omitempty"`
	Message string `json:"message,omitempty"`
	Created string `json:"created,omitempty"`
}

// ProcessSummary aggregates every error attributed to one business process
// within a single analysis session.
type ProcessSummary struct {
	Process        string         `json:"process"`
	ErrorCount     int            `json:"errorCount"`
	QueueIDs       []string       `json:"queueIds,omitempty"`
	Samples        []Sample       `json:"samples,omitempty"`
	TransactionIDs []string       `json:"transactionIds,omitempty"` // decimal strings, numeric order
	AccountIDs     []string       `json:"accountIds,omitempty"`     // lexical order
	Causes         map[string]int `json:"causes,omitempty"`         // cause string -> frequency
}

// TransactionSummary aggregates errors for one (process, transaction id) pair.
type TransactionSummary struct {
	Process       string         `json:"process"`
	TransactionID string         `json:"transactionId"`
	Count         int            `json:"count"`
	Samples       []Sample       `json:"samples,omitempty"`
	Causes        map[string]int `json:"causes,omitempty"`
}

// Report is the full read-out of one analysis session, consumed by the
// report renderer and the persistence sink.
type Report struct {
	Type          string `json:"type"` // Always "report"
	SchemaVersion int    `json:"schemaVersion"`

	QueryDate   string `json:"queryDate,omitempty"`
	TotalErrors int    `json:"totalErrors"`

	// QueueCounts tallies errors per queue id across all processes.
	QueueCounts map[string]int `json:"queueCounts,omitempty"`

	Processes    []ProcessSummary     `json:"processes,omitempty"`
	Transactions []TransactionSummary `json:"transactions,omitempty"`
}
