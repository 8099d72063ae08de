package domain

// LogUnit is one segmented block of a rendered error report. Units are
// produced by the segmenter, consumed once, and never mutated.
type LogUnit struct {
	EntryNumber int    `json:"entryNumber,omitempty"` // 0 when the buffer had no entry markers
	RawText     string `json:"rawText"`
}

// ParsedFields holds the scalar fields recovered from one log unit.
// Every field is independently optional; absence is the empty string.
type ParsedFields struct {
	QueueID      string `json:"queueId,omitempty"`
	LogID        string `json:"logId,omitempty"`
	Created      string `json:"created,omitempty"`
	CreatedBy    string `json:"createdBy,omitempty"`
	Process      string `json:"process,omitempty"`
	MessageCode  string `json:"messageCode,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	LongText     string `json:"-"` // stack trace / long-form text, excluded from exports by size
}

// RootCause is the deepest exception type/message pair identified for one
// log unit. A nil RootCause is the normal "no recognizable pattern" outcome.
type RootCause struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Analysis is the serializable per-unit record: parsed fields, the resolved
// root cause, invocation hints, recommendations and a one-line summary.
type Analysis struct {
	Type          string `json:"type"` // Always "analysis"
	SchemaVersion int    `json:"schemaVersion"`

	EntryNumber int `json:"entryNumber,omitempty"`
	ParsedFields

	RootCause         *RootCause `json:"rootCause,omitempty"`
	FailingComponent  string     `json:"failingComponent,omitempty"`
	FailingMethodHint string     `json:"failingMethodHint,omitempty"`
	InvocationMethod  string     `json:"invocationMethod,omitempty"`
	ArgumentsHint     string     `json:"argumentsHint,omitempty"`

	TransactionIDs []string `json:"transactionIds,omitempty"`
	AccountIDs     []string `json:"accountIds,omitempty"`
	Causes         []string `json:"causes,omitempty"`

	Recommendations []string `json:"recommendedNextSteps"`
	OneLineSummary  string   `json:"oneLineSummary,omitempty"`
}
