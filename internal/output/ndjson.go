package output

import (
	"encoding/json"
	"io"

	"github.com/vburojevic/errjobs/internal/domain"
)

// NDJSONWriter writes analysis records as NDJSON
type NDJSONWriter struct {
	w       io.Writer
	encoder *json.Encoder
}

// NewNDJSONWriter creates a new NDJSON writer
func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false) // stack traces stay readable without < noise
	return &NDJSONWriter{
		w:       w,
		encoder: enc,
	}
}

// ErrorOutput represents a fatal error surfaced to the consumer
type ErrorOutput struct {
	Type          string `json:"type"` // Always "error"
	SchemaVersion int    `json:"schemaVersion"`
	Code          string `json:"code"`
	Message       string `json:"message"`
	Hint          string `json:"hint,omitempty"`
}

// WarningOutput represents a non-fatal warning
type WarningOutput struct {
	Type          string `json:"type"` // Always "warning"
	SchemaVersion int    `json:"schemaVersion"`
	Message       string `json:"message"`
}

// InfoOutput represents an informational message
type InfoOutput struct {
	Type          string `json:"type"` // Always "info"
	SchemaVersion int    `json:"schemaVersion"`
	Message       string `json:"message"`
	QueryDate     string `json:"queryDate,omitempty"`
	Queue         string `json:"queue,omitempty"`
}

// WriteAnalysis outputs a single per-entry analysis record
func (w *NDJSONWriter) WriteAnalysis(a domain.Analysis) error {
	a.Type = "analysis"
	a.SchemaVersion = SchemaVersion
	return w.encoder.Encode(a)
}

// WriteReport outputs the aggregated session report
func (w *NDJSONWriter) WriteReport(r domain.Report) error {
	r.Type = "report"
	r.SchemaVersion = SchemaVersion
	return w.encoder.Encode(r)
}

// WriteError outputs an error
func (w *NDJSONWriter) WriteError(code, message string, hint ...string) error {
	out := ErrorOutput{
		Type:          "error",
		SchemaVersion: SchemaVersion,
		Code:          code,
		Message:       message,
	}
	if len(hint) > 0 {
		out.Hint = hint[0]
	}
	return w.encoder.Encode(out)
}

// WriteWarning outputs a warning message
func (w *NDJSONWriter) WriteWarning(message string) error {
	return w.encoder.Encode(WarningOutput{
		Type:          "warning",
		SchemaVersion: SchemaVersion,
		Message:       message,
	})
}

// WriteInfo outputs an informational message
func (w *NDJSONWriter) WriteInfo(message, queryDate, queue string) error {
	return w.encoder.Encode(InfoOutput{
		Type:          "info",
		SchemaVersion: SchemaVersion,
		Message:       message,
		QueryDate:     queryDate,
		Queue:         queue,
	})
}

// WriteRaw outputs raw JSON data
func (w *NDJSONWriter) WriteRaw(v interface{}) error {
	return w.encoder.Encode(v)
}
