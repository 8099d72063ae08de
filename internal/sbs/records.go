// Package sbs is the client for the SBS job-history API: it fetches
// error-job records and system-log detail and converts them into the parsed
// field shape the analyzer consumes. The core engine never talks to the
// network; this package is the boundary.
package sbs

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/vburojevic/errjobs/internal/domain"
)

// JobRecord is one structured error-job record from the API. Individual
// fields may be absent; only the container shape is mandatory.
type JobRecord struct {
	QueueID     string `json:"queueId,omitempty"`
	LogID       string `json:"logId,omitempty"`
	Message     string `json:"message,omitempty"`
	LongText    string `json:"longMessage,omitempty"`
	Created     string `json:"createdDate,omitempty"`
	CreatedBy   string `json:"createdBy,omitempty"`
	Process     string `json:"processName,omitempty"`
	MessageCode string `json:"messageCode,omitempty"`
}

// Fields maps a structured record onto the analyzer's parsed-field shape.
// The long-form text doubles as the root-cause scan target.
func (r JobRecord) Fields() domain.ParsedFields {
	return domain.ParsedFields{
		QueueID:      r.QueueID,
		LogID:        r.LogID,
		Created:      r.Created,
		CreatedBy:    r.CreatedBy,
		Process:      r.Process,
		MessageCode:  r.MessageCode,
		ErrorMessage: r.Message,
		LongText:     r.LongText,
	}
}

// decodeRecords pulls the named record array out of a response body. A body
// that is not JSON or lacks the array is a malformed container and fails the
// caller; missing fields inside individual records are tolerated as absent.
func decodeRecords(body []byte, key string) ([]JobRecord, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("malformed response: body is not valid JSON")
	}
	results := gjson.GetBytes(body, key)
	if !results.Exists() || !results.IsArray() {
		return nil, fmt.Errorf("malformed response: missing %q array", key)
	}

	var records []JobRecord
	results.ForEach(func(_, r gjson.Result) bool {
		records = append(records, JobRecord{
			QueueID:     r.Get("queueId").String(),
			LogID:       r.Get("logId").String(),
			Message:     r.Get("message").String(),
			LongText:    r.Get("longMessage").String(),
			Created:     r.Get("createdDate").String(),
			CreatedBy:   r.Get("createdBy").String(),
			Process:     r.Get("processName").String(),
			MessageCode: r.Get("messageCode.code").String(),
		})
		return true
	})
	return records, nil
}
