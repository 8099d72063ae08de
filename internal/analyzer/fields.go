package analyzer

import (
	"regexp"
	"strings"

	"github.com/vburojevic/errjobs/internal/domain"
)

// Anchored line patterns for the labeled fields of a rendered log block.
// Each is applied independently; a miss leaves the field empty.
var (
	queueIDRe     = regexp.MustCompile(`(?im)^\s*Queue ID:\s*(.+?)\s*$`)
	logIDRe       = regexp.MustCompile(`(?im)^\s*Log ID:\s*(.+?)\s*$`)
	createdRe     = regexp.MustCompile(`(?im)^\s*Created:\s*(.+?)\s+by\s+(.+?)\s*$`)
	processRe     = regexp.MustCompile(`(?im)^\s*Process:\s*(.+?)\s*$`)
	messageCodeRe = regexp.MustCompile(`(?im)^\s*Message Code:\s*(.+?)\s*$`)

	// Free text after the label, terminated by the next blank line.
	errorMessageRe = regexp.MustCompile(`(?is)Error Message:\s*(.+?)\n\s*\n`)
)

// ExtractFields pulls the scalar fields out of one log unit. Missing fields
// yield empty strings; absence is never an error.
func ExtractFields(unit domain.LogUnit) domain.ParsedFields {
	f := domain.ParsedFields{
		QueueID:     firstGroup(queueIDRe, unit.RawText),
		LogID:       firstGroup(logIDRe, unit.RawText),
		Process:     firstGroup(processRe, unit.RawText),
		MessageCode: firstGroup(messageCodeRe, unit.RawText),
		LongText:    unit.RawText,
	}
	if m := createdRe.FindStringSubmatch(unit.RawText); m != nil {
		f.Created = strings.TrimSpace(m[1])
		f.CreatedBy = strings.TrimSpace(m[2])
	}
	if m := errorMessageRe.FindStringSubmatch(unit.RawText); m != nil {
		f.ErrorMessage = strings.TrimSpace(m[1])
	}
	return f
}

func firstGroup(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
