// Package analyzer turns rendered error-report text and structured job
// records into per-process and per-transaction aggregates with a
// deterministic root-cause choice. All extraction is a pure function of the
// input text; aggregation state lives in a caller-owned Session.
package analyzer

import (
	"regexp"
	"strconv"

	"github.com/vburojevic/errjobs/internal/domain"
)

var entryMarkerRe = regexp.MustCompile(`(?m)^\s*Log Entry\s*#\s*(\d+)\s*$`)

// Split segments a raw report buffer into ordered log units. Boundaries sit
// at "Log Entry #<N>" marker lines; spans are contiguous, non-overlapping
// and cover the whole buffer (any preamble before the first marker belongs
// to the first unit). A buffer with no markers is one anonymous unit.
func Split(text string) []domain.LogUnit {
	matches := entryMarkerRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return []domain.LogUnit{{RawText: text}}
	}

	units := make([]domain.LogUnit, 0, len(matches))
	for i, m := range matches {
		start := m[0]
		if i == 0 {
			start = 0
		}
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		number, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil {
			number = 0
		}
		units = append(units, domain.LogUnit{
			EntryNumber: number,
			RawText:     text[start:end],
		})
	}
	return units
}
