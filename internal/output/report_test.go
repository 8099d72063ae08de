package output

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vburojevic/errjobs/internal/analyzer"
	"github.com/vburojevic/errjobs/internal/domain"
)

func TestRenderer_WriteReport(t *testing.T) {
	var buf bytes.Buffer
	r := NewPlainRenderer(&buf)

	report := domain.Report{
		QueryDate:   "2026-08-28",
		TotalErrors: 5,
		QueueCounts: map[string]int{"1002": 2, "999": 3},
		Processes: []domain.ProcessSummary{
			{
				Process:        "Disinvest",
				ErrorCount:     3,
				QueueIDs:       []string{"999", "1002"},
				TransactionIDs: []string{"8101", "8102"},
				AccountIDs:     []string{"IA100153"},
				Causes:         map[string]int{"ERROR: Fee amount unallocated": 3},
				Samples:        []domain.Sample{{QueueID: "999", Message: "Fee amount unallocated\nsecond line"}},
			},
		},
		Transactions: []domain.TransactionSummary{
			{Process: "Disinvest", TransactionID: "8101", Count: 2, Causes: map[string]int{"ERROR: Fee amount unallocated": 2}},
		},
	}

	err := r.WriteReport(report, time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "SBS Error Job Report")
	assert.Contains(t, out, "Query Date: 2026-08-28")
	assert.Contains(t, out, "Total Error Jobs: 5")
	assert.Contains(t, out, "Queue ID Statistics")
	assert.Contains(t, out, "Process: Disinvest")
	assert.Contains(t, out, "Transaction IDs: 8101, 8102")
	assert.Contains(t, out, "Cause (3x): ERROR: Fee amount unallocated")
	// samples show only the first line of the message
	assert.Contains(t, out, "Sample [queue 999]: Fee amount unallocated")
	assert.NotContains(t, out, "second line")
	assert.Contains(t, out, "Disinvest / 8101: 2 error(s)")
	// numeric queue ordering: 999 before 1002
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("999")), bytes.Index(buf.Bytes(), []byte("1002")))
}

func TestRenderer_WriteAnalysis(t *testing.T) {
	t.Run("renders root cause and recommendations", func(t *testing.T) {
		var buf bytes.Buffer
		r := NewPlainRenderer(&buf)

		err := r.WriteAnalysis(domain.Analysis{
			EntryNumber: 2,
			ParsedFields: domain.ParsedFields{
				QueueID:      "1001",
				Process:      "Disinvest",
				ErrorMessage: "Fee amount unallocated\ndetail line",
			},
			RootCause:         &domain.RootCause{Type: "PersistenceException", Message: "ERROR: Fee amount unallocated"},
			FailingComponent:  "bravura.service.FeeService",
			FailingMethodHint: "FeeService.java:120",
			Recommendations:   []string{"Inspect fee configuration", "Re-run the job"},
			OneLineSummary:    "Disinvest failed due to: ERROR: Fee amount unallocated",
		})
		require.NoError(t, err)

		out := buf.String()
		assert.Contains(t, out, "Log Entry #2")
		assert.Contains(t, out, "Top-level Error: Fee amount unallocated")
		assert.NotContains(t, out, "detail line")
		assert.Contains(t, out, "PersistenceException: ERROR: Fee amount unallocated")
		assert.Contains(t, out, "bravura.service.FeeService (FeeService.java:120)")
		assert.Contains(t, out, " 1. Inspect fee configuration")
		assert.Contains(t, out, " 2. Re-run the job")
		assert.Contains(t, out, "One-line summary")
	})

	t.Run("absent root cause states so", func(t *testing.T) {
		var buf bytes.Buffer
		r := NewPlainRenderer(&buf)

		err := r.WriteAnalysis(domain.Analysis{EntryNumber: 1})
		require.NoError(t, err)
		assert.Contains(t, buf.String(), "Not found (no recognizable root-cause pattern)")
	})
}

// Entry blocks written by the renderer must survive a full re-ingestion pass
// through the segmenter and field extractor.
func TestRenderer_WriteEntryBlocks_RoundTrip(t *testing.T) {
	fields := []domain.ParsedFields{
		{
			QueueID:      "1001",
			LogID:        "555001",
			Created:      "2026-08-28 07:15:02",
			CreatedBy:    "SYSTEM",
			Process:      "Disinvest",
			MessageCode:  "JOBFAIL",
			ErrorMessage: "Could not process disinvestment",
			LongText:     "Caused by: PersistenceException: ERROR: Fee amount unallocated\n    at deployment.sonata.ear//bravura.x.Y(Y.java:10)",
		},
		{
			QueueID: "1002",
			Process: "Apply Prices",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, NewPlainRenderer(&buf).WriteEntryBlocks(fields))

	units := analyzer.Split(buf.String())
	require.Len(t, units, 2)
	assert.Equal(t, 1, units[0].EntryNumber)
	assert.Equal(t, 2, units[1].EntryNumber)

	first := analyzer.ExtractFields(units[0])
	assert.Equal(t, "1001", first.QueueID)
	assert.Equal(t, "555001", first.LogID)
	assert.Equal(t, "2026-08-28 07:15:02", first.Created)
	assert.Equal(t, "SYSTEM", first.CreatedBy)
	assert.Equal(t, "Disinvest", first.Process)
	assert.Equal(t, "JOBFAIL", first.MessageCode)
	assert.Equal(t, "Could not process disinvestment", first.ErrorMessage)

	second := analyzer.ExtractFields(units[1])
	assert.Equal(t, "1002", second.QueueID)
	assert.Equal(t, "Apply Prices", second.Process)
	assert.Empty(t, second.LogID)
}

func TestSortedKeysNumeric(t *testing.T) {
	got := sortedKeysNumeric(map[string]int{"1002": 1, "999": 1, "GENQ": 1, "10": 1})
	assert.Equal(t, []string{"10", "999", "1002", "GENQ"}, got)
}
