// Package output renders analysis results for humans (styled text reports)
// and machines (NDJSON records). The rendered entry blocks use the same
// labeled line format the analyzer's segmenter understands, so written
// reports can be re-ingested later.
package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"

	"github.com/vburojevic/errjobs/internal/domain"
)

const rule = "============================================================"

// Renderer writes text reports. Styling is enabled only when the target is
// a terminal.
type Renderer struct {
	w     io.Writer
	color bool
}

// NewRenderer creates a renderer for w, detecting TTY color support.
func NewRenderer(w io.Writer) *Renderer {
	color := false
	if f, ok := w.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Renderer{w: w, color: color}
}

// NewPlainRenderer creates a renderer with styling off, for files and tests.
func NewPlainRenderer(w io.Writer) *Renderer {
	return &Renderer{w: w}
}

func (r *Renderer) style(s lipgloss.Style, text string) string {
	if !r.color {
		return text
	}
	return s.Render(text)
}

// WriteReport renders the session report: run header, queue-id statistics
// table, then per-process and per-transaction summaries.
func (r *Renderer) WriteReport(report domain.Report, generatedAt time.Time) error {
	fmt.Fprintln(r.w, rule)
	fmt.Fprintln(r.w, r.style(Styles.Header, "SBS Error Job Report"))
	fmt.Fprintln(r.w, rule)
	fmt.Fprintf(r.w, "Generated: %s\n", generatedAt.Format("2006-01-02 15:04:05"))
	if report.QueryDate != "" {
		fmt.Fprintf(r.w, "Query Date: %s\n", report.QueryDate)
	}
	fmt.Fprintf(r.w, "Total Error Jobs: %d\n", report.TotalErrors)
	fmt.Fprintln(r.w)

	if len(report.QueueCounts) > 0 {
		fmt.Fprintln(r.w, r.style(Styles.Header, "Queue ID Statistics"))
		table := tablewriter.NewWriter(r.w)
		table.Header("Queue ID", "Errors")
		for _, queueID := range sortedKeysNumeric(report.QueueCounts) {
			table.Append([]string{queueID, strconv.Itoa(report.QueueCounts[queueID])})
		}
		if err := table.Render(); err != nil {
			return err
		}
		fmt.Fprintln(r.w)
	}

	for _, p := range report.Processes {
		fmt.Fprintf(r.w, "%s %s\n",
			r.style(Styles.Label, "Process:"),
			r.style(Styles.Value, p.Process))
		fmt.Fprintf(r.w, "  Errors: %d\n", p.ErrorCount)
		if len(p.QueueIDs) > 0 {
			fmt.Fprintf(r.w, "  Queue IDs: %s\n", joinList(p.QueueIDs))
		}
		if len(p.TransactionIDs) > 0 {
			fmt.Fprintf(r.w, "  Transaction IDs: %s\n", joinList(p.TransactionIDs))
		}
		if len(p.AccountIDs) > 0 {
			fmt.Fprintf(r.w, "  Account IDs: %s\n", joinList(p.AccountIDs))
		}
		for _, cause := range sortedKeys(p.Causes) {
			fmt.Fprintf(r.w, "  Cause (%dx): %s\n", p.Causes[cause], cause)
		}
		for _, sample := range p.Samples {
			fmt.Fprintf(r.w, "  Sample [queue %s]: %s\n", sample.QueueID, firstLine(sample.Message))
		}
		fmt.Fprintln(r.w)
	}

	if len(report.Transactions) > 0 {
		fmt.Fprintln(r.w, r.style(Styles.Header, "Transaction Breakdown"))
		for _, t := range report.Transactions {
			fmt.Fprintf(r.w, "  %s / %s: %d error(s)\n", t.Process, t.TransactionID, t.Count)
			for _, cause := range sortedKeys(t.Causes) {
				fmt.Fprintf(r.w, "    Cause (%dx): %s\n", t.Causes[cause], cause)
			}
		}
		fmt.Fprintln(r.w)
	}

	return nil
}

// WriteAnalysis renders one per-unit analysis block for humans: fields,
// deepest root cause, failure hints and the remediation list.
func (r *Renderer) WriteAnalysis(a domain.Analysis) error {
	header := "Log Entry"
	if a.EntryNumber > 0 {
		header = fmt.Sprintf("Log Entry #%d", a.EntryNumber)
	}
	fmt.Fprintln(r.w, rule)
	fmt.Fprintln(r.w, r.style(Styles.Header, header))
	fmt.Fprintln(r.w, rule)

	writeField := func(label, value string) {
		if value != "" {
			fmt.Fprintf(r.w, "%s: %s\n", label, value)
		}
	}
	writeField("Queue ID", a.QueueID)
	writeField("Log ID", a.LogID)
	if a.Created != "" || a.CreatedBy != "" {
		fmt.Fprintf(r.w, "Created: %s by %s\n", a.Created, a.CreatedBy)
	}
	writeField("Process", a.Process)
	writeField("Message Code", a.MessageCode)
	writeField("Top-level Error", firstLine(a.ErrorMessage))

	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, "Root cause (deepest):")
	if a.RootCause != nil {
		fmt.Fprintf(r.w, " - %s\n", r.style(Styles.Danger, a.RootCause.Type+": "+a.RootCause.Message))
	} else {
		fmt.Fprintln(r.w, " - Not found (no recognizable root-cause pattern)")
	}

	if a.FailingComponent != "" {
		fmt.Fprintln(r.w)
		fmt.Fprintln(r.w, "Where it fails (app layer hint):")
		location := a.FailingMethodHint
		if location == "" {
			location = "unknown location"
		}
		fmt.Fprintf(r.w, " - %s (%s)\n", a.FailingComponent, location)
	}

	if a.ArgumentsHint != "" {
		fmt.Fprintln(r.w)
		fmt.Fprintln(r.w, "Arguments hint (truncated):")
		fmt.Fprintf(r.w, " - %s\n", a.ArgumentsHint)
	}

	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, "Recommended next steps:")
	for i, step := range a.Recommendations {
		fmt.Fprintf(r.w, " %d. %s\n", i+1, step)
	}

	if a.OneLineSummary != "" {
		fmt.Fprintln(r.w)
		fmt.Fprintln(r.w, "One-line summary:")
		fmt.Fprintf(r.w, " - %s\n", a.OneLineSummary)
	}
	fmt.Fprintln(r.w)
	return nil
}

// WriteEntryBlocks renders raw, re-ingestable "Log Entry #<N>" blocks from
// structured fields: the same labeled format the segmenter and field
// extractor parse.
func (r *Renderer) WriteEntryBlocks(fields []domain.ParsedFields) error {
	for i, f := range fields {
		fmt.Fprintf(r.w, "Log Entry #%d\n", i+1)
		if f.QueueID != "" {
			fmt.Fprintf(r.w, "Queue ID: %s\n", f.QueueID)
		}
		if f.LogID != "" {
			fmt.Fprintf(r.w, "Log ID: %s\n", f.LogID)
		}
		if f.Created != "" || f.CreatedBy != "" {
			fmt.Fprintf(r.w, "Created: %s by %s\n", f.Created, f.CreatedBy)
		}
		if f.Process != "" {
			fmt.Fprintf(r.w, "Process: %s\n", f.Process)
		}
		if f.MessageCode != "" {
			fmt.Fprintf(r.w, "Message Code: %s\n", f.MessageCode)
		}
		if f.ErrorMessage != "" {
			fmt.Fprintf(r.w, "\nError Message:\n%s\n", f.ErrorMessage)
		}
		fmt.Fprintln(r.w)
		if f.LongText != "" {
			fmt.Fprintln(r.w, f.LongText)
			fmt.Fprintln(r.w)
		}
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// sortedKeysNumeric orders all-digit keys by magnitude (shorter first, then
// lexical, which matches numeric order for decimal strings) and everything
// else lexically after them.
func sortedKeysNumeric(m map[string]int) []string {
	keys := sortedKeys(m)
	sort.SliceStable(keys, func(i, j int) bool {
		di, dj := isDigits(keys[i]), isDigits(keys[j])
		if di != dj {
			return di
		}
		if di && len(keys[i]) != len(keys[j]) {
			return len(keys[i]) < len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}

func joinList(items []string) string {
	out := ""
	for i, item := range items {
		if i > 0 {
			out += ", "
		}
		out += item
	}
	return out
}
