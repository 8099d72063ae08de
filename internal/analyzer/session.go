package analyzer

import (
	"sort"

	"github.com/vburojevic/errjobs/internal/domain"
)

const maxSamples = 3

// SchemaVersion tags exported analysis and report records.
const SchemaVersion = 1

// Session accumulates per-process and per-transaction summaries for one
// analysis run. It is caller-owned: concurrent runs must use independent
// Sessions, and a fresh Session always starts empty. A Session is not safe
// for concurrent use; the pipeline is a synchronous batch transformation.
type Session struct {
	processes    map[string]*processAccum
	transactions map[transactionKey]*transactionAccum
	queueCounts  map[string]int
}

type transactionKey struct {
	process string
	id      string
}

type processAccum struct {
	errorCount int
	queueIDs   stringSet
	samples    []domain.Sample
	txnIDs     stringSet
	accountIDs stringSet
	causes     map[string]int
}

type transactionAccum struct {
	count   int
	samples []domain.Sample
	causes  map[string]int
}

// NewSession creates an empty aggregation session.
func NewSession() *Session {
	return &Session{
		processes:    make(map[string]*processAccum),
		transactions: make(map[transactionKey]*transactionAccum),
		queueCounts:  make(map[string]int),
	}
}

// AnalyzeUnit extracts fields from a rendered-text unit, resolves its root
// cause, folds it into the session aggregates and returns the per-unit
// analysis record.
func (s *Session) AnalyzeUnit(unit domain.LogUnit) domain.Analysis {
	return s.Analyze(unit.EntryNumber, ExtractFields(unit))
}

// Analyze folds one unit's parsed fields into the session. Sub-extraction
// that finds nothing contributes nothing; the unit always contributes its
// base error count and queue id (fail-open).
func (s *Session) Analyze(entryNumber int, f domain.ParsedFields) domain.Analysis {
	a := domain.Analysis{
		Type:          "analysis",
		SchemaVersion: SchemaVersion,
		EntryNumber:   entryNumber,
		ParsedFields:  f,
	}

	a.RootCause = ResolveRootCause(f.LongText)
	a.InvocationMethod, a.ArgumentsHint = InvocationHint(f.LongText)
	a.FailingComponent, a.FailingMethodHint = FailureHint(f.LongText)
	a.Recommendations = Recommend(a.RootCause, a.InvocationMethod)
	a.OneLineSummary = OneLineSummary(f.Process, a.RootCause)

	proc := s.process(f.Process)
	proc.errorCount++
	proc.queueIDs.add(f.QueueID)
	if f.QueueID != "" {
		s.queueCounts[f.QueueID]++
	}

	sample := domain.Sample{QueueID: f.QueueID, Message: f.ErrorMessage, Created: f.Created}
	if len(proc.samples) < maxSamples {
		proc.samples = append(proc.samples, sample)
	}

	rule, ok := LookupRule(f.Process)
	if !ok {
		return a
	}

	a.TransactionIDs = rule.TransactionIDs(f.LongText)
	if rule.Accounts {
		a.AccountIDs = AccountIDs(f.LongText)
	}
	a.Causes = rule.Causes(f.ErrorMessage, f.LongText, a.TransactionIDs)

	for _, id := range a.TransactionIDs {
		proc.txnIDs.add(id)
	}
	for _, id := range a.AccountIDs {
		proc.accountIDs.add(id)
	}

	for _, id := range a.TransactionIDs {
		txn := s.transaction(f.Process, id)
		txn.count++
		if len(txn.samples) < maxSamples {
			txn.samples = append(txn.samples, sample)
		}
		for _, cause := range a.Causes {
			txn.causes[cause]++
		}
	}

	if rule.ProcessLevelCauses {
		for _, cause := range a.Causes {
			proc.causes[cause]++
		}
	}

	return a
}

// AnalyzeText segments a raw report buffer and folds every unit into the
// session, returning the per-unit records in source order.
func (s *Session) AnalyzeText(text string) []domain.Analysis {
	units := Split(text)
	analyses := make([]domain.Analysis, 0, len(units))
	for _, unit := range units {
		analyses = append(analyses, s.AnalyzeUnit(unit))
	}
	return analyses
}

// ProcessSummaries reads out the per-process aggregates, ordered by error
// count descending then process name, with deterministic set ordering:
// transaction ids numeric, account ids lexical.
func (s *Session) ProcessSummaries() []domain.ProcessSummary {
	summaries := make([]domain.ProcessSummary, 0, len(s.processes))
	for name, p := range s.processes {
		summaries = append(summaries, domain.ProcessSummary{
			Process:        name,
			ErrorCount:     p.errorCount,
			QueueIDs:       p.queueIDs.sortedNumeric(),
			Samples:        append([]domain.Sample(nil), p.samples...),
			TransactionIDs: p.txnIDs.sortedNumeric(),
			AccountIDs:     p.accountIDs.sortedLexical(),
			Causes:         copyCounter(p.causes),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].ErrorCount != summaries[j].ErrorCount {
			return summaries[i].ErrorCount > summaries[j].ErrorCount
		}
		return summaries[i].Process < summaries[j].Process
	})
	return summaries
}

// TransactionSummaries reads out the per-transaction aggregates, ordered by
// process name then transaction id numerically.
func (s *Session) TransactionSummaries() []domain.TransactionSummary {
	summaries := make([]domain.TransactionSummary, 0, len(s.transactions))
	for key, t := range s.transactions {
		summaries = append(summaries, domain.TransactionSummary{
			Process:       key.process,
			TransactionID: key.id,
			Count:         t.count,
			Samples:       append([]domain.Sample(nil), t.samples...),
			Causes:        copyCounter(t.causes),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Process != summaries[j].Process {
			return summaries[i].Process < summaries[j].Process
		}
		return numericLess(summaries[i].TransactionID, summaries[j].TransactionID)
	})
	return summaries
}

// Report assembles the full session read-out.
func (s *Session) Report(queryDate string) domain.Report {
	total := 0
	for _, p := range s.processes {
		total += p.errorCount
	}
	return domain.Report{
		Type:          "report",
		SchemaVersion: SchemaVersion,
		QueryDate:     queryDate,
		TotalErrors:   total,
		QueueCounts:   copyCounter(s.queueCounts),
		Processes:     s.ProcessSummaries(),
		Transactions:  s.TransactionSummaries(),
	}
}

func (s *Session) process(name string) *processAccum {
	p, ok := s.processes[name]
	if !ok {
		p = &processAccum{causes: make(map[string]int)}
		s.processes[name] = p
	}
	return p
}

func (s *Session) transaction(process, id string) *transactionAccum {
	key := transactionKey{process: process, id: id}
	t, ok := s.transactions[key]
	if !ok {
		t = &transactionAccum{causes: make(map[string]int)}
		s.transactions[key] = t
	}
	return t
}

// stringSet keeps no insertion order; read-out sorts explicitly so repeated
// runs over identical input are byte-identical.
type stringSet map[string]struct{}

func (s *stringSet) add(v string) {
	if v == "" {
		return
	}
	if *s == nil {
		*s = make(map[string]struct{})
	}
	(*s)[v] = struct{}{}
}

func (s stringSet) sortedLexical() []string {
	if len(s) == 0 {
		return nil
	}
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (s stringSet) sortedNumeric() []string {
	if len(s) == 0 {
		return nil
	}
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return numericLess(out[i], out[j]) })
	return out
}

// numericLess orders decimal-digit strings by integer value without
// overflow: shorter strings are smaller, equal lengths compare lexically.
// Non-digit strings fall back to lexical order.
func numericLess(a, b string) bool {
	if isDigits(a) && isDigits(b) {
		if len(a) != len(b) {
			return len(a) < len(b)
		}
	}
	return a < b
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

func copyCounter(src map[string]int) map[string]int {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]int, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
