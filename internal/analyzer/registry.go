package analyzer

import (
	"regexp"
	"strings"
)

// CauseTrigger tallies a cause when the top-level error message contains a
// literal ticket code.
type CauseTrigger struct {
	Match string // literal substring probed in the error message
	Cause string // cause string folded into the counters
}

// Exception tokens the registry can probe for in long-form text. Matches
// synthesize causes tied to the unit's transaction ids.
const (
	probeNullPointer  = "NullPointerException"
	probeNumberFormat = "NumberFormatException"
)

// Rule is one process's extraction behaviour: where its transaction id
// lives inside invocation arguments, whether shared account extraction
// applies, and which cause probes fire. Rules are static data; changing a
// process's behaviour means editing the table below, not the aggregator.
type Rule struct {
	Process string

	// Transaction ids are the long-typed arguments of this routine's
	// invocation lines. Most processes take the first such argument;
	// lastArg selects the last instead (Upload Settlement Date).
	routine *regexp.Regexp
	lastArg bool

	// Accounts enables the shared account-id line patterns.
	Accounts bool

	// GenericErrors harvests `ERROR:` lines from long-form text.
	GenericErrors bool

	// ProcessLevelCauses folds causes into the process counter in addition
	// to the transaction counters. False only for Apply Prices.
	ProcessLevelCauses bool

	Triggers []CauseTrigger
	Probes   []string
}

// A long-typed argument inside an invocation argument list. Both the short
// and the fully qualified spelling occur in the wild.
var longArgRe = regexp.MustCompile(`(\d+)\s*\((?:java\.lang\.)?Long\s*->\s*(?:java\.lang\.)?Long\)`)

// routinePattern matches one invocation of the named routine and captures
// its argument list up to the next stack frame or nested cause.
func routinePattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?is)` + name + `\s+with arguments\s+(.+?)(?:\n\s*at\s|\nCaused by:|\z)`)
}

// Shared account-id extraction: four alternative line shapes, all requiring
// a two-uppercase-letter prefix followed by at least six digits. Results
// are unioned across patterns.
var accountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`Account:\s*([A-Z]{2}\d{6,})`),
	regexp.MustCompile(`account\s+([A-Z]{2}\d{6,})`),
	regexp.MustCompile(`Account\s+([A-Z]{2}\d{6,})\s*:`),
	regexp.MustCompile(`for Account\s+([A-Z]{2}\d{6,})`),
}

var errorLineRe = regexp.MustCompile(`(?m)^\s*ERROR:\s*(.+?)\s*$`)

var numberFormatDetailRe = regexp.MustCompile(`NumberFormatException:?\s*([^\n]*)`)

// registry maps exact process names to their extraction rules. Regular
// Applications and Regular Withdrawals share one invocation signature.
//
// Apply Prices is asymmetric on purpose: its causes reach only the
// transaction-level counters and its long-form ERROR: lines are not
// harvested. That matches the deployed behaviour; raised with product
// before unifying.
var registry = map[string]*Rule{
	"Apply Prices": {
		Process:            "Apply Prices",
		routine:            routinePattern(`applyPricesJob`),
		Accounts:           true,
		GenericErrors:      false,
		ProcessLevelCauses: false,
		Triggers: []CauseTrigger{
			{Match: "SON-4102", Cause: "SON-4102 price feed missing for valuation date"},
			{Match: "Fee amount unallocated", Cause: "Fee amount unallocated across contribution types"},
		},
		Probes: []string{probeNullPointer},
	},
	"Disinvest for Unpriced Transactions": {
		Process:            "Disinvest for Unpriced Transactions",
		routine:            routinePattern(`disinvestAccount`),
		Accounts:           true,
		GenericErrors:      true,
		ProcessLevelCauses: true,
		Triggers: []CauseTrigger{
			{Match: "SON-3317", Cause: "SON-3317 disinvestment exceeds available holding"},
		},
		Probes: []string{probeNullPointer},
	},
	"Regular Applications": {
		Process:            "Regular Applications",
		routine:            routinePattern(`processRegularPayment`),
		Accounts:           true,
		GenericErrors:      true,
		ProcessLevelCauses: true,
		Triggers: []CauseTrigger{
			{Match: "SON-2881", Cause: "SON-2881 regular payment mandate suspended"},
		},
		Probes: []string{probeNullPointer},
	},
	"Regular Withdrawals": {
		Process:            "Regular Withdrawals",
		routine:            routinePattern(`processRegularPayment`),
		Accounts:           true,
		GenericErrors:      true,
		ProcessLevelCauses: true,
		Triggers: []CauseTrigger{
			{Match: "SON-2881", Cause: "SON-2881 regular payment mandate suspended"},
		},
		Probes: []string{probeNullPointer},
	},
	"SMP Rebalance Process": {
		Process:            "SMP Rebalance Process",
		routine:            routinePattern(`rebalanceAccount`),
		Accounts:           true,
		GenericErrors:      true,
		ProcessLevelCauses: true,
		Triggers: []CauseTrigger{
			{Match: "SON-5210", Cause: "SON-5210 rebalance target allocation does not sum to 100%"},
		},
		Probes: []string{probeNullPointer},
	},
	"Cash Receipt Creation for Expectations": {
		Process:            "Cash Receipt Creation for Expectations",
		routine:            routinePattern(`processReceipt`),
		Accounts:           true,
		GenericErrors:      true,
		ProcessLevelCauses: true,
		Triggers: []CauseTrigger{
			{Match: "SON-6044", Cause: "SON-6044 receipt expectation already matched"},
		},
		Probes: []string{probeNumberFormat},
	},
	"Upload Settlement Date": {
		Process:            "Upload Settlement Date",
		routine:            routinePattern(`uploadSettlementOrder`),
		lastArg:            true,
		Accounts:           true,
		GenericErrors:      true,
		ProcessLevelCauses: true,
		Triggers: []CauseTrigger{
			{Match: "SON-7133", Cause: "SON-7133 settlement date precedes trade date"},
		},
		Probes: []string{probeNumberFormat},
	},
	"Upload FinSwitch Transaction Confirmation": {
		Process:            "Upload FinSwitch Transaction Confirmation",
		routine:            routinePattern(`uploadFinSwitchConfirmation`),
		Accounts:           true,
		GenericErrors:      true,
		ProcessLevelCauses: true,
		Triggers: []CauseTrigger{
			{Match: "SON-8409", Cause: "SON-8409 FinSwitch confirmation references unknown transaction"},
		},
		Probes: []string{probeNumberFormat},
	},
}

// LookupRule returns the extraction rule for an exact process name.
// Unknown names get no rule: only base count and queue-id tracking apply.
func LookupRule(process string) (*Rule, bool) {
	r, ok := registry[process]
	return r, ok
}

// RegisteredProcesses returns the process names carrying extraction rules.
func RegisteredProcesses() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// TransactionIDs extracts this process's transaction ids from long-form
// text: one id per invocation of the rule's routine, deduplicated in
// first-seen order.
func (r *Rule) TransactionIDs(text string) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, inv := range r.routine.FindAllStringSubmatch(text, -1) {
		args := longArgRe.FindAllStringSubmatch(inv[1], -1)
		if len(args) == 0 {
			continue
		}
		pick := args[0]
		if r.lastArg {
			pick = args[len(args)-1]
		}
		if id := pick[1]; !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// AccountIDs applies the shared account line patterns to the given text and
// unions the results, deduplicated in first-seen order.
func AccountIDs(text string) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, re := range accountPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if id := m[1]; !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// Causes collects every cause string this rule attributes to one unit:
// generic ERROR: lines, literal ticket-code triggers against the top-level
// error message, and synthesized exception causes. Multiple triggers may
// fire for a single unit.
func (r *Rule) Causes(errorMessage, longText string, transactionIDs []string) []string {
	var causes []string

	if r.GenericErrors {
		for _, m := range errorLineRe.FindAllStringSubmatch(longText, -1) {
			causes = append(causes, m[1])
		}
	}

	for _, t := range r.Triggers {
		if strings.Contains(errorMessage, t.Match) {
			causes = append(causes, t.Cause)
		}
	}

	for _, probe := range r.Probes {
		if !strings.Contains(longText, probe) {
			continue
		}
		switch probe {
		case probeNullPointer:
			for _, id := range transactionIDs {
				causes = append(causes, "NullPointerException for Transaction ID "+id)
			}
		case probeNumberFormat:
			detail := "invalid numeric value"
			if m := numberFormatDetailRe.FindStringSubmatch(longText); m != nil {
				if d := strings.TrimSpace(m[1]); d != "" {
					detail = d
				}
			}
			causes = append(causes, "NumberFormatException - "+detail)
		}
	}

	return causes
}
