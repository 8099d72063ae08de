package analyzer

import (
	"strings"

	"github.com/vburojevic/errjobs/internal/domain"
)

// Recommend turns a resolved root cause into an ordered remediation list.
// A "Fee amount unallocated" root cause gets the fee-allocation playbook;
// anything else gets the generic three steps. A resolved invocation method
// appends one extra step pointing at the DAO path.
func Recommend(rootCause *domain.RootCause, invocationMethod string) []string {
	var steps []string

	if rootCause != nil && strings.Contains(rootCause.Message, "Fee amount unallocated") {
		steps = append(steps,
			"Identify the specific transaction/source record for the failing queue item/transaction ID in the arguments.",
			"Compare the total fee amount vs the sum of allocatable contribution-type amounts for that transaction.",
			"Check for missing/zero/negative contribution types or a mismatch in allocation rules (proportional contribution type allocation).",
			"Confirm whether the transaction is 'unpriced' / partially derived and whether fees are being posted before contribution bases exist.",
			"Correct the underlying allocation data (or fee amount) and re-run/requeue the item.",
		)
	} else {
		steps = append(steps,
			"Locate the failing queue item / transaction using the arguments in the CallException.",
			"Identify the deepest Caused by exception and validate the related business data constraints.",
			"Re-run/requeue after correcting the underlying data condition.",
		)
	}

	if invocationMethod != "" {
		steps = append(steps, "Review the DAO path for context: "+invocationMethod+".execute(...)")
	}

	return steps
}

// OneLineSummary renders "<process> failed due to: <message>" with defaults
// for whichever side is absent. Both absent yields an empty summary.
func OneLineSummary(process string, rootCause *domain.RootCause) string {
	if process == "" && rootCause == nil {
		return ""
	}
	p := process
	if p == "" {
		p = "Process"
	}
	msg := "an application error (see stacktrace)"
	if rootCause != nil {
		msg = rootCause.Message
	}
	return p + " failed due to: " + msg
}
