package analyzer

import (
	"regexp"
	"strings"

	"github.com/vburojevic/errjobs/internal/domain"
)

const maxArgumentsHint = 240

var (
	// Nested cause followed by a stack frame. Later "Caused by" occurrences
	// are deeper in conventional stack-trace ordering, so the resolver keeps
	// the last match.
	nestedCauseRe = regexp.MustCompile(`(?is)Caused by:\s*(?:java\.lang\.)?([A-Za-z]+Exception)\s*:\s*ERROR:\s*(.+?)\n\s*at\s`)

	// Loose fallback: any exception-typed ERROR anywhere in the text.
	looseCauseRe = regexp.MustCompile(`(?is)(?:java\.lang\.)?([A-Za-z]+Exception)\s*:\s*ERROR:\s*(.+?)(?:\n\s*at\s|\z)`)

	invocationRe = regexp.MustCompile(`(?is)Could not invoke\s+([a-zA-Z0-9._$]+)\.execute\s+with arguments\s+(.+?)(?:\n\d+\.\s|\nCaused by:|\z)`)

	// Application-namespaced stack frame; the last match sits nearest the
	// origin of the failure.
	appFrameRe = regexp.MustCompile(`(?m)^\s*at\s+deployment\.sonata\.ear//(bravura\.[a-zA-Z0-9._$]+)\((.+?)\)\s*$`)
)

// ResolveRootCause picks the single most specific root cause from one
// unit's text: the last nested-cause match wins, falling back to the last
// loose match. A nil result is a normal, non-error outcome.
func ResolveRootCause(text string) *domain.RootCause {
	if rc := lastCause(nestedCauseRe, text); rc != nil {
		return rc
	}
	return lastCause(looseCauseRe, text)
}

func lastCause(re *regexp.Regexp, text string) *domain.RootCause {
	matches := re.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	last := matches[len(matches)-1]
	return &domain.RootCause{
		Type:    strings.TrimSpace(last[1]),
		Message: strings.TrimSpace(last[2]),
	}
}

// InvocationHint extracts the failing DAO method name and its argument
// string from a "Could not invoke ...execute with arguments ..." block.
// Arguments are whitespace-collapsed and truncated for readability.
func InvocationHint(text string) (method, args string) {
	m := invocationRe.FindStringSubmatch(text)
	if m == nil {
		return "", ""
	}
	method = strings.TrimSpace(m[1])
	args = strings.Join(strings.Fields(m[2]), " ")
	if runes := []rune(args); len(runes) > maxArgumentsHint {
		args = string(runes[:maxArgumentsHint]) + "…"
	}
	return method, args
}

// FailureHint returns the application-layer component and source location
// closest to where the error originated: the last matching app frame.
func FailureHint(text string) (component, location string) {
	matches := appFrameRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return "", ""
	}
	last := matches[len(matches)-1]
	return strings.TrimSpace(last[1]), strings.TrimSpace(last[2])
}
