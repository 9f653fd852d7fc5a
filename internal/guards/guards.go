// Package guards provides the severity/result/outcome vocabulary that
// internal/advise uses to build non-blocking advisories on memory and task
// writes. memoryd has no constrained status transitions and no tombstones
// (spec §3.2/§9), so only the advisory severities exist here — there is no
// blocking engine to run.
package guards

import (
	"fmt"
	"strings"
)

// Severity indicates how noteworthy an advisory is. Both values are purely
// informational — neither ever stops a write.
type Severity int

const (
	// Suggestion is advisory — operation proceeds, message included in response.
	Suggestion Severity = iota
	// Warning is advisory — operation proceeds, message included in response.
	Warning
)

func (s Severity) String() string {
	switch s {
	case Suggestion:
		return "SUGGESTION"
	case Warning:
		return "WARNING"
	default:
		return "UNKNOWN"
	}
}

// Result is the outcome of a single advisory check.
type Result struct {
	// GuardName identifies which check produced this result.
	GuardName string `json:"guard_name"`
	// Passed is true if the check passed (no issue found).
	Passed bool `json:"passed"`
	// Severity of the failure (only meaningful when Passed is false).
	Severity Severity `json:"severity"`
	// Message describes the issue or recommendation.
	Message string `json:"message"`
	// Remedy suggests how to resolve the issue.
	Remedy string `json:"remedy,omitempty"`
}

// Outcome is the aggregated result of running a set of advisory checks.
type Outcome struct {
	// Results contains all check results (both passed and failed).
	Results []Result `json:"results"`
}

// Warnings returns all warning results.
func (o *Outcome) Warnings() []Result {
	return o.filterSeverity(Warning)
}

// Suggestions returns all suggestion results.
func (o *Outcome) Suggestions() []Result {
	return o.filterSeverity(Suggestion)
}

func (o *Outcome) filterSeverity(sev Severity) []Result {
	var out []Result
	for _, r := range o.Results {
		if !r.Passed && r.Severity == sev {
			out = append(out, r)
		}
	}
	return out
}

// FormatAdvisoryMessage returns a human-readable message for warnings and suggestions.
func (o *Outcome) FormatAdvisoryMessage() string {
	warnings := o.Warnings()
	suggestions := o.Suggestions()
	if len(warnings) == 0 && len(suggestions) == 0 {
		return ""
	}

	var sb strings.Builder
	if len(warnings) > 0 {
		sb.WriteString("Warnings:\n")
		for _, r := range warnings {
			sb.WriteString(fmt.Sprintf("  - %s: %s", r.GuardName, r.Message))
			if r.Remedy != "" {
				sb.WriteString(fmt.Sprintf(" (%s)", r.Remedy))
			}
			sb.WriteString("\n")
		}
	}
	if len(suggestions) > 0 {
		sb.WriteString("Suggestions:\n")
		for _, r := range suggestions {
			sb.WriteString(fmt.Sprintf("  - %s: %s", r.GuardName, r.Message))
			if r.Remedy != "" {
				sb.WriteString(fmt.Sprintf(" (%s)", r.Remedy))
			}
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// Pass returns a passing result for the given check name.
func Pass(guardName string) Result {
	return Result{GuardName: guardName, Passed: true}
}

// Fail returns a failing result with the given severity and message.
func Fail(guardName string, severity Severity, message, remedy string) Result {
	return Result{
		GuardName: guardName,
		Passed:    false,
		Severity:  severity,
		Message:   message,
		Remedy:    remedy,
	}
}
