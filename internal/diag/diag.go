// Package diag provides the diagnostic values produced while verifying a
// CGCEF image, and the structured, stage-attributed error type used for
// environmental failures that prevent a verdict from being formed.
package diag

import (
	"errors"
	"fmt"
	"strings"
)

// Stage identifies which verification step produced a diagnostic or error.
type Stage string

const (
	StageLoad    Stage = "load"
	StagePolicy  Stage = "policy"
	StageIdent   Stage = "ident"
	StageHeader  Stage = "header"
	StageProgram Stage = "program-headers"
	StageSection Stage = "section-headers"
)

// Severity classifies a diagnostic. Only Fatal diagnostics affect the verdict.
type Severity int

const (
	Advisory Severity = iota
	Fatal
)

// String returns the lower-case severity name used in policy files.
func (s Severity) String() string {
	switch s {
	case Advisory:
		return "advisory"
	case Fatal:
		return "fatal"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// ParseSeverity maps a policy-file value to a Severity.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "advisory", "warning", "warn":
		return Advisory, nil
	case "fatal", "error":
		return Fatal, nil
	default:
		return Advisory, fmt.Errorf("unknown severity %q: expected advisory or fatal", s)
	}
}

// Diagnostic is a single finding about a candidate image.
type Diagnostic struct {
	Stage    Stage
	Severity Severity
	Message  string
}

// Prefix returns the category prefix written before the stage name.
func (d Diagnostic) Prefix() string {
	if d.Severity == Fatal {
		return "error"
	}
	return "warning"
}

// String formats the diagnostic as a single report line (without newline).
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Prefix(), d.Stage, d.Message)
}

// Kind classifies an environmental failure.
type Kind string

const (
	// KindUnreadable covers missing, unopenable, and empty inputs.
	KindUnreadable Kind = "unreadable"
	// KindTruncated means the input is shorter than the identification block.
	KindTruncated Kind = "truncated"
	// KindInvalidPolicy means the policy file could not be read or parsed.
	KindInvalidPolicy Kind = "invalid-policy"
)

// Error is an environmental failure carrying stage context, the input path,
// and a user-facing hint for remediation.
type Error struct {
	Stage Stage
	Kind  Kind
	Path  string
	Hint  string
	Err   error
}

// Error formats the failure into a multi-section string.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "stage %q failed", e.Stage)
	if e.Kind != "" {
		fmt.Fprintf(&b, " [%s]", e.Kind)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, ": %s", e.Path)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Hint != "" {
		b.WriteString("\n--- hint ---\n")
		b.WriteString(e.Hint)
	}
	return b.String()
}

// Unwrap returns the underlying error for use with errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsStage reports whether err is a diag.Error from the given stage.
func IsStage(err error, stage Stage) bool {
	var derr *Error
	if !errors.As(err, &derr) {
		return false
	}
	return derr.Stage == stage
}

// IsKind reports whether err is a diag.Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var derr *Error
	if !errors.As(err, &derr) {
		return false
	}
	return derr.Kind == kind
}
