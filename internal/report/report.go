// Package report writes verification results: one verdict line on the
// verdict channel and one line per diagnostic on the diagnostics channel.
package report

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"

	"github.com/kyleseneker/cgcefverify/internal/diag"
	"github.com/kyleseneker/cgcefverify/internal/elfcheck"
)

// Verdict lines matched verbatim by external consumers.
const (
	AcceptMessage = "Executable verified as CGC"
	RejectMessage = "ERROR: not a DECREE executable"
)

// Reporter writes verdicts and diagnostics to two separate writers.
type Reporter struct {
	Stdout io.Writer
	Stderr io.Writer
	// Color enables ANSI prefixes on diagnostic lines.
	Color bool
	// Prefix is written before every line, e.g. the file path in batch mode.
	Prefix string
}

// New returns a reporter that colors diagnostics only when stderr is a
// terminal.
func New(stdout, stderr io.Writer) *Reporter {
	return &Reporter{Stdout: stdout, Stderr: stderr, Color: isTerminal(stderr)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Verdict writes every diagnostic in generation order, then the verdict line.
func (r *Reporter) Verdict(v *elfcheck.Verdict) {
	for _, d := range v.Diagnostics {
		r.Diagnostic(d)
	}
	fmt.Fprintf(r.Stdout, "%s%s\n", r.Prefix, Line(v))
}

// Diagnostic writes one diagnostic line.
func (r *Reporter) Diagnostic(d diag.Diagnostic) {
	prefix := d.Prefix()
	if r.Color {
		c := color.New(color.FgYellow)
		if d.Severity == diag.Fatal {
			c = color.New(color.FgRed, color.Bold)
		}
		c.EnableColor()
		prefix = c.Sprint(prefix)
	}
	fmt.Fprintf(r.Stderr, "%s%s: %s: %s\n", r.Prefix, prefix, d.Stage, d.Message)
}

// Error writes an environmental failure to the diagnostics channel.
func (r *Reporter) Error(err error) {
	fmt.Fprintf(r.Stderr, "%serror: %v\n", r.Prefix, err)
}

// Line returns the verdict line for v.
func Line(v *elfcheck.Verdict) string {
	if v.Accepted {
		return AcceptMessage
	}
	return RejectMessage
}

// Summary renders one table row per verdict. Inputs that could not be read
// appear with the reason in place of counts.
func Summary(w io.Writer, verdicts []*elfcheck.Verdict, errs map[string]error, order []string) {
	byPath := make(map[string]*elfcheck.Verdict, len(verdicts))
	for _, v := range verdicts {
		byPath[v.Path] = v
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"File", "Verdict", "Fatal", "Advisory"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	for _, path := range order {
		if v, ok := byPath[path]; ok {
			verdict := "reject"
			if v.Accepted {
				verdict = "accept"
			}
			table.Append([]string{path, verdict, strconv.Itoa(v.Fatal()), strconv.Itoa(v.Advisory())})
			continue
		}
		reason := "unreadable"
		if err, ok := errs[path]; ok && diag.IsKind(err, diag.KindTruncated) {
			reason = "truncated"
		}
		table.Append([]string{path, reason, "-", "-"})
	}
	table.Render()
}
