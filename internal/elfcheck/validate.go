// Package elfcheck decides whether an image conforms to the CGCEF dialect.
//
// Every check appends to one ordered diagnostic list and keeps going, so a
// single run reports every violated constraint. Only three conditions stop
// a run early: a bad magic number, a header too short to decode, and a
// program header table that cannot be traversed.
package elfcheck

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/afero"

	"github.com/kyleseneker/cgcefverify/internal/cgcef"
	"github.com/kyleseneker/cgcefverify/internal/diag"
	"github.com/kyleseneker/cgcefverify/internal/image"
	"github.com/kyleseneker/cgcefverify/internal/log"
	"github.com/kyleseneker/cgcefverify/internal/policy"
)

// Verdict is the outcome of verifying one image.
type Verdict struct {
	Path        string
	Accepted    bool
	Diagnostics []diag.Diagnostic
}

// Fatal returns the number of fatal diagnostics.
func (v *Verdict) Fatal() int {
	return lo.CountBy(v.Diagnostics, func(d diag.Diagnostic) bool { return d.Severity == diag.Fatal })
}

// Advisory returns the number of advisory diagnostics.
func (v *Verdict) Advisory() int {
	return len(v.Diagnostics) - v.Fatal()
}

// run accumulates diagnostics for a single image.
type run struct {
	img   *image.Image
	pol   policy.Policy
	diags []diag.Diagnostic
}

func (r *run) report(stage diag.Stage, sev diag.Severity, format string, args ...any) {
	d := diag.Diagnostic{Stage: stage, Severity: sev, Message: fmt.Sprintf(format, args...)}
	log.WithField("path", r.img.Path()).Debugf("%s", d)
	r.diags = append(r.diags, d)
}

func (r *run) fatalf(stage diag.Stage, format string, args ...any) {
	r.report(stage, diag.Fatal, format, args...)
}

// Validate runs every check against img and aggregates the verdict.
func Validate(img *image.Image, pol policy.Policy) *Verdict {
	r := &run{img: img, pol: pol}
	r.check()

	v := &Verdict{Path: img.Path(), Diagnostics: r.diags}
	v.Accepted = v.Fatal() == 0
	log.WithField("path", img.Path()).Debugf("verdict accepted=%t fatal=%d advisory=%d",
		v.Accepted, v.Fatal(), v.Advisory())
	return v
}

func (r *run) check() {
	if !r.checkIdent() {
		return
	}
	h, err := cgcef.DecodeHeader(r.img)
	if err != nil {
		r.fatalf(diag.StageHeader, "truncated header: file is %d bytes, header needs %d",
			r.img.Len(), cgcef.HeaderSize)
		return
	}
	r.checkHeader(h)
	r.walkProgramHeaders(h)
	r.checkSectionHeaders(h)
}

// VerifyFile loads path from fsys and validates it. The error is non-nil
// only for environmental failures, in which case no verdict exists.
func VerifyFile(fsys afero.Fs, path string, pol policy.Policy) (*Verdict, error) {
	img, err := image.Load(fsys, path)
	if err != nil {
		return nil, err
	}
	return Validate(img, pol), nil
}
