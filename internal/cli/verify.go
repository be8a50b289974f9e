package cli

import (
	"context"
	"io"

	"github.com/kyleseneker/cgcefverify/internal/elfcheck"
	"github.com/kyleseneker/cgcefverify/internal/log"
	"github.com/kyleseneker/cgcefverify/internal/report"
)

// runVerify checks a single executable and prints its verdict.
func runVerify(_ context.Context, args []string, stdout, stderr io.Writer) int {
	var common commonFlags

	fs := newFlagSet(stderr, "cgcef-verify [flags] <file>", "Check that an executable conforms to the CGCEF format.")
	registerCommonFlags(fs, &common)

	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		return usageErrorf(fs, stderr, "expected exactly one executable, got %d", fs.NArg())
	}
	if err := common.initLogging(stderr); err != nil {
		return usageErrorf(fs, stderr, "%v", err)
	}
	pol, err := common.loadPolicy()
	if err != nil {
		return cliErrorf(stderr, "%v", err)
	}

	path := fs.Arg(0)
	rep := report.New(stdout, stderr)
	v, err := elfcheck.VerifyFile(appFs, path, pol)
	if err != nil {
		log.WithError(err).WithField("path", path).Debugf("no verdict")
		rep.Error(err)
		return 1
	}
	rep.Verdict(v)
	if !v.Accepted {
		return 1
	}
	return 0
}
