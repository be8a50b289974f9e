package cli

import (
	"context"
	"io"
)

// runPolicy prints the policy a verification run would use.
func runPolicy(_ context.Context, args []string, stdout, stderr io.Writer) int {
	var common commonFlags

	fs := newFlagSet(stderr, "cgcef-verify policy [flags]", "Print the effective verification policy as YAML.")
	registerCommonFlags(fs, &common)

	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 0 {
		return usageErrorf(fs, stderr, "unexpected arguments: %v", fs.Args())
	}
	if err := common.initLogging(stderr); err != nil {
		return usageErrorf(fs, stderr, "%v", err)
	}
	pol, err := common.loadPolicy()
	if err != nil {
		return cliErrorf(stderr, "%v", err)
	}

	out, err := pol.Marshal()
	if err != nil {
		return cliErrorf(stderr, "rendering policy: %v", err)
	}
	_, _ = stdout.Write(out)
	return 0
}
