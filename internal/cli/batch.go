package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/kyleseneker/cgcefverify/internal/log"
	"github.com/kyleseneker/cgcefverify/internal/pipeline"
	"github.com/kyleseneker/cgcefverify/internal/report"
)

// runBatch verifies many executables and prints one verdict per input.
func runBatch(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var common commonFlags
	var summary bool
	var profilePath string
	cfg := pipeline.Config{Fs: appFs}

	fs := newFlagSet(stderr, "cgcef-verify batch [flags] <file>...", "Verify many executables in parallel.")
	registerCommonFlags(fs, &common)
	fs.IntVar(&cfg.Jobs, "jobs", runtime.NumCPU(), "Number of parallel verification workers.")
	fs.IntVar(&cfg.Jobs, "j", runtime.NumCPU(), "Number of parallel verification workers (shorthand).")
	fs.BoolVar(&summary, "summary", false, "Print a summary table after the verdicts.")
	fs.StringVar(&profilePath, "profile", "", "")

	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() == 0 {
		return usageErrorf(fs, stderr, "at least one executable is required")
	}
	if cfg.Jobs < 1 {
		return usageErrorf(fs, stderr, "-jobs must be at least 1, got %d", cfg.Jobs)
	}
	if err := common.initLogging(stderr); err != nil {
		return usageErrorf(fs, stderr, "%v", err)
	}
	pol, err := common.loadPolicy()
	if err != nil {
		return cliErrorf(stderr, "%v", err)
	}
	cfg.Policy = pol
	cfg.Inputs = fs.Args()

	if profilePath != "" {
		cleanup, err := startProfiling(profilePath, stderr)
		if err != nil {
			log.Warnf("profiling failed to start: %v", err)
		} else {
			defer cleanup()
		}
	}

	log.Debugf("verifying %d inputs with %d workers", len(cfg.Inputs), cfg.Jobs)
	results, err := pipeline.Run(ctx, cfg)
	if err != nil {
		return cliErrorf(stderr, "%v", err)
	}
	printResults(results, summary, stdout, stderr)
	if err := results.Err(); err != nil {
		log.WithError(err).Warnf("%d of %d inputs could not be read", len(results.Errors()), len(results))
		return 1
	}
	if !results.Accepted() {
		return 1
	}
	return 0
}

// printResults writes each input's diagnostics and verdict prefixed with its
// path, in input order.
func printResults(results pipeline.Results, summary bool, stdout, stderr io.Writer) {
	rep := report.New(stdout, stderr)
	for _, r := range results {
		rep.Prefix = r.Path + ": "
		if r.Err != nil {
			rep.Error(r.Err)
			continue
		}
		rep.Verdict(r.Verdict)
	}
	if summary {
		fmt.Fprintln(stdout)
		report.Summary(stdout, results.Verdicts(), results.Errors(), results.Paths())
	}
}

var (
	createFile       = os.Create
	writeHeapProfile = pprof.WriteHeapProfile
)

// startProfiling starts CPU profiling and returns a cleanup function that
// stops the CPU profile and writes a heap memory profile on completion.
func startProfiling(basePath string, w io.Writer) (func(), error) {
	cpuPath := basePath + ".cpu.prof"
	f, err := os.Create(cpuPath)
	if err != nil {
		return nil, fmt.Errorf("creating CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("starting CPU profile: %w", err)
	}

	cleanup := func() {
		pprof.StopCPUProfile()
		_ = f.Close()
		fmt.Fprintf(w, "cpu profile: %s\n", cpuPath)

		memPath := basePath + ".mem.prof"
		mf, err := createFile(memPath)
		if err != nil {
			fmt.Fprintf(w, "warning: memory profile: %v\n", err)
			return
		}
		defer func() { _ = mf.Close() }()
		runtime.GC()
		if err := writeHeapProfile(mf); err != nil {
			fmt.Fprintf(w, "warning: memory profile: %v\n", err)
			return
		}
		fmt.Fprintf(w, "memory profile: %s\n", memPath)
	}
	return cleanup, nil
}
