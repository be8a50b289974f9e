// Package pipeline verifies a batch of CGCEF images with bounded
// parallelism and collects the per-file outcomes in input order.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/kyleseneker/cgcefverify/internal/diag"
	"github.com/kyleseneker/cgcefverify/internal/elfcheck"
	"github.com/kyleseneker/cgcefverify/internal/log"
	"github.com/kyleseneker/cgcefverify/internal/policy"
)

// Config holds all user-provided settings for a batch run.
type Config struct {
	Inputs []string
	Jobs   int
	Policy policy.Policy
	Fs     afero.Fs
}

// Result is the outcome for one input. Exactly one of Verdict and Err is set.
type Result struct {
	Path    string
	Verdict *elfcheck.Verdict
	Err     error
}

// Results holds per-input outcomes in the order the inputs were given.
type Results []Result

// Accepted reports whether every input was read and accepted.
func (rs Results) Accepted() bool {
	return len(rs) > 0 && lo.EveryBy(rs, func(r Result) bool {
		return r.Err == nil && r.Verdict.Accepted
	})
}

// Verdicts returns the verdicts of inputs that could be read.
func (rs Results) Verdicts() []*elfcheck.Verdict {
	return lo.FilterMap(rs, func(r Result, _ int) (*elfcheck.Verdict, bool) {
		return r.Verdict, r.Verdict != nil
	})
}

// Errors maps each unreadable input to its load error.
func (rs Results) Errors() map[string]error {
	failed := lo.Filter(rs, func(r Result, _ int) bool { return r.Err != nil })
	return lo.SliceToMap(failed, func(r Result) (string, error) { return r.Path, r.Err })
}

// Paths returns the input paths in order.
func (rs Results) Paths() []string {
	return lo.Map(rs, func(r Result, _ int) string { return r.Path })
}

// Err combines every environmental error, or returns nil if all inputs
// were read.
func (rs Results) Err() error {
	var merr *multierror.Error
	for _, r := range rs {
		if r.Err != nil {
			merr = multierror.Append(merr, r.Err)
		}
	}
	return merr.ErrorOrNil()
}

// Run verifies every input. Unreadable inputs are recorded in their Result
// and do not stop the batch; the returned error is non-nil only for an
// invalid config or a cancelled context.
func Run(ctx context.Context, cfg Config) (Results, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	start := time.Now()
	results := make(Results, len(cfg.Inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Jobs)
	for i, input := range cfg.Inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, err := elfcheck.VerifyFile(cfg.Fs, input, cfg.Policy)
			results[i] = Result{Path: input, Verdict: v, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.WithFields(map[string]any{
		"files":   len(results),
		"jobs":    cfg.Jobs,
		"elapsed": time.Since(start).Round(time.Microsecond),
	}).Debugf("batch complete: %d accepted, %d unreadable",
		lo.CountBy(results, func(r Result) bool { return r.Verdict != nil && r.Verdict.Accepted }),
		len(results.Errors()))
	return results, nil
}

// validateConfig applies defaults and checks required fields.
func validateConfig(cfg *Config) error {
	if len(cfg.Inputs) == 0 {
		return &diag.Error{Stage: diag.StageLoad, Err: fmt.Errorf("no inputs provided"),
			Hint: "provide at least one executable path"}
	}
	for _, input := range cfg.Inputs {
		if strings.TrimSpace(input) == "" {
			return &diag.Error{Stage: diag.StageLoad, Err: fmt.Errorf("empty input path")}
		}
	}
	if cfg.Jobs <= 0 {
		cfg.Jobs = 1
	}
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	return nil
}
