// Package cli implements the cgcef-verify command-line interface.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/spf13/afero"

	"github.com/kyleseneker/cgcefverify/internal/log"
	"github.com/kyleseneker/cgcefverify/internal/policy"
)

// Version is set at build time via ldflags:
//
//	go build -ldflags "-X github.com/kyleseneker/cgcefverify/internal/cli.Version=v0.1.0"
var Version = "(dev)"

// appFs is the filesystem executables and policy files are read from.
var appFs afero.Fs = afero.NewOsFs()

// Run is the top-level entrypoint.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return 2
	}
	if len(args) == 1 && isFile(args[0]) {
		return runVerify(ctx, args, stdout, stderr)
	}

	switch args[0] {
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	case "verify":
		return runVerify(ctx, args[1:], stdout, stderr)
	case "batch":
		return runBatch(ctx, args[1:], stdout, stderr)
	case "policy":
		return runPolicy(ctx, args[1:], stdout, stderr)
	case "version", "--version", "-version":
		return runVersion(stdout)
	default:
		return runVerify(ctx, args, stdout, stderr)
	}
}

// isFile reports whether path names an existing file, so a lone argument
// that collides with a subcommand name is still verified.
func isFile(path string) bool {
	ok, err := afero.Exists(appFs, path)
	return err == nil && ok
}

// printUsage prints the usage information for the CLI.
func printUsage(w io.Writer) {
	fmt.Fprintf(w, `cgcef-verify %s - Check that an executable conforms to the CGCEF format

Usage:
  cgcef-verify [flags] <file>        Verify a single executable
  cgcef-verify batch [flags] <file>...
                                     Verify many executables in parallel
  cgcef-verify policy [flags]        Print the effective verification policy
  cgcef-verify version               Print version information
  cgcef-verify help                  Show this message

Run 'cgcef-verify <command> --help' for details on a specific command.

Exit status is 0 when every input is accepted, 1 when any input is rejected
or cannot be read, and 2 on usage errors.
`, Version)
}

// newFlagSet creates a FlagSet with consistent usage formatting.
func newFlagSet(w io.Writer, usage, desc string) *flag.FlagSet {
	fs := flag.NewFlagSet("cgcef-verify", flag.ContinueOnError)
	fs.SetOutput(w)
	fs.Usage = func() {
		fmt.Fprintf(w, "Usage: %s\n\n%s\n", usage, desc)
		var hasFlags bool
		fs.VisitAll(func(f *flag.Flag) {
			if f.Usage != "" {
				hasFlags = true
			}
		})
		if !hasFlags {
			return
		}
		fmt.Fprintln(w, "\nFlags:")
		fs.VisitAll(func(f *flag.Flag) {
			if f.Usage == "" {
				return
			}
			fmt.Fprintf(w, "  -%s", f.Name)
			if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" {
				fmt.Fprintf(w, " (default %s)", f.DefValue)
			}
			fmt.Fprintf(w, "\n    \t%s\n", f.Usage)
		})
	}
	return fs
}

// parseFlags parses args and returns (exitCode, ok).
func parseFlags(fs *flag.FlagSet, args []string) (code int, ok bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0, false
		}
		return 2, false
	}
	return 0, true
}

// runVersion prints the version information for the CLI.
func runVersion(stdout io.Writer) int {
	fmt.Fprintf(stdout, "cgcef-verify %s\n", Version)
	return 0
}

// commonFlags are accepted by every verifying subcommand.
type commonFlags struct {
	PolicyPath string
	LogLevel   string
	LogFormat  string
	Verbose    bool
}

// registerCommonFlags binds the policy and logging flags.
func registerCommonFlags(fs *flag.FlagSet, c *commonFlags) {
	fs.StringVar(&c.PolicyPath, "policy", "", "YAML policy file overriding flag and severity defaults.")
	fs.StringVar(&c.LogLevel, "log-level", "warn", "Operational log level: debug, info, warn, error.")
	fs.StringVar(&c.LogFormat, "log-format", "text", "Operational log format: text or json.")
	fs.BoolVar(&c.Verbose, "verbose", false, "Enable debug logging of every verification stage.")
	fs.BoolVar(&c.Verbose, "v", false, "Enable debug logging of every verification stage (shorthand).")
}

// initLogging configures the operational logger from the flags.
func (c commonFlags) initLogging(stderr io.Writer) error {
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid -log-format %q: expected text or json", c.LogFormat)
	}
	if err := log.Init(&log.Config{
		Level:  c.LogLevel,
		Format: c.LogFormat,
		Output: stderr,
		Debug:  c.Verbose,
	}); err != nil {
		return fmt.Errorf("invalid -log-level %q: %w", c.LogLevel, err)
	}
	return nil
}

// loadPolicy returns the policy named by -policy, or the defaults.
func (c commonFlags) loadPolicy() (policy.Policy, error) {
	if c.PolicyPath == "" {
		return policy.Default(), nil
	}
	pol, err := policy.Load(appFs, c.PolicyPath)
	if err != nil {
		return pol, err
	}
	log.WithField("policy", c.PolicyPath).Debugf("loaded policy")
	return pol, nil
}

// cliErrorf prints a formatted error message and returns exit code 1.
func cliErrorf(w io.Writer, format string, args ...any) int {
	fmt.Fprintf(w, "error: "+format+"\n", args...)
	return 1
}

// usageErrorf prints a formatted error message, shows the flagset usage, and returns exit code 2.
func usageErrorf(fs *flag.FlagSet, w io.Writer, format string, args ...any) int {
	fmt.Fprintf(w, "error: "+format+"\n", args...)
	fs.Usage()
	return 2
}
