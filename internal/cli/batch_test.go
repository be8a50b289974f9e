package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/pprof"
	"strings"
	"testing"

	"github.com/kyleseneker/cgcefverify/internal/cgcef"
	"github.com/kyleseneker/cgcefverify/internal/cgcef/cgceftest"
	"github.com/kyleseneker/cgcefverify/internal/report"
)

func TestRunBatch(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, data []byte) string {
		t.Helper()
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, data, 0o644); err != nil {
			t.Fatal(err)
		}
		return p
	}
	good := write("good", goodImage())
	other := write("other", goodImage())
	bad := write("bad", cgceftest.Patch(goodImage(), cgcef.EI_DATA, 2))
	short := write("short", []byte{0x7f, 'C', 'G', 'C'})

	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantOut  []string
		wantErr  []string
	}{
		{
			name:     "all accepted",
			args:     []string{"batch", "-j", "2", good, other},
			wantCode: 0,
			wantOut:  []string{good + ": " + report.AcceptMessage, other + ": " + report.AcceptMessage},
		},
		{
			name:     "one rejected",
			args:     []string{"batch", good, bad},
			wantCode: 1,
			wantOut:  []string{bad + ": " + report.RejectMessage},
			wantErr:  []string{bad + ": error: ident: did not identify as a little endian binary"},
		},
		{
			name:     "unreadable input",
			args:     []string{"batch", good, short},
			wantCode: 1,
			wantErr:  []string{short + ": error: ", "1 of 2 inputs could not be read"},
		},
		{
			name:     "summary table",
			args:     []string{"batch", "--summary", good, bad, short},
			wantCode: 1,
			wantOut:  []string{"VERDICT", "accept", "reject", "truncated"},
		},
		{
			name:     "no inputs",
			args:     []string{"batch"},
			wantCode: 2,
			wantErr:  []string{"at least one executable"},
		},
		{
			name:     "bad jobs",
			args:     []string{"batch", "--jobs", "0", good},
			wantCode: 2,
			wantErr:  []string{"-jobs must be at least 1"},
		},
		{
			name:     "--help",
			args:     []string{"batch", "--help"},
			wantCode: 0,
			wantErr:  []string{"Usage:", "-summary"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, stderr, code := runCLI(t, tt.args...)
			if code != tt.wantCode {
				t.Fatalf("exit code: got %d, want %d, stderr=%s", code, tt.wantCode, stderr)
			}
			for _, want := range tt.wantOut {
				if !strings.Contains(stdout, want) {
					t.Fatalf("expected %q in stdout, got: %s", want, stdout)
				}
			}
			for _, want := range tt.wantErr {
				if !strings.Contains(stderr, want) {
					t.Fatalf("expected %q in stderr, got: %s", want, stderr)
				}
			}
		})
	}
}

func TestRunBatchPreservesInputOrder(t *testing.T) {
	var args []string
	for i := 0; i < 12; i++ {
		args = append(args, cgceftest.Write(t, fmt.Sprintf("bin%02d", i), goodImage()))
	}

	stdout, _, code := runCLI(t, append([]string{"batch", "-j", "4"}, args...)...)
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) != len(args) {
		t.Fatalf("expected %d verdict lines, got %d: %s", len(args), len(lines), stdout)
	}
	for i, line := range lines {
		if !strings.HasPrefix(line, args[i]+": ") {
			t.Fatalf("line %d: expected prefix %q, got %q", i, args[i], line)
		}
	}
}

func TestStartProfiling(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(t *testing.T) string
		wantErr    string
		wantOutput string
	}{
		{
			name:       "success",
			setup:      func(t *testing.T) string { t.Helper(); return filepath.Join(t.TempDir(), "test") },
			wantOutput: "memory profile:",
		},
		{
			name:    "bad path",
			setup:   func(t *testing.T) string { t.Helper(); return "/does/not/exist/prof" },
			wantErr: "creating CPU profile",
		},
		{
			name: "CPU already running",
			setup: func(t *testing.T) string {
				t.Helper()
				tmp := t.TempDir()
				f, _ := os.Create(filepath.Join(tmp, "block.prof"))
				t.Cleanup(func() { pprof.StopCPUProfile(); f.Close() })
				pprof.StartCPUProfile(f)
				return filepath.Join(tmp, "second")
			},
			wantErr: "CPU profile",
		},
		{
			name: "heap profile write error",
			setup: func(t *testing.T) string {
				t.Helper()
				orig := writeHeapProfile
				t.Cleanup(func() { writeHeapProfile = orig })
				writeHeapProfile = func(w io.Writer) error {
					return fmt.Errorf("injected write error")
				}
				return filepath.Join(t.TempDir(), "test")
			},
			wantOutput: "warning: memory profile:",
		},
		{
			name: "memory profile create error",
			setup: func(t *testing.T) string {
				t.Helper()
				orig := createFile
				t.Cleanup(func() { createFile = orig })
				createFile = func(name string) (*os.File, error) {
					return nil, fmt.Errorf("injected create error")
				}
				return filepath.Join(t.TempDir(), "test")
			},
			wantOutput: "warning: memory profile: injected create error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			basePath := tt.setup(t)
			var w bytes.Buffer

			cleanup, err := startProfiling(basePath, &w)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatal("expected error")
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected %q in error, got: %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			cleanup()

			if tt.wantOutput != "" && !strings.Contains(w.String(), tt.wantOutput) {
				t.Fatalf("expected %q in output, got: %s", tt.wantOutput, w.String())
			}
		})
	}
}

func TestRunBatchProfile(t *testing.T) {
	good := cgceftest.Write(t, "good", goodImage())

	t.Run("writes profiles", func(t *testing.T) {
		profBase := filepath.Join(t.TempDir(), "prof")
		_, stderr, code := runCLI(t, "batch", "--profile", profBase, good)
		if code != 0 {
			t.Fatalf("expected exit code 0, got %d, stderr=%s", code, stderr)
		}
		for _, suffix := range []string{".cpu.prof", ".mem.prof"} {
			if _, err := os.Stat(profBase + suffix); err != nil {
				t.Fatalf("%s not created: %v", suffix, err)
			}
		}
	})

	t.Run("warns on start failure", func(t *testing.T) {
		tmp := t.TempDir()
		f, _ := os.Create(filepath.Join(tmp, "block.prof"))
		defer f.Close()
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()

		_, stderr, code := runCLI(t, "batch", "--profile", filepath.Join(tmp, "prof"), good)
		if code != 0 {
			t.Fatalf("expected exit code 0, got %d", code)
		}
		if !strings.Contains(stderr, "profiling failed to start") {
			t.Fatalf("expected profiling warning, got: %s", stderr)
		}
	})
}
