package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dd0wney/infrasim/pkg/report"
)

var ecommerce = filepath.Join("..", "..", "levels", "ecommerce.json")

func TestRun_ExitCodes(t *testing.T) {
	broken := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(broken, []byte("id: x\nnodes: []\nedges:\n  - {source: a, target: b}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"runs", []string{"-level", ecommerce, "-ticks", "10", "-seed", "1"}, report.ExitOK},
		{"missing level flag", []string{"-ticks", "10"}, report.ExitUsage},
		{"zero ticks", []string{"-level", ecommerce, "-ticks", "0"}, report.ExitUsage},
		{"no such file", []string{"-level", "nope.json"}, report.ExitUsage},
		{"invalid level", []string{"-level", broken}, report.ExitFailed},
		{"bad flag", []string{"-level", ecommerce, "-speed", "2"}, report.ExitUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if got := run(tt.args, &stdout, &stderr); got != tt.want {
				t.Errorf("exit = %d, want %d\nstdout: %s\nstderr: %s", got, tt.want, stdout.String(), stderr.String())
			}
		})
	}
}

func TestRun_TextSummary(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-level", ecommerce, "-ticks", "120", "-seed", "9"}, &stdout, &stderr); code != report.ExitOK {
		t.Fatalf("exit = %d: %s", code, stderr.String())
	}

	out := stdout.String()
	for _, want := range []string{"level ecommerce, 120 ticks, seed 9", "jobs fired:", "peak utilization:"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestRun_JSONSummary(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-level", ecommerce, "-ticks", "60", "-seed", "3", "-json"}, &stdout, &stderr); code != report.ExitOK {
		t.Fatalf("exit = %d: %s", code, stderr.String())
	}

	var out struct {
		LevelID string `json:"levelId"`
		Seed    int64  `json:"seed"`
		Ticks   int    `json:"ticks"`
		RunID   string `json:"runId"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, stdout.String())
	}
	if out.LevelID != "ecommerce" || out.Seed != 3 || out.Ticks != 60 || out.RunID == "" {
		t.Errorf("unexpected summary: %+v", out)
	}
}

func TestParseFlags_Seed(t *testing.T) {
	opts, err := parseFlags([]string{"-level", ecommerce, "-seed", "0"}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if opts.seed != 0 {
		t.Errorf("explicit -seed 0 became %d", opts.seed)
	}

	opts, err = parseFlags([]string{"-level", ecommerce}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if opts.seed == 0 {
		t.Error("omitted -seed was not picked from the clock")
	}
}

func TestRun_SeedZeroIsReplayable(t *testing.T) {
	frames := func() string {
		var stdout, stderr bytes.Buffer
		if code := run([]string{"-level", ecommerce, "-ticks", "40", "-seed", "0", "-frames"}, &stdout, &stderr); code != report.ExitOK {
			t.Fatalf("exit %d: %s", code, stderr.String())
		}
		return stdout.String()
	}
	if a, b := frames(), frames(); a != b {
		t.Error("two runs with -seed 0 produced different frames")
	}
}

func TestRun_FramesAsJSONLines(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-level", ecommerce, "-ticks", "5", "-seed", "1", "-frames"}, &stdout, &stderr); code != report.ExitOK {
		t.Fatalf("exit = %d: %s", code, stderr.String())
	}

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5", len(lines))
	}
	var last struct {
		Tick int `json:"tick"`
	}
	if err := json.Unmarshal([]byte(lines[4]), &last); err != nil {
		t.Fatal(err)
	}
	if last.Tick != 5 {
		t.Errorf("last tick = %d, want 5", last.Tick)
	}
}

func TestRun_TraceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.trace")

	var stdout, stderr bytes.Buffer
	if code := run([]string{"-level", ecommerce, "-ticks", "90", "-seed", "17", "-trace", path}, &stdout, &stderr); code != report.ExitOK {
		t.Fatalf("record exit = %d: %s", code, stderr.String())
	}
	if !strings.Contains(stderr.String(), "90 frames") {
		t.Errorf("trace stats not reported: %s", stderr.String())
	}

	stdout.Reset()
	stderr.Reset()
	if code := run([]string{"-level", ecommerce, "-verify", path}, &stdout, &stderr); code != report.ExitOK {
		t.Fatalf("verify exit = %d\nstdout: %s\nstderr: %s", code, stdout.String(), stderr.String())
	}
	if !strings.Contains(stdout.String(), "90 ticks match") {
		t.Errorf("unexpected verify output: %s", stdout.String())
	}
}

func TestRun_VerifyRejectsOtherLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.trace")
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-level", ecommerce, "-ticks", "10", "-seed", "1", "-trace", path}, &stdout, &stderr); code != report.ExitOK {
		t.Fatalf("record exit = %d: %s", code, stderr.String())
	}

	startup := filepath.Join("..", "..", "levels", "startup.yaml")
	stdout.Reset()
	if code := run([]string{"-level", startup, "-verify", path}, &stdout, &stderr); code != report.ExitFailed {
		t.Errorf("exit = %d, want %d: %s", code, report.ExitFailed, stdout.String())
	}
	if !strings.Contains(stdout.String(), "diverged") {
		t.Errorf("expected divergence report, got %s", stdout.String())
	}
}
