package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dd0wney/infrasim/pkg/report"
)

func levelsDir(t *testing.T, extra map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	data, err := os.ReadFile(filepath.Join("..", "..", "levels", "ecommerce.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ecommerce.json"), data, 0644); err != nil {
		t.Fatal(err)
	}
	for name, content := range extra {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestRun_ExitCodes(t *testing.T) {
	good := levelsDir(t, nil)
	bad := levelsDir(t, map[string]string{"broken.json": `{"id": "x"`})

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"all valid", []string{"-dir", good}, report.ExitOK},
		{"one invalid", []string{"-dir", bad}, report.ExitFailed},
		{"missing dir", []string{"-dir", filepath.Join(good, "nope")}, report.ExitUsage},
		{"bad flag", []string{"-frobnicate"}, report.ExitUsage},
		{"bad format", []string{"-dir", good, "-format", "xml"}, report.ExitUsage},
		{"stray argument", []string{"-dir", good, "extra"}, report.ExitUsage},
		{"bad limits", []string{"-dir", good, "-max-lifecycle", "100", "-horizon", "10"}, report.ExitUsage},
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

func TestRun_TextOutput(t *testing.T) {
	dir := levelsDir(t, map[string]string{"broken.json": `{"id": "x"`})

	var stdout, stderr bytes.Buffer
	run([]string{"-dir", dir, "-color", "never"}, &stdout, &stderr)

	out := stdout.String()
	if !strings.Contains(out, "FAIL broken.json (1 error)") {
		t.Errorf("missing FAIL line:\n%s", out)
	}
	if !strings.Contains(out, "PASS ecommerce.json") {
		t.Errorf("missing PASS line:\n%s", out)
	}
	if !strings.HasSuffix(out, "2 files, 1 passed, 1 failed\n") {
		t.Errorf("missing summary:\n%s", out)
	}
}

func TestRun_JSONOutput(t *testing.T) {
	dir := levelsDir(t, nil)

	var stdout, stderr bytes.Buffer
	if code := run([]string{"-dir", dir, "-format", "json", "-workers", "2"}, &stdout, &stderr); code != report.ExitOK {
		t.Fatalf("exit = %d: %s", code, stderr.String())
	}

	var out struct {
		Passed int `json:"passed"`
		Failed int `json:"failed"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout.String())
	}
	if out.Passed != 1 || out.Failed != 0 {
		t.Errorf("passed=%d failed=%d", out.Passed, out.Failed)
	}
}

func TestStyled(t *testing.T) {
	var buf bytes.Buffer
	if !styled("always", &buf) {
		t.Error("always should style")
	}
	if styled("never", os.Stdout) {
		t.Error("never should not style")
	}
	if styled("auto", &buf) {
		t.Error("a buffer is not a terminal")
	}
}
