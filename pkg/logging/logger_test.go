package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// fixedClock pins entry timestamps so text output can be compared whole.
func fixedClock(l *StructuredLogger) *StructuredLogger {
	l.sink.now = func() time.Time { return time.Date(2024, 11, 29, 9, 30, 0, 0, time.UTC) }
	return l
}

func decodeEntries(t *testing.T, buf *bytes.Buffer) []LogEntry {
	t.Helper()
	var out []LogEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e LogEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		out = append(out, e)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"Warn", WarnLevel, false},
		{"warning", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"loud", InfoLevel, true},
		{"", InfoLevel, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestLevelString(t *testing.T) {
	for level, want := range map[Level]string{
		DebugLevel: "DEBUG", InfoLevel: "INFO", WarnLevel: "WARN", ErrorLevel: "ERROR", Level(9): "UNKNOWN",
	} {
		if got := level.String(); got != want {
			t.Errorf("Level(%d).String() = %q, want %q", level, got, want)
		}
	}
}

func TestFieldConstructors(t *testing.T) {
	tests := []struct {
		field Field
		key   string
		value any
	}{
		{String("k", "v"), "k", "v"},
		{Int("n", 3), "n", 3},
		{Float64("f", 0.5), "f", 0.5},
		{Bool("b", true), "b", true},
		{Duration("d", 1500 * time.Millisecond), "d", "1.5s"},
		{Error(errors.New("boom")), "error", "boom"},
		{Error(nil), "error", nil},
		{Component("simulation"), "component", "simulation"},
		{LevelID("ecommerce"), "level_id", "ecommerce"},
		{IncidentID("cyber-monday"), "incident_id", "cyber-monday"},
		{JobID("inventory-batch-sync"), "job_id", "inventory-batch-sync"},
		{RunID("r1"), "run_id", "r1"},
		{Tick(42), "tick", 42},
		{File("a.yaml"), "file", "a.yaml"},
	}

	for _, tt := range tests {
		if tt.field.Key != tt.key || tt.field.Value != tt.value {
			t.Errorf("field = %+v, want %s=%v", tt.field, tt.key, tt.value)
		}
	}
}

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	logger.Debug("dropped")
	logger.Info("incident active", IncidentID("cyber-monday"), Tick(40))
	logger.Error("no fields")

	entries := decodeEntries(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	e := entries[0]
	if e.Level != "INFO" || e.Message != "incident active" {
		t.Errorf("entry = %+v", e)
	}
	if e.Fields["incident_id"] != "cyber-monday" || e.Fields["tick"] != float64(40) {
		t.Errorf("fields = %v", e.Fields)
	}
	if _, err := time.Parse(time.RFC3339Nano, e.Time); err != nil {
		t.Errorf("time %q is not RFC3339: %v", e.Time, err)
	}
	if entries[1].Fields != nil {
		t.Errorf("fields should be omitted when empty, got %v", entries[1].Fields)
	}
}

func TestTextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := fixedClock(NewTextLogger(&buf, DebugLevel))

	logger.With(Component("levelcheck")).Warn("document unreadable",
		File("my level.yaml"), Error(errors.New(`bad "quote"`)), String("empty", ""))

	want := `09:30:00.000 WARN  document unreadable component=levelcheck file="my level.yaml" error="bad \"quote\"" empty=""` + "\n"
	if got := buf.String(); got != want {
		t.Errorf("text entry\n got %q\nwant %q", got, want)
	}
}

func TestTextLogger_LaterFieldWins(t *testing.T) {
	var buf bytes.Buffer
	logger := fixedClock(NewTextLogger(&buf, DebugLevel)).With(Tick(1), RunID("r"))

	logger.Info("tick", Tick(2))

	if got := buf.String(); !strings.HasSuffix(got, "tick tick=2 run_id=r\n") {
		t.Errorf("unexpected entry %q", got)
	}
}

func TestWith_ChildrenShareLevel(t *testing.T) {
	var buf bytes.Buffer
	root := NewJSONLogger(&buf, InfoLevel)
	child := root.With(Component("api")).With(String("request_id", "abc"))

	child.Debug("hidden")
	root.SetLevel(DebugLevel)
	child.Debug("visible")

	entries := decodeEntries(t, &buf)
	if len(entries) != 1 || entries[0].Message != "visible" {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[0].Fields["component"] != "api" || entries[0].Fields["request_id"] != "abc" {
		t.Errorf("inherited fields missing: %v", entries[0].Fields)
	}

	child.SetLevel(ErrorLevel)
	if root.GetLevel() != ErrorLevel {
		t.Error("a child's SetLevel should reach the root")
	}
}

func TestWith_DoesNotAliasParentFields(t *testing.T) {
	var buf bytes.Buffer
	parent := NewJSONLogger(&buf, InfoLevel).With(String("a", "1"))
	_ = parent.With(String("b", "2"))
	parent.Info("parent only")

	entries := decodeEntries(t, &buf)
	if _, ok := entries[0].Fields["b"]; ok {
		t.Errorf("child field leaked into parent: %v", entries[0].Fields)
	}
}

func TestConcurrentWritesStayWhole(t *testing.T) {
	var buf bytes.Buffer
	root := NewJSONLogger(&buf, InfoLevel)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l := root.With(Int("worker", i))
			for j := 0; j < 50; j++ {
				l.Info("validated", Count(j))
			}
		}(i)
	}
	wg.Wait()

	if got := len(decodeEntries(t, &buf)); got != 400 {
		t.Errorf("got %d entries, want 400", got)
	}
}

func TestTimedOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	StartTimer(logger, "batch validation finished", Count(3)).End(Int("failed", 1))
	StartTimer(logger, "source list").EndError(errors.New("access denied"))

	entries := decodeEntries(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("got %d entries", len(entries))
	}
	if entries[0].Fields["count"] != float64(3) || entries[0].Fields["failed"] != float64(1) {
		t.Errorf("fields = %v", entries[0].Fields)
	}
	if _, ok := entries[0].Fields["latency"]; !ok {
		t.Error("latency missing")
	}
	if entries[1].Level != "ERROR" || entries[1].Fields["error"] != "access denied" {
		t.Errorf("error entry = %+v", entries[1])
	}
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.Info("nothing")
	if l.With(Tick(1)) == nil {
		t.Error("With returned nil")
	}
}
