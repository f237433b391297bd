package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// New creates a logger writing entries in the given format.
func New(writer io.Writer, level Level, format Format) *StructuredLogger {
	s := &sink{writer: writer, format: format, now: time.Now}
	s.level.Store(int32(level))
	return &StructuredLogger{sink: s}
}

// NewJSONLogger creates a logger writing one JSON object per line.
func NewJSONLogger(writer io.Writer, level Level) *StructuredLogger {
	return New(writer, level, FormatJSON)
}

// NewTextLogger creates a logger writing logfmt-style lines.
func NewTextLogger(writer io.Writer, level Level) *StructuredLogger {
	return New(writer, level, FormatText)
}

func (l *StructuredLogger) log(level Level, msg string, fields ...Field) {
	if level < l.GetLevel() {
		return
	}

	all := make([]Field, 0, len(l.fields)+len(fields))
	all = append(all, l.fields...)
	all = append(all, fields...)

	var line []byte
	now := l.sink.now()
	switch l.sink.format {
	case FormatText:
		line = encodeText(now, level, msg, dedupe(all))
	default:
		var err error
		if line, err = encodeJSON(now, level, msg, all); err != nil {
			line = fmt.Appendf(nil, "[ERROR] Failed to marshal log entry: %v", err)
		}
	}
	line = append(line, '\n')

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	_, _ = l.sink.writer.Write(line)
}

func encodeJSON(now time.Time, level Level, msg string, fields []Field) ([]byte, error) {
	entry := LogEntry{
		Time:    now.Format(time.RFC3339Nano),
		Level:   level.String(),
		Message: msg,
	}
	if len(fields) > 0 {
		entry.Fields = make(map[string]any, len(fields))
		for _, f := range fields {
			entry.Fields[f.Key] = f.Value
		}
	}
	return json.Marshal(entry)
}

func encodeText(now time.Time, level Level, msg string, fields []Field) []byte {
	var b strings.Builder
	b.WriteString(now.Format("15:04:05.000"))
	b.WriteByte(' ')
	fmt.Fprintf(&b, "%-5s", level.String())
	b.WriteByte(' ')
	b.WriteString(msg)
	for _, f := range fields {
		b.WriteByte(' ')
		b.WriteString(f.Key)
		b.WriteByte('=')
		b.WriteString(textValue(f.Value))
	}
	return []byte(b.String())
}

// textValue quotes values that would otherwise break the key=value layout.
func textValue(v any) string {
	var s string
	switch v := v.(type) {
	case nil:
		return "<nil>"
	case string:
		s = v
	case fmt.Stringer:
		s = v.String()
	default:
		s = fmt.Sprint(v)
	}
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

// dedupe keeps the last value of each key at the position of its first
// appearance, matching what the JSON encoding shows.
func dedupe(fields []Field) []Field {
	index := make(map[string]int, len(fields))
	out := make([]Field, 0, len(fields))
	for _, f := range fields {
		if i, ok := index[f.Key]; ok {
			out[i].Value = f.Value
			continue
		}
		index[f.Key] = len(out)
		out = append(out, f)
	}
	return out
}

// Debug logs a debug-level message
func (l *StructuredLogger) Debug(msg string, fields ...Field) {
	l.log(DebugLevel, msg, fields...)
}

// Info logs an info-level message
func (l *StructuredLogger) Info(msg string, fields ...Field) {
	l.log(InfoLevel, msg, fields...)
}

// Warn logs a warning-level message
func (l *StructuredLogger) Warn(msg string, fields ...Field) {
	l.log(WarnLevel, msg, fields...)
}

// Error logs an error-level message
func (l *StructuredLogger) Error(msg string, fields ...Field) {
	l.log(ErrorLevel, msg, fields...)
}

// With creates a child logger with the given fields pre-set. Children write
// through the same sink, so SetLevel on any of them applies to all.
func (l *StructuredLogger) With(fields ...Field) Logger {
	newFields := make([]Field, len(l.fields)+len(fields))
	copy(newFields, l.fields)
	copy(newFields[len(l.fields):], fields)
	return &StructuredLogger{sink: l.sink, fields: newFields}
}

// SetLevel sets the minimum log level
func (l *StructuredLogger) SetLevel(level Level) {
	l.sink.level.Store(int32(level))
}

// GetLevel returns the current log level
func (l *StructuredLogger) GetLevel() Level {
	return Level(l.sink.level.Load())
}

// StartTimer begins timing an operation
func StartTimer(logger Logger, msg string, fields ...Field) *TimedOperation {
	return &TimedOperation{
		logger: logger,
		msg:    msg,
		start:  time.Now(),
		fields: fields,
	}
}

// End logs the operation with its duration
func (t *TimedOperation) End(fields ...Field) {
	t.logger.Info(t.msg, t.finish(fields)...)
}

// EndError logs the operation as an error with its duration
func (t *TimedOperation) EndError(err error) {
	t.logger.Error(t.msg, t.finish([]Field{Error(err)})...)
}

func (t *TimedOperation) finish(extra []Field) []Field {
	out := make([]Field, 0, len(t.fields)+len(extra)+1)
	out = append(out, t.fields...)
	out = append(out, extra...)
	return append(out, Latency(time.Since(t.start)))
}
