package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("failed to parse log line as JSON: %v\nLine: %s", err, line)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestLogger_IncludesOperationFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	opLogger := logger.WithOperation(OpMeta{Dependency: "users", Name: "fetch", Version: "v2"})
	opLogger.Info(context.Background(), "test message")

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	entry := entries[0]

	want := map[string]string{
		"op.id":         "users.fetch",
		"op.dependency": "users",
		"op.name":       "fetch",
		"op.version":    "v2",
		"msg":           "test message",
		"level":         "info",
	}
	for k, v := range want {
		if got, _ := entry[k].(string); got != v {
			t.Errorf("%s = %v, want %q", k, entry[k], v)
		}
	}
	if _, ok := entry["timestamp"].(string); !ok {
		t.Error("timestamp missing")
	}
}

func TestLogger_WithOperationDoesNotLeak(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	_ = logger.WithOperation(OpMeta{Name: "scoped"})
	logger.Info(context.Background(), "root")

	entry := decodeLines(t, &buf)[0]
	if _, ok := entry["op.name"]; ok {
		t.Error("root logger picked up operation fields")
	}
}

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  []string
	}{
		{"debug", []string{"debug", "info", "warn", "error"}},
		{"info", []string{"info", "warn", "error"}},
		{"warn", []string{"warn", "error"}},
		{"error", []string{"error"}},
		{"bogus", []string{"info", "warn", "error"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLoggerWithWriter(tt.level, &buf)
			ctx := context.Background()

			logger.Debug(ctx, "d")
			logger.Info(ctx, "i")
			logger.Warn(ctx, "w")
			logger.Error(ctx, "e")

			entries := decodeLines(t, &buf)
			if len(entries) != len(tt.want) {
				t.Fatalf("got %d entries, want %d", len(entries), len(tt.want))
			}
			for i, e := range entries {
				if e["level"] != tt.want[i] {
					t.Errorf("entry %d level = %v, want %s", i, e["level"], tt.want[i])
				}
			}
		})
	}
}

func TestLogger_SensitiveFieldsRedacted(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Info(context.Background(), "call",
		Field{Key: "args", Value: map[string]any{"id": 7}},
		Field{Key: "token", Value: "abc"},
		Field{Key: "authorization", Value: "Bearer x"},
		Field{Key: "attempt", Value: 2},
	)

	entry := decodeLines(t, &buf)[0]
	for _, k := range []string{"args", "token", "authorization"} {
		if entry[k] != "[REDACTED]" {
			t.Errorf("%s = %v, want [REDACTED]", k, entry[k])
		}
	}
	if entry["attempt"] != float64(2) {
		t.Errorf("attempt = %v, want 2", entry["attempt"])
	}
}

func TestLogger_SerializedFailureField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Error(context.Background(), "failed", Field{Key: "failure", Value: map[string]any{"code": "TIMEOUT"}})

	entry := decodeLines(t, &buf)[0]
	f, ok := entry["failure"].(map[string]any)
	if !ok || f["code"] != "TIMEOUT" {
		t.Errorf("failure = %v, want nested object with code", entry["failure"])
	}
}

func TestLogger_ConcurrentWritesStayLineDelimited(t *testing.T) {
	var buf bytes.Buffer
	root := NewLoggerWithWriter("info", &buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l := root
			if i%2 == 0 {
				l = root.WithOperation(OpMeta{Name: "child"})
			}
			l.Info(context.Background(), "concurrent", Field{Key: "i", Value: i})
		}(i)
	}
	wg.Wait()

	if got := len(decodeLines(t, &buf)); got != 20 {
		t.Errorf("got %d entries, want 20", got)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLogLevel(tt.in); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
