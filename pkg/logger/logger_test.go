package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestErrorIncludesContextFields(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "test", Level: zerolog.DebugLevel, Output: &buf})

	ctx := logg.WithRequestID(context.Background(), "req-123")
	ctx = logg.WithRouteClass(ctx, "api")
	logg.Error(ctx, "boom", nil)

	out := buf.String()
	for _, want := range []string{`"request_id":"req-123"`, `"route_class":"api"`, `"service":"test"`, `"stack"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in output, got %s", want, out)
		}
	}
}

func TestWarnStackToggle(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "test", Level: zerolog.DebugLevel, Output: &buf})
	logg.Warn(context.Background(), "careful")
	if strings.Contains(buf.String(), `"stack"`) {
		t.Fatalf("warn stack disabled but output has stack: %s", buf.String())
	}

	buf.Reset()
	logg = New(Options{ServiceName: "test", Level: zerolog.DebugLevel, WarnStack: true, Output: &buf})
	logg.Warn(context.Background(), "careful")
	if !strings.Contains(buf.String(), `"stack"`) {
		t.Fatalf("warn stack enabled but output has no stack: %s", buf.String())
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "test", Level: zerolog.InfoLevel, Output: &buf})
	logg.Debug(context.Background(), "chatty")
	if buf.Len() != 0 {
		t.Fatalf("debug should be filtered at info level, got %s", buf.String())
	}
}

func TestParseLevelDefaults(t *testing.T) {
	if got := ParseLevel(""); got != zerolog.InfoLevel {
		t.Fatalf("empty level: got %v", got)
	}
	if got := ParseLevel("nonsense"); got != zerolog.InfoLevel {
		t.Fatalf("invalid level: got %v", got)
	}
	if got := ParseLevel(" DEBUG "); got != zerolog.DebugLevel {
		t.Fatalf("debug level: got %v", got)
	}
}
