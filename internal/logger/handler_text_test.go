package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestTextHandlerFormatsLine(t *testing.T) {
	var buf bytes.Buffer
	h := NewTextHandler(&buf, nil)
	l := slog.New(h)

	l.Info("connection established", "conn", ":1.1", "serial", 3)

	line := buf.String()
	if !strings.Contains(line, "INFO") {
		t.Errorf("line %q missing level", line)
	}
	if !strings.Contains(line, "connection established") {
		t.Errorf("line %q missing message", line)
	}
	if !strings.Contains(line, "conn=:1.1") {
		t.Errorf("line %q missing conn attr", line)
	}
	if !strings.Contains(line, "serial=3") {
		t.Errorf("line %q missing serial attr", line)
	}
	if !strings.HasSuffix(line, "\n") {
		t.Errorf("line %q does not end with newline", line)
	}
}

func TestTextHandlerEnabledRespectsLevel(t *testing.T) {
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelWarn)
	h := NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: levelVar})

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Enabled(Info) with min level Warn: want false")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("Enabled(Error) with min level Warn: want true")
	}
}

func TestTextHandlerWithAttrsCarriesForward(t *testing.T) {
	var buf bytes.Buffer
	h := NewTextHandler(&buf, nil)
	h2 := h.WithAttrs([]slog.Attr{slog.String("conn_id", "abc")})
	l := slog.New(h2)

	l.Info("hello")

	if !strings.Contains(buf.String(), "conn_id=abc") {
		t.Errorf("line %q missing bound attr", buf.String())
	}
}

func TestTextHandlerWithGroupPrefixesKeys(t *testing.T) {
	var buf bytes.Buffer
	h := NewTextHandler(&buf, nil)
	h2 := h.WithGroup("req")
	l := slog.New(h2)

	l.Info("hello", "id", 1)

	if !strings.Contains(buf.String(), "req.id=1") {
		t.Errorf("line %q missing grouped attr prefix", buf.String())
	}
}
