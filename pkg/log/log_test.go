package log

import (
	"bytes"
	"strings"
	"testing"
)

func newTestLogger(t *testing.T, name string) (*Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	SetOutput(buf)
	return ForComponent(name), buf
}

func TestInfoCarriesPrefix(t *testing.T) {
	SetGlobalDebug(false)

	l, buf := newTestLogger(t, "prefix_test")
	l.Infof("cache warmed with %d entries", 7)

	out := buf.String()
	if !strings.Contains(out, "[prefix_test]") {
		t.Fatalf("expected component prefix in output, got %q", out)
	}
	if !strings.Contains(out, "cache warmed with 7 entries") {
		t.Fatalf("expected formatted message in output, got %q", out)
	}
	if !strings.Contains(out, "INFO") {
		t.Fatalf("expected INFO level marker, got %q", out)
	}
}

func TestDebugSuppressedByDefault(t *testing.T) {
	SetGlobalDebug(false)

	const name = "debug_default_test"
	DisableDebugFor(name)
	l, buf := newTestLogger(t, name)

	l.Debugf("should not appear")
	if strings.Contains(buf.String(), "should not appear") {
		t.Fatal("debug output printed while debug disabled")
	}
}

func TestDebugPerComponent(t *testing.T) {
	SetGlobalDebug(false)

	const name = "debug_component_test"
	l, buf := newTestLogger(t, name)

	EnableDebugFor(name)
	l.Debugf("visible now")
	if !strings.Contains(buf.String(), "visible now") {
		t.Fatalf("expected debug output after per-component enable, got %q", buf.String())
	}

	other, otherBuf := newTestLogger(t, "debug_other_test")
	other.Debugf("still hidden")
	if strings.Contains(otherBuf.String(), "still hidden") {
		t.Fatal("per-component debug leaked to another component")
	}
}

func TestDebugGlobal(t *testing.T) {
	const name = "debug_global_test"
	DisableDebugFor(name)
	l, buf := newTestLogger(t, name)

	SetGlobalDebug(true)
	defer SetGlobalDebug(false)

	l.Debugf("globally visible")
	if !strings.Contains(buf.String(), "globally visible") {
		t.Fatalf("expected debug output with global debug on, got %q", buf.String())
	}
}

func TestForComponentMemoizes(t *testing.T) {
	a := ForComponent("memo_test")
	b := ForComponent("memo_test")
	if a != b {
		t.Fatal("ForComponent should return the same logger for the same name")
	}
}
