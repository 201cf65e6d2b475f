package monitoring

import (
	"fmt"
	"log"
	"strings"
	"testing"
)

func TestSetLoggerCaptures(t *testing.T) {
	defer SetLogger(log.Printf)

	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})

	Logf("hello %d", 42)
	if len(lines) != 1 || lines[0] != "hello 42" {
		t.Errorf("captured lines = %q, want [\"hello 42\"]", lines)
	}
}

func TestSetLoggerNilMutes(t *testing.T) {
	defer SetLogger(log.Printf)

	SetLogger(nil)
	// Must not panic.
	Logf("dropped %s", "message")
}

func TestHexDump(t *testing.T) {
	defer SetLogger(log.Printf)

	var got string
	SetLogger(func(format string, v ...interface{}) {
		got = fmt.Sprintf(format, v...)
	})

	HexDump("partial ack", []byte{0xFD, 0xFC, 0xFB, 0xFA})
	if !strings.Contains(got, "partial ack") || !strings.Contains(got, "fdfcfbfa") {
		t.Errorf("HexDump output = %q, want label and hex bytes", got)
	}
	if !strings.Contains(got, "4 bytes") {
		t.Errorf("HexDump output = %q, want byte count", got)
	}

	HexDump("empty", nil)
	if !strings.Contains(got, "no data") {
		t.Errorf("HexDump with no data = %q, want placeholder", got)
	}
}
