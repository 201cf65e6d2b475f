// Package monitoring holds the driver's pluggable diagnostic logger.
package monitoring

import (
	"encoding/hex"
	"log"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf
// but may be replaced by SetLogger. Tests or production code can redirect
// or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op
// logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// HexDump logs a labelled hex rendering of raw frame bytes. Used when a
// transaction fails and the partial ACK capture is worth seeing.
func HexDump(label string, data []byte) {
	if len(data) == 0 {
		Logf("%s: (no data)", label)
		return
	}
	Logf("%s (%d bytes): %s", label, len(data), hex.EncodeToString(data))
}
