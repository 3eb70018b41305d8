package monitoring

import "log"

// Logf is the package-level diagnostic logger, defaulting to log.Printf.
// Evaluation runs log skipped episodes through it; tests mute or capture it
// via SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
