package observability

import (
	"runtime/debug"
)

// RecoverPanic logs a recovered panic with its stack trace and swallows it.
// Background jobs defer it directly:
//
//	defer observability.RecoverPanic(logger, "interview gauge refresh")
func RecoverPanic(logger *Logger, job string) {
	r := recover()
	if r == nil {
		return
	}
	logger.WithFields(map[string]interface{}{
		"job":   job,
		"panic": r,
		"stack": string(debug.Stack()),
	}).Error("background job panicked")
}
