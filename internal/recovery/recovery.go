// Package recovery keeps a panicking goroutine or callback from taking the
// whole process down.
package recovery

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

// RecoverWithLog recovers from panics and logs them with the provided logger.
// Defer it at the top of a goroutine:
//
//	go func() {
//	    defer recovery.RecoverWithLog(logger, "health-server")
//	    // ...
//	}()
func RecoverWithLog(logger *slog.Logger, name string) {
	if r := recover(); r != nil {
		logPanic(logger, name, r)
	}
}

// RecoverWithCallback recovers from panics, logs them, and calls the optional callback.
func RecoverWithCallback(logger *slog.Logger, name string, callback func(recovered any)) {
	if r := recover(); r != nil {
		logPanic(logger, name, r)
		if callback != nil {
			callback(r)
		}
	}
}

// Call runs fn and converts a panic into an error. The panic is logged
// with its stack before being returned.
func Call(logger *slog.Logger, name string, fn func()) (err error) {
	defer RecoverWithCallback(logger, name, func(r any) {
		err = fmt.Errorf("%s: panic: %v", name, r)
	})
	fn()
	return nil
}

func logPanic(logger *slog.Logger, name string, r any) {
	logger.Error("panic recovered",
		"goroutine", name,
		"panic", fmt.Sprintf("%v", r),
		"stack", string(debug.Stack()))
}
