// Package obslog implements the single process-wide logging sink of
// §6.4: lazily initialized on first use, writing to stderr, matching
// the teacher's own reliance on the standard log package throughout
// cmd/* rather than a structured logging library.
package obslog

import (
	"log"
	"os"
	"sync"
)

var (
	once   sync.Once
	logger *log.Logger
)

// Logger returns the process-wide logger, initializing it on first
// call. The sink is always stderr, so initialization cannot fail.
func Logger() *log.Logger {
	once.Do(func() {
		logger = log.New(os.Stderr, "rpcodbc: ", log.LstdFlags|log.Lmicroseconds)
	})
	return logger
}

// Errorf logs a formatted error-level message.
func Errorf(format string, args ...any) {
	Logger().Printf("ERROR "+format, args...)
}

// Warnf logs a formatted warning-level message.
func Warnf(format string, args ...any) {
	Logger().Printf("WARN "+format, args...)
}

// Infof logs a formatted informational message.
func Infof(format string, args ...any) {
	Logger().Printf("INFO "+format, args...)
}
