package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// SlowOperationThreshold is the duration above which an operation is logged as slow
const SlowOperationThreshold = 30 * time.Second

// Timer is a simple performance timer for measuring operation duration
type Timer struct {
	start time.Time
	name  string
	log   zerolog.Logger
}

// NewTimer creates a new timer with the given name
func NewTimer(name string, log zerolog.Logger) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
		log:   log,
	}
}

// Stop stops the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	duration := time.Since(t.start)

	t.log.Debug().
		Str("operation", t.name).
		Dur("duration_ms", duration).
		Msg("Operation completed")

	if duration > SlowOperationThreshold {
		t.log.Warn().
			Str("operation", t.name).
			Dur("duration", duration).
			Msg("Slow operation detected")
	}

	return duration
}

// OperationTimer provides a defer-friendly way to measure operation duration
//
// Usage:
//
//	func MyFunction() {
//	    defer utils.OperationTimer("my_function", log)()
//	}
func OperationTimer(operation string, log zerolog.Logger) func() time.Duration {
	return NewTimer(operation, log).Stop
}
