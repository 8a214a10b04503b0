package sqlite

import (
	"strings"
	"time"
)

const (
	busyMaxAttempts  = 5
	busyInitialDelay = 10 * time.Millisecond
)

// isSQLiteBusy reports whether err is a transient lock error.
func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// retryOnBusy runs fn until it succeeds, fails with a non-busy error, or
// busyMaxAttempts is reached. The delay doubles after each busy failure.
func retryOnBusy(fn func() error) error {
	delay := busyInitialDelay
	var err error
	for attempt := 1; attempt <= busyMaxAttempts; attempt++ {
		err = fn()
		if !isSQLiteBusy(err) {
			return err
		}
		if attempt < busyMaxAttempts {
			time.Sleep(delay)
			delay *= 2
		}
	}
	return err
}
