// Package checks provides result construction shared by the probe executor.
package checks

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"webwatch/internal/storage"
)

// newSuccessRecord builds a terminal success outcome for a monitor.
func newSuccessRecord(monitorID string, responseTimeMs int64, statusCode int) *storage.HistoryRecord {
	return &storage.HistoryRecord{
		ID:             uuid.NewString(),
		MonitorID:      monitorID,
		Timestamp:      storage.Now(),
		Status:         storage.StatusSuccess,
		ResponseTimeMs: &responseTimeMs,
		HTTPStatus:     &statusCode,
	}
}

// newErrorRecord builds a terminal error outcome. statusCode and
// responseTimeMs may be negative to indicate nothing was observed.
func newErrorRecord(monitorID string, responseTimeMs int64, statusCode int, reason string) *storage.HistoryRecord {
	rec := &storage.HistoryRecord{
		ID:        uuid.NewString(),
		MonitorID: monitorID,
		Timestamp: storage.Now(),
		Status:    storage.StatusError,
		Error:     &reason,
	}
	if responseTimeMs >= 0 {
		rec.ResponseTimeMs = &responseTimeMs
	}
	if statusCode > 0 {
		rec.HTTPStatus = &statusCode
	}
	return rec
}

// isCancellation reports whether err is cancellation-shaped: a context
// cancellation or deadline expiry, directly or wrapped by the transport.
// The retry policy excludes these errors.
func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
