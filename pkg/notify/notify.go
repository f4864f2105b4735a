// Package notify defines the error report delivered to out-of-band sinks when
// a relay request fails, and the interface those sinks implement.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/allie-chat/allieproxy/pkg/utils"
)

// ErrNilReport is returned by sinks handed a nil report.
var ErrNilReport = errors.New("nil error report")

// TimestampFormat is ISO-8601 in UTC with millisecond precision.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// MaxMessageLen caps the error text carried by a report.
const MaxMessageLen = 2048

// Report describes one failed relay request. It is never stored.
type Report struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"error"`
}

// NewReport creates a report for err stamped with now. Oversized error text
// is truncated.
func NewReport(err error, now time.Time) *Report {
	msg := "unknown error"
	if err != nil {
		msg = utils.Truncate(err.Error(), MaxMessageLen)
	}
	return &Report{
		ID:        uuid.New(),
		Timestamp: now.UTC(),
		Message:   msg,
	}
}

// ISOTimestamp renders the report time the way sinks put it on the wire.
func (r *Report) ISOTimestamp() string {
	return r.Timestamp.UTC().Format(TimestampFormat)
}

// Notifier delivers a report to one sink.
// Implementations must be safe for concurrent use.
type Notifier interface {
	// Name identifies the sink in logs.
	Name() string

	// Notify makes a single delivery attempt.
	Notify(ctx context.Context, report *Report) error
}

// Error wraps a failed delivery with the sink that produced it.
type Error struct {
	Sink string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("notify %s: %v", e.Sink, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
