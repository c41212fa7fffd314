// Package measure counts lines of code in a checked-out working directory.
package measure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/panbanda/locplot/pkg/history"
)

// Supported backends.
const (
	ToolGocloc = "gocloc"
	ToolCloc   = "cloc"
)

// ErrMeasurement is matched by every *MeasurementError.
var ErrMeasurement = errors.New("measurement failed")

// ErrUnknownTool is returned by New for an unsupported backend.
var ErrUnknownTool = errors.New("unknown measurement tool")

// Measurer counts the lines of a directory.
type Measurer interface {
	// Name identifies the backend. It is part of measurement cache keys.
	Name() string
	// Measure counts every file below dir.
	Measure(ctx context.Context, dir string) (history.Measurement, error)
}

// MeasurementError wraps the final failure of a measurement.
type MeasurementError struct {
	Tool     string
	Dir      string
	Attempts int
	Err      error
}

func (e *MeasurementError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("%s: measuring %s failed after %d attempts: %v", e.Tool, e.Dir, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s: measuring %s failed: %v", e.Tool, e.Dir, e.Err)
}

func (e *MeasurementError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrMeasurement.
func (e *MeasurementError) Is(target error) bool {
	return target == ErrMeasurement
}

// Options selects and configures a backend.
type Options struct {
	Tool     string
	Binary   string
	Timeout  time.Duration
	Attempts int
}

// New returns the configured backend wrapped with timeout and retry handling.
func New(opts Options) (Measurer, error) {
	var m Measurer
	switch opts.Tool {
	case ToolGocloc, "":
		m = NewGocloc()
	case ToolCloc:
		m = NewCloc(opts.Binary)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, opts.Tool)
	}
	return WithRetry(m, opts.Attempts, opts.Timeout), nil
}
