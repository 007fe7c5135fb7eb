// Package automation classifies browser-automation failures and retries the
// transient ones a bounded number of times.
package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// MaxAttempts bounds Retry.
const MaxAttempts = 5

// Class says whether a failure is worth retrying.
type Class int

const (
	ClassFatal Class = iota
	ClassTransient
)

func (c Class) String() string {
	if c == ClassTransient {
		return "transient"
	}
	return "fatal"
}

// ErrAttemptsExhausted is returned when every attempt failed transiently.
var ErrAttemptsExhausted = errors.New("automation: attempts exhausted")

// Error is a classified automation failure. The collaborator producing the
// failure assigns the class; nothing here inspects messages.
type Error struct {
	Op    string
	Class Class
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("automation: %s (%s): %v", e.Op, e.Class, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Transient wraps err as retryable.
func Transient(op string, err error) error {
	return &Error{Op: op, Class: ClassTransient, Err: err}
}

// Fatal wraps err as non-retryable.
func Fatal(op string, err error) error {
	return &Error{Op: op, Class: ClassFatal, Err: err}
}

// IsTransient reports whether err carries the transient class.
func IsTransient(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Class == ClassTransient
}

// Retry calls op until it succeeds, fails with a non-transient error, or
// MaxAttempts transient failures occurred. Retries are immediate.
func Retry(ctx context.Context, logger *slog.Logger, op func(ctx context.Context) error) error {
	if logger == nil {
		logger = slog.Default()
	}
	var last error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return err
		}
		last = err
		logger.Debug("automation: transient failure",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, MaxAttempts, last)
}
