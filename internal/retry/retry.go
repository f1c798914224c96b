package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Class tells whether another attempt (or a redelivery of the whole
// invocation) can change the result of a failed call.
type Class int

const (
	Transient Class = iota
	Permanent
)

func (c Class) String() string {
	if c == Permanent {
		return "permanent"
	}
	return "transient"
}

// Error is the classified failure of a call, after retries were applied.
type Error struct {
	Err      error
	Class    Class
	Attempts int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failure after %d attempt(s): %v", e.Class, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsTransient reports whether the error, classified or raw, is worth a retry.
func IsTransient(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Class == Transient
	}
	return Classify(err) == Transient
}

// Classify maps provider error shapes to a retry class. Rate limiting,
// connectivity loss and server-side errors are transient; authorization,
// not-found and malformed-request responses are permanent.
func Classify(err error) Class {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Transient
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == http.StatusTooManyRequests || gerr.Code >= 500 {
			return Transient
		}
		return Permanent
	}

	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded,
			codes.Aborted, codes.Internal, codes.Unknown:
			return Transient
		default:
			return Permanent
		}
	}

	var nerr net.Error
	if errors.As(err, &nerr) {
		return Transient
	}

	return Permanent
}

// Policy wraps a single outbound call with bounded exponential backoff.
type Policy struct {
	MaxAttempts int
	Backoff     gax.Backoff
}

// Default matches the retry ceiling expected by the delivery transport: a
// call that still fails after 3 attempts is handed back for redelivery.
func Default() Policy {
	return Policy{
		MaxAttempts: 3,
		Backoff: gax.Backoff{
			Initial:    200 * time.Millisecond,
			Max:        5 * time.Second,
			Multiplier: 2,
		},
	}
}

// Do runs call until it succeeds, fails permanently, exhausts the attempt
// ceiling or the context is cancelled. A non-nil return is always a *Error
// carrying the classification, never the raw provider error.
func (p Policy) Do(ctx context.Context, call func(context.Context) error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	bo := p.Backoff

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = call(ctx); err == nil {
			return nil
		}
		if Classify(err) == Permanent {
			return &Error{Err: err, Class: Permanent, Attempts: attempt}
		}
		if attempt == maxAttempts {
			break
		}
		if sleepErr := gax.Sleep(ctx, bo.Pause()); sleepErr != nil {
			// invocation deadline hit, abandon the in-flight retries
			return &Error{Err: err, Class: Transient, Attempts: attempt}
		}
	}

	return &Error{Err: err, Class: Transient, Attempts: maxAttempts}
}
