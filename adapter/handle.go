package adapter

import (
	"context"
	"sync"

	"github.com/sqlectron/sqlectron-core/apperrors"
)

// CancelFunc performs the dialect-specific cancellation mechanics (e.g.
// pg_cancel_backend on a side connection, or a driver request cancel). It
// is supplied by the adapter that created the Handle and invoked at most
// once.
type CancelFunc func() error

// Handle is a query handle created by Adapter.Query. It carries the
// query's text and lifecycle outcome, and exposes a single-shot
// cancellation token readable by the adapter and writable by the caller,
// per the spec's concurrency model. The adapter runs the query on its own
// goroutine and calls Finish when it completes; a caller waiting on the
// result calls Wait.
type Handle struct {
	Text string

	mu         sync.Mutex
	outcome    Outcome
	cancelFn   CancelFunc
	registered bool

	done    chan struct{}
	results []NormalizedResult
	err     error
}

// NewHandle constructs a pending handle for the given query text.
func NewHandle(text string) *Handle {
	return &Handle{Text: text, outcome: Pending, done: make(chan struct{})}
}

// Register transitions the handle to Running and records the
// dialect-specific cancel function. Called by the adapter once it has
// begun executing the query, so Cancel becomes legal.
func (h *Handle) Register(cancelFn CancelFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.outcome = Running
	h.cancelFn = cancelFn
	h.registered = true
}

// Finish records the batch's outcome and wakes any caller blocked in Wait.
// If the handle was already Canceled by the time the underlying call
// returned, the recorded error is overridden with a CanceledError so Wait
// always surfaces CANCELED_BY_USER for a canceled query, regardless of
// what the underlying driver call itself returned (typically a plain
// "context canceled").
func (h *Handle) Finish(results []NormalizedResult, err error) {
	h.mu.Lock()
	if h.outcome == Canceled {
		err = &apperrors.CanceledError{Query: h.Text}
	} else if err != nil {
		h.outcome = Failed
	} else {
		h.outcome = Done
	}
	h.results, h.err = results, err
	h.mu.Unlock()
	close(h.done)
}

// Wait blocks until the query has finished — successfully, with an error,
// or canceled — and returns its outcome.
func (h *Handle) Wait(ctx context.Context) ([]NormalizedResult, error) {
	select {
	case <-h.done:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.results, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Outcome returns the handle's current lifecycle state.
func (h *Handle) Outcome() Outcome {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.outcome
}

// Cancel invokes the registered cancellation mechanics. It is only legal
// once the query has reached the Running state (its token is registered);
// calling earlier returns a QueryNotReadyError. On success it marks the
// handle Canceled and returns nil — the query's own in-flight call is what
// subsequently resolves with a CanceledError tagged CANCELED_BY_USER, via
// Finish, per the spec's "a canceled query resolves with CANCELED_BY_USER"
// rule.
func (h *Handle) Cancel() error {
	h.mu.Lock()
	if !h.registered || h.outcome != Running {
		h.mu.Unlock()
		return &apperrors.QueryNotReadyError{}
	}
	cancelFn := h.cancelFn
	h.mu.Unlock()

	if cancelFn == nil {
		return &apperrors.NotSupportedError{Operation: "cancel", Dialect: "unknown"}
	}

	if err := cancelFn(); err != nil {
		return err
	}

	h.mu.Lock()
	h.outcome = Canceled
	h.mu.Unlock()

	return nil
}
