package fib

import (
	"context"
	"time"

	"github.com/routelab/rcp/pkg/logging"
	"github.com/routelab/rcp/pkg/metrics"
)

const (
	defaultMaxAttempts = 4
	defaultBaseBackoff = 100 * time.Millisecond
	defaultMaxBackoff  = 5 * time.Second
	defaultCallTimeout = 3 * time.Second
)

// ApplierConfig bounds the applier's retry behavior.
type ApplierConfig struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	CallTimeout time.Duration
	Logger      logging.Logger
}

// Applier executes FIB operations against the device with bounded
// exponential backoff, driving the per-prefix state machine as calls
// are acknowledged or exhausted.
type Applier struct {
	router RouterFIB
	table  *Table

	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	callTimeout time.Duration

	logger  logging.Logger
	metrics *metrics.Registry
}

// NewApplier creates an applier driving the given device and table.
func NewApplier(router RouterFIB, table *Table, cfg ApplierConfig) *Applier {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = defaultBaseBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaultMaxBackoff
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &Applier{
		router:      router,
		table:       table,
		maxAttempts: cfg.MaxAttempts,
		baseBackoff: cfg.BaseBackoff,
		maxBackoff:  cfg.MaxBackoff,
		callTimeout: cfg.CallTimeout,
		logger:      logger.With(logging.Component("fib")),
		metrics:     metrics.DefaultRegistry(),
	}
}

// Apply executes the operations in order. A failed operation leaves its
// prefix in the failed state and aborts the sequence; the next
// candidate change schedules a fresh attempt that clears it.
func (a *Applier) Apply(ctx context.Context, ops []Operation) error {
	for _, op := range ops {
		if err := a.applyOne(ctx, op); err != nil {
			return err
		}
	}
	return nil
}

func (a *Applier) applyOne(ctx context.Context, op Operation) error {
	// Announce intent before touching the device
	switch op.Kind {
	case OpInstall, OpReplace:
		a.table.set(op.Prefix, StatePending, op.Entry, 0, "")
	case OpWithdraw:
		entry := a.table.Installed(op.Prefix)
		a.table.set(op.Prefix, StateWithdrawing, entry, 0, "")
	}

	var lastErr error
retry:
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		start := time.Now()
		lastErr = a.call(ctx, op)
		if lastErr == nil {
			a.metrics.RecordFibOperation(string(op.Kind), "success", time.Since(start))
			a.confirm(op)
			return nil
		}
		a.metrics.RecordFibOperation(string(op.Kind), "failure", time.Since(start))
		a.logger.Warn("fib operation failed",
			logging.Operation(string(op.Kind)),
			logging.Prefix(op.Prefix),
			logging.Attempt(attempt),
			logging.Error(lastErr))

		if attempt == a.maxAttempts {
			break
		}
		a.metrics.FibRetriesTotal.Inc()
		select {
		case <-time.After(a.backoff(attempt)):
		case <-ctx.Done():
			lastErr = ctx.Err()
			break retry
		}
	}

	a.table.set(op.Prefix, StateFailed, op.Entry, a.maxAttempts, lastErr.Error())
	a.updateGauges()
	return &ApplyError{Op: op.Kind, Prefix: op.Prefix, Attempts: a.maxAttempts, Cause: lastErr}
}

// call performs one device call under the per-call timeout. A timeout
// counts as failure; the device may or may not have applied the change,
// and only an acknowledged call moves the state machine forward.
func (a *Applier) call(ctx context.Context, op Operation) error {
	callCtx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()

	switch op.Kind {
	case OpInstall, OpReplace:
		return a.router.Install(callCtx, *op.Entry)
	case OpWithdraw:
		return a.router.Withdraw(callCtx, op.Prefix)
	}
	return nil
}

func (a *Applier) confirm(op Operation) {
	switch op.Kind {
	case OpInstall, OpReplace:
		a.table.set(op.Prefix, StateInstalled, op.Entry, 0, "")
		a.logger.Info("route installed",
			logging.Prefix(op.Prefix),
			logging.NextHop(op.Entry.NextHop))
	case OpWithdraw:
		a.table.set(op.Prefix, StateUnset, nil, 0, "")
		a.logger.Info("route withdrawn", logging.Prefix(op.Prefix))
	}
	a.updateGauges()
}

func (a *Applier) updateGauges() {
	installed, failed := a.table.counts()
	a.metrics.FibInstalledPrefixes.Set(float64(installed))
	a.metrics.FibFailedPrefixes.Set(float64(failed))
}

// backoff returns the exponential delay for the given attempt, capped
func (a *Applier) backoff(attempt int) time.Duration {
	d := a.baseBackoff << (attempt - 1)
	if d > a.maxBackoff || d <= 0 {
		return a.maxBackoff
	}
	return d
}
