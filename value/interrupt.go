package value

import (
	"context"
	"sync"
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// Interrupts
// ---------------------------------------------------------------------------

// Poll returns ErrInterrupted once ctx is done. Operator implementations
// call it inside long loops; it never blocks.
func Poll(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ErrInterrupted
	default:
		return nil
	}
}

// Interrupter turns user interrupts (for example SIGINT) into context
// cancellation for the evaluation in progress.
//
// Each Signal cancels the current context. Signals that arrive before
// Reset accumulate; when EscalateAfter of them are pending the escalation
// hook runs, which lets a front end abandon an operation that does not
// poll.
type Interrupter struct {
	mu     sync.Mutex
	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc

	pending       atomic.Int32
	escalateAfter int32
	onEscalate    func(n int)
}

// NewInterrupter creates an interrupter whose contexts derive from parent.
func NewInterrupter(parent context.Context) *Interrupter {
	if parent == nil {
		parent = context.Background()
	}
	in := &Interrupter{parent: parent, escalateAfter: 3}
	in.ctx, in.cancel = context.WithCancel(parent)
	return in
}

// Context returns the context to pass to dispatch for the current
// evaluation.
func (in *Interrupter) Context() context.Context {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.ctx
}

// Signal records one interrupt and cancels the current context.
func (in *Interrupter) Signal() {
	n := in.pending.Add(1)
	in.mu.Lock()
	in.cancel()
	hook, limit := in.onEscalate, in.escalateAfter
	in.mu.Unlock()
	if hook != nil && limit > 0 && n == limit {
		hook(int(n))
	}
}

// Pending returns the number of interrupts since the last Reset.
func (in *Interrupter) Pending() int {
	return int(in.pending.Load())
}

// Reset clears pending interrupts and starts a fresh context. Call it
// once the evaluator has unwound to the top level.
func (in *Interrupter) Reset() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.cancel()
	in.ctx, in.cancel = context.WithCancel(in.parent)
	in.pending.Store(0)
}

// EscalateAfter sets how many pending interrupts trigger escalation.
// Zero or less disables it.
func (in *Interrupter) EscalateAfter(n int) {
	in.mu.Lock()
	in.escalateAfter = int32(n)
	in.mu.Unlock()
}

// OnEscalate installs the escalation hook.
func (in *Interrupter) OnEscalate(fn func(n int)) {
	in.mu.Lock()
	in.onEscalate = fn
	in.mu.Unlock()
}
