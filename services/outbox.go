package services

import (
	"context"
	"sync"

	"github.com/punguzo/mlm_backend/repositories"
)

type outboxKey struct{}

// outbox buffers side effects raised inside a transaction until it commits.
type outbox struct {
	mu      sync.Mutex
	pending []func(context.Context)
}

func (o *outbox) add(fn func(context.Context)) {
	o.mu.Lock()
	o.pending = append(o.pending, fn)
	o.mu.Unlock()
}

func (o *outbox) reset() {
	o.mu.Lock()
	o.pending = nil
	o.mu.Unlock()
}

func (o *outbox) flush(ctx context.Context) {
	o.mu.Lock()
	pending := o.pending
	o.pending = nil
	o.mu.Unlock()

	for _, fn := range pending {
		fn(ctx)
	}
}

// runInTx runs fn atomically. Nested calls join the outermost transaction, and
// callbacks registered with afterCommit run once the outermost one commits.
func runInTx(ctx context.Context, tx repositories.Transactor, fn func(ctx context.Context) error) error {
	if _, nested := ctx.Value(outboxKey{}).(*outbox); nested {
		return tx.WithTransaction(ctx, fn)
	}

	ob := &outbox{}
	err := tx.WithTransaction(ctx, func(txCtx context.Context) error {
		// The driver may retry the callback; drop effects of the failed attempt.
		ob.reset()
		return fn(context.WithValue(txCtx, outboxKey{}, ob))
	})
	if err != nil {
		return err
	}

	ob.flush(context.WithoutCancel(ctx))
	return nil
}

// afterCommit defers fn until the surrounding transaction commits, or runs it now
// when there is none.
func afterCommit(ctx context.Context, fn func(context.Context)) {
	if ob, ok := ctx.Value(outboxKey{}).(*outbox); ok {
		ob.add(fn)
		return
	}
	fn(ctx)
}
