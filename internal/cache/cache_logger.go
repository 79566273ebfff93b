package cache

import (
	"context"
	"log/slog"
	"sync"
)

// SafeInvalidatePattern invalidates a cache pattern, logging failures
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete deletes cache keys, logging failures
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// Invalidator collects cache deletions issued inside a transaction and runs
// them once the transaction has committed. Outside a transaction it deletes
// immediately.
type Invalidator struct {
	deferred bool
	mu       sync.Mutex
	pending  []pendingDelete
}

type pendingDelete struct {
	helper *CacheHelper
	keys   []string
}

// NewImmediateInvalidator deletes on every call
func NewImmediateInvalidator() *Invalidator {
	return &Invalidator{}
}

// NewDeferredInvalidator queues deletes until Flush
func NewDeferredInvalidator() *Invalidator {
	return &Invalidator{deferred: true}
}

// Delete removes keys now, or queues them when deferred
func (i *Invalidator) Delete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if !helper.Enabled() || len(keys) == 0 {
		return
	}
	if !i.deferred {
		SafeDelete(ctx, helper, keys...)
		return
	}

	i.mu.Lock()
	i.pending = append(i.pending, pendingDelete{helper: helper, keys: keys})
	i.mu.Unlock()
}

// Flush runs every queued delete
func (i *Invalidator) Flush(ctx context.Context) {
	i.mu.Lock()
	pending := i.pending
	i.pending = nil
	i.mu.Unlock()

	for _, p := range pending {
		SafeDelete(ctx, p.helper, p.keys...)
	}
}

// Discard drops queued deletes after a rollback
func (i *Invalidator) Discard() {
	i.mu.Lock()
	i.pending = nil
	i.mu.Unlock()
}
