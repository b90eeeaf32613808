// Package feed defines how deals reach the viewer and how they travel on the
// wire.
package feed

import (
	"context"

	"github.com/zappabad/dealsviewer/internal/deal"
)

// BatchFunc receives deals in delivery order.
type BatchFunc func(batch []deal.Deal)

// LoadedFunc is called once, after the history has been delivered.
type LoadedFunc func()

// Source delivers deal batches until ctx is canceled or the transport fails.
// Subscribe blocks; it returns nil when ctx is canceled. onLoaded may be nil.
type Source interface {
	Subscribe(ctx context.Context, onBatch BatchFunc, onLoaded LoadedFunc) error
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, onBatch BatchFunc, onLoaded LoadedFunc) error

// Subscribe calls f.
func (f SourceFunc) Subscribe(ctx context.Context, onBatch BatchFunc, onLoaded LoadedFunc) error {
	return f(ctx, onBatch, onLoaded)
}
