// Package viewer ties a deal feed to the deal service for the lifetime of a
// screen.
package viewer

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zappabad/dealsviewer/internal/deal"
	"github.com/zappabad/dealsviewer/internal/deal/service"
	"github.com/zappabad/dealsviewer/internal/feed"
)

// Viewer owns the deal service and the feed subscription and manages their
// lifecycle.
type Viewer struct {
	Deals *service.Service

	source feed.Source
	logger *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
	err    error

	startOnce sync.Once
	closeOnce sync.Once
}

// New creates a Viewer. Nothing is delivered until Start.
func New(cfg Config, src feed.Source, logger *zap.Logger, metrics *service.Metrics) *Viewer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Viewer{
		Deals:  service.NewService(cfg.Service, logger.Named("deals"), metrics),
		source: src,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start subscribes to the feed on a background goroutine.
func (v *Viewer) Start(ctx context.Context) {
	v.startOnce.Do(func() {
		ctx, v.cancel = context.WithCancel(ctx)
		go v.subscribe(ctx)
	})
}

func (v *Viewer) subscribe(ctx context.Context) {
	defer close(v.done)

	id := uuid.NewString()
	logger := v.logger.With(zap.String("subscription", id))
	logger.Info("subscription started")

	onBatch := func(batch []deal.Deal) {
		v.Deals.DealsReceived(batch)
	}
	onLoaded := func() {
		if err := v.Deals.InitialLoadComplete(ctx); err != nil {
			logger.Debug("initial load signal not delivered", zap.Error(err))
		}
	}

	v.err = v.source.Subscribe(ctx, onBatch, onLoaded)
	if v.err != nil {
		logger.Error("subscription failed", zap.Error(v.err))
		return
	}
	logger.Info("subscription stopped", zap.Int("deals", v.Deals.Accumulated()))
}

// Done is closed when the subscription ends.
func (v *Viewer) Done() <-chan struct{} {
	return v.done
}

// Err returns the subscription error once Done is closed.
func (v *Viewer) Err() error {
	select {
	case <-v.done:
		return v.err
	default:
		return nil
	}
}

// Close stops the subscription first, then the deal service.
func (v *Viewer) Close() {
	v.closeOnce.Do(func() {
		if v.cancel != nil {
			v.cancel()
			<-v.done
		}
		v.Deals.Close()
	})
}
