// Package simulator generates random deals on a timer.
package simulator

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zappabad/dealsviewer/internal/deal"
	"github.com/zappabad/dealsviewer/internal/feed"
)

// Simulator is an in-process feed.Source. Each subscription gets its own
// generator.
type Simulator struct {
	cfg    Config
	logger *zap.Logger
}

var _ feed.Source = (*Simulator)(nil)

// New creates a Simulator. Negative InitialDeals is treated as zero.
func New(cfg Config, logger *zap.Logger) *Simulator {
	def := DefaultConfig()
	if len(cfg.Instruments) == 0 {
		cfg.Instruments = def.Instruments
	}
	if cfg.InitialDeals < 0 {
		cfg.InitialDeals = 0
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = def.TickInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{cfg: cfg, logger: logger}
}

// Subscribe delivers the history in batches, signals onLoaded, then delivers
// one batch per tick until ctx is canceled.
func (s *Simulator) Subscribe(ctx context.Context, onBatch feed.BatchFunc, onLoaded feed.LoadedFunc) error {
	gen := newGenerator(s.cfg)
	now := time.Now()

	// history is spread over the last minute
	spacing := time.Minute / time.Duration(max(s.cfg.InitialDeals, 1))
	start := now.Add(-time.Minute)
	for sent := 0; sent < s.cfg.InitialDeals; {
		if ctx.Err() != nil {
			return nil
		}
		n := min(s.cfg.BatchSize, s.cfg.InitialDeals-sent)
		batch := make([]deal.Deal, n)
		for i := range batch {
			batch[i] = gen.next(start.Add(time.Duration(sent+i) * spacing))
		}
		onBatch(batch)
		sent += n
	}
	s.logger.Info("simulated history delivered", zap.Int("deals", s.cfg.InitialDeals))
	if onLoaded != nil {
		onLoaded()
	}

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-ticker.C:
			onBatch(gen.batch(s.cfg.BatchSize, t))
		}
	}
}

type generator struct {
	rng         *rand.Rand
	instruments []string
	prices      []float64
}

func newGenerator(cfg Config) *generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	g := &generator{
		rng:         rand.New(rand.NewSource(seed)),
		instruments: cfg.Instruments,
		prices:      make([]float64, len(cfg.Instruments)),
	}
	for i := range g.prices {
		g.prices[i] = 50 + g.rng.Float64()*450
	}
	return g
}

// next produces a deal for a random instrument, walking its price by up to 1%.
func (g *generator) next(at time.Time) deal.Deal {
	i := g.rng.Intn(len(g.instruments))
	g.prices[i] = math.Max(1, g.prices[i]*(1+(g.rng.Float64()-0.5)*0.02))

	return deal.Deal{
		ID:             uuid.NewString(),
		InstrumentName: g.instruments[i],
		Price:          math.Round(g.prices[i]*100) / 100,
		Amount:         float64(1 + g.rng.Intn(1000)),
		Side:           deal.Side(g.rng.Intn(2)),
		ModifiedAt:     at,
	}
}

func (g *generator) batch(n int, at time.Time) []deal.Deal {
	out := make([]deal.Deal, n)
	for i := range out {
		out[i] = g.next(at)
	}
	return out
}
