package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/zappabad/dealsviewer/internal/deal"
	"github.com/zappabad/dealsviewer/internal/deal/view"
)

var ErrClosed = errors.New("service closed")

// command types
type cmdType int

const (
	cmdSort cmdType = iota
	cmdScroll
	cmdLoaded
)

type command struct {
	typ    cmdType
	state  deal.SortState
	scroll ScrollRequest
}

type job struct {
	seq   uint64
	state deal.SortState
}

type result struct {
	seq    uint64
	state  deal.SortState
	sorted []deal.Deal
	source int
	took   time.Duration
}

// Service owns the accumulated deals, the sorted view and the visible
// window. Deals may be delivered from any goroutine; sorting runs on a
// worker goroutine; the window is owned by a single coordination goroutine
// that publishes immutable pages.
type Service struct {
	cfg     Config
	logger  *zap.Logger
	metrics *Metrics
	deals   *view.Accumulator

	cmdCh          chan command
	arrived        chan struct{}
	jobCh          chan job
	resultCh       chan result
	externalEvents chan Event

	current       atomic.Pointer[view.Page]
	droppedEvents atomic.Int64

	// Owned by runLoop.
	window       *view.Window
	target       deal.SortState
	published    deal.SortState
	generation   uint64
	issued       uint64
	targetSeq    uint64
	running      bool
	rerun        bool
	resetPending bool
	growPending  bool
	sortedFrom   int
	loaded       bool

	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewService creates a Service and starts its goroutines. The initial sort
// state is applied immediately, so an empty page is published even before
// any deal arrives.
func NewService(cfg Config, logger *zap.Logger, metrics *Metrics) *Service {
	def := DefaultConfig()
	if cfg.CommandBuffer <= 0 {
		cfg.CommandBuffer = def.CommandBuffer
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = def.EventBuffer
	}
	if cfg.InitialCapacity <= 0 {
		cfg.InitialCapacity = def.InitialCapacity
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	s := &Service{
		cfg:            cfg,
		logger:         logger,
		metrics:        metrics,
		deals:          view.NewAccumulator(cfg.InitialCapacity),
		cmdCh:          make(chan command, cfg.CommandBuffer),
		arrived:        make(chan struct{}, 1),
		jobCh:          make(chan job, 1),
		resultCh:       make(chan result, 1),
		externalEvents: make(chan Event, cfg.EventBuffer),
		window:         view.NewWindow(cfg.Window),
		target:         cfg.InitialSort,
		published:      cfg.InitialSort,
		resetPending:   true,
		targetSeq:      1,
		closed:         make(chan struct{}),
	}
	s.current.Store(view.NewPage(s.window, cfg.InitialSort, 0, false))

	s.wg.Add(1)
	go s.runLoop()

	s.wg.Add(1)
	go s.runSortWorker()

	return s
}

func (s *Service) runLoop() {
	defer s.wg.Done()
	defer close(s.externalEvents)

	s.schedule()

	for {
		select {
		case <-s.closed:
			return
		case <-s.arrived:
			if s.cfg.ResortOnBatch {
				s.schedule()
			}
		case cmd := <-s.cmdCh:
			s.processCommand(cmd)
		case res := <-s.resultCh:
			s.applyResult(res)
		}
	}
}

func (s *Service) processCommand(cmd command) {
	switch cmd.typ {
	case cmdSort:
		s.target = cmd.state
		s.targetSeq = s.issued + 1
		s.resetPending = true
		s.growPending = false
		s.logger.Info("sort requested", zap.Stringer("state", cmd.state))
		s.schedule()

	case cmdScroll:
		s.handleScroll(cmd.scroll)

	case cmdLoaded:
		s.loaded = true
		s.logger.Info("initial load complete", zap.Int("deals", s.deals.Len()))
		s.publish(EventInitialLoad)
	}
}

func (s *Service) handleScroll(req ScrollRequest) {
	if req.Generation != s.generation || req.Rows != s.window.Len() || s.resetPending {
		s.metrics.ScrollDiscarded.Inc()
		s.logger.Debug("scroll request discarded",
			zap.Uint64("generation", req.Generation),
			zap.Uint64("current_generation", s.generation),
			zap.Int("rows", req.Rows),
			zap.Int("current_rows", s.window.Len()))
		return
	}
	if req.Fraction <= s.window.Threshold() {
		return
	}

	// New deals are folded in before growing so the added page is current.
	if !s.cfg.ResortOnBatch && s.deals.Len() > s.sortedFrom {
		s.growPending = true
		s.schedule()
		return
	}

	if s.window.Grow(req.Fraction) {
		s.publish(EventWindowGrown)
	}
}

// schedule hands a sort job to the worker. At most one job is outstanding;
// requests made meanwhile are folded into a single rerun.
func (s *Service) schedule() {
	if s.running {
		s.rerun = true
		return
	}

	s.issued++
	s.running = true
	s.rerun = false
	s.jobCh <- job{seq: s.issued, state: s.target}
}

func (s *Service) applyResult(res result) {
	s.running = false

	if res.seq < s.targetSeq {
		s.metrics.Resorts.WithLabelValues(outcomeDiscarded).Inc()
		s.logger.Debug("superseded resort discarded",
			zap.Uint64("seq", res.seq),
			zap.Stringer("state", res.state))
	} else {
		s.sortedFrom = res.source
		kind := EventWindowRefreshed

		if s.resetPending {
			s.generation++
			s.published = res.state
			s.resetPending = false
			s.window.Reset(res.sorted)
			kind = EventWindowReset
		} else {
			s.window.Rebase(res.sorted)
			if s.growPending && s.window.Grow(1) {
				kind = EventWindowGrown
			}
		}
		s.growPending = false

		s.metrics.Resorts.WithLabelValues(outcomePublished).Inc()
		s.logger.Debug("resort published",
			zap.Stringer("state", res.state),
			zap.Stringer("event", kind),
			zap.Int("deals", len(res.sorted)),
			zap.Int("rows", s.window.Len()),
			zap.Duration("took", res.took))
		s.publish(kind)
	}

	stale := s.cfg.ResortOnBatch && s.deals.Len() > s.sortedFrom
	if s.rerun || stale {
		s.schedule()
	}
}

func (s *Service) publish(kind EventKind) {
	page := view.NewPage(s.window, s.published, s.generation, s.loaded)
	s.current.Store(page)
	s.metrics.WindowRows.Set(float64(page.Rows()))

	ev := Event{Kind: kind, Page: page}
	if s.cfg.DropEvents {
		select {
		case s.externalEvents <- ev:
		default:
			if s.droppedEvents.Add(1)%100 == 1 {
				s.logger.Warn("window events dropped", zap.Int64("dropped", s.droppedEvents.Load()))
			}
		}
		return
	}

	select {
	case s.externalEvents <- ev:
	case <-s.closed:
	}
}

func (s *Service) runSortWorker() {
	defer s.wg.Done()

	for {
		select {
		case <-s.closed:
			return
		case j := <-s.jobCh:
			snap := s.deals.Snapshot()
			start := time.Now()
			sorted := deal.Sort(snap, j.state)
			took := time.Since(start)
			s.metrics.SortDuration.Observe(took.Seconds())

			select {
			case s.resultCh <- result{seq: j.seq, state: j.state, sorted: sorted, source: len(snap), took: took}:
			case <-s.closed:
				return
			}
		}
	}
}

// DealsReceived appends a batch in delivery order. It never blocks on the
// coordination goroutine.
func (s *Service) DealsReceived(batch []deal.Deal) {
	if len(batch) == 0 {
		return
	}
	select {
	case <-s.closed:
		return
	default:
	}

	s.deals.Append(batch)
	s.metrics.DealsReceived.Add(float64(len(batch)))

	select {
	case s.arrived <- struct{}{}:
	default:
	}
}

// InitialLoadComplete records that the feed delivered its history.
func (s *Service) InitialLoadComplete(ctx context.Context) error {
	return s.send(ctx, command{typ: cmdLoaded})
}

// RequestSort switches the active sort state. The most recent request wins;
// results of earlier requests still in flight are discarded.
func (s *Service) RequestSort(ctx context.Context, key deal.SortKey, descending bool) error {
	return s.send(ctx, command{typ: cmdSort, state: deal.SortState{Key: key, Descending: descending}})
}

// ScrollChanged reports the scroll position of the page on screen and grows
// the window when it is past the threshold.
func (s *Service) ScrollChanged(ctx context.Context, req ScrollRequest) error {
	return s.send(ctx, command{typ: cmdScroll, scroll: req})
}

func (s *Service) send(ctx context.Context, cmd command) error {
	select {
	case <-s.closed:
		return ErrClosed
	default:
	}

	select {
	case <-s.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	case s.cmdCh <- cmd:
		return nil
	}
}

// Current returns the most recently published page.
func (s *Service) Current() *view.Page {
	return s.current.Load()
}

// Accumulated returns the number of deals received so far.
func (s *Service) Accumulated() int {
	return s.deals.Len()
}

// Events returns the window events channel for subscribers.
func (s *Service) Events() <-chan Event {
	return s.externalEvents
}

// DroppedEvents returns the count of dropped window events.
func (s *Service) DroppedEvents() int64 {
	return s.droppedEvents.Load()
}

// Close shuts down the service and waits for goroutines to finish.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
	s.wg.Wait()
}
