package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zappabad/dealsviewer/internal/deal/service"
	"github.com/zappabad/dealsviewer/internal/feed"
	"github.com/zappabad/dealsviewer/internal/feed/kafka"
	"github.com/zappabad/dealsviewer/internal/feed/simulator"
	"github.com/zappabad/dealsviewer/internal/feed/websocket"
	"github.com/zappabad/dealsviewer/internal/logging"
	"github.com/zappabad/dealsviewer/internal/viewer"
	"github.com/zappabad/dealsviewer/pkg/config"
	"github.com/zappabad/dealsviewer/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running dealsviewer: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	// stdout belongs to the TUI
	logCfg := cfg.Logging()
	if logCfg.File == "" {
		logCfg.File = "dealsviewer.log"
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics := service.NewMetrics(reg)

	src, err := newSource(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	v := viewer.New(viewer.Config{Service: cfg.DealService()}, src, logger, metrics)
	defer v.Close()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			logger.Info("metrics server started", zap.String("addr", cfg.Metrics.Addr))
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}

	v.Start(gctx)

	p := tea.NewProgram(tui.NewModel(v.Deals), tea.WithAltScreen(), tea.WithContext(gctx))

	g.Go(func() error {
		select {
		case <-v.Done():
			p.Send(tui.FeedStoppedMsg{Err: v.Err()})
		case <-gctx.Done():
		}
		return nil
	})

	g.Go(func() error {
		defer cancel()
		_, err := p.Run()
		if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("tui: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func newSource(cfg *config.Config, logger *zap.Logger) (feed.Source, error) {
	switch cfg.Feed.Source {
	case config.SourceSimulator:
		return simulator.New(cfg.Simulator(), logger.Named("simulator")), nil
	case config.SourceWebsocket:
		return websocket.NewClient(cfg.WebsocketClient(), logger.Named("feed")), nil
	case config.SourceKafka:
		return kafka.NewSource(kafka.NewReader(cfg.Kafka()), logger.Named("kafka")), nil
	default:
		return nil, fmt.Errorf("unknown feed source %q", cfg.Feed.Source)
	}
}
