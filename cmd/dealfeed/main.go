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

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zappabad/dealsviewer/internal/deal"
	"github.com/zappabad/dealsviewer/internal/feed"
	"github.com/zappabad/dealsviewer/internal/feed/kafka"
	"github.com/zappabad/dealsviewer/internal/feed/simulator"
	"github.com/zappabad/dealsviewer/internal/feed/websocket"
	"github.com/zappabad/dealsviewer/internal/logging"
	"github.com/zappabad/dealsviewer/pkg/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running dealfeed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	// the feed server logs to stderr unless LOG_FILE is set explicitly
	logCfg := cfg.Logging()
	logCfg.File = os.Getenv("LOG_FILE")
	logger, err := logging.New(logCfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	var src feed.Source = simulator.New(cfg.Simulator(), logger.Named("simulator"))
	if cfg.DealFeed.PublishKafka {
		pub := kafka.NewPublisher(kafka.NewWriter(cfg.Kafka()))
		defer pub.Close()
		src = publishTo(src, pub, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	feedServer := websocket.NewServer(websocket.DefaultServerConfig(), logger.Named("server"))
	defer feedServer.Close()

	mux := http.NewServeMux()
	mux.Handle(cfg.DealFeed.Path, feedServer)
	srv := &http.Server{Addr: cfg.DealFeed.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return feedServer.Run(gctx, src)
	})
	g.Go(func() error {
		logger.Info("Server Started", zap.String("addr", cfg.DealFeed.Addr), zap.String("path", cfg.DealFeed.Path))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("feed server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		feedServer.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("Shutdown Complete", zap.Int("deals", feedServer.Delivered()))
	return err
}

// publishTo mirrors every envelope of src onto a Kafka topic.
func publishTo(src feed.Source, pub *kafka.Publisher, logger *zap.Logger) feed.Source {
	return feed.SourceFunc(func(ctx context.Context, onBatch feed.BatchFunc, onLoaded feed.LoadedFunc) error {
		return src.Subscribe(ctx,
			func(batch []deal.Deal) {
				if err := pub.PublishBatch(ctx, batch); err != nil {
					logger.Error("kafka publish failed", zap.Error(err))
				}
				onBatch(batch)
			},
			func() {
				if err := pub.PublishLoaded(ctx); err != nil {
					logger.Error("kafka publish failed", zap.Error(err))
				}
				if onLoaded != nil {
					onLoaded()
				}
			})
	})
}
