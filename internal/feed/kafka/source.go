// Package kafka consumes and produces deal envelopes on a Kafka topic.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/zappabad/dealsviewer/internal/feed"
)

// Reader abstracts the topic consumer.
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// NewReader creates a consumer group reader for cfg.
func NewReader(cfg Config) *kafka.Reader {
	return kafka.NewReader(readerConfig(cfg))
}

// readerConfig joins a group of its own, so every session starts without
// committed offsets and replays the topic from the first message.
func readerConfig(cfg Config) kafka.ReaderConfig {
	cfg = cfg.withDefaults()
	return kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID + "-" + uuid.NewString(),
		Topic:       cfg.Topic,
		StartOffset: kafka.FirstOffset,
	}
}

// Source is a feed.Source reading envelopes from a topic.
type Source struct {
	reader Reader
	logger *zap.Logger
}

var _ feed.Source = (*Source)(nil)

// NewSource creates a Source. The Source owns reader and closes it when
// Subscribe returns.
func NewSource(reader Reader, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{reader: reader, logger: logger}
}

// Subscribe consumes the topic until ctx is canceled or the reader fails.
// Undecodable messages are logged and skipped.
func (s *Source) Subscribe(ctx context.Context, onBatch feed.BatchFunc, onLoaded feed.LoadedFunc) error {
	defer s.reader.Close()

	s.logger.Info("kafka feed started")
	for {
		m, err := s.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				s.logger.Info("kafka feed stopped")
				return nil
			}
			return fmt.Errorf("read deals topic: %w", err)
		}

		if err := feed.Dispatch(m.Value, onBatch, onLoaded); err != nil {
			s.logger.Error("kafka message skipped",
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
				zap.Error(err))
		}
	}
}
