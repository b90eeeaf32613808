package kafka

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/zappabad/dealsviewer/internal/deal"
	"github.com/zappabad/dealsviewer/internal/feed"
)

// Writer abstracts the topic producer.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewWriter creates a synchronous writer for cfg.
func NewWriter(cfg Config) *kafka.Writer {
	cfg = cfg.withDefaults()
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequireOne,
	}
}

// orderingKey routes every envelope to one partition so consumers see
// batches in publish order.
var orderingKey = []byte("deals")

// Publisher writes deal envelopes to a topic.
type Publisher struct {
	writer Writer
}

// NewPublisher creates a Publisher that owns writer.
func NewPublisher(writer Writer) *Publisher {
	return &Publisher{writer: writer}
}

// PublishBatch writes batch as a single envelope.
func (p *Publisher) PublishBatch(ctx context.Context, batch []deal.Deal) error {
	return p.write(ctx, feed.BatchEnvelope(batch))
}

// PublishLoaded writes the loaded marker.
func (p *Publisher) PublishLoaded(ctx context.Context) error {
	return p.write(ctx, feed.LoadedEnvelope())
}

func (p *Publisher) write(ctx context.Context, env feed.Envelope) error {
	value, err := feed.Encode(env)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: orderingKey, Value: value}); err != nil {
		return fmt.Errorf("write %s envelope: %w", env.Type, err)
	}
	return nil
}

// Close closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
