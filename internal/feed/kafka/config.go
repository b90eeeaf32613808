package kafka

import "time"

// Config holds configuration for the Kafka feed.
type Config struct {
	// Brokers are the bootstrap broker addresses.
	Brokers []string
	// Topic carries deal envelopes, one per message.
	Topic string
	// GroupID prefixes the consumer group. Each reader appends a session
	// suffix, so history is replayed on every start.
	GroupID string
	// BatchTimeout bounds how long the publisher buffers messages.
	BatchTimeout time.Duration
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Brokers:      []string{"localhost:9092"},
		Topic:        "deals",
		GroupID:      "dealsviewer",
		BatchTimeout: 50 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if len(c.Brokers) == 0 {
		c.Brokers = def.Brokers
	}
	if c.Topic == "" {
		c.Topic = def.Topic
	}
	if c.GroupID == "" {
		c.GroupID = def.GroupID
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = def.BatchTimeout
	}
	return c
}
