package simulator

import "time"

// Config holds configuration for the deal simulator.
type Config struct {
	// Instruments are the names deals are generated for.
	Instruments []string
	// InitialDeals is the size of the history delivered before the loaded signal.
	InitialDeals int
	// BatchSize is the number of deals per delivered batch.
	BatchSize int
	// TickInterval is the interval between live batches.
	TickInterval time.Duration
	// Seed seeds the generator. Zero seeds from the clock.
	Seed int64
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Instruments:  []string{"AAPL", "GOOGL", "MSFT", "AMZN", "TSLA", "NVDA", "META"},
		InitialDeals: 1000,
		BatchSize:    100,
		TickInterval: time.Second,
	}
}
