package viewer

import "github.com/zappabad/dealsviewer/internal/deal/service"

// Config holds configuration for the viewer.
type Config struct {
	// Service is the configuration for the deal service.
	Service service.Config
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Service: service.DefaultConfig(),
	}
}
