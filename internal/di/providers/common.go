package providers

import "time"

const (
	// shutdownTimeout is the maximum time to wait for graceful shutdown of services.
	shutdownTimeout = 30 * time.Second
)

// Version is reported by /health and written into snapshot metadata.
// Overridden at build time with -ldflags.
var Version = "dev"
