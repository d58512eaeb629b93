package coordinator

import (
	"log/slog"
	"time"
)

// Pool defaults
const (
	DefaultWorkers      = 12
	DefaultQueueTimeout = 3 * time.Second
)

// Config sizes the worker pool
type Config struct {
	// Workers is the number of concurrent workers
	Workers int

	// QueueTimeout is how long an idle worker waits for a project before it exits
	QueueTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		slog.Debug("Invalid worker count, using default", "workers", c.Workers, "default", DefaultWorkers)
		c.Workers = DefaultWorkers
	}
	if c.QueueTimeout <= 0 {
		c.QueueTimeout = DefaultQueueTimeout
	}
	return c
}
