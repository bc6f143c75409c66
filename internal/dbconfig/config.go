// Package dbconfig loads the handful of knobs the buffer pool and its
// CLI harness need: where the backing file lives, how big the pool is,
// how many shards to run, and at what level to log.
package dbconfig

import (
	"flag"
	"time"

	"github.com/Litinum/dbbufferpool/internal/storage/page"
)

// Config holds the runtime configuration for a buffer pool instance (or
// a sharded pool of them).
type Config struct {
	DataPath       string
	PoolSize       int
	NumInstances   int
	InitialPages   int
	SyncWrites     bool
	LogLevel       string
	MaxLoopFactor  int // Clock replacer: max sweeps before giving up.
	FlushInterval  time.Duration
}

// Default returns the configuration used when nothing else is specified.
func Default() Config {
	return Config{
		DataPath:      "dbbufferpool.dat",
		PoolSize:      1000, // ~3.9MB of page.Size frames
		NumInstances:  1,
		InitialPages:  16,
		SyncWrites:    false,
		LogLevel:      "info",
		MaxLoopFactor: 2,
		FlushInterval: 30 * time.Second,
	}
}

// RegisterFlags binds c's fields to flag.FlagSet fs, defaulting to
// whatever c currently holds (typically the result of Default()).
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.DataPath, "data", c.DataPath, "path to the backing page file")
	fs.IntVar(&c.PoolSize, "pool-size", c.PoolSize, "total number of frames across all instances")
	fs.IntVar(&c.NumInstances, "instances", c.NumInstances, "number of sharded buffer pool instances")
	fs.IntVar(&c.InitialPages, "initial-pages", c.InitialPages, "initial page count to preallocate on disk")
	fs.BoolVar(&c.SyncWrites, "sync", c.SyncWrites, "fsync the backing file on every write")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug|info|warn|error")
	fs.IntVar(&c.MaxLoopFactor, "clock-max-loop", c.MaxLoopFactor, "max clock sweeps (x pool size) before giving up")
}

// PerInstanceSizes splits c.PoolSize evenly across c.NumInstances,
// distributing any remainder one extra frame at a time to the first
// instances, so that the sizes always sum back to c.PoolSize.
func (c *Config) PerInstanceSizes() []int {
	n := c.NumInstances
	sizes := make([]int, n)
	base, rem := c.PoolSize/n, c.PoolSize%n
	for i := range sizes {
		sizes[i] = base
		if i < rem {
			sizes[i]++
		}
	}
	return sizes
}

// InitialFileSize returns the number of bytes the backing file should be
// preallocated to.
func (c *Config) InitialFileSize() int64 {
	return int64(c.InitialPages) * int64(page.Size)
}
