// Command bufpoolctl is a debug harness for exercising a ParallelBufferPool
// against a real backing file: allocate (and unpin) a page, flush all
// shards, and print pool stats. It is not a wire protocol or a server — just the
// operator-facing CLI the teacher's cmd/arraydb played the same role for,
// rebuilt against this module's buffer pool instead of poking at a single
// Page.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Litinum/dbbufferpool/internal/dbconfig"
	"github.com/Litinum/dbbufferpool/internal/dblog"
	"github.com/Litinum/dbbufferpool/internal/storage/buffer"
	"github.com/Litinum/dbbufferpool/internal/storage/disk"
	"github.com/Litinum/dbbufferpool/internal/wal"
)

func main() {
	cfg := dbconfig.Default()
	var replacerName string
	fs := flag.NewFlagSet("bufpoolctl", flag.ExitOnError)
	cfg.RegisterFlags(fs)
	fs.StringVar(&replacerName, "replacer", "lru", "lru|clock")
	_ = fs.Parse(os.Args[1:])

	subcommand := fs.Arg(0)

	dblog.Init(dblog.Config{Level: cfg.LogLevel})
	log := dblog.L()

	pool, closers, err := buildPool(cfg, replacerName)
	if err != nil {
		log.Error("failed to build buffer pool", "err", err)
		os.Exit(1)
	}
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	switch subcommand {
	case "alloc":
		h, id, err := pool.New()
		if err != nil {
			log.Error("alloc failed", "err", err)
			os.Exit(1)
		}
		fmt.Printf("allocated page %d\n", id)
		h.Unpin(false)
	case "flush-all":
		if err := pool.FlushAll(); err != nil {
			log.Error("flush-all failed", "err", err)
			os.Exit(1)
		}
		fmt.Println("flushed all shards")
	case "stats":
		for i := 0; i < pool.NumShards(); i++ {
			fmt.Printf("shard %d: pool_size=%d\n", i, pool.Shard(i).PoolSize())
		}
	default:
		fmt.Println("usage: bufpoolctl [-data PATH] [-pool-size N] [-instances N] [-replacer lru|clock] <alloc|flush-all|stats>")
		os.Exit(2)
	}
}

func buildPool(cfg dbconfig.Config, replacerName string) (*buffer.ParallelBufferPool, []*disk.FileManager, error) {
	sizes := cfg.PerInstanceSizes()
	dms := make([]disk.Manager, len(sizes))
	closers := make([]*disk.FileManager, len(sizes))

	for i := range sizes {
		path := fmt.Sprintf("%s.%d", cfg.DataPath, i)
		fm, err := disk.NewFileManager(path, cfg.InitialPages, cfg.SyncWrites)
		if err != nil {
			return nil, nil, err
		}
		dms[i] = fm
		closers[i] = fm
	}

	newReplacer := func(poolSize int) buffer.Replacer {
		if replacerName == "clock" {
			return buffer.NewClockReplacerWithLoopFactor(poolSize, cfg.MaxLoopFactor)
		}
		return buffer.NewLRUReplacer(poolSize)
	}

	pool := buffer.NewParallelBufferPool(sizes, dms, wal.NoOpLogManager{}, newReplacer)
	return pool, closers, nil
}
