// Package harness drives a shardrw.Lock with concurrent readers and writers
// for a bounded time and checks, inside every critical section, that the
// lock actually excluded what it promised to exclude.
package harness

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/llxisdsh/shardrw"
	"golang.org/x/sync/errgroup"
)

// writerUnit is what a writer adds to the shared activity counter; a reader
// adds 1. Any value other than n (n readers) or writerUnit (one writer)
// observed inside a critical section is an exclusion failure.
const writerUnit = 10000

var (
	ErrInvalidConfig = errors.New("harness: invalid config")
	ErrExclusion     = errors.New("harness: mutual exclusion violated")
	ErrCounter       = errors.New("harness: reader counter out of range")
	ErrNotIdle       = errors.New("harness: lock not idle after run")
)

// Config describes one run.
type Config struct {
	Readers      int                // reader goroutines, ids 0..Readers-1
	Writers      int                // writer goroutines
	Duration     time.Duration      // how long workers keep acquiring
	Shards       int                // reader counters; 0 means shardrw.DefaultShards
	Spin         shardrw.SpinPolicy // waiting strategy of the lock
	CriticalWork int                // empty loop iterations inside each critical section
}

// Validate reports the first problem with c, wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	switch {
	case c.Readers < 0:
		return fmt.Errorf("%w: negative readers %d", ErrInvalidConfig, c.Readers)
	case c.Writers < 0:
		return fmt.Errorf("%w: negative writers %d", ErrInvalidConfig, c.Writers)
	case c.Readers+c.Writers == 0:
		return fmt.Errorf("%w: no workers", ErrInvalidConfig)
	case c.Readers+c.Writers >= writerUnit:
		return fmt.Errorf("%w: at most %d workers", ErrInvalidConfig, writerUnit-1)
	case c.Duration <= 0:
		return fmt.Errorf("%w: duration must be positive", ErrInvalidConfig)
	case c.Shards < 0:
		return fmt.Errorf("%w: negative shards %d", ErrInvalidConfig, c.Shards)
	case c.CriticalWork < 0:
		return fmt.Errorf("%w: negative critical work %d", ErrInvalidConfig, c.CriticalWork)
	}
	return nil
}

// Result summarizes a successful run.
type Result struct {
	Reads   int64
	Writes  int64
	Shards  int
	Elapsed time.Duration
}

func (r Result) String() string {
	secs := r.Elapsed.Seconds()
	if secs == 0 {
		secs = 1
	}
	return fmt.Sprintf("shards=%d reads=%d (%.0f/s) writes=%d (%.0f/s) elapsed=%v",
		r.Shards, r.Reads, float64(r.Reads)/secs, r.Writes, float64(r.Writes)/secs, r.Elapsed)
}

// Run starts the configured workers on a fresh lock and waits until
// cfg.Duration elapses, ctx is cancelled, or a worker detects a violation.
// Cancellation is only observed between critical sections; a worker already
// spinning inside RLock or Lock finishes acquiring first.
func Run(ctx context.Context, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	lock := shardrw.New(shardrw.WithShards(cfg.Shards), shardrw.WithSpin(cfg.Spin))
	var (
		activity      atomic.Int32
		reads, writes atomic.Int64
	)

	g, ctx := errgroup.WithContext(ctx)
	start := time.Now()
	for i := range cfg.Readers {
		id := uint(i)
		shard := shardrw.ShardOf(id, lock.Shards())
		g.Go(func() error {
			for ctx.Err() == nil {
				lock.RLock(id)
				n := activity.Add(1)
				c := lock.ShardReaders(shard)
				cerr := checkCounters(lock)
				work(cfg.CriticalWork)
				activity.Add(-1)
				lock.RUnlock(id)
				if n < 1 || n >= writerUnit {
					return fmt.Errorf("%w: reader %d saw activity %d", ErrExclusion, id, n)
				}
				if c < 1 {
					return fmt.Errorf("%w: reader %d holds shard %d at %d", ErrCounter, id, shard, c)
				}
				if cerr != nil {
					return cerr
				}
				reads.Add(1)
			}
			return nil
		})
	}
	for i := range cfg.Writers {
		g.Go(func() error {
			for ctx.Err() == nil {
				lock.Lock()
				n := activity.Add(writerUnit)
				work(cfg.CriticalWork)
				activity.Add(-writerUnit)
				lock.Unlock()
				if n != writerUnit {
					return fmt.Errorf("%w: writer %d saw activity %d", ErrExclusion, i, n)
				}
				writes.Add(1)
			}
			return nil
		})
	}
	err := g.Wait()
	res := Result{
		Reads:   reads.Load(),
		Writes:  writes.Load(),
		Shards:  lock.Shards(),
		Elapsed: time.Since(start),
	}
	if err != nil {
		return res, err
	}
	for s := range lock.Shards() {
		if c := lock.ShardReaders(s); c != 0 {
			return res, fmt.Errorf("%w: shard %d at %d", ErrNotIdle, s, c)
		}
	}
	if lock.Writing() {
		return res, fmt.Errorf("%w: writer flag set", ErrNotIdle)
	}
	return res, nil
}

// checkCounters reports the first shard whose counter is negative. Counters
// are read one at a time, which is enough: a negative value never becomes
// legitimate, however the reads interleave with other goroutines.
func checkCounters(l *shardrw.Lock) error {
	for s := range l.Shards() {
		if c := l.ShardReaders(s); c < 0 {
			return fmt.Errorf("%w: shard %d at %d", ErrCounter, s, c)
		}
	}
	return nil
}

func work(n int) {
	for i := 0; i < n; i++ {
	}
}
