package harness

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/llxisdsh/shardrw"
	"github.com/llxisdsh/shardrw/internal/opt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runFor() time.Duration {
	if testing.Short() || opt.Race_ {
		return 50 * time.Millisecond
	}
	return 200 * time.Millisecond
}

func TestConfigValidate(t *testing.T) {
	valid := Config{Readers: 4, Writers: 1, Duration: time.Millisecond}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative readers", func(c *Config) { c.Readers = -1 }},
		{"negative writers", func(c *Config) { c.Writers = -1 }},
		{"no workers", func(c *Config) { c.Readers, c.Writers = 0, 0 }},
		{"too many workers", func(c *Config) { c.Readers = writerUnit }},
		{"zero duration", func(c *Config) { c.Duration = 0 }},
		{"negative shards", func(c *Config) { c.Shards = -2 }},
		{"negative work", func(c *Config) { c.CriticalWork = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			assert.ErrorIs(t, c.Validate(), ErrInvalidConfig)
		})
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	_, err := Run(context.Background(), Config{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

// Readers hammer the lock while writers repeatedly acquire and release it.
// With a bounded reader population every writer must keep making progress.
func TestRunStress(t *testing.T) {
	readers := runtime.GOMAXPROCS(0)
	for _, spin := range []shardrw.SpinPolicy{shardrw.SpinBusy, shardrw.SpinYield, shardrw.SpinBackoff} {
		t.Run(spin.String(), func(t *testing.T) {
			res, err := Run(context.Background(), Config{
				Readers:      readers,
				Writers:      2,
				Duration:     runFor(),
				Spin:         spin,
				CriticalWork: 50,
			})
			require.NoError(t, err)
			assert.Equal(t, shardrw.DefaultShards, res.Shards)
			assert.Positive(t, res.Reads)
			assert.Positive(t, res.Writes, "writer starved under bounded reader load")
		})
	}
}

func TestRunShardCounts(t *testing.T) {
	for _, shards := range []int{1, 3, 16, 64} {
		res, err := Run(context.Background(), Config{
			Readers:  8,
			Writers:  1,
			Duration: runFor() / 2,
			Shards:   shards,
			Spin:     shardrw.SpinYield,
		})
		require.NoError(t, err, "shards=%d", shards)
		assert.Equal(t, shards, res.Shards)
	}
}

func TestRunReadersOnly(t *testing.T) {
	res, err := Run(context.Background(), Config{Readers: 4, Duration: runFor() / 2})
	require.NoError(t, err)
	assert.Positive(t, res.Reads)
	assert.Zero(t, res.Writes)
}

func TestRunWritersOnly(t *testing.T) {
	res, err := Run(context.Background(), Config{Writers: 3, Duration: runFor() / 2, Spin: shardrw.SpinYield})
	require.NoError(t, err)
	assert.Zero(t, res.Reads)
	assert.Positive(t, res.Writes)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	res, err := Run(ctx, Config{Readers: 2, Writers: 1, Duration: time.Hour})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Minute)
	assert.Zero(t, res.Reads+res.Writes)
}

func TestResultString(t *testing.T) {
	r := Result{Reads: 10, Writes: 2, Shards: 16, Elapsed: time.Second}
	assert.Equal(t, "shards=16 reads=10 (10/s) writes=2 (2/s) elapsed=1s", r.String())
}

func TestCheckCounters(t *testing.T) {
	l := shardrw.New(shardrw.WithShards(4))
	l.RLock(1)
	require.NoError(t, checkCounters(l))
	l.RUnlock(1)
	require.NoError(t, checkCounters(l))

	// A stray release drives shard 2 below zero.
	require.Panics(t, func() { l.RUnlock(6) })
	err := checkCounters(l)
	assert.ErrorIs(t, err, ErrCounter)
	assert.Contains(t, err.Error(), "shard 2 at -1")
}
