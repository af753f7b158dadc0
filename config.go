package shardrw

// DefaultShards is the number of reader counters a Lock uses unless
// WithShards says otherwise.
const DefaultShards = 16

// LockConfig defines configurable options for Lock initialization.
type LockConfig struct {
	// shards is the number of independent reader counters.
	// More shards spread readers over more cache lines and make the
	// writer's drain scan longer.
	shards int

	// spin selects how waiting goroutines pause between polls.
	spin SpinPolicy
}

func defaultLockConfig() LockConfig {
	return LockConfig{shards: DefaultShards, spin: SpinBusy}
}

// WithShards configures the number of reader counters.
// If n is zero or negative, the value is ignored.
func WithShards(n int) func(*LockConfig) {
	return func(c *LockConfig) {
		if n > 0 {
			c.shards = n
		}
	}
}

// WithSpin configures how goroutines wait while the lock is unavailable.
// SpinBusy is the default; the other policies trade latency for CPU and are
// purely a waiting strategy, see SpinPolicy.
func WithSpin(p SpinPolicy) func(*LockConfig) {
	return func(c *LockConfig) {
		c.spin = p
	}
}
