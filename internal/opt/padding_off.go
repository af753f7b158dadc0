//go:build shardrw_disable_padding

package opt

import "sync/atomic"

const Padding_ = false

// ReaderStripe_ is one reader counter of a sharded lock.
// Padding is force-disabled via the shardrw_disable_padding build tag, which
// packs all stripes into as few cache lines as possible. Useful to measure
// how much of the lock's read scalability comes from the padding alone.
// Use: go build -tags=shardrw_disable_padding
type ReaderStripe_ struct {
	C atomic.Int32 // Readers of this shard, accessed atomically
}
