//go:build !shardrw_disable_padding

package opt

import (
	"sync/atomic"
	"unsafe"
)

const Padding_ = true

// ReaderStripe_ is one reader counter of a sharded lock, padded to a full
// cache line so that readers of different shards never write the same line.
type ReaderStripe_ struct {
	C atomic.Int32 // Readers of this shard, accessed atomically
	_ [(CacheLineSize_ - unsafe.Sizeof(atomic.Int32{})%CacheLineSize_) % CacheLineSize_]byte
}
