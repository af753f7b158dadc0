// Package shardrw provides a busy-wait reader-writer lock whose reader count
// is split across independent, cache-line padded counters ("shards").
//
// Readers identify themselves with a small integer id, typically the index of
// the worker goroutine in a benchmark, and only ever touch the counter of
// shard id%N. Writers take a single flag with an atomic exchange and then
// drain: they rescan every counter until one full pass reads zero.
//
// Example usage:
//
//	l := shardrw.New() // 16 shards
//
//	// worker i
//	l.RLock(uint(i))
//	// ... read shared state ...
//	l.RUnlock(uint(i))
//
//	// writer
//	l.Lock()
//	// ... mutate shared state ...
//	l.Unlock()
//
// The lock never blocks in the kernel and never yields unless a SpinPolicy
// other than SpinBusy is configured. It gives no fairness guarantee: a writer
// waiting for readers to drain can, under a continuous stream of overlapping
// readers, spin indefinitely, and readers back off as soon as any writer sets
// the flag. It is not reentrant and has no upgrade or downgrade.
package shardrw

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/llxisdsh/shardrw/internal/opt"
)

// Lock is a busy-wait reader-writer lock with sharded reader counters.
//
// A Lock must be initialized with New or Init before use and must not be
// copied afterwards. It has no owner: any number of goroutines share it and
// every field is mutated with sync/atomic operations only, which are
// sequentially consistent in the Go memory model.
//
// The lock state is:
//   - writer: 0 when free, 1 from the moment a writer starts acquiring
//     until it calls Unlock.
//   - readers: one counter per shard, the number of readers of that shard
//     currently holding, or tentatively claiming, the read lock.
//
// The write lock is held once writer==1 and one full scan observed every
// counter at zero. Because the scan is not an atomic snapshot, a reader may
// increment a counter behind the scan; it will then see writer==1, back out,
// and never enter the critical section.
type Lock struct {
	_       noCopy
	_       [opt.CacheLineSize_]byte
	writer  atomic.Uint32
	_       [opt.CacheLineSize_ - unsafe.Sizeof(atomic.Uint32{})]byte
	readers []opt.ReaderStripe_
	spin    SpinPolicy
}

// New allocates and initializes a Lock.
func New(options ...func(*LockConfig)) *Lock {
	l := new(Lock)
	l.Init(options...)
	return l
}

// Init resets l to the unlocked state with every reader counter at zero.
//
// Init is not synchronized: it must complete before any goroutine calls a
// locking method on l, and must not run concurrently with one.
func (l *Lock) Init(options ...func(*LockConfig)) {
	cfg := defaultLockConfig()
	for _, o := range options {
		o(&cfg)
	}
	l.readers = make([]opt.ReaderStripe_, cfg.shards)
	l.spin = cfg.spin
	l.writer.Store(0)
}

// ShardOf maps a reader id onto one of shards counters. shards must be
// positive.
func ShardOf(id uint, shards int) int {
	return int(id % uint(shards))
}

// stripe panics with a division by zero if l was never initialized.
func (l *Lock) stripe(id uint) *atomic.Int32 {
	return &l.readers[id%uint(len(l.readers))].C
}

// RLock acquires the read lock for the reader identified by id.
//
// The reader optimistically counts itself in its shard and then checks the
// writer flag. If a writer is present it withdraws and spins, reading the
// flag only, until the writer is gone before trying again.
//
// The same id must be passed to the matching RUnlock. Ids need not be
// distinct; readers sharing a shard only contend on its counter.
func (l *Lock) RLock(id uint) {
	c := l.stripe(id)
	var spins int
	for {
		c.Add(1)
		if l.writer.Load() == 0 {
			return
		}
		c.Add(-1)
		for l.writer.Load() != 0 {
			l.spin.pause(&spins)
		}
	}
}

// TryRLock makes a single attempt to acquire the read lock for id and
// reports whether it succeeded.
func (l *Lock) TryRLock(id uint) bool {
	c := l.stripe(id)
	c.Add(1)
	if l.writer.Load() == 0 {
		return true
	}
	c.Add(-1)
	return false
}

// RUnlock releases the read lock acquired by RLock(id).
//
// A release without a matching acquisition is a caller error. It panics
// when the shard's counter goes negative. When another reader of the same
// shard holds the lock the stray release goes unnoticed and lets a writer
// in while that reader is still inside its critical section.
func (l *Lock) RUnlock(id uint) {
	if l.stripe(id).Add(-1) < 0 {
		panic("shardrw: RUnlock of unlocked Lock")
	}
}

// Lock acquires the write lock.
//
// It first wins the writer flag by atomic exchange, spinning on plain loads
// while another writer holds it, and then waits until a full pass over all
// reader counters reads zero. Setting the flag before draining turns new
// readers away, but the drain has no bound when readers keep overlapping.
func (l *Lock) Lock() {
	var spins int
	for l.writer.Swap(1) != 0 {
		for l.writer.Load() != 0 {
			l.spin.pause(&spins)
		}
	}
	spins = 0
	for l.readerExists() {
		l.spin.pause(&spins)
	}
}

// TryLock makes a single attempt to acquire the write lock and reports
// whether it succeeded. It fails if another writer holds the flag or if the
// one drain pass it performs sees a reader.
func (l *Lock) TryLock() bool {
	if l.writer.Swap(1) != 0 {
		return false
	}
	if l.readerExists() {
		l.writer.Store(0)
		return false
	}
	return true
}

// Unlock releases the write lock. Every write made while holding it is
// visible to the next goroutine that acquires l.
//
// It panics if the writer flag is not set. A stray Unlock while another
// goroutine holds the write lock cannot be detected and admits a second
// writer.
func (l *Lock) Unlock() {
	if l.writer.Swap(0) == 0 {
		panic("shardrw: Unlock of unlocked Lock")
	}
}

// readerExists scans every counter in order and stops at the first nonzero
// one. Negative counters count as readers, so a corrupted shard makes
// writers spin rather than admitting them early.
func (l *Lock) readerExists() bool {
	for i := range l.readers {
		if l.readers[i].C.Load() != 0 {
			return true
		}
	}
	return false
}

// RLocker returns a sync.Locker whose Lock and Unlock call RLock(id) and
// RUnlock(id).
func (l *Lock) RLocker(id uint) sync.Locker {
	return &rlocker{l: l, id: id}
}

type rlocker struct {
	l  *Lock
	id uint
}

func (r *rlocker) Lock()   { r.l.RLock(r.id) }
func (r *rlocker) Unlock() { r.l.RUnlock(r.id) }

// Shards returns the number of reader counters.
func (l *Lock) Shards() int {
	return len(l.readers)
}

// ShardReaders returns the current value of the counter of the given shard.
// The value includes readers that are about to back out because a writer
// is present.
func (l *Lock) ShardReaders(shard int) int32 {
	return l.readers[shard].C.Load()
}

// Readers returns the sum of all reader counters. Counters are read one at
// a time, so under concurrent use the result is not a snapshot.
func (l *Lock) Readers() int64 {
	var n int64
	for i := range l.readers {
		n += int64(l.readers[i].C.Load())
	}
	return n
}

// Writing reports whether the writer flag is set, i.e. a writer holds the
// lock or is draining readers.
func (l *Lock) Writing() bool {
	return l.writer.Load() != 0
}
