package shardrw

import (
	"github.com/llxisdsh/pb"
)

// LockGroup hands out sharded reader-writer locks on arbitrary keys.
//
// A key's Lock is created on first use and deleted once the last goroutine
// holding or waiting on it releases. Every lock of the group is configured
// with the options given to NewLockGroup; the zero LockGroup uses defaults.
//
// The key map is a pb.MapOf, which reads bucket pointers without atomics on
// TSO machines. Those reads are safe there but are reported by the race
// detector, so LockGroup is not race-detector clean.
//
// Usage:
//
//	g := NewLockGroup[string](WithShards(8))
//
//	// worker i
//	g.RLock("config", uint(i))
//	read(config)
//	g.RUnlock("config", uint(i))
//
//	// writer
//	g.Lock("config")
//	write(config)
//	g.Unlock("config")
type LockGroup[K comparable] struct {
	_       noCopy
	m       pb.MapOf[K, *groupEntry]
	options []func(*LockConfig)
}

type groupEntry struct {
	mu  Lock
	ref int32 // guarded by the map entry
}

// NewLockGroup returns a LockGroup whose per-key locks are built with options.
func NewLockGroup[K comparable](options ...func(*LockConfig)) *LockGroup[K] {
	return &LockGroup[K]{options: options}
}

// Lock acquires the write lock of k.
func (g *LockGroup[K]) Lock(k K) {
	g.acquire(k).Lock()
}

// Unlock releases the write lock of k. Unknown keys are ignored.
func (g *LockGroup[K]) Unlock(k K) {
	v, ok := g.m.Load(k)
	if !ok {
		return
	}
	v.mu.Unlock()
	g.release(k)
}

// RLock acquires the read lock of k for the reader identified by id.
func (g *LockGroup[K]) RLock(k K, id uint) {
	g.acquire(k).RLock(id)
}

// RUnlock releases the read lock of k taken by RLock(k, id). Unknown keys
// are ignored.
func (g *LockGroup[K]) RUnlock(k K, id uint) {
	v, ok := g.m.Load(k)
	if !ok {
		return
	}
	v.mu.RUnlock(id)
	g.release(k)
}

func (g *LockGroup[K]) acquire(k K) *Lock {
	v, _ := g.m.ProcessEntry(
		k,
		func(l *pb.EntryOf[K, *groupEntry]) (*pb.EntryOf[K, *groupEntry], *groupEntry, bool) {
			if l != nil {
				l.Value.ref++
				return l, l.Value, true
			}
			e := &groupEntry{ref: 1}
			e.mu.Init(g.options...)
			return &pb.EntryOf[K, *groupEntry]{Value: e}, e, false
		},
	)
	return &v.mu
}

func (g *LockGroup[K]) release(k K) {
	g.m.ProcessEntry(
		k,
		func(l *pb.EntryOf[K, *groupEntry]) (*pb.EntryOf[K, *groupEntry], *groupEntry, bool) {
			if l == nil {
				return nil, nil, false
			}
			l.Value.ref--
			if l.Value.ref <= 0 {
				return nil, nil, false
			}
			return l, l.Value, true
		},
	)
}
