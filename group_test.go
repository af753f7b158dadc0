package shardrw

import (
	"sync"
	"testing"
	"time"

	"github.com/llxisdsh/shardrw/internal/opt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// skipRace skips tests that drive the pb map from several goroutines.
func skipRace(t *testing.T) {
	t.Helper()
	if opt.Race_ {
		t.Skip("pb.MapOf is not race-detector clean")
	}
}

func TestLockGroup_Basic(t *testing.T) {
	skipRace(t)
	var g LockGroup[string]
	const n = 100
	var wg sync.WaitGroup
	wg.Add(n)

	for i := range n {
		go func() {
			defer wg.Done()
			g.RLock("key", uint(i))
			time.Sleep(time.Microsecond)
			g.RUnlock("key", uint(i))
		}()
	}
	wg.Wait()

	g.Lock("key")
	done := make(chan struct{})
	go func() {
		g.RLock("key", 1) // Should spin
		close(done)
		g.RUnlock("key", 1)
	}()

	select {
	case <-done:
		t.Fatal("RLock acquired while Lock held")
	case <-time.After(blockWait):
	}
	g.Unlock("key")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RLock not acquired after Unlock")
	}
}

func TestLockGroup_KeysAreIndependent(t *testing.T) {
	skipRace(t)
	g := NewLockGroup[int]()
	g.Lock(1)
	done := make(chan struct{})
	go func() {
		g.Lock(2)
		g.Unlock(2)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Lock on another key blocked")
	}
	g.Unlock(1)
}

func TestLockGroup_RefCounting(t *testing.T) {
	var g LockGroup[int]

	g.RLock(1, 0)
	g.RLock(1, 5)
	v, ok := g.m.Load(1)
	require.True(t, ok, "entry should exist after RLock")
	assert.Equal(t, int64(2), v.mu.Readers())

	g.RUnlock(1, 0)
	_, ok = g.m.Load(1)
	require.True(t, ok, "entry should survive while a reader remains")

	g.RUnlock(1, 5)
	_, ok = g.m.Load(1)
	assert.False(t, ok, "entry should be deleted after the last release")

	g.Lock(1)
	g.Unlock(1)
	_, ok = g.m.Load(1)
	assert.False(t, ok)
}

func TestLockGroup_UnknownKey(t *testing.T) {
	var g LockGroup[string]
	assert.NotPanics(t, func() {
		g.Unlock("missing")
		g.RUnlock("missing", 3)
	})
}

func TestLockGroup_Options(t *testing.T) {
	g := NewLockGroup[string](WithShards(4), WithSpin(SpinYield))
	g.RLock("a", 6)
	v, ok := g.m.Load("a")
	require.True(t, ok)
	assert.Equal(t, 4, v.mu.Shards())
	assert.Equal(t, SpinYield, v.mu.spin)
	assert.Equal(t, int32(1), v.mu.ShardReaders(2))
	g.RUnlock("a", 6)
}

func TestLockGroup_Writers(t *testing.T) {
	skipRace(t)
	g := NewLockGroup[string](WithSpin(SpinYield))
	const n = 8
	iters := loops(500)
	counter := 0
	var wg sync.WaitGroup
	wg.Add(n)
	for range n {
		go func() {
			defer wg.Done()
			for range iters {
				g.Lock("counter")
				counter++
				g.Unlock("counter")
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, n*iters, counter)
	_, ok := g.m.Load("counter")
	assert.False(t, ok)
}
