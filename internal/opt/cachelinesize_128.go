//go:build shardrw_cachelinesize_128

package opt

// CacheLineSize_ is pinned to 128 bytes, the adjacent-line prefetch
// granularity on recent x86 and the line size on Apple silicon.
// Use: go build -tags=shardrw_cachelinesize_128
const CacheLineSize_ uintptr = 128
