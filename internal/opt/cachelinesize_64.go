//go:build shardrw_cachelinesize_64

package opt

// CacheLineSize_ is pinned to 64 bytes.
// Use: go build -tags=shardrw_cachelinesize_64
const CacheLineSize_ uintptr = 64
