//go:build race

package opt

// Race_ reports whether the binary was built with the race detector.
// Spinning under the detector is an order of magnitude slower, so tests
// scale their iteration counts down when it is set.
const Race_ = true
