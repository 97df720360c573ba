//go:build debug

package debug

import (
	"fmt"
	"math"
)

// Assertions fire only when building with the 'debug' tag. Release builds
// compile them to no-ops so the audio thread clamps silently instead of
// panicking inside the host's audio graph.

// Assert panics if cond is false.
func Assert(cond bool, msg string) {
	if !cond {
		panic("assertion failed: " + msg)
	}
}

// AssertFinite panics if v is NaN or infinite.
func AssertFinite(v float64, name string) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		panic(fmt.Sprintf("assertion failed: %s is not finite (%v)", name, v))
	}
}

// AssertInRange panics if v lies outside [lo, hi).
func AssertInRange(v, lo, hi float64, name string) {
	if v < lo || v >= hi {
		panic(fmt.Sprintf("assertion failed: %s=%v outside [%v, %v)", name, v, lo, hi))
	}
}
