//go:build !debug

package debug

// Assert is a no-op in release builds.
func Assert(cond bool, msg string) {}

// AssertFinite is a no-op in release builds.
func AssertFinite(v float64, name string) {}

// AssertInRange is a no-op in release builds.
func AssertInRange(v, lo, hi float64, name string) {}
