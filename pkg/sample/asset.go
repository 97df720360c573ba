package sample

import (
	"bytes"
	_ "embed"
	"sync"
)

// The built-in asset ships inside the binary so every plugin format loads the
// same sound without touching the filesystem.
//
//go:embed assets/impact.wav
var defaultAsset []byte

var (
	defaultOnce  sync.Once
	defaultStore *Store
	defaultErr   error
)

// Default returns the embedded build-time asset, decoded once and shared
// read-only across all plugin instances.
func Default() (*Store, error) {
	defaultOnce.Do(func() {
		defaultStore, defaultErr = decodeWAV(bytes.NewReader(defaultAsset))
	})
	return defaultStore, defaultErr
}
