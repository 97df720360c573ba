// Package plug defines the narrow contract between the playback core and
// the format-specific host adapters (VST3, CLAP, standalone). Adapters
// translate host callbacks into this interface; the core never sees a host
// ABI directly.
package plug

import (
	"github.com/justyntemme/oneshot/pkg/param"
	"github.com/justyntemme/oneshot/pkg/process"
)

// Info contains plugin metadata reported to the host.
type Info struct {
	ID       string // unique identifier, e.g. "com.oneshot.player"
	Name     string
	Version  string
	Vendor   string
	Category string // e.g. "Instrument"
}

// UID derives a 16-byte identifier from the string ID for hosts that want a
// fixed-width class ID.
func (i Info) UID() [16]byte {
	var uid [16]byte
	id := []byte(i.ID)
	for j := 0; j < len(id); j++ {
		uid[j%16] ^= id[j]
	}
	return uid
}

// Processor is the host-facing surface of the playback engine. Initialize
// and SetActive run on the control thread; ProcessAudio runs on the
// real-time audio thread and must not allocate, lock, or block.
type Processor interface {
	// Initialize prepares the processor for a sample rate and the largest
	// block the host will request. Called before processing starts and
	// again whenever the sample rate changes.
	Initialize(sampleRate float64, maxBlockSize int32) error

	// ProcessAudio renders one block into the context's output buffers.
	ProcessAudio(ctx *process.Context)

	// GetParameters returns the automatable parameter registry.
	GetParameters() *param.Registry

	// SetActive starts or stops processing.
	SetActive(active bool) error

	// Reset forces the voice to idle and clears smoothing history.
	Reset()

	// VoiceActive reports whether tail audio is still pending after the
	// last processed block.
	VoiceActive() bool

	// GetLatencySamples returns the processing latency in samples.
	GetLatencySamples() int32

	// GetTailSamples returns how long the host should keep processing
	// after the last event so release fades are not truncated.
	GetTailSamples() int32
}
