package engine

import (
	"math"

	"github.com/justyntemme/oneshot/pkg/debug"
	"github.com/justyntemme/oneshot/pkg/sample"
)

// VoiceState is the lifecycle state of the playback voice.
type VoiceState int

const (
	// StateIdle means the voice is silent and waiting for a trigger.
	StateIdle VoiceState = iota
	// StateActive means the voice is reading through the sample store.
	StateActive
	// StateReleasing means the voice is fading out over the tail window.
	StateReleasing
	// StateFinished is transient; the engine collapses it to Idle at the
	// end of the block in which the voice stopped.
	StateFinished
)

// String returns the state name.
func (s VoiceState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateActive:
		return "Active"
	case StateReleasing:
		return "Releasing"
	case StateFinished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// minRate is the floor applied to the playback rate. A non-positive or
// non-finite rate would stall or reverse the cursor, so it clamps here
// instead.
const minRate = 1e-6

// Voice is the single monophonic playback cursor. It owns no audio data,
// only a fractional read position into the sample store. All methods run on
// the audio thread.
type Voice struct {
	store *sample.Store

	state    VoiceState
	position float64 // fractional frame index, [0, NumFrames) while Active
	rate     float64 // frames advanced per output sample
	velocity float64
	loop     bool

	releaseTotal int // fade window in output samples
	releaseLeft  int
	releaseGain  float64
	releaseStep  float64
}

// SetStore points the voice at a sample store. The cursor is only valid for
// the buffer it was started on, so this is called with the voice idle.
func (v *Voice) SetStore(s *sample.Store) {
	v.store = s
}

// SetLoop enables wrapping at end-of-buffer instead of stopping.
func (v *Voice) SetLoop(loop bool) {
	v.loop = loop
}

// SetReleaseSamples sets the tail fade window. Zero disables the fade and
// makes stops immediate.
func (v *Voice) SetReleaseSamples(n int) {
	if n < 0 {
		n = 0
	}
	v.releaseTotal = n
}

// ReleaseSamples returns the configured tail fade window.
func (v *Voice) ReleaseSamples() int {
	return v.releaseTotal
}

// SetRate sets the per-sample cursor advance. Non-finite or non-positive
// values clamp to a minimum positive epsilon.
func (v *Voice) SetRate(rate float64) {
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate <= 0 {
		debug.AssertFinite(rate, "playback rate")
		debug.Assert(rate > 0, "playback rate must be positive")
		rate = minRate
	}
	v.rate = rate
}

// Rate returns the current per-sample cursor advance.
func (v *Voice) Rate() float64 {
	return v.rate
}

// Trigger starts playback from startFrame with the given velocity scale.
// Retriggering while Active or Releasing restarts instantly; the previous
// pass is discarded, not crossfaded.
func (v *Voice) Trigger(startFrame, velocity float64) {
	if v.store == nil {
		return
	}
	n := float64(v.store.NumFrames())
	if startFrame < 0 || math.IsNaN(startFrame) {
		startFrame = 0
	} else if startFrame >= n {
		startFrame = 0
	}
	if velocity <= 0 || velocity > 1 || math.IsNaN(velocity) {
		velocity = 1
	}
	v.state = StateActive
	v.position = startFrame
	v.velocity = velocity
	v.releaseGain = 1
	v.releaseLeft = 0
}

// Release begins the tail fade. With no fade window configured the voice
// stops at the next state collapse.
func (v *Voice) Release() {
	if v.state != StateActive {
		return
	}
	v.beginRelease()
}

func (v *Voice) beginRelease() {
	if v.releaseTotal <= 0 {
		v.state = StateFinished
		return
	}
	v.state = StateReleasing
	v.releaseLeft = v.releaseTotal
	v.releaseGain = 1
	v.releaseStep = 1 / float64(v.releaseTotal)
}

// NextFrame renders one stereo frame and advances the cursor. Idle and
// Finished voices emit silence.
func (v *Voice) NextFrame() (left, right float32) {
	if v.state != StateActive && v.state != StateReleasing {
		return 0, 0
	}
	if v.state == StateActive {
		debug.AssertInRange(v.position, 0, float64(v.store.NumFrames()), "voice position")
	}

	left = v.store.FrameAt(v.position, 0)
	right = v.store.FrameAt(v.position, 1)

	g := float32(v.velocity)
	if v.state == StateReleasing {
		g *= float32(v.releaseGain)
		v.releaseGain -= v.releaseStep
		v.releaseLeft--
		if v.releaseLeft <= 0 || v.releaseGain <= 0 {
			v.state = StateFinished
		}
	}
	left *= g
	right *= g

	v.position += v.rate
	if n := float64(v.store.NumFrames()); v.position >= n && v.state == StateActive {
		if v.loop {
			v.position -= n
			if v.position >= n || v.position < 0 {
				v.position = 0
			}
		} else if v.releaseTotal > 0 {
			// End of buffer with a fade configured: the release window
			// still runs so the tail is never truncated mid-fade.
			v.beginRelease()
		} else {
			v.state = StateFinished
		}
	}
	return left, right
}

// CollapseFinished folds the transient Finished state into Idle. The engine
// calls this once at the end of every block.
func (v *Voice) CollapseFinished() {
	if v.state == StateFinished {
		v.state = StateIdle
		v.position = 0
	}
}

// Reset forces the voice to Idle immediately.
func (v *Voice) Reset() {
	v.state = StateIdle
	v.position = 0
	v.releaseGain = 1
	v.releaseLeft = 0
}

// State returns the current lifecycle state.
func (v *Voice) State() VoiceState {
	return v.state
}

// Position returns the fractional read position.
func (v *Voice) Position() float64 {
	return v.position
}

// Active reports whether the voice is producing (or about to produce) audio.
func (v *Voice) Active() bool {
	return v.state != StateIdle
}
