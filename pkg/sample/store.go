// Package sample provides the immutable PCM sample store backing the playback engine.
package sample

import (
	"fmt"
	"time"
)

// DecodeError indicates a malformed, empty, or otherwise unusable audio asset.
// Loading fails loudly before the audio thread ever runs.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sample decode: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("sample decode: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Store holds pre-decoded PCM audio as normalized float32 frames, one slice
// per channel. It is immutable after construction and safe to share read-only
// across any number of engine instances.
type Store struct {
	sampleRate int
	channels   int
	frames     [][]float32 // frames[ch][i], all channels equal length
}

// NewFromFrames builds a Store from already-decoded normalized frames, one
// slice per channel. The slices are owned by the Store afterwards and must
// not be mutated.
func NewFromFrames(sampleRate, channels int, frames [][]float32) (*Store, error) {
	return newStore(sampleRate, channels, frames)
}

// newStore validates decoded audio and wraps it in a Store.
func newStore(sampleRate, channels int, frames [][]float32) (*Store, error) {
	if sampleRate <= 0 {
		return nil, &DecodeError{Reason: fmt.Sprintf("invalid sample rate %d", sampleRate)}
	}
	if channels != 1 && channels != 2 {
		return nil, &DecodeError{Reason: fmt.Sprintf("unsupported channel count %d", channels)}
	}
	if len(frames) != channels {
		return nil, &DecodeError{Reason: "channel data does not match channel count"}
	}
	n := len(frames[0])
	if n == 0 {
		return nil, &DecodeError{Reason: "no audio frames"}
	}
	for ch := 1; ch < channels; ch++ {
		if len(frames[ch]) != n {
			return nil, &DecodeError{Reason: "channel length mismatch"}
		}
	}
	return &Store{sampleRate: sampleRate, channels: channels, frames: frames}, nil
}

// SampleRate returns the native rate of the stored audio in Hz.
func (s *Store) SampleRate() int {
	return s.sampleRate
}

// Channels returns the channel count (1 or 2).
func (s *Store) Channels() int {
	return s.channels
}

// NumFrames returns the frame count.
func (s *Store) NumFrames() int {
	return len(s.frames[0])
}

// Duration returns the length of the stored audio at its native rate.
func (s *Store) Duration() time.Duration {
	return time.Duration(float64(len(s.frames[0])) / float64(s.sampleRate) * float64(time.Second))
}

// FrameAt returns the linearly interpolated amplitude at a fractional frame
// position. Positions outside [0, NumFrames) yield silence instead of an
// error; this is the only Store operation invoked on the audio thread and it
// must never fail destructively. Channel indexes beyond the stored layout
// fold down to the last channel, so a mono store serves stereo reads.
func (s *Store) FrameAt(pos float64, ch int) float32 {
	data := s.frames[0]
	if ch > 0 && s.channels > 1 {
		data = s.frames[1]
	}
	// The negated comparison also rejects NaN, which would otherwise fall
	// through to an out-of-range index.
	if !(pos >= 0 && pos < float64(len(data))) {
		return 0
	}
	idx := int(pos)
	frac := float32(pos - float64(idx))
	s0 := data[idx]
	var s1 float32
	if idx+1 < len(data) {
		s1 = data[idx+1]
	}
	return s0 + (s1-s0)*frac
}

// CubicAt returns a 4-point Catmull-Rom interpolated amplitude. Same bounds
// behavior as FrameAt; edge frames fall back to linear interpolation.
func (s *Store) CubicAt(pos float64, ch int) float32 {
	data := s.frames[0]
	if ch > 0 && s.channels > 1 {
		data = s.frames[1]
	}
	if !(pos >= 0 && pos < float64(len(data))) {
		return 0
	}
	idx := int(pos)
	if idx < 1 || idx+2 >= len(data) {
		return s.FrameAt(pos, ch)
	}
	frac := float32(pos - float64(idx))
	y0, y1, y2, y3 := data[idx-1], data[idx], data[idx+1], data[idx+2]
	c0 := y1
	c1 := 0.5 * (y2 - y0)
	c2 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	c3 := 0.5 * (y3 - y0 + 3*(y1-y2))
	return ((c3*frac+c2)*frac+c1)*frac + c0
}
