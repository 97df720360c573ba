package param

import (
	"math"
)

// SmoothMode selects the interpolation shape used to approach a new target.
type SmoothMode int

const (
	// SmoothExponential is a one-pole filter: smoothed += (target-smoothed)*alpha.
	SmoothExponential SmoothMode = iota
	// SmoothLinear ramps in equal steps across the smoothing time.
	SmoothLinear
)

// settleLog is ln(1000): an exponential ramp decays to within 0.1% of a step
// target after exactly the configured smoothing time.
const settleLog = 6.907755278982137

// Smoother moves a value toward its target without audible stair-stepping.
// All methods are called from the audio thread only.
type Smoother struct {
	mode       SmoothMode
	timeMs     float64
	sampleRate float64

	alpha     float64 // one-pole coefficient, derived from timeMs and rate
	current   float64
	target    float64
	step      float64 // linear mode increment
	remaining int     // linear mode samples left
	smoothing bool
}

// NewSmoother creates a smoother with the given mode and smoothing time.
// SetSampleRate must be called before the first Next.
func NewSmoother(mode SmoothMode, timeMs float64) *Smoother {
	return &Smoother{mode: mode, timeMs: timeMs}
}

// SetSampleRate recomputes the smoothing coefficient. Called on activation
// and whenever the host changes sample rate.
func (s *Smoother) SetSampleRate(rate float64) {
	s.sampleRate = rate
	samples := rate * s.timeMs / 1000.0
	if samples < 1 {
		samples = 1
	}
	s.alpha = 1.0 - math.Exp(-settleLog/samples)
}

// SetTime changes the smoothing time in milliseconds.
func (s *Smoother) SetTime(timeMs float64) {
	s.timeMs = timeMs
	if s.sampleRate > 0 {
		s.SetSampleRate(s.sampleRate)
	}
}

// SetTarget begins a ramp toward a new target value.
func (s *Smoother) SetTarget(target float64) {
	if target == s.target {
		return
	}
	s.target = target
	s.smoothing = true
	if s.mode == SmoothLinear {
		samples := int(s.sampleRate * s.timeMs / 1000.0)
		if samples < 1 {
			samples = 1
		}
		s.step = (target - s.current) / float64(samples)
		s.remaining = samples
	}
}

// SetCurrent snaps the smoothed value, discarding any ramp in progress.
func (s *Smoother) SetCurrent(v float64) {
	s.current = v
	s.target = v
	s.smoothing = false
	s.remaining = 0
}

// Current returns the smoothed value without advancing it.
func (s *Smoother) Current() float64 {
	return s.current
}

// Target returns the value being approached.
func (s *Smoother) Target() float64 {
	return s.target
}

// IsSmoothing reports whether a ramp is still in progress.
func (s *Smoother) IsSmoothing() bool {
	return s.smoothing
}

// Next advances the smoothed value one sample and returns it.
func (s *Smoother) Next() float64 {
	if !s.smoothing {
		return s.current
	}

	switch s.mode {
	case SmoothExponential:
		s.current += (s.target - s.current) * s.alpha
		// Snap once the residual is inaudible, so IsSmoothing settles.
		if math.Abs(s.target-s.current) < 1e-9 {
			s.current = s.target
			s.smoothing = false
		}

	case SmoothLinear:
		s.current += s.step
		s.remaining--
		if s.remaining <= 0 {
			s.current = s.target
			s.smoothing = false
		}
	}

	return s.current
}

// bankEntry pairs a parameter with its smoother. Stepped parameters carry a
// nil smoother and read their target directly.
type bankEntry struct {
	param    *Parameter
	smoother *Smoother
}

// Bank advances the smoothed values of a parameter set once per sample and
// routes sample-accurate target changes. The audio thread owns everything
// here except the atomic targets inside each Parameter.
type Bank struct {
	entries []bankEntry
	byID    map[uint32]int
}

// NewBank creates an empty parameter bank.
func NewBank() *Bank {
	return &Bank{byID: make(map[uint32]int)}
}

// Add attaches a parameter. Pass a nil smoother for stepped/toggle
// parameters whose value changes take effect immediately.
func (b *Bank) Add(p *Parameter, s *Smoother) {
	if _, exists := b.byID[p.ID]; exists {
		return
	}
	if s != nil {
		s.SetCurrent(p.GetPlainValue())
	}
	b.byID[p.ID] = len(b.entries)
	b.entries = append(b.entries, bankEntry{param: p, smoother: s})
}

// Index returns the dense index for a parameter ID, for per-sample reads
// that must not hash. The second result is false for unknown IDs.
func (b *Bank) Index(id uint32) (int, bool) {
	idx, ok := b.byID[id]
	return idx, ok
}

// SetSampleRate recomputes every smoothing coefficient.
func (b *Bank) SetSampleRate(rate float64) {
	for _, e := range b.entries {
		if e.smoother != nil {
			e.smoother.SetSampleRate(rate)
		}
	}
}

// SyncTargets pulls the atomic targets written by the control thread into
// the smoothers. Called once at the start of every block.
func (b *Bank) SyncTargets() {
	for _, e := range b.entries {
		if e.smoother != nil {
			e.smoother.SetTarget(e.param.GetPlainValue())
		}
	}
}

// ApplyChange routes a host automation event (normalized value) arriving at
// a specific sample offset. Unknown IDs are ignored.
func (b *Bank) ApplyChange(id uint32, normalized float64) {
	idx, ok := b.byID[id]
	if !ok {
		return
	}
	e := b.entries[idx]
	e.param.SetValue(normalized)
	if e.smoother != nil {
		e.smoother.SetTarget(e.param.GetPlainValue())
	}
}

// Advance steps every smoother one sample.
func (b *Bank) Advance() {
	for _, e := range b.entries {
		if e.smoother != nil {
			e.smoother.Next()
		}
	}
}

// SmoothedAt returns the current smoothed plain value at a dense index.
func (b *Bank) SmoothedAt(idx int) float64 {
	e := b.entries[idx]
	if e.smoother != nil {
		return e.smoother.Current()
	}
	return e.param.GetPlainValue()
}

// Smoothed returns the current smoothed plain value by parameter ID.
func (b *Bank) Smoothed(id uint32) float64 {
	idx, ok := b.byID[id]
	if !ok {
		return 0
	}
	return b.SmoothedAt(idx)
}

// Reset snaps every smoother to its parameter target, clearing ramp history.
func (b *Bank) Reset() {
	for _, e := range b.entries {
		if e.smoother != nil {
			e.smoother.SetCurrent(e.param.GetPlainValue())
		}
	}
}
