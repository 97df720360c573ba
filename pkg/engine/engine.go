// Package engine implements the real-time playback engine: the voice
// lifecycle, per-block event routing, and parameter smoothing that run
// inside the host's audio callback.
package engine

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/justyntemme/oneshot/pkg/debug"
	"github.com/justyntemme/oneshot/pkg/param"
	"github.com/justyntemme/oneshot/pkg/process"
	"github.com/justyntemme/oneshot/pkg/sample"
)

// Parameter IDs. These are persisted in session state and must stay stable.
const (
	// ParamGain is the output gain in dB, smoothed.
	ParamGain uint32 = iota
	// ParamPitch is the playback rate multiplier, smoothed.
	ParamPitch
	// ParamTrigger fires the voice on a rising edge.
	ParamTrigger
	// ParamLoop wraps playback at end-of-buffer.
	ParamLoop
	// ParamStartOffset is the trigger start position as a fraction of the
	// sample length.
	ParamStartOffset
	// ParamRelease is the tail fade window in milliseconds.
	ParamRelease
)

// Smoothing times in milliseconds.
const (
	gainSmoothMs  = 10.0
	pitchSmoothMs = 20.0
)

// ConfigError indicates an invalid host configuration (sample rate or block
// size). It is surfaced as an activation failure, before any audio runs.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "engine config: " + e.Reason
}

// Engine renders the one-shot sample into host-owned buffers, one block at a
// time. A single real-time thread calls ProcessAudio; the control/UI thread
// talks to the engine only through atomics and the lock-free trigger queue.
type Engine struct {
	params *param.Registry
	bank   *param.Bank
	voice  Voice

	store   atomic.Pointer[sample.Store]
	pending atomic.Pointer[sample.Store] // staged reload, adopted at block start

	triggers *TriggerQueue

	// Cached parameter pointers so the block path never touches the
	// registry lock.
	pTrigger *param.Parameter
	pLoop    *param.Parameter
	pStart   *param.Parameter
	pRelease *param.Parameter

	log *debug.Logger

	sampleRate  float64
	maxBlock    int
	gainIdx     int
	pitchIdx    int
	lastTrigger float64 // previous trigger param value, for edge detection
	active      bool
	initialized bool
}

// New creates an engine bound to an immutable sample store. The store may be
// shared read-only across any number of engine instances.
func New(store *sample.Store) (*Engine, error) {
	if store == nil {
		return nil, &ConfigError{Reason: "nil sample store"}
	}

	e := &Engine{
		params:      param.NewRegistry(),
		bank:        param.NewBank(),
		triggers:    NewTriggerQueue(64),
		lastTrigger: -1,
	}
	e.store.Store(store)
	e.voice.SetStore(store)

	e.params.Add(
		param.Gain(ParamGain, "Gain", -60, 6, 0).Build(),
		param.Ratio(ParamPitch, "Pitch", 0.25, 4.0, 1.0).Build(),
		param.Toggle(ParamTrigger, "Trigger").Build(),
		param.Toggle(ParamLoop, "Loop").Build(),
		param.New(ParamStartOffset, "Start").
			Range(0, 1).
			Default(0).
			Unit("%").
			Formatter(param.PercentFormatter, param.PercentParser).
			Build(),
		param.Milliseconds(ParamRelease, "Release", 0, 2000, 50).Build(),
	)

	e.bank.Add(e.params.Get(ParamGain), param.NewSmoother(param.SmoothExponential, gainSmoothMs))
	e.bank.Add(e.params.Get(ParamPitch), param.NewSmoother(param.SmoothExponential, pitchSmoothMs))
	e.bank.Add(e.params.Get(ParamTrigger), nil)
	e.bank.Add(e.params.Get(ParamLoop), nil)
	e.bank.Add(e.params.Get(ParamStartOffset), nil)
	e.bank.Add(e.params.Get(ParamRelease), nil)

	e.gainIdx, _ = e.bank.Index(ParamGain)
	e.pitchIdx, _ = e.bank.Index(ParamPitch)
	e.pTrigger = e.params.Get(ParamTrigger)
	e.pLoop = e.params.Get(ParamLoop)
	e.pStart = e.params.Get(ParamStartOffset)
	e.pRelease = e.params.Get(ParamRelease)

	return e, nil
}

// SetLogger attaches a logger for the non-real-time paths.
func (e *Engine) SetLogger(log *debug.Logger) {
	e.log = log
}

// Initialize prepares the engine for a host configuration: it recomputes
// smoothing coefficients and the playback rate ratio, and sizes all working
// state. It must be called before ProcessAudio and again whenever the host
// sample rate changes.
func (e *Engine) Initialize(sampleRate float64, maxBlockSize int32) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return &ConfigError{Reason: fmt.Sprintf("invalid sample rate %v", sampleRate)}
	}
	if maxBlockSize <= 0 {
		return &ConfigError{Reason: fmt.Sprintf("invalid max block size %d", maxBlockSize)}
	}

	e.sampleRate = sampleRate
	e.maxBlock = int(maxBlockSize)
	e.bank.SetSampleRate(sampleRate)
	e.bank.Reset()
	e.voice.Reset()
	e.applyBlockParams()
	e.initialized = true

	e.log.Infof("engine initialized: rate=%v Hz, maxBlock=%d, sample=%d frames @ %d Hz",
		sampleRate, maxBlockSize, e.store.Load().NumFrames(), e.store.Load().SampleRate())
	return nil
}

// GetParameters returns the parameter registry.
func (e *Engine) GetParameters() *param.Registry {
	return e.params
}

// SetActive starts or stops processing. Deactivation resets the voice so a
// later activation starts clean.
func (e *Engine) SetActive(active bool) error {
	if active && !e.initialized {
		return &ConfigError{Reason: "activated before Initialize"}
	}
	e.active = active
	if !active {
		e.Reset()
	}
	return nil
}

// Reset forces the voice to Idle and clears all smoothing history. It is
// idempotent: calling it twice leaves the same state as calling it once.
// The host calls it on transport stop or reset, with processing suspended
// or from the audio thread itself; it must not race a ProcessAudio call.
func (e *Engine) Reset() {
	e.voice.Reset()
	e.bank.Reset()
	for {
		if _, ok := e.triggers.Pop(); !ok {
			break
		}
	}
}

// VoiceActive reports whether the voice is non-idle, backing the host's
// "keep processing silence" query after the last event.
func (e *Engine) VoiceActive() bool {
	return e.voice.Active()
}

// GetLatencySamples returns the plugin latency. Playback adds none.
func (e *Engine) GetLatencySamples() int32 {
	return 0
}

// GetTailSamples returns how long the host should keep calling ProcessAudio
// after the last trigger so the release fade is not truncated.
func (e *Engine) GetTailSamples() int32 {
	ms := e.pRelease.GetPlainValue()
	return int32(ms / 1000.0 * e.sampleRate)
}

// Trigger fires the voice from the control thread. The audio thread picks it
// up at the start of the next block. Returns false if the queue is full.
func (e *Engine) Trigger(velocity float64) bool {
	return e.triggers.Push(process.Event{Kind: process.EventTrigger, Value: velocity})
}

// ReleaseVoice starts the tail fade from the control thread.
func (e *Engine) ReleaseVoice() bool {
	return e.triggers.Push(process.Event{Kind: process.EventRelease})
}

// SetStore stages a new sample store from the control thread. The audio
// thread adopts it at the next block boundary, so it never observes a
// partially written buffer. The voice restarts idle on the new buffer.
func (e *Engine) SetStore(s *sample.Store) {
	if s == nil {
		return
	}
	e.pending.Store(s)
}

// Store returns the sample store currently being played.
func (e *Engine) Store() *sample.Store {
	return e.store.Load()
}

// ProcessAudio renders one block. Per sample, in order: events scheduled at
// that index are applied (triggers to the voice, targets to the bank), the
// bank advances one smoothing step, the voice advances one frame, and the
// gain-scaled output lands in the caller-owned buffers. No allocation,
// locking, or blocking I/O happens here.
func (e *Engine) ProcessAudio(ctx *process.Context) {
	n := ctx.NumSamples()
	if n == 0 {
		return
	}
	if !e.active {
		ctx.Clear()
		return
	}

	// Block boundary: adopt a staged sample store, if any.
	if s := e.pending.Swap(nil); s != nil {
		e.store.Store(s)
		e.voice.Reset()
		e.voice.SetStore(s)
	}

	store := e.store.Load()
	ratio := e.sampleRate / float64(store.SampleRate())

	e.bank.SyncTargets()
	e.applyBlockParams()
	e.detectTriggerEdge()

	// Control-thread triggers land at sample 0 of this block.
	for {
		ev, ok := e.triggers.Pop()
		if !ok {
			break
		}
		e.applyEvent(ev)
	}

	ctx.ClampEvents(n)
	events := ctx.Events()

	mono := ctx.NumOutputChannels() < 2
	out := ctx.Output

	ei := 0
	for i := 0; i < n; i++ {
		for ei < len(events) && int(events[ei].Offset) == i {
			e.applyEvent(events[ei])
			ei++
		}

		e.bank.Advance()
		gain := float32(dbToLinear(e.bank.SmoothedAt(e.gainIdx)))
		e.voice.SetRate(ratio * e.bank.SmoothedAt(e.pitchIdx))

		l, r := e.voice.NextFrame()
		if mono {
			out[0][i] = (l + r) * 0.5 * gain
		} else {
			out[0][i] = l * gain
			out[1][i] = r * gain
		}
	}

	e.voice.CollapseFinished()
}

// applyBlockParams reads the stepped parameters that only change at block
// granularity.
func (e *Engine) applyBlockParams() {
	e.voice.SetLoop(e.pLoop.GetValue() > 0.5)
	ms := e.pRelease.GetPlainValue()
	e.voice.SetReleaseSamples(int(ms / 1000.0 * e.sampleRate))
}

// detectTriggerEdge fires the voice when the control thread flipped the
// manual trigger parameter since the previous block.
func (e *Engine) detectTriggerEdge() {
	cur := e.pTrigger.GetValue()
	if cur > 0.5 && e.lastTrigger >= 0 && e.lastTrigger <= 0.5 {
		e.triggerVoice(1.0)
	}
	e.lastTrigger = cur
}

func (e *Engine) applyEvent(ev process.Event) {
	switch ev.Kind {
	case process.EventTrigger:
		e.triggerVoice(ev.Value)

	case process.EventRelease:
		e.voice.Release()

	case process.EventParamChange:
		if ev.ParamID == ParamTrigger {
			prev := e.lastTrigger
			e.bank.ApplyChange(ev.ParamID, ev.Value)
			if ev.Value > 0.5 && prev <= 0.5 {
				e.triggerVoice(1.0)
			}
			e.lastTrigger = ev.Value
			return
		}
		e.bank.ApplyChange(ev.ParamID, ev.Value)
		if ev.ParamID == ParamLoop || ev.ParamID == ParamRelease {
			e.applyBlockParams()
		}
	}
}

func (e *Engine) triggerVoice(velocity float64) {
	store := e.store.Load()
	// The offset parameter is a fraction of the sample length; 100% lands
	// on the final frame rather than past the end.
	start := e.pStart.GetPlainValue() * float64(store.NumFrames()-1)
	e.voice.Trigger(start, velocity)
}

// dbToLinear converts decibels to linear amplitude, with the bottom of the
// gain range treated as silence.
func dbToLinear(db float64) float64 {
	if db <= -60 {
		return 0
	}
	return math.Pow(10.0, db/20.0)
}
