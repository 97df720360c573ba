package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/justyntemme/oneshot/pkg/plug"
	"github.com/justyntemme/oneshot/pkg/process"
)

// The engine is the core's implementation of the host-facing contract.
var _ plug.Processor = (*Engine)(nil)

const testRate = 8000.0

// newTestEngine builds an engine over a mono store whose sample rate matches
// the host rate, so the default pitch plays back one frame per sample.
func newTestEngine(t *testing.T, data []float32, block int) (*Engine, *process.Context) {
	t.Helper()
	eng, err := New(testStore(t, int(testRate), data))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := process.NewContext(block, eng.GetParameters())
	ctx.SampleRate = testRate
	ctx.Output = [][]float32{make([]float32, block), make([]float32, block)}
	return eng, ctx
}

func startEngine(t *testing.T, eng *Engine, block int) {
	t.Helper()
	if err := eng.Initialize(testRate, int32(block)); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := eng.SetActive(true); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
}

func expectBlock(t *testing.T, got, want []float32) {
	t.Helper()
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Fatalf("sample %d = %v, want %v (block %v)", i, got[i], want[i], got)
		}
	}
}

func TestEngineRejectsNilStore(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("New(nil) did not fail")
	}
}

func TestEngineInitializeValidation(t *testing.T) {
	eng, _ := newTestEngine(t, []float32{0}, 8)

	cases := []struct {
		name  string
		rate  float64
		block int32
	}{
		{"zero rate", 0, 64},
		{"negative rate", -48000, 64},
		{"nan rate", math.NaN(), 64},
		{"inf rate", math.Inf(1), 64},
		{"zero block", 48000, 0},
		{"negative block", 48000, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := eng.Initialize(tc.rate, tc.block)
			var cfgErr *ConfigError
			if err == nil {
				t.Fatal("Initialize accepted invalid config")
			}
			if !errors.As(err, &cfgErr) {
				t.Fatalf("error %T is not *ConfigError", err)
			}
		})
	}
}

func TestEngineActivateBeforeInitialize(t *testing.T) {
	eng, _ := newTestEngine(t, []float32{0}, 8)
	if err := eng.SetActive(true); err == nil {
		t.Fatal("SetActive before Initialize did not fail")
	}
}

func TestEngineInactiveOutputsSilence(t *testing.T) {
	eng, ctx := newTestEngine(t, []float32{1, 1, 1, 1}, 4)
	if err := eng.Initialize(testRate, 4); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	for i := range ctx.Output[0] {
		ctx.Output[0][i] = 0.7
		ctx.Output[1][i] = 0.7
	}
	eng.ProcessAudio(ctx)
	expectBlock(t, ctx.Output[0], []float32{0, 0, 0, 0})
	expectBlock(t, ctx.Output[1], []float32{0, 0, 0, 0})
}

func TestEnginePlaysSampleExactly(t *testing.T) {
	eng, ctx := newTestEngine(t, []float32{0, 1, 0.5, -1}, 8)
	eng.GetParameters().Get(ParamRelease).SetPlainValue(0)
	startEngine(t, eng, 8)

	if !eng.Trigger(1.0) {
		t.Fatal("Trigger refused")
	}
	eng.ProcessAudio(ctx)

	want := []float32{0, 1, 0.5, -1, 0, 0, 0, 0}
	expectBlock(t, ctx.Output[0], want)
	expectBlock(t, ctx.Output[1], want)
	if eng.VoiceActive() {
		t.Error("voice still active after sample end with no release window")
	}
}

func TestEngineMidBlockTrigger(t *testing.T) {
	eng, ctx := newTestEngine(t, []float32{0, 1, 0.5, -1}, 4)
	eng.GetParameters().Get(ParamRelease).SetPlainValue(0)
	startEngine(t, eng, 4)

	ctx.PushEvent(process.Event{Offset: 2, Kind: process.EventTrigger, Value: 1.0})
	eng.ProcessAudio(ctx)
	ctx.ClearEvents()

	expectBlock(t, ctx.Output[0], []float32{0, 0, 0, 1})
	if !eng.VoiceActive() {
		t.Error("voice should still be mid-sample")
	}
}

func TestEngineRetriggerRestartsMidBlock(t *testing.T) {
	eng, ctx := newTestEngine(t, []float32{0, 1, 0.5, -1}, 4)
	eng.GetParameters().Get(ParamRelease).SetPlainValue(0)
	startEngine(t, eng, 4)

	ctx.PushEvent(process.Event{Offset: 0, Kind: process.EventTrigger, Value: 1.0})
	ctx.PushEvent(process.Event{Offset: 2, Kind: process.EventTrigger, Value: 1.0})
	eng.ProcessAudio(ctx)
	ctx.ClearEvents()

	// The second trigger discards the first pass instantly.
	expectBlock(t, ctx.Output[0], []float32{0, 1, 0, 1})
}

func TestEnginePitchDoublesAdvance(t *testing.T) {
	eng, ctx := newTestEngine(t, []float32{0, 1, 0.5, -1}, 8)
	eng.GetParameters().Get(ParamRelease).SetPlainValue(0)
	// Set before Initialize so the smoother snaps to it instead of ramping.
	eng.GetParameters().Get(ParamPitch).SetPlainValue(2.0)
	startEngine(t, eng, 8)

	eng.Trigger(1.0)
	eng.ProcessAudio(ctx)

	// Two frames per output sample: positions 0, 2, then end of buffer.
	expectBlock(t, ctx.Output[0], []float32{0, 0.5, 0, 0, 0, 0, 0, 0})
	if eng.VoiceActive() {
		t.Error("voice should finish in half the samples at double rate")
	}
}

func TestEngineStartOffset(t *testing.T) {
	eng, ctx := newTestEngine(t, []float32{0, 1, 0.5, -1}, 4)
	eng.GetParameters().Get(ParamRelease).SetPlainValue(0)
	eng.GetParameters().Get(ParamStartOffset).SetPlainValue(1.0)
	startEngine(t, eng, 4)

	eng.Trigger(1.0)
	eng.ProcessAudio(ctx)

	// 100% start lands on the final frame.
	expectBlock(t, ctx.Output[0], []float32{-1, 0, 0, 0})
}

func TestEngineReleaseFadesTail(t *testing.T) {
	data := make([]float32, 64)
	for i := range data {
		data[i] = 1
	}
	eng, ctx := newTestEngine(t, data, 8)
	// 1ms at 8kHz: an 8 sample fade window.
	eng.GetParameters().Get(ParamRelease).SetPlainValue(1.0)
	startEngine(t, eng, 8)

	eng.Trigger(1.0)
	eng.ProcessAudio(ctx)
	eng.ReleaseVoice()
	eng.ProcessAudio(ctx)

	out := ctx.Output[0]
	prev := float32(2)
	for i, v := range out {
		if v >= prev {
			t.Fatalf("fade sample %d: %v did not decrease from %v", i, v, prev)
		}
		prev = v
	}
	if eng.VoiceActive() {
		t.Error("voice still active after the fade window elapsed")
	}
}

func TestEngineLoopKeepsPlaying(t *testing.T) {
	eng, ctx := newTestEngine(t, []float32{0.5, -0.5}, 8)
	eng.GetParameters().Get(ParamLoop).SetPlainValue(1)
	startEngine(t, eng, 8)

	eng.Trigger(1.0)
	eng.ProcessAudio(ctx)

	expectBlock(t, ctx.Output[0], []float32{0.5, -0.5, 0.5, -0.5, 0.5, -0.5, 0.5, -0.5})
	if !eng.VoiceActive() {
		t.Error("looping voice went idle")
	}
}

func TestEngineTriggerParamEdge(t *testing.T) {
	eng, ctx := newTestEngine(t, []float32{0.5, 0.5, 0.5, 0.5}, 4)
	eng.GetParameters().Get(ParamRelease).SetPlainValue(0)
	startEngine(t, eng, 4)

	trig := eng.GetParameters().Get(ParamTrigger)

	// First block establishes the baseline; a held high value afterwards
	// must fire exactly once.
	eng.ProcessAudio(ctx)
	trig.SetValue(1)
	eng.ProcessAudio(ctx)
	if ctx.Output[0][0] != 0.5 {
		t.Fatal("rising trigger edge did not fire the voice")
	}

	eng.ProcessAudio(ctx) // still high: no retrigger, sample already done
	eng.ProcessAudio(ctx)
	expectBlock(t, ctx.Output[0], []float32{0, 0, 0, 0})

	trig.SetValue(0)
	eng.ProcessAudio(ctx)
	trig.SetValue(1)
	eng.ProcessAudio(ctx)
	if ctx.Output[0][0] != 0.5 {
		t.Fatal("second rising edge did not fire")
	}
}

func TestEngineSampleAccurateParamChange(t *testing.T) {
	eng, ctx := newTestEngine(t, []float32{0.5, 0.5, 0.5, 0.5}, 4)
	eng.GetParameters().Get(ParamRelease).SetPlainValue(0)
	startEngine(t, eng, 4)

	loop := eng.GetParameters().Get(ParamLoop)
	ctx.PushEvent(process.Event{
		Offset:  1,
		Kind:    process.EventParamChange,
		ParamID: ParamLoop,
		Value:   1,
	})
	eng.Trigger(1.0)
	eng.ProcessAudio(ctx)
	ctx.ClearEvents()

	if loop.GetValue() != 1 {
		t.Error("param change event did not land on the parameter")
	}
	if !eng.VoiceActive() {
		t.Error("loop enabled mid-block should keep the voice running")
	}
}

func TestEngineGainScalesOutput(t *testing.T) {
	eng, ctx := newTestEngine(t, []float32{1, 1, 1, 1}, 4)
	eng.GetParameters().Get(ParamRelease).SetPlainValue(0)
	eng.GetParameters().Get(ParamGain).SetPlainValue(-6.0)
	startEngine(t, eng, 4)

	eng.Trigger(1.0)
	eng.ProcessAudio(ctx)

	want := float32(math.Pow(10, -6.0/20.0))
	if math.Abs(float64(ctx.Output[0][0]-want)) > 1e-6 {
		t.Errorf("gain -6 dB: sample = %v, want %v", ctx.Output[0][0], want)
	}
}

func TestEngineGainFloorIsSilence(t *testing.T) {
	eng, ctx := newTestEngine(t, []float32{1, 1, 1, 1}, 4)
	eng.GetParameters().Get(ParamRelease).SetPlainValue(0)
	eng.GetParameters().Get(ParamGain).SetPlainValue(-60)
	startEngine(t, eng, 4)

	eng.Trigger(1.0)
	eng.ProcessAudio(ctx)
	expectBlock(t, ctx.Output[0], []float32{0, 0, 0, 0})
}

func TestEngineMonoOutputFoldsChannels(t *testing.T) {
	eng, ctx := newTestEngine(t, []float32{0.8, 0.8}, 2)
	eng.GetParameters().Get(ParamRelease).SetPlainValue(0)
	startEngine(t, eng, 2)
	ctx.Output = ctx.Output[:1]

	eng.Trigger(1.0)
	eng.ProcessAudio(ctx)

	// Mono fold averages the two voice channels, identical for a mono store.
	expectBlock(t, ctx.Output[0], []float32{0.8, 0.8})
}

func TestEngineStoreSwapAtBlockBoundary(t *testing.T) {
	eng, ctx := newTestEngine(t, []float32{0.1, 0.1, 0.1, 0.1}, 4)
	eng.GetParameters().Get(ParamRelease).SetPlainValue(0)
	eng.GetParameters().Get(ParamLoop).SetPlainValue(1)
	startEngine(t, eng, 4)

	eng.Trigger(1.0)
	eng.ProcessAudio(ctx)
	expectBlock(t, ctx.Output[0], []float32{0.1, 0.1, 0.1, 0.1})

	next := testStore(t, int(testRate), []float32{0.9, 0.9, 0.9, 0.9})
	eng.SetStore(next)

	// The swap lands at the next block start and the voice restarts idle.
	eng.ProcessAudio(ctx)
	expectBlock(t, ctx.Output[0], []float32{0, 0, 0, 0})
	if eng.Store() != next {
		t.Error("staged store was not adopted")
	}

	eng.Trigger(1.0)
	eng.ProcessAudio(ctx)
	expectBlock(t, ctx.Output[0], []float32{0.9, 0.9, 0.9, 0.9})
}

func TestEngineResetIdempotent(t *testing.T) {
	eng, ctx := newTestEngine(t, []float32{1, 1, 1, 1, 1, 1, 1, 1}, 4)
	startEngine(t, eng, 4)

	eng.Trigger(1.0)
	eng.ProcessAudio(ctx)
	if !eng.VoiceActive() {
		t.Fatal("voice not active after trigger")
	}

	eng.Reset()
	if eng.VoiceActive() {
		t.Fatal("voice active after reset")
	}
	eng.Reset()
	if eng.VoiceActive() {
		t.Fatal("second reset changed state")
	}

	eng.ProcessAudio(ctx)
	expectBlock(t, ctx.Output[0], []float32{0, 0, 0, 0})
}

func TestEngineDeactivateResets(t *testing.T) {
	eng, ctx := newTestEngine(t, []float32{1, 1, 1, 1, 1, 1, 1, 1}, 4)
	startEngine(t, eng, 4)

	eng.Trigger(1.0)
	eng.ProcessAudio(ctx)
	if err := eng.SetActive(false); err != nil {
		t.Fatalf("SetActive(false): %v", err)
	}
	if eng.VoiceActive() {
		t.Error("voice survived deactivation")
	}
}

func TestEngineTailSamples(t *testing.T) {
	eng, _ := newTestEngine(t, []float32{0}, 8)
	startEngine(t, eng, 8)

	// Default release is 50ms: 400 samples at 8kHz.
	if got := eng.GetTailSamples(); got != 400 {
		t.Errorf("GetTailSamples = %d, want 400", got)
	}
	eng.GetParameters().Get(ParamRelease).SetPlainValue(0)
	if got := eng.GetTailSamples(); got != 0 {
		t.Errorf("GetTailSamples with no fade = %d, want 0", got)
	}
	if got := eng.GetLatencySamples(); got != 0 {
		t.Errorf("GetLatencySamples = %d, want 0", got)
	}
}

func TestEngineProcessAudioDoesNotAllocate(t *testing.T) {
	eng, ctx := newTestEngine(t, []float32{0, 1, 0.5, -1}, 64)
	startEngine(t, eng, 64)

	allocs := testing.AllocsPerRun(100, func() {
		eng.Trigger(1.0)
		ctx.PushEvent(process.Event{Offset: 7, Kind: process.EventTrigger, Value: 1.0})
		ctx.PushEvent(process.Event{Offset: 30, Kind: process.EventRelease})
		eng.ProcessAudio(ctx)
		ctx.ClearEvents()
	})
	if allocs != 0 {
		t.Errorf("ProcessAudio allocated %v times per block", allocs)
	}
}
