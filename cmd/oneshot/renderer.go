package main

import (
	"encoding/binary"
	"math"
	"sync/atomic"

	"github.com/justyntemme/oneshot/pkg/engine"
	"github.com/justyntemme/oneshot/pkg/param"
	"github.com/justyntemme/oneshot/pkg/process"
)

// renderer adapts the engine's block contract to oto's pull model: oto calls
// Read from its playback goroutine, which stands in for the host's audio
// thread. Everything it touches per Read is pre-allocated here.
type renderer struct {
	eng   *engine.Engine
	ctx   *process.Context
	left  []float32
	right []float32
	block int

	resetRequested atomic.Bool
}

func newRenderer(eng *engine.Engine, params *param.Registry, rate, block int) *renderer {
	r := &renderer{
		eng:   eng,
		ctx:   process.NewContext(block, params),
		left:  make([]float32, block),
		right: make([]float32, block),
		block: block,
	}
	r.ctx.Output = [][]float32{r.left, r.right}
	r.ctx.SampleRate = float64(rate)
	return r
}

// RequestReset asks the render goroutine to reset the engine before the
// next block, keeping Reset off the keyboard goroutine.
func (r *renderer) RequestReset() {
	r.resetRequested.Store(true)
}

// Read renders interleaved stereo float32 frames. len(p) is not guaranteed
// to be a multiple of the block size, so rendering happens in sub-blocks.
func (r *renderer) Read(p []byte) (int, error) {
	if r.resetRequested.Swap(false) {
		r.eng.Reset()
	}

	const frameBytes = 8 // 2 channels x float32
	frames := len(p) / frameBytes

	done := 0
	for done < frames {
		n := frames - done
		if n > r.block {
			n = r.block
		}
		r.ctx.Output[0] = r.left[:n]
		r.ctx.Output[1] = r.right[:n]
		r.eng.ProcessAudio(r.ctx)
		r.ctx.ClearEvents()

		base := done * frameBytes
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint32(p[base+i*frameBytes:], math.Float32bits(r.left[i]))
			binary.LittleEndian.PutUint32(p[base+i*frameBytes+4:], math.Float32bits(r.right[i]))
		}
		done += n
	}
	return frames * frameBytes, nil
}
