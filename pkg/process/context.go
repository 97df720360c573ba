// Package process provides the per-block audio processing context.
package process

import (
	"github.com/justyntemme/oneshot/pkg/param"
)

// EventKind discriminates the timed events a host schedules within a block.
type EventKind uint8

const (
	// EventTrigger starts (or restarts) the voice at the event's offset.
	EventTrigger EventKind = iota
	// EventRelease begins the voice's release fade (note-off, transport stop).
	EventRelease
	// EventParamChange sets a parameter target at the event's offset.
	EventParamChange
)

// Event is a sample-accurate host event. Offset is relative to the start of
// the current block. Value carries the normalized target for param changes
// and the trigger velocity (0-1) for triggers.
type Event struct {
	Offset  int32
	Kind    EventKind
	ParamID uint32
	Value   float64
}

// Context carries everything the engine needs for one block: caller-owned
// output buffers, the block's event list, and pre-allocated scratch space.
// One Context is reused for the lifetime of the processor; nothing here
// allocates after construction.
type Context struct {
	Output     [][]float32
	SampleRate float64

	events []Event

	workBuffer []float32

	params *param.Registry
}

// NewContext creates a context with scratch buffers sized for the largest
// block the host promised.
func NewContext(maxBlockSize int, params *param.Registry) *Context {
	return &Context{
		events:     make([]Event, 0, 256),
		workBuffer: make([]float32, maxBlockSize),
		params:     params,
	}
}

// Param returns a parameter's normalized target, or 0 if unknown.
func (c *Context) Param(id uint32) float64 {
	if p := c.params.Get(id); p != nil {
		return p.GetValue()
	}
	return 0
}

// ParamPlain returns a parameter's plain target, or 0 if unknown.
func (c *Context) ParamPlain(id uint32) float64 {
	if p := c.params.Get(id); p != nil {
		return p.GetPlainValue()
	}
	return 0
}

// NumSamples returns the block size implied by the output buffers.
func (c *Context) NumSamples() int {
	if len(c.Output) > 0 {
		return len(c.Output[0])
	}
	return 0
}

// NumOutputChannels returns the output channel count.
func (c *Context) NumOutputChannels() int {
	return len(c.Output)
}

// WorkBuffer returns pre-allocated scratch sized to the current block.
func (c *Context) WorkBuffer() []float32 {
	return c.workBuffer[:c.NumSamples()]
}

// Clear zeroes the output buffers.
func (c *Context) Clear() {
	for ch := range c.Output {
		buf := c.Output[ch]
		for i := range buf {
			buf[i] = 0
		}
	}
}

// PushEvent appends a host event for the current block. Events may arrive in
// any order; ClampEvents puts them right before processing.
func (c *Context) PushEvent(ev Event) {
	c.events = append(c.events, ev)
}

// Events returns the block's event list.
func (c *Context) Events() []Event {
	return c.events
}

// ClearEvents empties the event list, keeping capacity for the next block.
func (c *Context) ClearEvents() {
	c.events = c.events[:0]
}

// ClampEvents sorts the event list by offset and clamps stray offsets into
// [0, numSamples). The audio thread cannot reject a malformed sequence
// without glitching, so it repairs instead of erroring.
func (c *Context) ClampEvents(numSamples int) {
	limit := int32(numSamples - 1)
	for i := range c.events {
		if c.events[i].Offset < 0 {
			c.events[i].Offset = 0
		} else if c.events[i].Offset > limit {
			c.events[i].Offset = limit
		}
	}
	// Stable insertion sort: the list is short and almost always already
	// ordered, and sort.SliceStable would allocate on the audio thread.
	for i := 1; i < len(c.events); i++ {
		for j := i; j > 0 && c.events[j].Offset < c.events[j-1].Offset; j-- {
			c.events[j], c.events[j-1] = c.events[j-1], c.events[j]
		}
	}
}
