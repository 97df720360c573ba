package param

// Builder provides a fluent API for declaring parameters.
type Builder struct {
	param *Parameter
}

// New starts building a parameter with sensible defaults (0-1, automatable).
func New(id uint32, name string) *Builder {
	return &Builder{
		param: &Parameter{
			ID:        id,
			Name:      name,
			ShortName: name,
			Min:       0,
			Max:       1,
			Flags:     CanAutomate,
		},
	}
}

// ShortName sets the abbreviated display name.
func (b *Builder) ShortName(name string) *Builder {
	b.param.ShortName = name
	return b
}

// Range sets the plain-value bounds.
func (b *Builder) Range(min, max float64) *Builder {
	b.param.Min = min
	b.param.Max = max
	return b
}

// Default sets the default value in plain units.
func (b *Builder) Default(plain float64) *Builder {
	if b.param.Max > b.param.Min {
		b.param.DefaultValue = (plain - b.param.Min) / (b.param.Max - b.param.Min)
	}
	return b
}

// Unit sets the unit label.
func (b *Builder) Unit(unit string) *Builder {
	b.param.Unit = unit
	return b
}

// Steps makes the parameter discrete with the given step count.
func (b *Builder) Steps(count int32) *Builder {
	b.param.StepCount = count
	return b
}

// Toggle makes the parameter a two-state switch.
func (b *Builder) Toggle() *Builder {
	b.param.Min = 0
	b.param.Max = 1
	b.param.StepCount = 1
	b.param.DefaultValue = 0
	return b
}

// Flags replaces the parameter flags.
func (b *Builder) Flags(flags uint32) *Builder {
	b.param.Flags = flags
	return b
}

// Hidden keeps the parameter out of host UIs.
func (b *Builder) Hidden() *Builder {
	b.param.Flags |= IsHidden
	return b
}

// Formatter sets custom display formatting and parsing.
func (b *Builder) Formatter(format func(float64) string, parse func(string) (float64, error)) *Builder {
	b.param.formatFunc = format
	b.param.parseFunc = parse
	return b
}

// Build finalizes the parameter, initialized to its default.
func (b *Builder) Build() *Parameter {
	b.param.SetValue(b.param.DefaultValue)
	return b.param
}

// Gain declares a decibel gain parameter.
func Gain(id uint32, name string, minDB, maxDB, defaultDB float64) *Builder {
	return New(id, name).
		Range(minDB, maxDB).
		Default(defaultDB).
		Unit("dB").
		Formatter(DecibelFormatter, DecibelParser)
}

// Ratio declares a unitless multiplier parameter, e.g. a pitch ratio.
func Ratio(id uint32, name string, min, max, def float64) *Builder {
	return New(id, name).
		Range(min, max).
		Default(def).
		Unit("x").
		Formatter(RatioFormatter, RatioParser)
}

// Milliseconds declares a time parameter.
func Milliseconds(id uint32, name string, min, max, def float64) *Builder {
	return New(id, name).
		Range(min, max).
		Default(def).
		Unit("ms").
		Formatter(TimeFormatter, TimeParser)
}

// Toggle declares an on/off switch parameter.
func Toggle(id uint32, name string) *Builder {
	return New(id, name).Toggle()
}
