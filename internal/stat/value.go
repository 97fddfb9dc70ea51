package stat

import "slices"

// ChangeHandler receives change notifications for a stat. previous is the
// value cached before the mutation and may be stale.
type ChangeHandler[K comparable, N Number] func(sv StatValue[K, N], previous N)

// StatValue holds one stat's numeric state inside a Container.
//
// The interface is sealed; use NewPrimary or NewCalculated.
type StatValue[K comparable, N Number] interface {
	// Stat returns the key the value is registered under.
	Stat() K
	// Container returns the owning container, or nil when detached.
	Container() *Container[K, N]
	BaseValue() N
	// Value returns the computed value, recomputing only when dirty.
	Value() N
	// Modifiers returns a copy of the modifier list in insertion order.
	Modifiers() []Modifier[N]
	PostProcessor() PostProcessor[N]
	// Pipeline returns the per-stat override, or nil to use the container's.
	Pipeline() PassProcessor[N]
	UpdateBaseValue(v N) error
	AddModifier(m Modifier[N])
	// RemoveModifier removes the first modifier equal to m and reports
	// whether one was found.
	RemoveModifier(m Modifier[N]) bool
	RemoveAllModifiers()
	Initialize()
	// Copy duplicates the value's configuration. Modifiers are not copied;
	// Container.CreateCopy re-attaches them under their sources.
	Copy() StatValue[K, N]

	core() *valueCore[K, N]
	detach()
}

// ValueOption configures a StatValue.
type ValueOption[N Number] func(*valueOptions[N])

type valueOptions[N Number] struct {
	post     PostProcessor[N]
	pipeline PassProcessor[N]
}

// WithPostProcessor sets the post-processor applied after the pipeline.
func WithPostProcessor[N Number](p PostProcessor[N]) ValueOption[N] {
	return func(o *valueOptions[N]) { o.post = p }
}

// WithPipeline overrides the container's default pipeline for one stat.
func WithPipeline[N Number](p PassProcessor[N]) ValueOption[N] {
	return func(o *valueOptions[N]) { o.pipeline = p }
}

// valueCore is the state shared by primary and calculated values.
type valueCore[K comparable, N Number] struct {
	self      StatValue[K, N]
	stat      K
	container *Container[K, N]
	base      N
	value     N
	dirty     bool
	modifiers []Modifier[N]
	post      PostProcessor[N]
	pipeline  PassProcessor[N]
	onChange  ChangeHandler[K, N]
}

func newCore[K comparable, N Number](self StatValue[K, N], base N, opts []ValueOption[N]) valueCore[K, N] {
	var o valueOptions[N]
	for _, opt := range opts {
		opt(&o)
	}
	return valueCore[K, N]{
		self:     self,
		base:     base,
		dirty:    true,
		post:     o.post,
		pipeline: o.pipeline,
	}
}

func (c *valueCore[K, N]) core() *valueCore[K, N] { return c }

func (c *valueCore[K, N]) Stat() K                     { return c.stat }
func (c *valueCore[K, N]) Container() *Container[K, N] { return c.container }
func (c *valueCore[K, N]) BaseValue() N                { return c.base }
func (c *valueCore[K, N]) PostProcessor() PostProcessor[N] {
	return c.post
}
func (c *valueCore[K, N]) Pipeline() PassProcessor[N] { return c.pipeline }

func (c *valueCore[K, N]) Modifiers() []Modifier[N] {
	out := make([]Modifier[N], len(c.modifiers))
	copy(out, c.modifiers)
	return out
}

func (c *valueCore[K, N]) AddModifier(m Modifier[N]) {
	previous := c.value
	c.modifiers = append(c.modifiers, m)
	c.invalidate(previous)
}

func (c *valueCore[K, N]) RemoveModifier(m Modifier[N]) bool {
	previous := c.value
	i := indexOfModifier(c.modifiers, m)
	if i >= 0 {
		c.modifiers = slices.Delete(c.modifiers, i, i+1)
	}
	c.invalidate(previous)
	return i >= 0
}

func (c *valueCore[K, N]) RemoveAllModifiers() {
	previous := c.value
	clear(c.modifiers)
	c.modifiers = c.modifiers[:0]
	c.invalidate(previous)
}

// invalidate marks the value dirty and notifies the owner.
func (c *valueCore[K, N]) invalidate(previous N) {
	c.dirty = true
	if c.onChange != nil {
		c.onChange(c.self, previous)
	}
}

func (c *valueCore[K, N]) activePipeline() PassProcessor[N] {
	if c.pipeline != nil {
		return c.pipeline
	}
	if c.container != nil {
		return c.container.pipeline
	}
	return nil
}

// compute runs base through the pipeline and post-processor.
func (c *valueCore[K, N]) compute() N {
	v := c.base
	if p := c.activePipeline(); p != nil {
		v = p.Process(v, c.modifiers)
	}
	if c.post != nil {
		v = c.post.Process(c.base, v)
	}
	return v
}

func (c *valueCore[K, N]) copyConfig() []ValueOption[N] {
	var opts []ValueOption[N]
	if c.post != nil {
		opts = append(opts, WithPostProcessor(c.post.Copy()))
	}
	if c.pipeline != nil {
		opts = append(opts, WithPipeline(c.pipeline.Copy()))
	}
	return opts
}

// Primary is a stat whose base value is set by host code.
type Primary[K comparable, N Number] struct {
	valueCore[K, N]
}

// NewPrimary creates a primary stat with the given base value.
func NewPrimary[K comparable, N Number](base N, opts ...ValueOption[N]) *Primary[K, N] {
	p := &Primary[K, N]{}
	p.valueCore = newCore[K, N](p, base, opts)
	return p
}

// UpdateBaseValue sets the base value and notifies subscribers.
func (p *Primary[K, N]) UpdateBaseValue(v N) error {
	previous := p.value
	p.base = v
	p.invalidate(previous)
	return nil
}

func (p *Primary[K, N]) Value() N {
	if p.dirty {
		p.value = p.compute()
		p.dirty = false
	}
	return p.value
}

// Initialize is a no-op; primary stats have nothing to precompute.
func (p *Primary[K, N]) Initialize() {}

func (p *Primary[K, N]) Copy() StatValue[K, N] {
	return NewPrimary[K](p.base, p.copyConfig()...)
}

func (p *Primary[K, N]) detach() {}
