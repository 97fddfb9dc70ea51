package stat

import "slices"

// Formula derives a calculated stat's base value from its container.
type Formula[K comparable, N Number] func(c *Container[K, N]) N

// Calculated is a stat whose base value comes from a formula over other
// stats. The stats a formula reads must be declared as dependencies; a read
// of an undeclared stat is not tracked and will not invalidate the value.
type Calculated[K comparable, N Number] struct {
	valueCore[K, N]
	formula Formula[K, N]
	deps    []K
	subs    []Subscription

	// propagating and evaluating break dependency cycles.
	propagating bool
	evaluating  bool
}

// NewCalculated creates a calculated stat over the declared dependencies.
// The value is dirty until first read or Initialize.
func NewCalculated[K comparable, N Number](formula Formula[K, N], deps []K, opts ...ValueOption[N]) *Calculated[K, N] {
	c := &Calculated[K, N]{
		formula: formula,
		deps:    slices.Clone(deps),
	}
	c.valueCore = newCore[K, N](c, 0, opts)
	return c
}

// Dependencies returns the declared dependency stats.
func (c *Calculated[K, N]) Dependencies() []K { return slices.Clone(c.deps) }

// UpdateBaseValue always fails; the base value is owned by the formula.
func (c *Calculated[K, N]) UpdateBaseValue(N) error {
	return newError(CodeUnsupportedOperation, "UpdateBaseValue",
		"cannot set base value of calculated stat %v", c.stat)
}

// Initialize subscribes to every dependency and seeds the value.
// Calling it again replaces the previous subscriptions.
func (c *Calculated[K, N]) Initialize() {
	if c.container == nil {
		return
	}
	c.detach()
	for _, dep := range c.deps {
		c.subs = append(c.subs, c.container.SubscribeToStatChange(dep, c.onDependencyChanged))
	}
	c.refresh()
}

func (c *Calculated[K, N]) onDependencyChanged(StatValue[K, N], N) {
	if c.propagating {
		return
	}
	c.propagating = true
	defer func() { c.propagating = false }()
	c.invalidate(c.value)
}

func (c *Calculated[K, N]) Value() N {
	if c.dirty {
		c.refresh()
	}
	return c.value
}

func (c *Calculated[K, N]) refresh() {
	// A cyclic read returns the last cached value.
	if c.evaluating {
		return
	}
	c.evaluating = true
	defer func() { c.evaluating = false }()
	if c.container != nil {
		c.base = c.formula(c.container)
	}
	c.value = c.compute()
	c.dirty = false
}

func (c *Calculated[K, N]) Copy() StatValue[K, N] {
	return NewCalculated(c.formula, c.deps, c.copyConfig()...)
}

// detach drops the dependency subscriptions.
func (c *Calculated[K, N]) detach() {
	if c.container != nil {
		for i, sub := range c.subs {
			c.container.UnsubscribeFromStatChange(c.deps[i], sub)
		}
	}
	c.subs = c.subs[:0]
}
