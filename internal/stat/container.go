package stat

import (
	"log/slog"
	"slices"
)

// Subscription identifies a change handler registered on a container.
type Subscription uint64

type subscriber[K comparable, N Number] struct {
	id Subscription
	fn ChangeHandler[K, N]
}

// Option configures a Container.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for lifecycle events.
// Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Container owns a table of stats, the default pipeline, change
// subscriptions and the modifier source index.
//
// INVARIANTS:
//   - every StatValue in the table has Container() == this container
//   - order lists exactly the keys of stats, in insertion order
//   - the tracker only links modifiers attached through a source
type Container[K comparable, N Number] struct {
	stats    map[K]StatValue[K, N]
	order    []K
	pipeline PassProcessor[N]
	subs     map[K][]subscriber[K, N]
	nextSub  Subscription
	tracker  *SourceTracker[K, N]
	runner   *Runner[K, N]
	logger   *slog.Logger
}

// New creates an empty container. pipeline is the default pass pipeline for
// stats without an override; nil means values equal their base value.
func New[K comparable, N Number](pipeline PassProcessor[N], opts ...Option) *Container[K, N] {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	c := &Container[K, N]{
		stats:    make(map[K]StatValue[K, N]),
		pipeline: pipeline,
		subs:     make(map[K][]subscriber[K, N]),
		tracker:  NewSourceTracker[K, N](),
		logger:   o.logger,
	}
	c.runner = newRunner(c)
	return c
}

// Pipeline returns the default pass pipeline.
func (c *Container[K, N]) Pipeline() PassProcessor[N] { return c.pipeline }

// Tracker returns the modifier source index.
func (c *Container[K, N]) Tracker() *SourceTracker[K, N] { return c.tracker }

// Logger returns the container's logger.
func (c *Container[K, N]) Logger() *slog.Logger { return c.logger }

// Initialize initializes every stat in table order.
func (c *Container[K, N]) Initialize() {
	for _, k := range slices.Clone(c.order) {
		if sv, ok := c.stats[k]; ok {
			sv.Initialize()
		}
	}
}

// AddStat registers sv under stat. Subscribers of stat are notified so
// calculated stats that read it are invalidated.
func (c *Container[K, N]) AddStat(stat K, sv StatValue[K, N]) error {
	if sv == nil {
		return newError(CodeInvalidOperation, "AddStat", "nil stat value for %v", stat)
	}
	if _, exists := c.stats[stat]; exists {
		return newError(CodeDuplicateStat, "AddStat", "stat %v already registered", stat)
	}
	core := sv.core()
	if core.container != nil {
		return newError(CodeStatOwned, "AddStat", "stat value for %v already belongs to a container", stat)
	}

	core.stat = stat
	core.container = c
	core.onChange = c.dispatch
	core.dirty = true
	c.stats[stat] = sv
	c.order = append(c.order, stat)

	c.logger.Debug("stat added", "stat", stat, "stats", len(c.order))
	c.dispatch(sv, core.value)
	return nil
}

// RemoveStat unregisters stat. Its tracked links are dropped and its
// subscribers are notified after it leaves the table.
func (c *Container[K, N]) RemoveStat(stat K) bool {
	sv, ok := c.stats[stat]
	if !ok {
		return false
	}
	delete(c.stats, stat)
	if i := slices.Index(c.order, stat); i >= 0 {
		c.order = slices.Delete(c.order, i, i+1)
	}
	c.tracker.RemoveStat(stat)

	core := sv.core()
	core.onChange = nil
	c.dispatch(sv, core.value)
	sv.detach()
	core.container = nil

	c.logger.Debug("stat removed", "stat", stat, "stats", len(c.order))
	return true
}

// Stat returns the value registered under stat.
func (c *Container[K, N]) Stat(stat K) (StatValue[K, N], bool) {
	sv, ok := c.stats[stat]
	return sv, ok
}

// Has reports whether stat is registered.
func (c *Container[K, N]) Has(stat K) bool {
	_, ok := c.stats[stat]
	return ok
}

// ValueOf returns the computed value of stat.
func (c *Container[K, N]) ValueOf(stat K) (N, bool) {
	sv, ok := c.stats[stat]
	if !ok {
		var zero N
		return zero, false
	}
	return sv.Value(), true
}

// ValueOr returns the computed value of stat, or def when it is absent.
// Formulas use it to read their dependencies.
func (c *Container[K, N]) ValueOr(stat K, def N) N {
	if v, ok := c.ValueOf(stat); ok {
		return v
	}
	return def
}

// Len returns the number of registered stats.
func (c *Container[K, N]) Len() int { return len(c.order) }

// Keys returns the registered stats in table order.
func (c *Container[K, N]) Keys() []K { return slices.Clone(c.order) }

// ForEachStat calls fn for every stat in table order. fn may mutate the
// container; stats removed during the walk are skipped.
func (c *Container[K, N]) ForEachStat(fn func(stat K, sv StatValue[K, N])) {
	for _, k := range slices.Clone(c.order) {
		if sv, ok := c.stats[k]; ok {
			fn(k, sv)
		}
	}
}

// SetBaseValue updates the base value of stat. Missing stats are ignored.
func (c *Container[K, N]) SetBaseValue(stat K, v N) error {
	sv, ok := c.stats[stat]
	if !ok {
		return nil
	}
	return sv.UpdateBaseValue(v)
}

// AddStatModifier attaches m to stat. A non-nil source is recorded so the
// modifier can be revoked with BatchRemoveStatModifiersFromSource.
// Missing stats are ignored.
func (c *Container[K, N]) AddStatModifier(stat K, m Modifier[N], source any) {
	sv, ok := c.stats[stat]
	if !ok {
		return
	}
	if source != nil {
		c.tracker.Track(stat, m, source)
	}
	sv.AddModifier(m)
}

// RemoveStatModifier detaches the first modifier equal to m from stat.
//
// The link of source is dropped when it has one. Otherwise, if the tracker
// still holds more links for (stat, m) than equal modifiers remain, the
// first-tracked link goes, so a later batch remove cannot revoke an equal
// modifier attached without a source.
func (c *Container[K, N]) RemoveStatModifier(stat K, m Modifier[N], source any) {
	sv, ok := c.stats[stat]
	if !ok || !sv.RemoveModifier(m) {
		if source != nil {
			c.tracker.Untrack(stat, m, source)
		}
		return
	}
	if source != nil && c.tracker.Untrack(stat, m, source) {
		return
	}
	if c.tracker.Count(stat, m) > countModifiers(sv.core().modifiers, m) {
		if owner, ok := c.tracker.Source(stat, m); ok {
			c.tracker.Untrack(stat, m, owner)
		}
	}
}

// BatchRemoveStatModifiersFromSource removes every modifier source
// attached and returns how many links were revoked. Unknown sources are
// ignored.
func (c *Container[K, N]) BatchRemoveStatModifiersFromSource(source any) int {
	links := c.tracker.RemoveSource(source)
	for _, l := range links {
		if sv, ok := c.stats[l.Stat]; ok {
			sv.RemoveModifier(l.Modifier)
		}
	}
	if len(links) > 0 {
		c.logger.Debug("source revoked", "source", source, "links", len(links))
	}
	return len(links)
}

// RemoveAllModifiers clears stat's modifiers and every tracked link to it.
func (c *Container[K, N]) RemoveAllModifiers(stat K) {
	c.tracker.RemoveStat(stat)
	sv, ok := c.stats[stat]
	if !ok {
		return
	}
	sv.RemoveAllModifiers()
}

// SubscribeToStatChange registers h for changes to stat. stat need not be
// registered yet.
func (c *Container[K, N]) SubscribeToStatChange(stat K, h ChangeHandler[K, N]) Subscription {
	c.nextSub++
	c.subs[stat] = append(c.subs[stat], subscriber[K, N]{id: c.nextSub, fn: h})
	return c.nextSub
}

// UnsubscribeFromStatChange removes a handler registered with
// SubscribeToStatChange.
func (c *Container[K, N]) UnsubscribeFromStatChange(stat K, sub Subscription) bool {
	subs := c.subs[stat]
	i := slices.IndexFunc(subs, func(s subscriber[K, N]) bool { return s.id == sub })
	if i < 0 {
		return false
	}
	subs = slices.Delete(subs, i, i+1)
	if len(subs) == 0 {
		delete(c.subs, stat)
	} else {
		c.subs[stat] = subs
	}
	return true
}

// dispatch notifies subscribers of sv's stat, most recent first. Handlers
// added or removed during dispatch take effect on the next notification.
func (c *Container[K, N]) dispatch(sv StatValue[K, N], previous N) {
	subs := c.subs[sv.Stat()]
	switch len(subs) {
	case 0:
		return
	case 1:
		subs[0].fn(sv, previous)
		return
	}
	snapshot := slices.Clone(subs)
	for i := len(snapshot) - 1; i >= 0; i-- {
		snapshot[i].fn(sv, previous)
	}
}

// CreateCopy returns a container that shares no mutable state with c.
// Pipelines, post-processors and modifiers are duplicated, modifiers are
// re-attached under their original sources, and the copy is initialized.
// Subscriptions are not copied.
func (c *Container[K, N]) CreateCopy() *Container[K, N] {
	var pipeline PassProcessor[N]
	if c.pipeline != nil {
		pipeline = c.pipeline.Copy()
	}
	cp := New[K, N](pipeline, WithLogger(c.logger))

	sources := c.tracker.clone()
	for _, k := range c.order {
		sv := c.stats[k]
		// A fresh value in a fresh container cannot collide.
		_ = cp.AddStat(k, sv.Copy())
		for _, m := range sv.core().modifiers {
			source, _ := sources.take(k, m)
			cp.AddStatModifier(k, m.Copy(), source)
		}
	}
	cp.Initialize()
	return cp
}

// StartUpdate begins a simulation. See Runner.
func (c *Container[K, N]) StartUpdate() error { return c.runner.StartUpdate() }

// RunSimulations applies action to the simulation sandbox. See Runner.
func (c *Container[K, N]) RunSimulations(action Action[K, N]) ([]Diff[K, N], error) {
	return c.runner.RunSimulations(action)
}

// ConfirmUpdate replays simulated actions on the container. See Runner.
func (c *Container[K, N]) ConfirmUpdate() error { return c.runner.ConfirmUpdate() }

// CancelUpdate discards the simulation. See Runner.
func (c *Container[K, N]) CancelUpdate() error { return c.runner.CancelUpdate() }

// Simulating reports whether a simulation is in progress.
func (c *Container[K, N]) Simulating() bool { return c.runner.Simulating() }

// Runner returns the container's simulation runner.
func (c *Container[K, N]) Runner() *Runner[K, N] { return c.runner }
