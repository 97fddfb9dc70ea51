package stat

import "slices"

// Link ties a modifier to the stat it was attached to.
type Link[K comparable, N Number] struct {
	Stat     K
	Modifier Modifier[N]
}

// SourceTracker indexes modifiers by the source that contributed them.
//
// Sources are kept in first-tracked order so lookups are deterministic.
// A source with no remaining links is pruned immediately.
type SourceTracker[K comparable, N Number] struct {
	links   map[any][]Link[K, N]
	sources []any
}

// NewSourceTracker creates an empty tracker.
func NewSourceTracker[K comparable, N Number]() *SourceTracker[K, N] {
	return &SourceTracker[K, N]{links: make(map[any][]Link[K, N])}
}

// Track records that source attached m to stat.
func (t *SourceTracker[K, N]) Track(stat K, m Modifier[N], source any) {
	links, ok := t.links[source]
	if !ok {
		t.sources = append(t.sources, source)
	}
	t.links[source] = append(links, Link[K, N]{Stat: stat, Modifier: m})
}

// Untrack removes the first link of source matching stat and m.
func (t *SourceTracker[K, N]) Untrack(stat K, m Modifier[N], source any) bool {
	links, ok := t.links[source]
	if !ok {
		return false
	}
	i := slices.IndexFunc(links, func(l Link[K, N]) bool {
		return l.Stat == stat && ModifiersEqual(l.Modifier, m)
	})
	if i < 0 {
		return false
	}
	links = slices.Delete(links, i, i+1)
	if len(links) == 0 {
		t.prune(source)
	} else {
		t.links[source] = links
	}
	return true
}

// RemoveSource drops every link of source and returns them in tracked order.
func (t *SourceTracker[K, N]) RemoveSource(source any) []Link[K, N] {
	links, ok := t.links[source]
	if !ok {
		return nil
	}
	t.prune(source)
	return links
}

// RemoveStat drops links for stat across every source.
func (t *SourceTracker[K, N]) RemoveStat(stat K) {
	kept := t.sources[:0]
	for _, source := range t.sources {
		links := slices.DeleteFunc(t.links[source], func(l Link[K, N]) bool {
			return l.Stat == stat
		})
		if len(links) == 0 {
			delete(t.links, source)
			continue
		}
		t.links[source] = links
		kept = append(kept, source)
	}
	clear(t.sources[len(kept):])
	t.sources = kept
}

// Source returns the first source that attached m to stat.
func (t *SourceTracker[K, N]) Source(stat K, m Modifier[N]) (any, bool) {
	for _, source := range t.sources {
		for _, l := range t.links[source] {
			if l.Stat == stat && ModifiersEqual(l.Modifier, m) {
				return source, true
			}
		}
	}
	return nil, false
}

// Count returns how many links across every source match stat and m.
func (t *SourceTracker[K, N]) Count(stat K, m Modifier[N]) int {
	n := 0
	for _, links := range t.links {
		for _, l := range links {
			if l.Stat == stat && ModifiersEqual(l.Modifier, m) {
				n++
			}
		}
	}
	return n
}

// Links returns a copy of the links tracked for source.
func (t *SourceTracker[K, N]) Links(source any) []Link[K, N] {
	return slices.Clone(t.links[source])
}

// Sources returns the tracked sources in first-tracked order.
func (t *SourceTracker[K, N]) Sources() []any {
	return slices.Clone(t.sources)
}

// Len returns the number of sources with at least one link.
func (t *SourceTracker[K, N]) Len() int { return len(t.sources) }

// take removes and returns the source of the first link matching stat and m.
// CreateCopy uses it on a scratch clone so equal modifiers attached by
// different sources each keep their own source.
func (t *SourceTracker[K, N]) take(stat K, m Modifier[N]) (any, bool) {
	source, ok := t.Source(stat, m)
	if ok {
		t.Untrack(stat, m, source)
	}
	return source, ok
}

func (t *SourceTracker[K, N]) clone() *SourceTracker[K, N] {
	c := &SourceTracker[K, N]{
		links:   make(map[any][]Link[K, N], len(t.links)),
		sources: slices.Clone(t.sources),
	}
	for source, links := range t.links {
		c.links[source] = slices.Clone(links)
	}
	return c
}

func (t *SourceTracker[K, N]) prune(source any) {
	delete(t.links, source)
	if i := slices.Index(t.sources, source); i >= 0 {
		t.sources = slices.Delete(t.sources, i, i+1)
	}
}
