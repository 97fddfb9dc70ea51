package session

import (
	"fmt"

	"github.com/roach88/statsim/internal/ir"
	"github.com/roach88/statsim/internal/sheet"
	"github.com/roach88/statsim/internal/stat"
)

// Snapshot captures every stat of c in table order, with each modifier's
// kind, label and tracked source.
func Snapshot(c *stat.Container[string, float64]) ir.StatSnapshot {
	sources := newSourceIndex(c.Tracker())

	snap := ir.StatSnapshot{}
	c.ForEachStat(func(id string, sv stat.StatValue[string, float64]) {
		st := ir.StatState{Stat: id, Base: sv.BaseValue(), Value: sv.Value()}
		for _, m := range sv.Modifiers() {
			st.Modifiers = append(st.Modifiers, modifierState(id, m, sources))
		}
		snap = append(snap, st)
	})
	return snap
}

// Digest hashes Snapshot(c).
func Digest(c *stat.Container[string, float64]) (string, error) {
	return ir.HashSnapshot(Snapshot(c))
}

func modifierState(id string, m stat.Modifier[float64], sources *sourceIndex) ir.ModifierState {
	kind, ok := sheet.ModifierKind(m)
	if !ok {
		kind = fmt.Sprintf("%T", m)
	}
	ms := ir.ModifierState{Kind: kind, Value: m.Value()}
	if l, ok := m.(stat.Labeled); ok {
		ms.Label = l.ModifierLabel()
	}
	if src, ok := sources.take(id, m); ok {
		ms.Source = fmt.Sprint(src)
	}
	return ms
}

// sourceIndex hands out each tracked link once, so equal modifiers
// attached by different sources keep their own source in a snapshot.
type sourceIndex struct {
	links []sourcedLink
	used  []bool
}

type sourcedLink struct {
	source any
	link   stat.Link[string, float64]
}

func newSourceIndex(t *stat.SourceTracker[string, float64]) *sourceIndex {
	idx := &sourceIndex{}
	for _, src := range t.Sources() {
		for _, l := range t.Links(src) {
			idx.links = append(idx.links, sourcedLink{source: src, link: l})
		}
	}
	idx.used = make([]bool, len(idx.links))
	return idx
}

func (s *sourceIndex) take(id string, m stat.Modifier[float64]) (any, bool) {
	for i, sl := range s.links {
		if s.used[i] || sl.link.Stat != id || !stat.ModifiersEqual(sl.link.Modifier, m) {
			continue
		}
		s.used[i] = true
		return sl.source, true
	}
	return nil, false
}
