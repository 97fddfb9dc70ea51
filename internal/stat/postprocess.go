package stat

// PostProcessor transforms a stat's value after the pipeline has run.
// before is the value the pipeline started from; after is the running result.
type PostProcessor[N Number] interface {
	Process(before, after N) N
	Copy() PostProcessor[N]
}

// ClampMin raises results below bound to bound.
func ClampMin[N Number](bound N) PostProcessor[N] { return minClamp[N]{bound: bound} }

type minClamp[N Number] struct {
	bound N
}

func (p minClamp[N]) Process(_, after N) N   { return max(after, p.bound) }
func (p minClamp[N]) Copy() PostProcessor[N] { return p }

// ClampMax lowers results above bound to bound.
func ClampMax[N Number](bound N) PostProcessor[N] { return maxClamp[N]{bound: bound} }

type maxClamp[N Number] struct {
	bound N
}

func (p maxClamp[N]) Process(_, after N) N   { return min(after, p.bound) }
func (p maxClamp[N]) Copy() PostProcessor[N] { return p }

// Then chains next after first. next receives the same before value as first
// and first's result as its after value. A nil side is skipped.
func Then[N Number](first, next PostProcessor[N]) PostProcessor[N] {
	if first == nil {
		return next
	}
	if next == nil {
		return first
	}
	return &chain[N]{first: first, next: next}
}

// WithMin appends a lower clamp to p.
func WithMin[N Number](p PostProcessor[N], bound N) PostProcessor[N] {
	return Then(p, ClampMin(bound))
}

// WithMax appends an upper clamp to p.
func WithMax[N Number](p PostProcessor[N], bound N) PostProcessor[N] {
	return Then(p, ClampMax(bound))
}

type chain[N Number] struct {
	first PostProcessor[N]
	next  PostProcessor[N]
}

func (c *chain[N]) Process(before, after N) N {
	return c.next.Process(before, c.first.Process(before, after))
}

func (c *chain[N]) Copy() PostProcessor[N] {
	return &chain[N]{first: c.first.Copy(), next: c.next.Copy()}
}

// PostFunc adapts a function into a PostProcessor.
func PostFunc[N Number](fn func(before, after N) N) PostProcessor[N] {
	return &funcPost[N]{fn: fn}
}

type funcPost[N Number] struct {
	fn func(before, after N) N
}

func (p *funcPost[N]) Process(before, after N) N { return p.fn(before, after) }
func (p *funcPost[N]) Copy() PostProcessor[N]    { return &funcPost[N]{fn: p.fn} }
