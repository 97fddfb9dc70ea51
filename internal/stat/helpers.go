package stat

// AddPrimaryStat registers a primary stat with the given base value.
func AddPrimaryStat[K comparable, N Number](c *Container[K, N], stat K, base N, opts ...ValueOption[N]) (*Primary[K, N], error) {
	p := NewPrimary[K](base, opts...)
	if err := c.AddStat(stat, p); err != nil {
		return nil, err
	}
	return p, nil
}

// AddDerivedStat registers a calculated stat. The container must be
// initialized, or the stat's Initialize called, before dependency changes
// invalidate it.
func AddDerivedStat[K comparable, N Number](c *Container[K, N], stat K, formula Formula[K, N], deps []K, opts ...ValueOption[N]) (*Calculated[K, N], error) {
	d := NewCalculated(formula, deps, opts...)
	if err := c.AddStat(stat, d); err != nil {
		return nil, err
	}
	return d, nil
}
