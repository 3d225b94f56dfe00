package bloc9

// Matcher identifies the set of arbitration IDs that belong to a single
// wire-protocol frame shape. Per spec.md's invariant, every Matcher this
// package produces uses a full 32-bit mask — a narrower mask would alias
// frames across devices, which is the "known prior bug" spec.md warns
// against.
type Matcher struct {
	Pattern uint32
	Mask    uint32
}

// FullMatcher returns a Matcher that matches exactly one arbitration ID.
func FullMatcher(pattern uint32) Matcher {
	return Matcher{Pattern: pattern, Mask: 0xFFFFFFFF}
}

// Match reports whether arbID satisfies this matcher.
func (m Matcher) Match(arbID uint32) bool {
	return arbID&m.Mask == m.Pattern
}
