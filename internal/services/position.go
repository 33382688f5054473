package services

// Fractional positioning for lists and cards. Every insertion computes a sort
// key from its two (possibly absent) neighbors without touching any sibling
// row; repeated bisection eventually exhausts float64 precision, at which
// point the caller reindexes the sibling set and retries.

// positionStep is the spacing between freshly indexed positions and the
// position of the first item in an empty collection. All call sites share it
// so first-ever insertions sort consistently with later midpoint insertions.
const positionStep = 1000.0

// PositionBetween returns a sort key placing an item between before and
// after. Nil means the corresponding neighbor is absent.
func PositionBetween(before, after *float64) float64 {
	switch {
	case before == nil && after == nil:
		return positionStep
	case before == nil:
		return *after / 2
	case after == nil:
		return *before + positionStep
	default:
		return (*before + *after) / 2
	}
}

// PositionExhausted reports whether the gap between two neighbors can no
// longer be bisected: the midpoint is not strictly between them. The
// allocator itself never reindexes; detection is the caller's trigger.
func PositionExhausted(before, after *float64) bool {
	if before == nil || after == nil {
		return false
	}
	mid := (*before + *after) / 2
	return !(mid > *before && mid < *after)
}

// ReindexedPositions returns n evenly spaced positions, 1-based multiples of
// positionStep. Callers assign them to an already ordered sibling slice;
// input order defines output order.
func ReindexedPositions(n int) []float64 {
	positions := make([]float64, n)
	for i := range positions {
		positions[i] = float64(i+1) * positionStep
	}
	return positions
}
