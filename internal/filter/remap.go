package filter

// IndexFunc maps an output frame index to the generation-order frame index
// that supplies its content.
type IndexFunc func(output int) int

// Identity leaves frame order unchanged.
func Identity(i int) int { return i }

// Reverses reports whether the filter list contains a reversal.
func Reverses(filters []Spec) bool {
	for _, f := range filters {
		if f.Kind == KindBuiltin && f.Name == "reverse" {
			return true
		}
	}
	return false
}

// Remap derives the frame reordering of a filter list over total frames.
//
// Whole-stimulus reorderings cannot run inside a chunk, so they are resolved
// here as an index transform applied when frames are placed. Every mapping
// returned is an involution, so it also maps a generation index to its
// output position.
func Remap(filters []Spec, total int) IndexFunc {
	if Reverses(filters) {
		return func(i int) int { return total - 1 - i }
	}
	return Identity
}
