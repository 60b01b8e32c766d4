package prompt

import "slices"

// Last keeps only the final n children. It runs at construction time and is
// independent of priorities and fitting.
func Last(n int, children ...Child) []Child {
	if n <= 0 {
		return nil
	}
	if n >= len(children) {
		return slices.Clone(children)
	}
	return slices.Clone(children[len(children)-n:])
}

// First keeps only the leading n children
func First(n int, children ...Child) []Child {
	if n <= 0 {
		return nil
	}
	if n >= len(children) {
		return slices.Clone(children)
	}
	return slices.Clone(children[:n])
}
