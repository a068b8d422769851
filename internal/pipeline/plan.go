package pipeline

import (
	"cmp"
	"slices"

	"ruian/internal/archive"
)

// Plan orders entries largest first by declared size so the longest parses
// start earliest. Ties keep archive order. The input is not modified.
func Plan(entries []archive.Entry) []archive.Entry {
	out := slices.Clone(entries)
	slices.SortStableFunc(out, func(a, b archive.Entry) int {
		return cmp.Compare(b.Size, a.Size)
	})
	return out
}
