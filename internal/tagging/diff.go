package tagging

import "fmt"

// Diff summarizes how one tagging pass differs from the previous one.
type Diff struct {
	Added     int
	Removed   int
	Unchanged int
}

func (d Diff) Changed() bool {
	return d.Added > 0 || d.Removed > 0
}

func (d Diff) String() string {
	return fmt.Sprintf("+%d -%d =%d", d.Added, d.Removed, d.Unchanged)
}

func DiffStructureTags(prev, next []*StructureTag) Diff {
	return diffTags(prev, next, (*StructureTag).Equal)
}

func DiffInlineHintTags(prev, next []*InlineHintDataTag) Diff {
	return diffTags(prev, next, (*InlineHintDataTag).Equal)
}

// diffTags matches next against prev in order. Each tag of next is looked up
// in prev from the last match onwards; prev tags skipped over count as
// removed and unmatched next tags as added.
func diffTags[T any](prev, next []T, equal func(T, T) bool) Diff {
	var diff Diff
	cursor := 0
	for _, tag := range next {
		match := -1
		for j := cursor; j < len(prev); j++ {
			if equal(prev[j], tag) {
				match = j
				break
			}
		}
		if match < 0 {
			diff.Added++
			continue
		}
		diff.Removed += match - cursor
		diff.Unchanged++
		cursor = match + 1
	}
	diff.Removed += len(prev) - cursor
	return diff
}
