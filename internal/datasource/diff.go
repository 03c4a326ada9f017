package datasource

import (
	"fmt"
	"sort"

	"github.com/vanderheijden86/virtlist/pkg/model"
)

// ItemDiff describes how a list changed between two loads.
type ItemDiff struct {
	// Added contains items whose ID is new
	Added []model.Item `json:"added,omitempty"`
	// Removed contains items whose ID disappeared
	Removed []model.Item `json:"removed,omitempty"`
	// Changed contains the new version of items whose title or body changed
	Changed []model.Item `json:"changed,omitempty"`
	// Moved contains items whose position relative to the other surviving
	// items changed
	Moved []model.Item `json:"moved,omitempty"`
}

// HasChanges reports whether anything differs.
func (d ItemDiff) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0 || len(d.Changed) > 0 || len(d.Moved) > 0
}

// Summary returns a one-line description of the diff.
func (d ItemDiff) Summary() string {
	if !d.HasChanges() {
		return "no changes"
	}
	return fmt.Sprintf("%d added, %d removed, %d changed, %d moved",
		len(d.Added), len(d.Removed), len(d.Changed), len(d.Moved))
}

// Diff compares two item lists by ID. Both lists must have unique IDs.
//
// Moves are the smallest set of surviving items that must be taken out and
// reinserted to turn the old order into the new one: everything outside a
// longest increasing run of old positions.
func Diff(old, updated []model.Item) ItemDiff {
	var d ItemDiff

	oldPos := make(map[string]int, len(old))
	for i, it := range old {
		oldPos[it.ID] = i
	}
	newIDs := make(map[string]bool, len(updated))

	var survivors []model.Item
	var positions []int
	for _, it := range updated {
		newIDs[it.ID] = true
		pos, ok := oldPos[it.ID]
		if !ok {
			d.Added = append(d.Added, it)
			continue
		}
		if !old[pos].SameContent(it) {
			d.Changed = append(d.Changed, it)
		}
		survivors = append(survivors, it)
		positions = append(positions, pos)
	}
	for _, it := range old {
		if !newIDs[it.ID] {
			d.Removed = append(d.Removed, it)
		}
	}

	keep := longestIncreasing(positions)
	for i, it := range survivors {
		if !keep[i] {
			d.Moved = append(d.Moved, it)
		}
	}
	return d
}

// longestIncreasing marks the members of one longest strictly increasing
// subsequence of seq.
func longestIncreasing(seq []int) []bool {
	keep := make([]bool, len(seq))
	if len(seq) == 0 {
		return keep
	}
	// tails[k] is the index in seq of the smallest tail of an increasing
	// run of length k+1.
	tails := make([]int, 0, len(seq))
	prev := make([]int, len(seq))
	for i, v := range seq {
		k := sort.Search(len(tails), func(j int) bool { return seq[tails[j]] >= v })
		if k > 0 {
			prev[i] = tails[k-1]
		} else {
			prev[i] = -1
		}
		if k == len(tails) {
			tails = append(tails, i)
		} else {
			tails[k] = i
		}
	}
	for i := tails[len(tails)-1]; i >= 0; i = prev[i] {
		keep[i] = true
	}
	return keep
}
