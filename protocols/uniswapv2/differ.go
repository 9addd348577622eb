package uniswapv2

import (
	"slices"

	"github.com/holiman/uint256"
)

// SystemDiff describes how a set of pools changed between two snapshots.
type SystemDiff struct {
	Additions []Pool   `json:"additions,omitempty"`
	Updates   []Pool   `json:"updates,omitempty"`
	Deletions []uint64 `json:"deletions,omitempty"`
}

// IsEmpty returns true if the diff contains no changes.
func (d SystemDiff) IsEmpty() bool {
	return len(d.Additions) == 0 && len(d.Updates) == 0 && len(d.Deletions) == 0
}

// Differ calculates the difference between two snapshots of the same pools.
// Pools are matched by ID. A pool counts as updated when its reserves or its
// outstanding shares changed; token addresses are immutable after creation.
// Results are ordered by ID.
func Differ(old, new []Pool) SystemDiff {
	oldPoolsMap := make(map[uint64]Pool, len(old))
	for _, pool := range old {
		oldPoolsMap[pool.ID] = pool
	}

	newPoolsMap := make(map[uint64]Pool, len(new))
	for _, pool := range new {
		newPoolsMap[pool.ID] = pool
	}

	var diff SystemDiff
	for newID, newPool := range newPoolsMap {
		oldPool, exists := oldPoolsMap[newID]
		if !exists {
			diff.Additions = append(diff.Additions, newPool)
			continue
		}
		// Field-by-field comparison avoids reflect.DeepEqual on the hot path.
		if !eq(oldPool.Reserve0, newPool.Reserve0) ||
			!eq(oldPool.Reserve1, newPool.Reserve1) ||
			!eq(oldPool.TotalShares, newPool.TotalShares) {
			diff.Updates = append(diff.Updates, newPool)
		}
	}

	for oldID := range oldPoolsMap {
		if _, exists := newPoolsMap[oldID]; !exists {
			diff.Deletions = append(diff.Deletions, oldID)
		}
	}

	slices.SortFunc(diff.Additions, byID)
	slices.SortFunc(diff.Updates, byID)
	slices.Sort(diff.Deletions)
	return diff
}

func eq(a, b *uint256.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Eq(b)
}

func byID(a, b Pool) int {
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}
