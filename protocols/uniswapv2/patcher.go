package uniswapv2

import "slices"

// deepCopyPool creates a new Pool with its own memory for the amount fields.
// This is essential to prevent the new state from sharing memory with the old state.
func deepCopyPool(p Pool) Pool {
	newPool := p
	if p.Reserve0 != nil {
		newPool.Reserve0 = p.Reserve0.Clone()
	}
	if p.Reserve1 != nil {
		newPool.Reserve1 = p.Reserve1.Clone()
	}
	if p.TotalShares != nil {
		newPool.TotalShares = p.TotalShares.Clone()
	}
	return newPool
}

// Patcher constructs the next snapshot by applying diff to prevState.
// The result shares no memory with either input and is ordered by ID.
func Patcher(prevState []Pool, diff SystemDiff) ([]Pool, error) {
	newStateMap := make(map[uint64]Pool, len(prevState))
	for _, pool := range prevState {
		newStateMap[pool.ID] = deepCopyPool(pool)
	}

	for _, poolIDToDelete := range diff.Deletions {
		delete(newStateMap, poolIDToDelete)
	}

	for _, updatedPool := range diff.Updates {
		newStateMap[updatedPool.ID] = deepCopyPool(updatedPool)
	}

	for _, addedPool := range diff.Additions {
		newStateMap[addedPool.ID] = deepCopyPool(addedPool)
	}

	finalState := make([]Pool, 0, len(newStateMap))
	for _, pool := range newStateMap {
		finalState = append(finalState, pool)
	}
	slices.SortFunc(finalState, byID)

	return finalState, nil
}
