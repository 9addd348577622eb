package tokenregistry

import "slices"

// Patcher constructs the next state of the token system by applying diff to
// prevState. Token has no pointer fields, so copies share no memory. The
// result is ordered by ID.
func Patcher(prevState []Token, diff TokenSystemDiff) ([]Token, error) {
	newStateMap := make(map[uint64]Token, len(prevState))
	for _, token := range prevState {
		newStateMap[token.ID] = token
	}

	for _, tokenIDToDelete := range diff.Deletions {
		delete(newStateMap, tokenIDToDelete)
	}

	for _, updatedToken := range diff.Updates {
		newStateMap[updatedToken.ID] = updatedToken
	}

	for _, addedToken := range diff.Additions {
		newStateMap[addedToken.ID] = addedToken
	}

	finalState := make([]Token, 0, len(newStateMap))
	for _, token := range newStateMap {
		finalState = append(finalState, token)
	}
	slices.SortFunc(finalState, byID)

	return finalState, nil
}
