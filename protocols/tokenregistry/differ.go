package tokenregistry

import "slices"

type TokenSystemDiff struct {
	Additions []Token  `json:"additions,omitempty"`
	Updates   []Token  `json:"updates,omitempty"`
	Deletions []uint64 `json:"deletions,omitempty"`
}

// IsEmpty returns true if the diff contains no changes.
func (d TokenSystemDiff) IsEmpty() bool {
	return len(d.Additions) == 0 && len(d.Updates) == 0 && len(d.Deletions) == 0
}

// Differ calculates the difference between two states of the token system.
// Tokens are matched by ID; results are ordered by ID.
func Differ(old, new []Token) TokenSystemDiff {
	oldTokensMap := make(map[uint64]Token, len(old))
	for _, token := range old {
		oldTokensMap[token.ID] = token
	}

	newTokensMap := make(map[uint64]Token, len(new))
	for _, token := range new {
		newTokensMap[token.ID] = token
	}

	var additions []Token
	var updates []Token
	var deletions []uint64

	for newID, newToken := range newTokensMap {
		oldToken, exists := oldTokensMap[newID]
		if !exists {
			additions = append(additions, newToken)
			continue
		}
		// Token is comparable; metadata fills in once the ledger learns the token.
		if oldToken != newToken {
			updates = append(updates, newToken)
		}
	}

	for oldID := range oldTokensMap {
		if _, exists := newTokensMap[oldID]; !exists {
			deletions = append(deletions, oldID)
		}
	}

	slices.SortFunc(additions, byID)
	slices.SortFunc(updates, byID)
	slices.Sort(deletions)

	return TokenSystemDiff{
		Additions: additions,
		Updates:   updates,
		Deletions: deletions,
	}
}

func byID(a, b Token) int {
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}
