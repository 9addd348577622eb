package tokenregistry

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to create a new Token for testing.
func newTestToken(id uint64, symbol string, decimals uint8, feeBps uint16) Token {
	return Token{
		ID:               id,
		Address:          common.BytesToAddress([]byte{byte(id)}),
		Symbol:           symbol,
		Decimals:         decimals,
		FeeOnTransferBps: feeBps,
	}
}

// Helper to find a token by ID in a slice, for testing assertions.
func findTokenByID(tokens []Token, id uint64) *Token {
	for i := range tokens {
		if tokens[i].ID == id {
			return &tokens[i]
		}
	}
	return nil
}

func TestPatcher(t *testing.T) {
	token1Old := newTestToken(1, "WETH", 18, 0)
	token2Old := newTestToken(2, "USDC", 6, 0)
	token3Old := newTestToken(3, "FOT", 18, 100)

	initialState := []Token{token1Old, token2Old, token3Old}

	t.Run("should handle only additions", func(t *testing.T) {
		newState, err := Patcher(initialState, TokenSystemDiff{
			Additions: []Token{newTestToken(4, "WBTC", 8, 0)},
		})
		require.NoError(t, err)

		assert.Len(t, newState, 4, "Should have 4 tokens after addition")
		newToken := findTokenByID(newState, 4)
		require.NotNil(t, newToken)
		assert.Equal(t, "WBTC", newToken.Symbol)
	})

	t.Run("should handle only deletions", func(t *testing.T) {
		newState, err := Patcher(initialState, TokenSystemDiff{Deletions: []uint64{2}})
		require.NoError(t, err)

		assert.Len(t, newState, 2, "Should have 2 tokens after deletion")
		assert.Nil(t, findTokenByID(newState, 2), "Token 2 should be deleted")
	})

	t.Run("should handle only updates", func(t *testing.T) {
		newState, err := Patcher(initialState, TokenSystemDiff{
			Updates: []Token{newTestToken(3, "FOT", 18, 250)},
		})
		require.NoError(t, err)

		assert.Len(t, newState, 3, "Should still have 3 tokens after update")
		updatedToken := findTokenByID(newState, 3)
		require.NotNil(t, updatedToken)
		assert.Equal(t, uint16(250), updatedToken.FeeOnTransferBps)
	})

	t.Run("should handle a mix of operations in ID order", func(t *testing.T) {
		newState, err := Patcher(initialState, TokenSystemDiff{
			Additions: []Token{newTestToken(4, "WBTC", 8, 0)},
			Updates:   []Token{newTestToken(2, "USDC", 6, 1)},
			Deletions: []uint64{3},
		})
		require.NoError(t, err)

		require.Len(t, newState, 3)
		assert.Equal(t, uint64(1), newState[0].ID)
		assert.Equal(t, uint64(2), newState[1].ID)
		assert.Equal(t, uint16(1), newState[1].FeeOnTransferBps)
		assert.Equal(t, uint64(4), newState[2].ID)
	})

	t.Run("should round-trip a diff", func(t *testing.T) {
		next := []Token{newTestToken(1, "WETH", 18, 5), token2Old, newTestToken(7, "NEW", 0, 0)}
		patched, err := Patcher(initialState, Differ(initialState, next))
		require.NoError(t, err)
		assert.Equal(t, next, patched)
	})

	t.Run("should handle an empty diff", func(t *testing.T) {
		newState, err := Patcher(initialState, TokenSystemDiff{})
		require.NoError(t, err)
		assert.Equal(t, initialState, newState)
	})
}
