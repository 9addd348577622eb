package uniswapv2

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper to find a pool by ID in a slice, for testing assertions.
func findPoolByID(pools []Pool, id uint64) *Pool {
	for i := range pools {
		if pools[i].ID == id {
			return &pools[i]
		}
	}
	return nil
}

func TestPatcher(t *testing.T) {
	initialState := []Pool{
		testPool(1, 1000, 5000, 2000),
		testPool(2, 2000, 6000, 3000),
		testPool(3, 3000, 7000, 4000),
	}

	t.Run("should handle only additions", func(t *testing.T) {
		newState, err := Patcher(initialState, SystemDiff{Additions: []Pool{testPool(4, 4000, 1, 1)}})
		require.NoError(t, err)

		require.Len(t, newState, 4)
		newPool := findPoolByID(newState, 4)
		require.NotNil(t, newPool)
		assert.Equal(t, uint64(4000), newPool.Reserve0.Uint64())
	})

	t.Run("should handle only deletions", func(t *testing.T) {
		newState, err := Patcher(initialState, SystemDiff{Deletions: []uint64{2}})
		require.NoError(t, err)

		assert.Len(t, newState, 2)
		assert.Nil(t, findPoolByID(newState, 2), "Pool 2 should be deleted")
		assert.NotNil(t, findPoolByID(newState, 1), "Pool 1 should remain")
	})

	t.Run("should handle only updates", func(t *testing.T) {
		newState, err := Patcher(initialState, SystemDiff{Updates: []Pool{testPool(1, 1001, 5005, 2001)}})
		require.NoError(t, err)

		assert.Len(t, newState, 3)
		updatedPool := findPoolByID(newState, 1)
		require.NotNil(t, updatedPool)
		assert.Equal(t, uint64(1001), updatedPool.Reserve0.Uint64())
		assert.Equal(t, uint64(5005), updatedPool.Reserve1.Uint64())
		assert.Equal(t, uint64(2001), updatedPool.TotalShares.Uint64())
	})

	t.Run("should isolate the new state from both inputs", func(t *testing.T) {
		localInitialState := []Pool{testPool(1, 1000, 5000, 2000), testPool(2, 1, 1, 1)}
		update := testPool(1, 1001, 5005, 2001)

		newState, err := Patcher(localInitialState, SystemDiff{Updates: []Pool{update}})
		require.NoError(t, err)

		localInitialState[1].Reserve0.SetUint64(9999)
		update.TotalShares.SetUint64(9999)

		assert.Equal(t, uint64(1), findPoolByID(newState, 2).Reserve0.Uint64())
		assert.Equal(t, uint64(2001), findPoolByID(newState, 1).TotalShares.Uint64())
	})

	t.Run("should handle a mix of operations and keep ID order", func(t *testing.T) {
		diff := SystemDiff{
			Additions: []Pool{testPool(4, 4000, 1, 1)},
			Updates:   []Pool{testPool(2, 2002, 6000, 3000)},
			Deletions: []uint64{3},
		}

		newState, err := Patcher(initialState, diff)
		require.NoError(t, err)

		require.Len(t, newState, 3)
		assert.Equal(t, uint64(1), newState[0].ID)
		assert.Equal(t, uint64(2), newState[1].ID)
		assert.Equal(t, uint64(4), newState[2].ID)
		assert.Equal(t, uint64(2002), newState[1].Reserve0.Uint64())
	})

	t.Run("should round-trip a diff", func(t *testing.T) {
		next := []Pool{testPool(1, 999, 5006, 2000), testPool(3, 3000, 7000, 4000), testPool(5, 10, 10, 10)}

		newState, err := Patcher(initialState, Differ(initialState, next))
		require.NoError(t, err)
		assert.Equal(t, next, newState)
	})

	t.Run("should handle an empty diff", func(t *testing.T) {
		newState, err := Patcher(initialState, SystemDiff{})
		require.NoError(t, err)
		assert.Equal(t, initialState, newState)
	})
}

func TestDeepCopyPool(t *testing.T) {
	p := Pool{ID: 7, Reserve0: uint256.NewInt(1)}
	cp := deepCopyPool(p)
	cp.Reserve0.SetUint64(2)

	assert.Equal(t, uint64(1), p.Reserve0.Uint64())
	assert.Nil(t, cp.Reserve1)
	assert.Nil(t, cp.TotalShares)
}
