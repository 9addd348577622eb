package uniswapv2

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPool(id, reserve0, reserve1, shares uint64) Pool {
	return Pool{
		ID:          id,
		Reserve0:    uint256.NewInt(reserve0),
		Reserve1:    uint256.NewInt(reserve1),
		TotalShares: uint256.NewInt(shares),
		FeeBps:      30,
	}
}

func TestDiffer(t *testing.T) {
	pool1Old := testPool(1, 1000, 2000, 500)
	pool2Old := testPool(2, 3000, 4000, 900)
	pool3Old := testPool(3, 5000, 6000, 1200)

	t.Run("should identify additions in ID order", func(t *testing.T) {
		pool4New := testPool(4, 1, 1, 1)
		diff := Differ([]Pool{pool1Old}, []Pool{pool1Old, pool4New, pool2Old})

		require.Len(t, diff.Additions, 2)
		assert.Equal(t, uint64(2), diff.Additions[0].ID)
		assert.Equal(t, uint64(4), diff.Additions[1].ID)
		assert.Empty(t, diff.Updates)
		assert.Empty(t, diff.Deletions)
	})

	t.Run("should identify deletions", func(t *testing.T) {
		diff := Differ([]Pool{pool1Old, pool2Old, pool3Old}, []Pool{pool2Old})

		assert.Empty(t, diff.Additions)
		assert.Empty(t, diff.Updates)
		assert.Equal(t, []uint64{1, 3}, diff.Deletions)
	})

	t.Run("should identify reserve updates", func(t *testing.T) {
		pool1Updated := testPool(1, 1001, 2000, 500)
		diff := Differ([]Pool{pool1Old}, []Pool{pool1Updated})

		require.Len(t, diff.Updates, 1)
		assert.Equal(t, uint64(1001), diff.Updates[0].Reserve0.Uint64())
	})

	t.Run("should identify share-only updates", func(t *testing.T) {
		pool1Updated := testPool(1, 1000, 2000, 501)
		diff := Differ([]Pool{pool1Old}, []Pool{pool1Updated})

		require.Len(t, diff.Updates, 1)
		assert.Equal(t, uint64(501), diff.Updates[0].TotalShares.Uint64())
	})

	t.Run("should handle a mix of additions, updates, and deletions", func(t *testing.T) {
		pool1Updated := testPool(1, 1001, 2000, 500)
		pool4New := testPool(4, 7000, 8000, 100)

		diff := Differ([]Pool{pool1Old, pool2Old, pool3Old}, []Pool{pool1Updated, pool2Old, pool4New})

		require.Len(t, diff.Additions, 1)
		assert.Equal(t, pool4New.ID, diff.Additions[0].ID)
		require.Len(t, diff.Updates, 1)
		assert.Equal(t, pool1Updated.ID, diff.Updates[0].ID)
		assert.Equal(t, []uint64{3}, diff.Deletions)
		assert.False(t, diff.IsEmpty())
	})

	t.Run("should produce an empty diff when values are equal but not aliased", func(t *testing.T) {
		diff := Differ([]Pool{pool1Old, pool2Old}, []Pool{testPool(1, 1000, 2000, 500), testPool(2, 3000, 4000, 900)})
		assert.True(t, diff.IsEmpty())
	})

	t.Run("should handle nil amounts", func(t *testing.T) {
		diff := Differ([]Pool{{ID: 1}}, []Pool{{ID: 1}})
		assert.True(t, diff.IsEmpty())

		diff = Differ([]Pool{{ID: 1}}, []Pool{pool1Old})
		assert.Len(t, diff.Updates, 1)
	})

	t.Run("should handle empty states", func(t *testing.T) {
		assert.True(t, Differ(nil, []Pool{}).IsEmpty())
	})
}
