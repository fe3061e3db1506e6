package wire_test

import (
	"testing"

	"github.com/USNavalResearchLaboratory/normcore/wire"
	"github.com/stretchr/testify/require"
)

func TestObjectIdSlidingWindow(t *testing.T) {
	require.True(t, wire.ObjectId(10).Less(wire.ObjectId(20)))
	require.True(t, wire.ObjectId(20).Greater(wire.ObjectId(10)))
	// wraparound: 65530 is "before" 5 in a 16-bit half-range window.
	require.True(t, wire.ObjectId(65530).Less(wire.ObjectId(5)))
	require.True(t, wire.ObjectId(5).Greater(wire.ObjectId(65530)))
	require.True(t, wire.ObjectId(10).LessEq(wire.ObjectId(10)))
	require.True(t, wire.ObjectId(10).GreaterEq(wire.ObjectId(10)))
}

func TestBlockIdDifferenceAndCompare(t *testing.T) {
	const mask = 0xFFFFFFFF
	require.EqualValues(t, 5, wire.BlockId(15).Difference(wire.BlockId(10), mask))
	require.Equal(t, 1, wire.BlockId(15).Compare(wire.BlockId(10), mask))
	require.Equal(t, -1, wire.BlockId(10).Compare(wire.BlockId(15), mask))
	require.Equal(t, 0, wire.BlockId(10).Compare(wire.BlockId(10), mask))
}

func TestBlockIdIncrementDecrementWrap(t *testing.T) {
	const mask = 0xFF // 8-bit block id space, as a small FEC scheme might use
	require.EqualValues(t, 0, wire.BlockId(0xFF).Increment(1, mask))
	require.EqualValues(t, 0xFF, wire.BlockId(0).Decrement(1, mask))
}
