package memsys_test

import (
	"testing"

	"github.com/USNavalResearchLaboratory/normcore/memsys"
	"github.com/stretchr/testify/require"
)

func TestSegmentPoolReusesFreedBuffers(t *testing.T) {
	p := memsys.NewSegmentPool(16, 2)

	a := p.Get()
	require.NotNil(t, a)
	require.Len(t, a, 16)

	b := p.Get()
	require.NotNil(t, b)

	require.Nil(t, p.Get()) // capacity exhausted
	stats := p.Stats()
	require.EqualValues(t, 1, stats.Overruns)
	require.Equal(t, 2, stats.InUse)
	require.Equal(t, 2, stats.Peak)

	p.Put(a)
	c := p.Get()
	require.NotNil(t, c)
}

func TestBlockPoolGetReturnsZeroedTable(t *testing.T) {
	p := memsys.NewBlockPool(6, 1)

	t1 := p.Get()
	require.Len(t, t1, 6)
	t1[0] = []byte("x")
	p.Put(t1)

	t2 := p.Get()
	require.Len(t, t2, 6)
	require.Nil(t, t2[0]) // cleared on reuse

	require.Nil(t, p.Get()) // capacity 1, still checked out
	require.EqualValues(t, 1, p.Stats().Overruns)
}
