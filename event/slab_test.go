package event_test

import (
	"testing"

	"github.com/USNavalResearchLaboratory/normcore/event"
	"github.com/stretchr/testify/require"
)

func TestSlabInsertResolveRelease(t *testing.T) {
	s := event.NewSlab[string]()
	h := s.Insert("object-1")

	v, ok := s.Resolve(h)
	require.True(t, ok)
	require.Equal(t, "object-1", v)

	require.True(t, s.Release(h))
	_, ok = s.Resolve(h)
	require.False(t, ok)
}

func TestSlabReuseBumpsGeneration(t *testing.T) {
	s := event.NewSlab[int]()
	h1 := s.Insert(1)
	require.True(t, s.Release(h1))

	h2 := s.Insert(2)
	require.Equal(t, h1.Index, h2.Index)
	require.NotEqual(t, h1.Gen, h2.Gen)

	// the stale handle from before release must not resolve to the new value.
	_, ok := s.Resolve(h1)
	require.False(t, ok)
	v, ok := s.Resolve(h2)
	require.True(t, ok)
	require.Equal(t, 2, v)
}

func TestSlabLen(t *testing.T) {
	s := event.NewSlab[int]()
	s.Insert(1)
	h := s.Insert(2)
	require.Equal(t, 2, s.Len())
	s.Release(h)
	require.Equal(t, 1, s.Len())
}
