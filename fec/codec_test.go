package fec_test

import (
	"bytes"
	"testing"

	"github.com/USNavalResearchLaboratory/normcore/fec"
	"github.com/stretchr/testify/require"
)

func TestEncodeReconstruct(t *testing.T) {
	codec, err := fec.New(4, 2)
	require.NoError(t, err)

	shardSize := 8
	shards := make([][]byte, 6)
	for i := 0; i < 4; i++ {
		shards[i] = bytes.Repeat([]byte{byte(i + 1)}, shardSize)
	}
	shards[4] = make([]byte, shardSize)
	shards[5] = make([]byte, shardSize)

	require.NoError(t, codec.Encode(shards))

	original := make([][]byte, len(shards))
	for i, s := range shards {
		original[i] = append([]byte(nil), s...)
	}

	// drop two shards (within parity budget) and reconstruct.
	shards[1] = nil
	shards[4] = nil
	require.NoError(t, codec.Reconstruct(shards))
	for i := range shards {
		require.Equal(t, original[i], shards[i])
	}
}

func TestReconstructTooManyErasures(t *testing.T) {
	codec, err := fec.New(4, 2)
	require.NoError(t, err)

	shards := make([][]byte, 6)
	for i := range shards {
		shards[i] = make([]byte, 4)
	}
	shards[0], shards[1], shards[2] = nil, nil, nil
	require.Error(t, codec.Reconstruct(shards))
}

func TestNoParityCodec(t *testing.T) {
	codec, err := fec.New(4, 0)
	require.NoError(t, err)
	require.Equal(t, 0, codec.NumParity())

	shards := make([][]byte, 4)
	for i := range shards {
		shards[i] = []byte{byte(i)}
	}
	require.NoError(t, codec.Encode(shards))

	shards[2] = nil
	require.Error(t, codec.Reconstruct(shards))
}
