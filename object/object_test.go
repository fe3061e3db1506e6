package object_test

import (
	"testing"

	"github.com/USNavalResearchLaboratory/normcore/fec"
	"github.com/USNavalResearchLaboratory/normcore/memsys"
	"github.com/USNavalResearchLaboratory/normcore/object"
	"github.com/USNavalResearchLaboratory/normcore/wire"
	"github.com/stretchr/testify/require"
)

func fti(segSize, numData, numParity uint16) wire.FTI {
	return wire.FTI{SegmentSize: segSize, NumData: numData, NumParity: numParity, FecId: wire.FecId2, FecFieldSize: 8}
}

func TestOpenComputesBlockCount(t *testing.T) {
	o := object.Open(1, wire.ObjectSize(4*1400*3+1), fti(1400, 4, 2), 0)
	require.EqualValues(t, 4, o.NumBlocks()) // 3 full blocks + 1-byte remainder block
}

func TestOpenZeroSizeIsInfoOnly(t *testing.T) {
	o := object.Open(1, 0, fti(1400, 4, 2), 0)
	require.EqualValues(t, 0, o.NumBlocks())
}

func TestNextSenderMsgEmitsInfoThenData(t *testing.T) {
	o := object.Open(2, wire.ObjectSize(4*8), fti(8, 4, 2), 0)
	src := func(blockId wire.BlockId, symbolId wire.SymbolId, numData int) ([]byte, error) {
		return []byte{byte(symbolId)}, nil
	}

	msg, ok, err := o.NextSenderMsg(src)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, msg.IsInfo)

	seen := map[wire.SymbolId]bool{}
	for i := 0; i < 4; i++ {
		msg, ok, err = o.NextSenderMsg(src)
		require.NoError(t, err)
		require.True(t, ok)
		require.False(t, msg.IsInfo)
		seen[msg.SymbolId] = true
	}
	require.Len(t, seen, 4)

	_, ok, err = o.NextSenderMsg(src)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestWriteSegmentDecodesOnEnoughSymbols(t *testing.T) {
	codec, err := fec.New(4, 2)
	require.NoError(t, err)

	shardSize := 8
	shards := make([][]byte, 6)
	for i := 0; i < 4; i++ {
		shards[i] = make([]byte, shardSize)
		shards[i][0] = byte(i + 1)
	}
	shards[4] = make([]byte, shardSize)
	shards[5] = make([]byte, shardSize)
	require.NoError(t, codec.Encode(shards))

	o := object.Open(3, wire.ObjectSize(4*shardSize), fti(uint16(shardSize), 4, 2), 0)
	var completed bool
	for i, s := range shards {
		if i == 2 {
			continue // drop one source symbol; parity covers it
		}
		done, err := o.WriteSegment(0, wire.SymbolId(i), s, codec)
		require.NoError(t, err)
		if done {
			completed = true
		}
	}
	require.True(t, completed)
}

func TestAppendRepairRequestBlockBoundary(t *testing.T) {
	o := object.Open(4, wire.ObjectSize(4*8*2), fti(8, 4, 2), 0)
	// simulate two blocks pending by writing partial segments to both.
	codec, _ := fec.New(4, 2)
	_, _ = o.WriteSegment(0, 0, make([]byte, 8), codec)
	_, _ = o.WriteSegment(1, 0, make([]byte, 8), codec)

	rr := wire.NewRepairRequest(wire.FecId2, 8, 4096)
	complete := o.AppendRepairRequest(rr)
	require.True(t, complete)
	require.NotEmpty(t, rr.Items())
}

func TestWriteSegmentCopiesIntoSegPool(t *testing.T) {
	segPool := memsys.NewSegmentPool(8, 8)
	blockPool := memsys.NewBlockPool(6, 2)
	var segOverruns, blockOverruns int
	o := object.Open(5, wire.ObjectSize(4*8), fti(8, 4, 2), 0)
	o.SetPools(segPool, blockPool, func() { segOverruns++ }, func() { blockOverruns++ })

	codec, err := fec.New(4, 2)
	require.NoError(t, err)

	src := []byte("12345678")
	_, err = o.WriteSegment(0, 0, src, codec)
	require.NoError(t, err)
	require.Equal(t, 1, segPool.Stats().InUse)
	require.Equal(t, 1, blockPool.Stats().InUse)

	// mutating the caller's buffer must not affect the stored copy.
	src[0] = 'X'
	require.Equal(t, 0, blockOverruns)
	require.Equal(t, 0, segOverruns)

	o.Close()
	require.Equal(t, 0, segPool.Stats().InUse)
	require.Equal(t, 0, blockPool.Stats().InUse) // table returned to pool on Close
}

func TestEnsureBlockFallsBackWhenBlockPoolExhausted(t *testing.T) {
	blockPool := memsys.NewBlockPool(6, 0) // zero capacity: always exhausted
	var blockOverruns int
	o := object.Open(6, wire.ObjectSize(4*8), fti(8, 4, 2), 0)
	o.SetPools(nil, blockPool, nil, func() { blockOverruns++ })

	codec, err := fec.New(4, 2)
	require.NoError(t, err)
	_, err = o.WriteSegment(0, 0, make([]byte, 8), codec)
	require.NoError(t, err)
	require.Equal(t, 1, blockOverruns) // pool exhausted, fell back to unpooled Block
}

func TestHighestBlockReportsGreatestSeen(t *testing.T) {
	o := object.Open(7, wire.ObjectSize(4*8*3), fti(8, 4, 2), 0)
	_, ok := o.HighestBlock()
	require.False(t, ok, "nothing received yet")

	codec, err := fec.New(4, 2)
	require.NoError(t, err)
	_, err = o.WriteSegment(2, 0, make([]byte, 8), codec)
	require.NoError(t, err)
	_, err = o.WriteSegment(0, 0, make([]byte, 8), codec)
	require.NoError(t, err)

	id, ok := o.HighestBlock()
	require.True(t, ok)
	require.EqualValues(t, 2, id)
}

func TestReadSourceSegmentFromDataPayload(t *testing.T) {
	o := object.Open(8, wire.ObjectSize(10), fti(4, 2, 0), 0)
	o.Payload = object.Payload{Kind: object.PayloadData, Data: &object.DataPayload{Buf: []byte("0123456789")}}

	seg, err := o.ReadSourceSegment(0, 0)
	require.NoError(t, err)
	require.Equal(t, []byte("0123"), seg)

	seg, err = o.ReadSourceSegment(0, 1)
	require.NoError(t, err)
	require.Equal(t, []byte("4567"), seg)

	// final block's sole segment is short (2 valid bytes out of segmentSize 4).
	seg, err = o.ReadSourceSegment(1, 0)
	require.NoError(t, err)
	require.Equal(t, []byte("89"), seg)
}
