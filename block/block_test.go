package block_test

import (
	"testing"
	"time"

	"github.com/USNavalResearchLaboratory/normcore/block"
	"github.com/USNavalResearchLaboratory/normcore/cmn/cos"
	"github.com/USNavalResearchLaboratory/normcore/fec"
	"github.com/USNavalResearchLaboratory/normcore/memsys"
	"github.com/USNavalResearchLaboratory/normcore/wire"
	"github.com/stretchr/testify/require"
)

func TestTxInitMarksPendingWithAutoParity(t *testing.T) {
	b := block.New(4, 2)
	b.TxInit(1, 1) // numData(4) + autoParity(1) = 5 pending
	require.EqualValues(t, 1, b.Id())
	rr := wire.NewRepairRequest(wire.FecId2, 8, 4096)
	require.True(t, b.AppendRepairAdv(rr, 9))
	require.Len(t, rr.Items(), 5)
}

func TestRxDecodeRecoversMissingSource(t *testing.T) {
	codec, err := fec.New(4, 2)
	require.NoError(t, err)

	shardSize := 8
	shards := make([][]byte, 6)
	for i := 0; i < 4; i++ {
		shards[i] = make([]byte, shardSize)
		for j := range shards[i] {
			shards[i][j] = byte(i + 1)
		}
	}
	shards[4] = make([]byte, shardSize)
	shards[5] = make([]byte, shardSize)
	require.NoError(t, codec.Encode(shards))

	b := block.New(4, 2)
	b.RxInit(7)
	// lose symbol 1 (source), deliver everything else.
	for i, s := range shards {
		if i == 1 {
			continue
		}
		b.WriteSegment(wire.SymbolId(i), s)
	}
	require.True(t, b.IsRepairPending() == false)
	done, err := b.Decode(codec)
	require.NoError(t, err)
	require.True(t, done)
	require.Equal(t, shards[1], b.Symbol(1))
	require.True(t, b.HaveAllSource())
}

func TestIsRepairPendingWhenErasuresExceedParity(t *testing.T) {
	b := block.New(4, 2)
	b.RxInit(0)
	// only 1 parity received, 2 source symbols missing (erasureCount=2 > parityCount=1)
	b.WriteSegment(0, []byte("a"))
	b.WriteSegment(1, []byte("b"))
	b.WriteSegment(4, []byte("p0"))
	require.True(t, b.IsRepairPending())
}

func TestTxUpdatePlansParityCappedByRoom(t *testing.T) {
	b := block.New(4, 2)
	b.TxInit(2, 0)
	b.TxUpdate(0, 0, 5) // request way more parity than numParity allows
	rr := wire.NewRepairRequest(wire.FecId2, 8, 4096)
	require.True(t, b.AppendRepairAdv(rr, 1))
	items := rr.Items()
	// numData(4) pending from source symbol 0 plus at most numParity(2) parity.
	require.LessOrEqual(t, len(items), 6)
}

func TestNoteNackTieBreak(t *testing.T) {
	b := block.New(4, 2)
	b.RxInit(0)
	now := time.Now()
	require.True(t, b.NoteNack(now, time.Second))
	// second NACK within the window does not trigger a new pass.
	require.False(t, b.NoteNack(now.Add(100*time.Millisecond), time.Second))
	// one after the window does.
	require.True(t, b.NoteNack(now.Add(2*time.Second), time.Second))
}

func TestEvictionEligible(t *testing.T) {
	b := block.New(4, 2)
	b.RxInit(0)
	now := time.Now()
	b.NoteNack(now, time.Second)
	require.False(t, b.EvictionEligible(now.Add(10*time.Millisecond), 50*time.Millisecond))
	require.True(t, b.EvictionEligible(now.Add(100*time.Millisecond), 50*time.Millisecond))
}

func TestNewFromPoolTrimsTableAndReleasesOnRelease(t *testing.T) {
	bp := memsys.NewBlockPool(8, 1) // wider than this block needs (4+1=5)
	sp := memsys.NewSegmentPool(4, 4)

	b := block.NewFromPool(bp, 4, 1)
	require.NotNil(t, b)
	b.RxInit(0)

	seg := sp.Get()
	require.NotNil(t, seg)
	b.WriteSegment(0, seg)
	require.NotNil(t, b.Symbol(0))
	require.Equal(t, 1, sp.Stats().InUse)

	require.Nil(t, bp.Get()) // the only table slot is checked out

	b.Release(sp)
	require.Equal(t, 0, sp.Stats().InUse) // the written segment went back

	t2 := bp.Get()
	require.NotNil(t, t2) // table slot returned to the pool
	require.Len(t, t2, 8)
}

func TestNewFromPoolExhaustionReturnsNil(t *testing.T) {
	bp := memsys.NewBlockPool(5, 0)
	require.Nil(t, block.NewFromPool(bp, 4, 1))
}

func TestDecodeWrapsCodecFailureAsUnrecoverable(t *testing.T) {
	codec, err := fec.New(2, 1)
	require.NoError(t, err)

	b := block.New(2, 1)
	b.RxInit(3)
	b.WriteSegment(0, make([]byte, 8))
	b.WriteSegment(2, make([]byte, 4)) // parity symbol with a mismatched length
	require.False(t, b.IsRepairPending())

	_, err = b.Decode(codec)
	require.Error(t, err)
	var unrec *cos.ErrUnrecoverable
	require.ErrorAs(t, err, &unrec)
	require.EqualValues(t, 3, unrec.BlockID)
}
