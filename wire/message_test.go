package wire_test

import (
	"testing"

	"github.com/USNavalResearchLaboratory/normcore/wire"
	"github.com/stretchr/testify/require"
)

func baseHeader(typ wire.MsgType) wire.Header {
	return wire.Header{Version: wire.Version, Type: typ, Sequence: 7, SourceId: 42}
}

func TestInfoRoundTrip(t *testing.T) {
	pid := wire.PayloadId{BlockId: 100, SymbolId: 0, BlockLen: 16}
	buf := wire.EncodeInfo(baseHeader(wire.MsgInfo), 5, pid, wire.FecId2, 8, []byte("object metadata"))

	msg, err := wire.Decode(buf, wire.FecId2, 8)
	require.NoError(t, err)
	require.Equal(t, wire.MsgInfo, msg.Header.Type)
	require.NotNil(t, msg.Info)
	require.EqualValues(t, 5, msg.Info.ObjectId)
	require.Equal(t, pid.BlockId, msg.Info.PayloadId.BlockId)
	require.Equal(t, []byte("object metadata"), msg.Info.Content)
}

func TestDataRoundTripWithInfoFlag(t *testing.T) {
	pid := wire.PayloadId{BlockId: 3, SymbolId: 1, BlockLen: 8}
	body := wire.DataBody{
		ObjectId:   9,
		PayloadId:  pid,
		ObjectSize: 1 << 20,
		Flags:      wire.DataFlagInfo | wire.DataFlagMsgStart,
		Payload:    []byte("payload-bytes"),
	}
	buf := wire.EncodeData(baseHeader(wire.MsgData), body, wire.FecId2, 8)

	msg, err := wire.Decode(buf, wire.FecId2, 8)
	require.NoError(t, err)
	require.NotNil(t, msg.Data)
	require.EqualValues(t, 9, msg.Data.ObjectId)
	require.EqualValues(t, 1<<20, msg.Data.ObjectSize)
	require.True(t, msg.Data.Flags&wire.DataFlagInfo != 0)
	require.True(t, msg.Data.Flags&wire.DataFlagMsgStart != 0)
	require.Equal(t, []byte("payload-bytes"), msg.Data.Payload)
}

func TestNackRoundTripWithRepair(t *testing.T) {
	rr := wire.NewRepairRequest(wire.FecId2, 8, 1400)
	rr.SetFlag(wire.ScopeSegment)
	ok := rr.AppendItem(wire.RepairItem{ObjectId: 1, BlockId: 2, SymbolId: 3})
	require.True(t, ok)

	buf := wire.EncodeNack(baseHeader(wire.MsgNack), wire.NackBody{
		ServerId: 99,
		GrttQ:    128,
		LossQ:    wire.QuantizeLoss(0.01),
		Repair:   rr,
	})

	msg, err := wire.Decode(buf, wire.FecId2, 8)
	require.NoError(t, err)
	require.NotNil(t, msg.Nack)
	require.EqualValues(t, 99, msg.Nack.ServerId)
	require.NotNil(t, msg.Nack.Repair)
	require.Equal(t, wire.FormItems, msg.Nack.Repair.Form)
	items := msg.Nack.Repair.Items()
	require.Len(t, items, 1)
	require.EqualValues(t, 1, items[0].ObjectId)
	require.EqualValues(t, 2, items[0].BlockId)
}

func TestCmdFlushRoundTrip(t *testing.T) {
	buf := wire.EncodeCmdFlush(baseHeader(wire.MsgCmd), wire.CmdFlushBody{
		ObjectId:  11,
		PayloadId: wire.PayloadId{BlockId: 4, SymbolId: 0},
	}, wire.FecId2, 8)

	msg, err := wire.Decode(buf, wire.FecId2, 8)
	require.NoError(t, err)
	require.NotNil(t, msg.Cmd)
	require.Equal(t, wire.CmdFlush, msg.Cmd.Flavor)
	require.NotNil(t, msg.Cmd.Flush)
	require.EqualValues(t, 11, msg.Cmd.Flush.ObjectId)
}

func TestCmdSquelchRoundTrip(t *testing.T) {
	buf := wire.EncodeCmdSquelch(baseHeader(wire.MsgCmd), wire.CmdSquelchBody{
		Invalidated: []wire.ObjectId{1, 2, 3},
	})
	msg, err := wire.Decode(buf, wire.FecId2, 8)
	require.NoError(t, err)
	require.Equal(t, wire.CmdSquelch, msg.Cmd.Flavor)
	require.Equal(t, []wire.ObjectId{1, 2, 3}, msg.Cmd.Squelch.Invalidated)
}

func TestCmdCCRoundTripWithFeedback(t *testing.T) {
	cc := wire.CmdCCBody{
		CcSequence: 17,
		GrttQ:      wire.QuantizeRtt(0.25),
		GrttFlags:  0,
		GssQ:       5,
		Feedback: []wire.CCFeedback{
			{Sequence: 17, Flags: wire.CCFlagClr, Rtt: wire.QuantizeRtt(0.1), LossQ: wire.QuantizeLoss(0.02), Rate: 500},
		},
	}
	buf := wire.EncodeCmdCC(baseHeader(wire.MsgCmd), cc)
	msg, err := wire.Decode(buf, wire.FecId2, 8)
	require.NoError(t, err)
	require.Equal(t, wire.CmdCC, msg.Cmd.Flavor)
	require.Len(t, msg.Cmd.CC.Feedback, 1)
	require.Equal(t, uint8(17), msg.Cmd.CC.Feedback[0].Sequence)
	require.Equal(t, wire.CCFlagClr, msg.Cmd.CC.Feedback[0].Flags)
}

func TestAckRoundTrip(t *testing.T) {
	buf := wire.EncodeAck(baseHeader(wire.MsgAck), wire.AckBody{
		ServerId: 12,
		AckId:    1,
		AckType:  2,
		Content:  []byte("ack-content"),
	})
	msg, err := wire.Decode(buf, wire.FecId2, 8)
	require.NoError(t, err)
	require.NotNil(t, msg.Ack)
	require.EqualValues(t, 12, msg.Ack.ServerId)
	require.Equal(t, []byte("ack-content"), msg.Ack.Content)
}

func TestDecodeRejectsWrongVersion(t *testing.T) {
	buf := wire.EncodeReport(baseHeader(wire.MsgReport), wire.ReportBody{})
	buf[0] = (0x7 << 4) | byte(wire.MsgReport) // version=7, invalid
	_, err := wire.Decode(buf, wire.FecId2, 8)
	require.ErrorIs(t, err, wire.ErrInvalidVersion)
}

func TestDecodeTruncated(t *testing.T) {
	_, err := wire.Decode([]byte{1, 2, 3}, wire.FecId2, 8)
	require.Error(t, err)
}
