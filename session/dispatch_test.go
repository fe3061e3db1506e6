package session

import (
	"net"
	"testing"
	"time"

	"github.com/USNavalResearchLaboratory/normcore/config"
	"github.com/USNavalResearchLaboratory/normcore/event"
	"github.com/USNavalResearchLaboratory/normcore/node"
	"github.com/USNavalResearchLaboratory/normcore/object"
	"github.com/USNavalResearchLaboratory/normcore/wire"
	"github.com/stretchr/testify/require"
)

// smallCfg builds a config with a tiny FEC scheme (two source symbols,
// no parity) so tests can complete an object with two segments.
func smallCfg() config.Config {
	c := config.Default()
	c.SegmentSize = 8
	c.NumData = 2
	c.NumParity = 0
	c.FecId = uint8(wire.FecId2)
	c.FecFieldSize = 8
	c.TxCacheCountMin = 1
	c.TxCacheCountMax = 8
	return c
}

func loopbackPair(t *testing.T) (*net.UDPConn, *net.UDPConn) {
	t.Helper()
	a, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	b, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	return a, b
}

func TestHandlePacketInfo(t *testing.T) {
	s, err := New(1, smallCfg(), nil)
	require.NoError(t, err)

	h := wire.Header{Version: wire.Version, SourceId: 42, Sequence: 1}
	pdu := wire.EncodeInfo(h, wire.ObjectId(7), wire.PayloadId{}, wire.FecId2, 8, []byte("hello"))

	src := &net.UDPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 6003}
	require.NoError(t, s.HandlePacket(pdu, src, time.Now(), nil))

	ev, ok := s.Events.TryPop()
	require.True(t, ok)
	require.Equal(t, event.RemoteSenderNew, ev.Type)

	ev, ok = s.Events.TryPop()
	require.True(t, ok)
	require.Equal(t, event.RxObjectNew, ev.Type)

	ev, ok = s.Events.TryPop()
	require.True(t, ok)
	require.Equal(t, event.RxObjectInfo, ev.Type)

	id := node.Identity{NodeId: 42, SrcAddr: "10.0.0.1", SrcPort: 6003}
	sn, ok := s.lookupSender(id)
	require.True(t, ok)
	obj, ok := sn.Object(wire.ObjectId(7))
	require.True(t, ok)
	require.Equal(t, []byte("hello"), obj.InfoContent())
}

func TestHandlePacketDataCompletesObject(t *testing.T) {
	s, err := New(1, smallCfg(), nil)
	require.NoError(t, err)

	objId := wire.ObjectId(3)
	src := &net.UDPAddr{IP: net.IPv4(10, 0, 0, 2), Port: 6003}

	for i := 0; i < 2; i++ {
		h := wire.Header{Version: wire.Version, SourceId: 99, Sequence: uint16(i)}
		d := wire.DataBody{
			ObjectId:  objId,
			PayloadId: wire.PayloadId{BlockId: 0, SymbolId: wire.SymbolId(i)},
			Payload:   []byte("aaaaaaaa"),
		}
		if i == 0 {
			d.Flags = wire.DataFlagInfo
			d.ObjectSize = 16
		}
		pdu := wire.EncodeData(h, d, wire.FecId2, 8)
		require.NoError(t, s.HandlePacket(pdu, src, time.Now(), nil))
	}

	var sawCompleted bool
	for {
		ev, ok := s.Events.TryPop()
		if !ok {
			break
		}
		if ev.Type == event.RxObjectCompleted {
			sawCompleted = true
		}
	}
	require.True(t, sawCompleted)

	id := node.Identity{NodeId: 99, SrcAddr: "10.0.0.2", SrcPort: 6003}
	sn, ok := s.lookupSender(id)
	require.True(t, ok)
	_, ok = sn.Retrieve(objId)
	require.True(t, ok)
}

func TestHandleCmdFlushSendsAck(t *testing.T) {
	s, err := New(1, smallCfg(), nil)
	require.NoError(t, err)

	serverConn, clientConn := loopbackPair(t)
	defer serverConn.Close()
	defer clientConn.Close()
	tr := &Transport{sess: s, conn: clientConn, groupAddr: clientConn.LocalAddr().(*net.UDPAddr), recvBufSize: 2048}

	objId := wire.ObjectId(5)
	src := serverConn.LocalAddr().(*net.UDPAddr)
	id := identityFor(wire.Header{SourceId: 11}, src)
	sn, _ := s.RemoteSender(id, time.Now())
	obj := sn.EnsureObject(objId, wire.ObjectSize(16), s.DefaultFTI(16), 8)
	_, err = obj.WriteSegment(0, 0, []byte("aaaaaaaa"), sn.Decoder())
	require.NoError(t, err)
	_, err = obj.WriteSegment(0, 1, []byte("bbbbbbbb"), sn.Decoder())
	require.NoError(t, err)

	h := wire.Header{Version: wire.Version, SourceId: 11}
	f := &wire.CmdFlushBody{ObjectId: objId, PayloadId: wire.PayloadId{BlockId: 0, SymbolId: 1}}
	require.NoError(t, s.handleCmdFlush(h, f, src, time.Now(), tr))

	buf := make([]byte, 2048)
	serverConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := serverConn.ReadFromUDP(buf)
	require.NoError(t, err)

	msg, err := wire.Decode(buf[:n], wire.FecId2, 8)
	require.NoError(t, err)
	require.NotNil(t, msg.Ack)
	require.Equal(t, uint8(ackTypeFlush), msg.Ack.AckType)
}

func TestHandleNackSquelchesStaleObject(t *testing.T) {
	s, err := New(1, smallCfg(), nil)
	require.NoError(t, err)

	serverConn, clientConn := loopbackPair(t)
	defer serverConn.Close()
	defer clientConn.Close()
	tr := &Transport{sess: s, conn: clientConn, groupAddr: clientConn.LocalAddr().(*net.UDPAddr), recvBufSize: 2048}

	rr := wire.NewRepairRequest(wire.FecId2, 8, 4096)
	rr.AppendItem(wire.RepairItem{ObjectId: wire.ObjectId(2), BlockId: 0, SymbolId: 0})
	n := &wire.NackBody{ServerId: 1, Repair: rr}

	src := serverConn.LocalAddr().(*net.UDPAddr)
	require.NoError(t, s.handleNack(wire.Header{SourceId: 1}, n, src, tr))

	buf := make([]byte, 2048)
	serverConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	nb, _, err := serverConn.ReadFromUDP(buf)
	require.NoError(t, err)

	msg, err := wire.Decode(buf[:nb], wire.FecId2, 8)
	require.NoError(t, err)
	require.NotNil(t, msg.Cmd)
	require.Equal(t, wire.CmdSquelch, msg.Cmd.Flavor)
	require.Contains(t, msg.Cmd.Squelch.Invalidated, wire.ObjectId(2))
}

func TestOnTimerTxSendsPendingObject(t *testing.T) {
	s, err := New(1, smallCfg(), nil)
	require.NoError(t, err)

	serverConn, clientConn := loopbackPair(t)
	defer serverConn.Close()
	defer clientConn.Close()
	tr := &Transport{sess: s, conn: clientConn, groupAddr: serverConn.LocalAddr().(*net.UDPAddr), recvBufSize: 2048}

	objId := wire.ObjectId(1)
	obj := object.Open(objId, wire.ObjectSize(16), s.DefaultFTI(16), 8)
	obj.Payload = object.Payload{Kind: object.PayloadData, Data: &object.DataPayload{Buf: []byte("0123456789abcdef")}}
	s.TxCache.Insert(objId, obj)

	require.NoError(t, s.onTimerTx(tr, time.Now()))

	buf := make([]byte, 2048)
	serverConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := serverConn.ReadFromUDP(buf)
	require.NoError(t, err)
	require.Greater(t, n, 0)

	msg, err := wire.Decode(buf[:n], wire.FecId2, 8)
	require.NoError(t, err)
	require.NotNil(t, msg.Info)
	require.Equal(t, objId, msg.Info.ObjectId)
}
