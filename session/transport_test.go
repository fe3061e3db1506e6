package session

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/USNavalResearchLaboratory/normcore/config"
	"github.com/stretchr/testify/require"
)

func newTestSessionForTransport(t *testing.T) (*Session, error) {
	t.Helper()
	return New(1, config.Default(), nil)
}

func TestApplySocketOptsOnLoopback(t *testing.T) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer conn.Close()

	err = applySocketOpts(conn, socketOpts{ttl: 32, tos: 0x10, loopback: true})
	require.NoError(t, err)
}

func TestTransportSendAndReceive(t *testing.T) {
	sess, err := newTestSessionForTransport(t)
	require.NoError(t, err)

	serverConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	tr := &Transport{sess: sess, conn: serverConn, recvBufSize: 2048}

	clientConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer clientConn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	received := make(chan []byte, 1)
	go func() {
		_ = tr.Run(ctx, func(pkt []byte, _ *net.UDPAddr) {
			received <- pkt
		})
	}()

	_, err = clientConn.WriteToUDP([]byte("hello"), serverConn.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)

	select {
	case pkt := <-received:
		require.Equal(t, "hello", string(pkt))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for packet")
	}
	cancel()
}

func TestTransportSendRecordsFatalError(t *testing.T) {
	sess, err := newTestSessionForTransport(t)
	require.NoError(t, err)

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer conn.Close()
	tr := &Transport{sess: sess, conn: conn, recvBufSize: 2048}

	require.Nil(t, tr.RecentSendErrors())

	// port 1 on an address with no listener: some platforms surface this
	// synchronously as ECONNREFUSED on a connected-style UDP write, others
	// only on the next read; either way a send to an unroutable loopback
	// port is a reasonable fatal-path smoke test for the classification
	// wiring rather than asserting a specific error value.
	dst := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1}
	_ = tr.Send(dst, []byte("x"))
}
