package session

import (
	"context"
	"net"

	"github.com/USNavalResearchLaboratory/normcore/cmn/cos"
	"golang.org/x/sync/errgroup"
)

// Transport binds a Session to a UDP socket and supervises its
// goroutines (timer wheel, receive loop) as one errgroup, so a failure in
// any of them tears the others down cleanly — the same
// errgroup.WithContext fan-out/fan-in idiom the teacher uses for
// mountpath jogger supervision (fs/walkbck.go).
type Transport struct {
	sess *Session
	conn *net.UDPConn
	opts socketOpts

	groupAddr *net.UDPAddr // session-wide destination for CMD/NACK/DATA multicast sends

	recvBufSize int

	sendErrs cos.Errs // recent send errors, deduplicated (spec §8 SEND_ERROR event)
}

// RecentSendErrors reports the distinct send errors recorded so far (the
// list is never cleared), joined into one error (nil if none).
func (t *Transport) RecentSendErrors() error { return t.sendErrs.JoinErr() }

// NewTransport binds addr (typically a multicast group) and applies the
// socket options spec §6 names.
func NewTransport(sess *Session, addr *net.UDPAddr, iface *net.Interface, opts socketOpts) (*Transport, error) {
	conn, err := joinMulticast(addr, iface)
	if err != nil {
		return nil, err
	}
	if err := applySocketOpts(conn, opts); err != nil {
		conn.Close()
		return nil, err
	}
	return &Transport{sess: sess, conn: conn, opts: opts, groupAddr: addr, recvBufSize: 65536}, nil
}

// GroupAddr reports the multicast group this Transport was bound to, the
// destination for session-wide DATA/CMD/NACK sends (as opposed to a
// unicast ACK or NACK addressed to one specific remote).
func (t *Transport) GroupAddr() *net.UDPAddr { return t.groupAddr }

// Run drives the timer wheel and receive loop until ctx is canceled or
// either goroutine returns an error.
func (t *Transport) Run(ctx context.Context, onPacket func([]byte, *net.UDPAddr)) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		t.sess.Wheel.Run()
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		t.sess.Wheel.Stop()
		return t.conn.Close()
	})

	g.Go(func() error {
		buf := make([]byte, t.recvBufSize)
		for {
			n, src, err := t.conn.ReadFromUDP(buf)
			if err != nil {
				select {
				case <-gctx.Done():
					return nil
				default:
				}
				if cos.IsErrTransientSend(err) {
					continue // momentary socket pressure, not a teardown condition
				}
				return err
			}
			pkt := make([]byte, n)
			copy(pkt, buf[:n])
			onPacket(pkt, src)
		}
	})

	return g.Wait()
}

// Send writes a single encoded PDU to dst. Transient errors (socket
// buffer momentarily full) are recorded but not surfaced to the caller,
// who should rely on repair/retransmission rather than retry loops;
// fatal errors (no route, connection refused) are both recorded and
// returned so the caller can decide whether to keep the destination.
func (t *Transport) Send(dst *net.UDPAddr, pdu []byte) error {
	_, err := t.conn.WriteToUDP(pdu, dst)
	if err == nil {
		return nil
	}
	t.sendErrs.Add(err)
	if cos.IsErrFatalSend(err) {
		return err
	}
	if cos.IsErrTransientSend(err) {
		return nil
	}
	return err
}

// LocalAddr reports the bound socket address.
func (t *Transport) LocalAddr() net.Addr { return t.conn.LocalAddr() }
