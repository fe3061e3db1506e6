package session

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// socketOpts carries the multicast/TTL/TOS/ECN knobs spec §6 exposes
// that plain net.ListenUDP/net.DialUDP have no portable setter for.
// Applied via the connection's raw fd, the same way the teacher reaches
// into OS-level socket/filesystem attributes with golang.org/x/sys/unix
// (ios/fsutils_linux.go's unix.Statfs_t access) rather than shelling out.
type socketOpts struct {
	ttl            int
	tos            int
	loopback       bool
	ecnEnabled     bool
	multicastIface *net.Interface
}

// applySocketOpts sets IP_TTL/IP_TOS/IP_MULTICAST_LOOP (and, best-effort,
// ECN marking) on conn's underlying fd.
func applySocketOpts(conn *net.UDPConn, opts socketOpts) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		ifd := int(fd)
		if opts.ttl > 0 {
			if e := unix.SetsockoptInt(ifd, unix.IPPROTO_IP, unix.IP_TTL, opts.ttl); e != nil {
				sockErr = e
				return
			}
			if e := unix.SetsockoptInt(ifd, unix.IPPROTO_IP, unix.IP_MULTICAST_TTL, opts.ttl); e != nil {
				sockErr = e
				return
			}
		}
		if opts.tos > 0 {
			if e := unix.SetsockoptInt(ifd, unix.IPPROTO_IP, unix.IP_TOS, opts.tos); e != nil {
				sockErr = e
				return
			}
		}
		loop := 0
		if opts.loopback {
			loop = 1
		}
		if e := unix.SetsockoptInt(ifd, unix.IPPROTO_IP, unix.IP_MULTICAST_LOOP, loop); e != nil {
			sockErr = e
			return
		}
		if opts.ecnEnabled {
			// ECT(0) marking; best-effort, some kernels reject this on a
			// socket already bound to a multicast group.
			_ = unix.SetsockoptInt(ifd, unix.IPPROTO_IP, unix.IP_TOS, opts.tos|0x02)
		}
	})
	if err != nil {
		return err
	}
	if sockErr != nil {
		if errno, ok := sockErr.(syscall.Errno); ok && errno == syscall.ENOPROTOOPT {
			return nil // option unsupported on this platform/socket kind; non-fatal
		}
		return sockErr
	}
	return nil
}

// joinMulticast wraps net.ListenMulticastUDP's iface resolution so the
// caller can pass a *net.Interface found by name (spec §6's optional
// bind-interface knob) or nil for the default.
func joinMulticast(group *net.UDPAddr, iface *net.Interface) (*net.UDPConn, error) {
	return net.ListenMulticastUDP("udp4", iface, group)
}
