// +build linux

package connect

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// Probe performs a non-blocking poll(2) on conn's file descriptor for {RdHangUp, HangUp, Error}
// with a zero timeout, returning true iff any of those bits is set. Used to decide whether a
// pooled connection is still live.
func Probe(conn *net.TCPConn) (bool, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return false, fmt.Errorf(me+": SyscallConn: %w", err)
	}

	var hungUp bool
	var pollErr error
	ctrlErr := raw.Control(func(fd uintptr) {
		fds := []unix.PollFd{{
			Fd:     int32(fd),
			Events: unix.POLLRDHUP | unix.POLLHUP | unix.POLLERR,
		}}
		n, err := unix.Poll(fds, 0)
		if err != nil {
			pollErr = err
			return
		}
		if n > 0 {
			revents := fds[0].Revents
			hungUp = revents&(unix.POLLRDHUP|unix.POLLHUP|unix.POLLERR) != 0
		}
	})
	if ctrlErr != nil {
		return false, fmt.Errorf(me+": Control: %w", ctrlErr)
	}
	if pollErr != nil {
		return false, fmt.Errorf(me+": poll: %w", pollErr)
	}
	return hungUp, nil
}
