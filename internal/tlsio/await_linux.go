// +build linux

package tlsio

import (
	"fmt"
	"net"
	"time"

	"golang.org/x/sys/unix"
)

// awaitReadable polls fd for POLLIN, bounded by timeout (0 = block indefinitely). This turns the
// handshake loop's readiness requirement into an actual wait rather than a busy-spin.
func awaitReadable(conn *net.TCPConn, timeout time.Duration) error {
	return awaitEvents(conn, unix.POLLIN, timeout)
}

// awaitWritable polls fd for POLLOUT, bounded by timeout.
func awaitWritable(conn *net.TCPConn, timeout time.Duration) error {
	return awaitEvents(conn, unix.POLLOUT, timeout)
}

func awaitEvents(conn *net.TCPConn, events int16, timeout time.Duration) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return fmt.Errorf(me+": SyscallConn: %w", err)
	}

	ms := -1
	if timeout > 0 {
		ms = int(timeout.Milliseconds())
		if ms <= 0 {
			ms = 1
		}
	}

	var pollErr error
	ctrlErr := raw.Control(func(fd uintptr) {
		fds := []unix.PollFd{{Fd: int32(fd), Events: events}}
		_, pollErr = unix.Poll(fds, ms)
	})
	if ctrlErr != nil {
		return fmt.Errorf(me+": Control: %w", ctrlErr)
	}
	return pollErr
}
