// +build !linux

package tlsio

import (
	"net"
	"time"
)

// awaitReadable/awaitWritable on non-Linux platforms degrade to a no-op: the subsequent Read/Write
// on the pollConn simply blocks, bounded only by the handshake context's deadline, and can't
// distinguish "ready" from "about to block" ahead of time the way poll(2) can on Linux.
func awaitReadable(conn *net.TCPConn, timeout time.Duration) error { return nil }
func awaitWritable(conn *net.TCPConn, timeout time.Duration) error { return nil }
