package wsconn

import (
	"net"
	"time"

	"github.com/markdingo/netreach/internal/connect"
	"github.com/markdingo/netreach/internal/wsframe"
)

// Close sends a Close control frame and promotes closeState's Write bit. code/reason describe the
// reason this side is closing.
func (s *Session) Close(code uint16, reason string) error {
	s.closesSent++
	err := s.sendControl(wsframe.OpClose, closePayload(code, []byte(reason)))
	s.promoteClose(closeWrite)
	return err
}

func closePayload(code uint16, reason []byte) []byte {
	p := make([]byte, 2+len(reason))
	p[0] = byte(code >> 8)
	p[1] = byte(code)
	copy(p[2:], reason)
	return p
}

// onCloseReceived is called by the message iterator when a Close frame arrives, promoting
// closeState's Read bit.
func (s *Session) onCloseReceived() {
	s.closesRecv++
	s.promoteClose(closeRead)
}

// finishCloseHandshake runs once closeState reaches Both: issue shutdown(Write) on the underlying
// socket, then poll for the peer's RdHangUp bounded by closeTimeout. Timeout is logged, never
// returned as an error.
func (s *Session) finishCloseHandshake() {
	if wc, ok := s.conn.(interface{ CloseWrite() error }); ok {
		_ = wc.CloseWrite()
	}

	tcpConn := underlyingTCPConn(s.conn)
	if tcpConn == nil {
		return
	}

	deadline := time.Now().Add(s.closeTimeout)
	for time.Now().Before(deadline) {
		hungUp, err := connect.Probe(tcpConn)
		if err != nil {
			return
		}
		if hungUp {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	s.warn(me + ": close handshake timed out waiting for peer hang-up")
}

func underlyingTCPConn(c net.Conn) *net.TCPConn {
	switch v := c.(type) {
	case *net.TCPConn:
		return v
	case interface{ NetConn() net.Conn }:
		return underlyingTCPConn(v.NetConn())
	default:
		return nil
	}
}
