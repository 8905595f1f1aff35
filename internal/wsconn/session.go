// Package wsconn implements the WebSocket session: client open, server upgrade, the close
// handshake state machine, and a message iterator built on top of internal/wsframe's frame codec.
package wsconn

import (
	"bufio"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/markdingo/netreach/internal/constants"
	"github.com/markdingo/netreach/internal/neterr"
	"github.com/markdingo/netreach/internal/wsframe"
)

const me = "wsconn"

// Role distinguishes which side of the connection this Session represents, since framing rules
// differ: a client-originated frame must be masked, a server-originated frame never is.
type Role int

const (
	RoleClient Role = iota
	RoleServer
)

// closeState values form a monotonic lattice: None < {Read,Write} < Both. Represented as bits so
// Read|Write promotes to Both regardless of arrival order.
const (
	closeNone  int32 = 0
	closeRead  int32 = 1 << 0
	closeWrite int32 = 1 << 1
	closeBoth        = closeRead | closeWrite
)

// Session is a single WebSocket connection. closeState is the only field shared across split
// halves, held as a single atomic cell so both halves can promote it without a lock.
type Session struct {
	conn net.Conn
	br   *bufio.Reader
	bw   *bufio.Writer

	role             Role
	maxMessageLength uint64
	closeTimeout     time.Duration

	closeState atomic.Int32

	expectContinuation bool
	assembler           *wsframe.Assembler
	lastSentOp          *wsframe.Op // nil when not mid-message

	warn func(format string, args ...interface{})

	pings, pongs, closesSent, closesRecv int
}

const defaultMaxMessageLength = 16 * 1024 * 1024

// newSession wraps an already-upgraded connection. br may already contain buffered bytes read
// during the handshake (e.g. a client's next frame arriving in the same TCP segment as the 101
// response); bw is the same connection's write side.
func newSession(conn net.Conn, br *bufio.Reader, role Role) *Session {
	s := &Session{
		conn:             conn,
		br:               br,
		bw:               bufio.NewWriter(conn),
		role:             role,
		maxMessageLength: defaultMaxMessageLength,
		closeTimeout:     mustParseDuration(constants.Get().DefaultWSCloseTimeout, 30*time.Second),
		assembler:        wsframe.NewAssembler(defaultMaxMessageLength),
		warn:             func(string, ...interface{}) {},
	}
	return s
}

func mustParseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// SetMaxMessageLength overrides the per-message size cap.
func (s *Session) SetMaxMessageLength(n uint64) {
	s.maxMessageLength = n
	s.assembler = wsframe.NewAssembler(n)
}

// SetCloseTimeout overrides the close-handshake timeout.
func (s *Session) SetCloseTimeout(d time.Duration) { s.closeTimeout = d }

// CanRead reports whether the session may still be read from: false once the local or peer close
// has promoted closeState to Both.
func (s *Session) CanRead() bool {
	return s.closeState.Load()&closeBoth != closeBoth
}

// CanWrite reports whether the session may still be written to.
func (s *Session) CanWrite() bool {
	return s.closeState.Load()&closeBoth != closeBoth
}

// promoteClose sets bit in closeState, monotonically, and drives the half-shutdown handshake once
// both bits are set.
func (s *Session) promoteClose(bit int32) {
	for {
		old := s.closeState.Load()
		next := old | bit
		if next == old {
			return // Already set; lattice position unchanged.
		}
		if s.closeState.CompareAndSwap(old, next) {
			if next == closeBoth {
				s.finishCloseHandshake()
			}
			return
		}
	}
}

// serverOriginated reports whether frames received on this session originate from the server
// (true when this Session itself is a client, since it receives server frames).
func (s *Session) serverOriginated() bool { return s.role == RoleClient }

// frameMask returns the mask this session must apply to outbound data frames: nil for a server
// (never masked), a fresh random mask for a client.
func (s *Session) frameMask() (*[4]byte, error) {
	if s.role == RoleServer {
		return nil, nil
	}
	m, err := wsframe.NewRandomMask()
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// sendData writes one complete (non-fragmented) data frame. It refuses to run while a fragmented
// send is in progress (lastSentOp non-nil): starting a whole new message would interleave it with
// the one still being fragmented, which RFC 6455 forbids on a single connection.
func (s *Session) sendData(op wsframe.Op, payload []byte) error {
	if !s.CanWrite() {
		return neterr.New(me+":send", neterr.ProtocolViolation, fmt.Errorf("session is closed for writing"))
	}
	if s.lastSentOp != nil {
		return neterr.New(me+":send", neterr.DataTypeMismatch,
			fmt.Errorf("cannot send a complete %v message while a fragmented send is in progress", op))
	}
	mask, err := s.frameMask()
	if err != nil {
		return err
	}
	if err := wsframe.EncodeDataFrame(s.bw, true, op, payload, mask); err != nil {
		return err
	}
	return s.bw.Flush()
}

// SendFragmentStart begins a fragmented message: op must be Text or Binary. The frame is written
// with fin=false; the message stays open until SendFragmentEnd. Fails with DataTypeMismatch if a
// fragmented send is already open (a message must be closed with SendFragmentEnd before another
// can start).
func (s *Session) SendFragmentStart(op wsframe.Op, payload []byte) error {
	if !s.CanWrite() {
		return neterr.New(me+":send", neterr.ProtocolViolation, fmt.Errorf("session is closed for writing"))
	}
	if op.IsControl() {
		return neterr.New(me+":send", neterr.ProtocolViolation, fmt.Errorf("SendFragmentStart requires Text or Binary, got %v", op))
	}
	if s.lastSentOp != nil {
		return neterr.New(me+":send", neterr.DataTypeMismatch,
			fmt.Errorf("fragmented send of %v already in progress", *s.lastSentOp))
	}
	mask, err := s.frameMask()
	if err != nil {
		return err
	}
	if err := wsframe.EncodeDataFrame(s.bw, false, op, payload, mask); err != nil {
		return err
	}
	if err := s.bw.Flush(); err != nil {
		return err
	}
	startedOp := op
	s.lastSentOp = &startedOp
	return nil
}

// SendFragmentContinue writes a non-final continuation frame for the message SendFragmentStart
// opened. Fails with DataTypeMismatch if no fragmented send is open.
func (s *Session) SendFragmentContinue(payload []byte) error {
	if s.lastSentOp == nil {
		return neterr.New(me+":send", neterr.DataTypeMismatch, fmt.Errorf("no fragmented send in progress"))
	}
	mask, err := s.frameMask()
	if err != nil {
		return err
	}
	if err := wsframe.EncodeDataFrame(s.bw, false, wsframe.OpContinuation, payload, mask); err != nil {
		return err
	}
	return s.bw.Flush()
}

// SendFragmentEnd writes the final continuation frame, closing out the fragmented message opened
// by SendFragmentStart. Fails with DataTypeMismatch if no fragmented send is open.
func (s *Session) SendFragmentEnd(payload []byte) error {
	if s.lastSentOp == nil {
		return neterr.New(me+":send", neterr.DataTypeMismatch, fmt.Errorf("no fragmented send in progress"))
	}
	mask, err := s.frameMask()
	if err != nil {
		return err
	}
	if err := wsframe.EncodeDataFrame(s.bw, true, wsframe.OpContinuation, payload, mask); err != nil {
		return err
	}
	if err := s.bw.Flush(); err != nil {
		return err
	}
	s.lastSentOp = nil
	return nil
}

func (s *Session) sendControl(op wsframe.Op, payload []byte) error {
	mask, err := s.frameMask()
	if err != nil {
		return err
	}
	if err := wsframe.EncodeControlFrame(s.bw, op, payload, mask); err != nil {
		return err
	}
	return s.bw.Flush()
}

// SendText sends a Text message as a single final frame.
func (s *Session) SendText(text string) error { return s.sendData(wsframe.OpText, []byte(text)) }

// SendBinary sends a Binary message as a single final frame.
func (s *Session) SendBinary(data []byte) error { return s.sendData(wsframe.OpBinary, data) }

// SendPing sends a Ping control frame.
func (s *Session) SendPing(payload []byte) error {
	s.pings++
	return s.sendControl(wsframe.OpPing, payload)
}

// SendPong sends a Pong control frame.
func (s *Session) SendPong(payload []byte) error {
	s.pongs++
	return s.sendControl(wsframe.OpPong, payload)
}
