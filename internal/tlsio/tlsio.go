// Package tlsio drives crypto/tls over an asynchronous net.TCPConn the way a synchronous
// handshake state machine would: it polls for socket readable/writable transitions at each step
// rather than assuming Read/Write never block. Go's crypto/tls already exposes a net.Conn-shaped
// API, so the bridge here is a pollConn that awaits readiness (via unix.Poll on Linux) before
// delegating to the real TCP connection; crypto/tls's internal handshake loop calls Read/Write on
// that pollConn exactly when it wants to read or write.
package tlsio

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/markdingo/netreach/internal/neterr"
)

const me = "tlsio"

// Stats holds the TLS handshake figures; it is separate from, and does not embed, connect.Stats.
type Stats struct {
	HandshakeDuration time.Duration
	PeerCertificate   *x509.Certificate // nil if the peer presented none; used for display only
}

// pollConn wraps a *net.TCPConn so that every Read/Write is preceded by a poll(2)-based await of
// the corresponding readiness event, bounded by an overall deadline.
type pollConn struct {
	*net.TCPConn
	deadline time.Time
}

func (p *pollConn) remaining() time.Duration {
	if p.deadline.IsZero() {
		return 0
	}
	d := time.Until(p.deadline)
	if d < 0 {
		d = 0
	}
	return d
}

func (p *pollConn) Read(b []byte) (int, error) {
	if err := awaitReadable(p.TCPConn, p.remaining()); err != nil {
		return 0, err
	}
	return p.TCPConn.Read(b)
}

func (p *pollConn) Write(b []byte) (int, error) {
	if err := awaitWritable(p.TCPConn, p.remaining()); err != nil {
		return 0, err
	}
	return p.TCPConn.Write(b)
}

// Handshake drives a client-side TLS handshake over conn. cfg.ServerName is used for
// SNI/verification. Returns a *tls.Conn ready for application data plus Stats.
func Handshake(ctx context.Context, conn *net.TCPConn, cfg *tls.Config, overallTimeout time.Duration) (*tls.Conn, Stats, error) {
	pc := &pollConn{TCPConn: conn}
	if overallTimeout > 0 {
		pc.deadline = time.Now().Add(overallTimeout)
		deadlineCtx, cancel := context.WithDeadline(ctx, pc.deadline)
		defer cancel()
		ctx = deadlineCtx
	}

	tlsConn := tls.Client(pc, cfg)

	start := time.Now()
	err := tlsConn.HandshakeContext(ctx)
	stats := Stats{HandshakeDuration: time.Since(start)}
	if err != nil {
		// Best-effort non-blocking flush of any pending alert the library queued.
		_ = pc.TCPConn.SetWriteDeadline(time.Now().Add(50 * time.Millisecond))
		_, _ = tlsConn.Write(nil)
		_ = pc.TCPConn.SetWriteDeadline(time.Time{})

		kind := neterr.ProtocolViolation
		if ctx.Err() != nil {
			kind = neterr.Timeout
		}
		return nil, stats, neterr.New(me+":handshake", kind, err)
	}

	state := tlsConn.ConnectionState()
	if len(state.PeerCertificates) > 0 {
		stats.PeerCertificate = state.PeerCertificates[0] // Extracted for display only
	}

	return tlsConn, stats, nil
}

// Session is a TLS connection shared between a ReadHalf and a WriteHalf under a short-held mutex.
// The split is logical, not structural: both halves delegate to the same *tls.Conn, serialized by
// mu.
type Session struct {
	mu   sync.Mutex
	conn *tls.Conn
}

func NewSession(conn *tls.Conn) *Session { return &Session{conn: conn} }

// Split returns a ReadHalf/WriteHalf pair sharing this session.
func (s *Session) Split() (*ReadHalf, *WriteHalf) {
	return &ReadHalf{session: s}, &WriteHalf{session: s}
}

// ReadHalf exposes only the read side of a split TLS session.
type ReadHalf struct {
	session *Session
}

func (r *ReadHalf) Read(b []byte) (int, error) {
	r.session.mu.Lock()
	defer r.session.mu.Unlock()
	return r.session.conn.Read(b)
}

// CloseRead shuts down the underlying connection for reads by closing it; crypto/tls has no
// half-close primitive for the read side alone, so this closes the full connection. Callers that
// need a true half-close use the underlying net.Conn directly before wrapping it in a Session.
func (r *ReadHalf) CloseRead() error {
	r.session.mu.Lock()
	defer r.session.mu.Unlock()
	return r.session.conn.Close()
}

// WriteHalf exposes only the write side of a split TLS session.
type WriteHalf struct {
	session *Session
}

func (w *WriteHalf) Write(b []byte) (int, error) {
	w.session.mu.Lock()
	defer w.session.mu.Unlock()
	return w.session.conn.Write(b)
}

func (w *WriteHalf) CloseWrite() error {
	w.session.mu.Lock()
	defer w.session.mu.Unlock()
	return w.session.conn.CloseWrite()
}

// ApplicationRead is a thin wrapper over tls.Conn.Read: crypto/tls already folds its internal
// would-block/read/process-new-packets loop into a single blocking Read, so there is no
// additional state to drive here beyond what pollConn already contributes at the transport level.
func ApplicationRead(conn *tls.Conn, b []byte) (int, error) {
	n, err := conn.Read(b)
	if err != nil {
		return n, fmt.Errorf(me+": read: %w", err)
	}
	return n, nil
}

// ApplicationWrite writes plaintext, reporting partial progress rather than discarding it if
// interrupted. crypto/tls's Write is already atomic with respect to record framing, so the
// partial-count contract only matters across repeated calls.
func ApplicationWrite(conn *tls.Conn, b []byte) (int, error) {
	n, err := conn.Write(b)
	if err != nil {
		return n, fmt.Errorf(me+": write: %w", err)
	}
	return n, nil
}
