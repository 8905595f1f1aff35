package wsconn

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/markdingo/netreach/internal/bytesx"
	"github.com/markdingo/netreach/internal/constants"
	"github.com/markdingo/netreach/internal/httpmsg"
	"github.com/markdingo/netreach/internal/neterr"
	"github.com/markdingo/netreach/internal/reporter"
)

// UpgradeOptions configures a server-side WebSocket upgrade.
type UpgradeOptions struct {
	MaxHeaderBytes int // default constants.DefaultMaxHeaderSize
}

// Upgrade reads an HTTP/1.1 upgrade request from conn, validates it, and on success writes the
// "101 Switching Protocols" response and returns a server-role Session ready for framing. conn is
// not closed on failure; the caller decides.
func Upgrade(conn net.Conn, opts UpgradeOptions) (*Session, error) {
	consts := constants.Get()
	maxHeader := opts.MaxHeaderBytes
	if maxHeader == 0 {
		maxHeader = consts.DefaultMaxHeaderSize
	}

	br := bufio.NewReader(conn)
	budget := maxHeader

	line, consumed, err := bytesx.ReadBoundedLine(br, budget)
	if err != nil {
		return nil, neterr.New(me+":upgrade", neterr.InvalidData, fmt.Errorf("InvalidClientRequest: %w", err))
	}
	budget -= consumed

	method, path, ok := parseRequestLine(string(line))
	if !ok || method != "GET" {
		return nil, neterr.New(me+":upgrade", neterr.InvalidData,
			fmt.Errorf("InvalidClientRequest: bad request line %q", line))
	}
	_ = path

	var headers httpmsg.Header
	for {
		line, consumed, err = bytesx.ReadBoundedLine(br, budget)
		if err != nil {
			return nil, neterr.New(me+":upgrade", neterr.InvalidData, fmt.Errorf("InvalidClientRequest: %w", err))
		}
		budget -= consumed
		if len(line) == 0 {
			break
		}
		name, value, hasColon := strings.Cut(string(line), ":")
		if hasColon {
			headers.Add(strings.TrimSpace(name), strings.TrimSpace(value))
		}
	}

	if !strings.EqualFold(headers.Get("Connection"), "upgrade") ||
		!strings.EqualFold(headers.Get("Upgrade"), "websocket") ||
		headers.Get("Sec-WebSocket-Version") != consts.WSVersion {
		return nil, neterr.New(me+":upgrade", neterr.ProtocolViolation, fmt.Errorf("InvalidClientRequest: missing upgrade headers"))
	}

	key := headers.Get("Sec-WebSocket-Key")
	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil || len(raw) != 16 {
		return nil, neterr.New(me+":upgrade", neterr.InvalidData, fmt.Errorf("InvalidKey: %q", key))
	}

	accept := computeAccept(key)
	resp := fmt.Sprintf("HTTP/1.1 101 Switching Protocols\r\n%s: %s\r\n%s: %s\r\nSec-WebSocket-Accept: %s\r\n\r\n",
		consts.ConnectionHeader, consts.WSConnectionValue, "Upgrade", consts.WSUpgradeValue, accept)
	if _, err := conn.Write([]byte(resp)); err != nil {
		return nil, neterr.New(me+":upgrade", neterr.UnexpectedEOF, err)
	}

	return newSession(conn, br, RoleServer), nil
}

func parseRequestLine(line string) (method, path string, ok bool) {
	parts := strings.Fields(line)
	if len(parts) != 3 || parts[2] != "HTTP/1.1" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// Server is a minimal WebSocket listener: bind an address, then Accept loops over inbound
// connections performing the upgrade handshake on each. Connection pooling/HTTP server semantics
// beyond the upgrade handshake are out of scope.
type Server struct {
	ln   net.Listener
	opts UpgradeOptions

	accepted, upgraded, rejected int
}

var _ reporter.Reporter = (*Server)(nil)

// Bind listens on addr.
func Bind(addr string, opts UpgradeOptions) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, neterr.New(me+":bind", neterr.ConnectFailed, err)
	}
	return &Server{ln: ln, opts: opts}, nil
}

// Addr returns the listener's bound address.
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Close stops accepting new connections.
func (s *Server) Close() error { return s.ln.Close() }

// Accept blocks for the next inbound connection and performs the WebSocket upgrade handshake on
// it, returning a ready Session.
func (s *Server) Accept(ctx context.Context) (*Session, error) {
	conn, err := s.ln.Accept()
	if err != nil {
		return nil, neterr.New(me+":accept", neterr.ConnectFailed, err)
	}
	s.accepted++

	if dl, ok := ctx.Deadline(); ok {
		conn.SetDeadline(dl)
	}

	sess, err := Upgrade(conn, s.opts)
	if err != nil {
		s.rejected++
		conn.Close()
		return nil, err
	}
	conn.SetDeadline(time.Time{})
	s.upgraded++
	return sess, nil
}

func (s *Server) Name() string { return me + ":server" }

func (s *Server) Report(resetCounters bool) string {
	str := fmt.Sprintf("%s: accepted=%d upgraded=%d rejected=%d", s.Name(), s.accepted, s.upgraded, s.rejected)
	if resetCounters {
		s.accepted, s.upgraded, s.rejected = 0, 0, 0
	}
	return str
}
