package wsconn

import (
	"context"
	"crypto/rand"
	"crypto/sha1"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/markdingo/netreach/internal/connect"
	"github.com/markdingo/netreach/internal/constants"
	"github.com/markdingo/netreach/internal/httpmsg"
	"github.com/markdingo/netreach/internal/neterr"
	"github.com/markdingo/netreach/internal/resolver"
)

// OpenOptions configures a client-side WebSocket handshake.
type OpenOptions struct {
	Resolver         *resolver.Resolver
	Dialer           *connect.Dialer
	TLSConfig        *tls.Config
	RecvBufSize      int
	SendBufSize      int
	HandshakeTimeout time.Duration // default constants.DefaultWSHandshakeTimeout (60s)
}

// Open performs the HTTP/1.1 Upgrade handshake against target and returns a ready Session. Scheme
// "ws" dials plain TCP on port 80; "wss" dials with TLS on 443, both overridable via the URL's own
// port.
func Open(ctx context.Context, target *url.URL, opts OpenOptions) (*Session, error) {
	consts := constants.Get()
	timeout := opts.HandshakeTimeout
	if timeout <= 0 {
		timeout = mustParseDuration(consts.DefaultWSHandshakeTimeout, 60*time.Second)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	keyBytes := make([]byte, 16)
	if _, err := rand.Read(keyBytes); err != nil {
		return nil, fmt.Errorf(me+": generate Sec-WebSocket-Key: %w", err)
	}
	key := base64.StdEncoding.EncodeToString(keyBytes)

	req := &httpmsg.Request{
		URL:    target,
		Method: "GET",
		Options: httpmsg.Options{
			Resolver:    opts.Resolver,
			Timeout:     timeout,
			RecvBufSize: opts.RecvBufSize,
			SendBufSize: opts.SendBufSize,
			Secure:      target.Scheme == "wss",
			MaxRedirects: -1, // Negative: a 3xx is returned as-is, so the upgrade request is never redirected
		},
	}
	req.Headers.Set(consts.ConnectionHeader, consts.WSConnectionValue)
	req.Headers.Set("Upgrade", consts.WSUpgradeValue)
	req.Headers.Set("Sec-WebSocket-Version", consts.WSVersion)
	req.Headers.Set("Sec-WebSocket-Key", key)

	transport := &httpmsg.Transport{Dialer: opts.Dialer, TLSConfig: opts.TLSConfig}
	exch, err := transport.Do(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, neterr.New(me+":open", neterr.Timeout, fmt.Errorf("HandshakeTimeout: %w", err))
		}
		return nil, err
	}

	if err := validateUpgradeResponse(exch.Response, key); err != nil {
		exch.Conn.Close()
		return nil, err
	}

	return newSession(exch.Conn, exch.Response.Reader, RoleClient), nil
}

func validateUpgradeResponse(resp *httpmsg.Response, key string) error {
	if resp.StatusCode != 101 {
		return neterr.New(me+":open", neterr.ProtocolViolation,
			fmt.Errorf("ServerRejected: status %d", resp.StatusCode))
	}
	if !strings.EqualFold(resp.Headers.Get("Connection"), "upgrade") {
		return neterr.New(me+":open", neterr.ProtocolViolation, fmt.Errorf("ServerRejected: bad Connection header"))
	}
	if !strings.EqualFold(resp.Headers.Get("Upgrade"), "websocket") {
		return neterr.New(me+":open", neterr.ProtocolViolation, fmt.Errorf("ServerRejected: bad Upgrade header"))
	}
	want := computeAccept(key)
	got := resp.Headers.Get("Sec-WebSocket-Accept")
	if !strings.EqualFold(got, want) {
		return neterr.New(me+":open", neterr.ProtocolViolation, fmt.Errorf("ServerRejected: bad Sec-WebSocket-Accept"))
	}
	return nil
}

// computeAccept returns base64(SHA1(key + GUID)), the RFC 6455 Sec-WebSocket-Accept value.
func computeAccept(key string) string {
	h := sha1.New()
	h.Write([]byte(key))
	h.Write([]byte(constants.Get().WSGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}
