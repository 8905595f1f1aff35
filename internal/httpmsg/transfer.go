package httpmsg

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/markdingo/netreach/internal/connect"
	"github.com/markdingo/netreach/internal/constants"
	"github.com/markdingo/netreach/internal/httpbody"
	"github.com/markdingo/netreach/internal/neterr"
	"github.com/markdingo/netreach/internal/tlsio"
)

// Transport bundles the collaborators the connection-selection step needs: a dialer, a
// resolver-backed connect path and a TLS config template for secure requests.
type Transport struct {
	Dialer    *connect.Dialer
	TLSConfig *tls.Config // cloned per-connection with ServerName set; nil disables TLS verification details beyond Go defaults
}

// Exchange is the result of Do: the final parsed Response plus a body Reader ready to decode it,
// and the raw connection so the caller can close it once the body (and any trailers) have been
// drained. Connection pooling/reuse is not implemented; every exchange dials fresh.
type Exchange struct {
	Response *Response
	Body     *httpbody.Reader
	Conn     net.Conn
}

// Do sends req, following redirects, and returns the final Exchange. Each attempt opens a fresh
// connection; request method and body are replayed unchanged across redirects.
func (t *Transport) Do(ctx context.Context, req *Request) (*Exchange, error) {
	opts := req.Options.withDefaults()
	currentURL := req.URL
	redirectsLeft := opts.MaxRedirects
	var totalRedirect time.Duration

	for {
		exch, err := t.doOnce(ctx, req, currentURL, opts)
		if err != nil {
			return nil, err
		}
		exch.Response.Stats.Redirect = totalRedirect

		if !isRedirect(exch.Response.StatusCode) || redirectsLeft <= 0 {
			return exch, nil
		}
		location := exch.Response.Headers.Get(constants.Get().LocationHeader)
		if location == "" {
			return exch, nil // 3xx without Location: not actionable, surface as-is
		}

		redirectStart := time.Now()
		// Draining a small, length-known body before closing avoids leaving unread bytes on a
		// connection the OS still has to tear down.
		if remaining, ok := exch.Body.Remaining(); ok && remaining <= 4096 {
			drainBody(exch.Body)
		}
		exch.Conn.Close()

		nextURL, err := resolveRedirect(currentURL, location)
		if err != nil {
			return nil, neterr.New(me+":redirect", neterr.InvalidData, err)
		}
		if nextURL.Scheme != currentURL.Scheme {
			return nil, neterr.New(me+":redirect", neterr.RedirectForbidden,
				fmt.Errorf("RedirectForbidden: scheme changed %s -> %s", currentURL.Scheme, nextURL.Scheme))
		}

		redirectsLeft--
		currentURL = nextURL
		totalRedirect += time.Since(redirectStart)
	}
}

func isRedirect(status int) bool { return status >= 300 && status < 400 }

func drainBody(b *httpbody.Reader) {
	buf := make([]byte, 4096)
	for {
		n, err := b.Read(buf)
		if n == 0 || err != nil {
			return
		}
	}
}

func resolveRedirect(base *url.URL, location string) (*url.URL, error) {
	ref, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("InvalidRedirectUrl: %w", err)
	}
	return base.ResolveReference(ref), nil
}

// doOnce performs exactly one connect+send+parse cycle against targetURL.
func (t *Transport) doOnce(ctx context.Context, req *Request, targetURL *url.URL, opts Options) (*Exchange, error) {
	consts := constants.Get()
	secure := opts.Secure || targetURL.Scheme == "https" || targetURL.Scheme == "wss"

	port := opts.Port
	if p := targetURL.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}
	if port == 0 {
		defPort := consts.HTTPDefaultPort
		if secure {
			defPort = consts.HTTPSDefaultPort
		}
		p, _ := strconv.Atoi(defPort)
		port = p
	}

	connStart := time.Now()
	tcpConn, _, err := t.Dialer.Dial(ctx, connect.Options{
		Host:        targetURL.Hostname(),
		Port:        port,
		Strategy:    opts.Strategy,
		Timeout:     opts.Timeout,
		RecvBufSize: opts.RecvBufSize,
		SendBufSize: opts.SendBufSize,
		Resolver:    opts.Resolver,
	})
	if err != nil {
		return nil, err
	}
	connectDuration := time.Since(connStart)

	var conn net.Conn = tcpConn
	var tlsConnectDuration time.Duration
	if secure {
		cfg := t.TLSConfig
		if cfg == nil {
			cfg = &tls.Config{}
		}
		cfg = cfg.Clone()
		if cfg.ServerName == "" {
			cfg.ServerName = targetURL.Hostname()
		}
		tlsConn, stats, err := tlsio.Handshake(ctx, tcpConn, cfg, opts.Timeout)
		if err != nil {
			tcpConn.Close()
			return nil, err
		}
		tlsConnectDuration = stats.HandshakeDuration
		conn = tlsConn
	}

	bw := bufio.NewWriter(conn)
	req.URL = targetURL
	if err := req.Serialize(bw); err != nil {
		conn.Close()
		return nil, err
	}
	sendStart := time.Now()
	if err := req.WriteBody(bw); err != nil {
		conn.Close()
		return nil, err
	}
	stall := time.Since(sendStart)

	br := bufio.NewReaderSize(conn, opts.statusLineBudget())
	resp, wait, responseHead, err := ParseResponse(br, opts.MinVersion, opts.MaxVersion, opts.MaxHeaderSize)
	if err != nil {
		conn.Close()
		return nil, err
	}
	resp.Stats.Connect = connectDuration
	resp.Stats.TLSConnect = tlsConnectDuration
	resp.Stats.Stall = stall
	resp.Stats.Wait = wait
	resp.Stats.Response = responseHead

	body := httpbody.NewReader(br, req.Method, resp.StatusCode, &resp.Headers, opts.MaxHeaderSize)

	return &Exchange{Response: resp, Body: body, Conn: conn}, nil
}

// statusLineBudget gives bufio.NewReaderSize a buffer matching the configured header-size bound,
// capped to the conventional 8 KiB default when no smaller bound is configured.
func (o Options) statusLineBudget() int {
	if o.MaxHeaderSize > 0 && o.MaxHeaderSize < 8192 {
		return o.MaxHeaderSize
	}
	return 8192
}

