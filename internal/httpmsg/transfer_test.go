package httpmsg

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/markdingo/netreach/internal/connect"
	"github.com/markdingo/netreach/internal/resolver"
)

// rawServer accepts exactly one connection per call to next() and replies with the supplied raw
// HTTP/1.1 response bytes, ignoring the request entirely. Good enough to drive the redirect loop
// without needing a fully general HTTP server in the test.
func rawServer(t *testing.T, responses ...string) (addr string, closeFn func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() {
		for _, resp := range responses {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			br := bufio.NewReader(conn)
			for {
				line, err := br.ReadString('\n')
				if err != nil || line == "\r\n" {
					break
				}
			}
			conn.Write([]byte(resp))
			conn.Close()
		}
	}()
	return ln.Addr().String(), func() { ln.Close() }
}

func newTestTransport() *Transport {
	return &Transport{Dialer: connect.NewDialer()}
}

func testURL(t *testing.T, addr string) *url.URL {
	t.Helper()
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("split host port: %v", err)
	}
	u, err := url.Parse(fmt.Sprintf("http://%s:%s/", host, port))
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	return u
}

func TestDoSimpleGet(t *testing.T) {
	addr, closeFn := rawServer(t, "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok")
	defer closeFn()

	r := &resolver.Resolver{}
	u := testURL(t, addr)
	req := &Request{URL: u, Method: "GET", Options: Options{Resolver: r, Timeout: 2 * time.Second}}

	exch, err := newTestTransport().Do(context.Background(), req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer exch.Conn.Close()
	if exch.Response.StatusCode != 200 {
		t.Fatalf("got status %d", exch.Response.StatusCode)
	}
	buf := make([]byte, 2)
	n, _ := exch.Body.Read(buf)
	if string(buf[:n]) != "ok" {
		t.Fatalf("got body %q", buf[:n])
	}
}

func TestDoFollowsRedirect(t *testing.T) {
	addr2, close2 := rawServer(t, "HTTP/1.1 200 OK\r\nContent-Length: 4\r\n\r\ndone")
	defer close2()
	target := testURL(t, addr2)

	addr1, close1 := rawServer(t, fmt.Sprintf("HTTP/1.1 302 Found\r\nLocation: %s\r\nContent-Length: 0\r\n\r\n", target.String()))
	defer close1()

	r := &resolver.Resolver{}
	req := &Request{URL: testURL(t, addr1), Method: "GET", Options: Options{Resolver: r, Timeout: 2 * time.Second}}

	exch, err := newTestTransport().Do(context.Background(), req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer exch.Conn.Close()
	if exch.Response.StatusCode != 200 {
		t.Fatalf("got status %d, want 200 after following redirect", exch.Response.StatusCode)
	}
}

func TestDoRedirectForbiddenOnSchemeChange(t *testing.T) {
	addr1, close1 := rawServer(t, "HTTP/1.1 302 Found\r\nLocation: https://example.test/\r\nContent-Length: 0\r\n\r\n")
	defer close1()

	r := &resolver.Resolver{}
	req := &Request{URL: testURL(t, addr1), Method: "GET", Options: Options{Resolver: r, Timeout: 2 * time.Second}}

	_, err := newTestTransport().Do(context.Background(), req)
	if err == nil || !strings.Contains(err.Error(), "RedirectForbidden") {
		t.Fatalf("expected RedirectForbidden, got %v", err)
	}
}

func TestRequestSerialize(t *testing.T) {
	u, _ := url.Parse("http://example.test/path?x=1")
	req := &Request{URL: u, Method: "GET"}
	req.Headers.Set("X-Test", "1")

	var buf strings.Builder
	w := bufio.NewWriter(&buf)
	if err := req.Serialize(w); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	w.Flush()

	got := buf.String()
	if !strings.HasPrefix(got, "GET /path?x=1 HTTP/1.1\r\n") {
		t.Fatalf("got %q", got)
	}
	if !strings.Contains(got, "Host: example.test\r\n") {
		t.Fatalf("expected synthesized Host header, got %q", got)
	}
	if !strings.Contains(got, "X-Test: 1\r\n") {
		t.Fatalf("expected X-Test header, got %q", got)
	}
	if !strings.HasSuffix(got, "\r\n\r\n") {
		t.Fatalf("expected terminating blank line, got %q", got)
	}
}
