// Package httpbody decodes an HTTP/1.x response body in its three transfer modes:
// length-delimited, chunked, and connection-delimited (until EOF), plus chunk trailers.
package httpbody

import "strings"

const me = "httpbody"

// HeaderLookup is the minimal view of a response's headers this package needs to select a
// transfer mode. internal/httpmsg.Header satisfies this structurally without either package
// importing the other.
type HeaderLookup interface {
	Get(name string) string
	Values(name string) []string
}

// Mode is the tagged transfer-body state a response body is read through.
type Mode int

const (
	ModeEmpty Mode = iota
	ModeConnection
	ModeLength
	ModeChunked
	ModeTrailers
)

// SelectMode picks a transfer mode by precedence: bodyless status/method first, then chunked
// Transfer-Encoding, then Content-Length, else connection-delimited. contentLength is only
// meaningful when the returned mode is ModeLength. keepAlive notes an observed
// "Connection: keep-alive" header for reuse bookkeeping (observational only).
func SelectMode(method string, status int, headers HeaderLookup) (mode Mode, contentLength uint64, keepAlive bool) {
	keepAlive = strings.EqualFold(headers.Get("Connection"), "keep-alive")

	if method == "HEAD" || status == 204 || status == 304 || (status >= 100 && status < 200) {
		return ModeEmpty, 0, keepAlive
	}

	if isChunked(headers.Values("Transfer-Encoding")) {
		return ModeChunked, 0, keepAlive
	}

	if cl := headers.Get("Content-Length"); cl != "" {
		if n, ok := parseUint(cl); ok {
			return ModeLength, n, keepAlive
		}
	}

	return ModeConnection, 0, keepAlive
}

func isChunked(values []string) bool {
	for _, v := range values {
		for _, tok := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(tok), "chunked") {
				return true
			}
		}
	}
	return false
}

func parseUint(s string) (uint64, bool) {
	var n uint64
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + uint64(r-'0')
	}
	return n, true
}
