package httpmsg

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/markdingo/netreach/internal/bytesx"
	"github.com/markdingo/netreach/internal/neterr"
)

// Stats carries the redirect/connect/tls_connect/stall/wait/response durations of one exchange:
// Stall is time to finish sending the request, Wait is time to the first response byte, Response
// is time to a complete response head.
type Stats struct {
	Redirect   time.Duration
	Connect    time.Duration
	TLSConnect time.Duration
	Stall      time.Duration // Send complete
	Wait       time.Duration // First response byte
	Response   time.Duration // Response head complete
}

// Response is the raw, pre-body-decode result of one HTTP/1.x exchange. Reader is positioned
// immediately after the header block's terminating blank line; internal/httpbody wraps it to
// decode the transfer-coded body.
type Response struct {
	Version       int // 11 = HTTP/1.1, 10 = HTTP/1.0, 9 = HTTP/0.9
	StatusCode    int
	Reason        string
	Headers       Header
	RedirectedURL string // Final URL if redirects were followed, else ""
	Stats         Stats

	Reader *bufio.Reader
}

// ParseResponse reads a status line and header block from r. minVersion/maxVersion reject
// out-of-range HTTP versions; maxHeaderBytes bounds the total status-line + header bytes consumed.
func ParseResponse(r *bufio.Reader, minVersion, maxVersion, maxHeaderBytes int) (*Response, time.Duration, time.Duration, error) {
	waitStart := time.Now()
	peek, err := r.Peek(5)
	wait := time.Since(waitStart)
	if err != nil && len(peek) == 0 {
		return nil, wait, 0, neterr.New(me+":parse", neterr.UnexpectedEOF, err)
	}

	resp := &Response{Reader: r}

	if string(peek) != "HTTP/" {
		// HTTP/0.9: no status line, no headers, body follows immediately.
		resp.Version = 9
		resp.StatusCode = 200
		resp.Reason = "OK"
		return resp, wait, 0, nil
	}

	budget := maxHeaderBytes
	line, consumed, err := bytesx.ReadBoundedLine(r, budget)
	if err != nil {
		return nil, wait, 0, classifyLineErr(err)
	}
	budget -= consumed

	version, code, reason, err := parseStatusLine(string(line))
	if err != nil {
		return nil, wait, 0, neterr.New(me+":parse", neterr.InvalidData, err)
	}
	if (minVersion != 0 && version < minVersion) || (maxVersion != 0 && version > maxVersion) {
		return nil, wait, 0, neterr.New(me+":parse", neterr.ProtocolViolation,
			fmt.Errorf("UnexpectedVersion: %d", version))
	}
	resp.Version, resp.StatusCode, resp.Reason = version, code, reason

	for {
		line, consumed, err = bytesx.ReadBoundedLine(r, budget)
		if err != nil {
			return nil, wait, 0, classifyLineErr(err)
		}
		budget -= consumed
		if len(line) == 0 {
			break
		}
		name, value, ok := strings.Cut(string(line), ":")
		if !ok {
			resp.Headers.Add(string(line), "") // No colon: accepted with empty value; no warning is emitted
			continue
		}
		resp.Headers.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	headHead := time.Since(waitStart)
	return resp, wait, headHead, nil
}

func classifyLineErr(err error) error {
	if errors.Is(err, bytesx.ErrLineTooLong) {
		return neterr.New(me+":parse", neterr.InvalidData, fmt.Errorf("HeadersTooLong: %w", err))
	}
	return neterr.New(me+":parse", neterr.UnexpectedEOF, err)
}

// parseStatusLine parses "HTTP/<d>.<d> <code> <reason?>" into a numeric version (e.g. 1.1 -> 11),
// status code and optional reason phrase.
func parseStatusLine(line string) (version, code int, reason string, err error) {
	if !strings.HasPrefix(line, "HTTP/") {
		return 0, 0, "", fmt.Errorf("InvalidStatusLine: missing HTTP/ prefix: %q", line)
	}
	rest := line[len("HTTP/"):]
	sp := strings.IndexByte(rest, ' ')
	if sp < 0 {
		return 0, 0, "", fmt.Errorf("InvalidStatusLine: no status code: %q", line)
	}
	verStr, rest := rest[:sp], rest[sp+1:]

	major, minor, ok := strings.Cut(verStr, ".")
	if !ok {
		return 0, 0, "", fmt.Errorf("InvalidStatusLine: bad version: %q", verStr)
	}
	majorN, err1 := strconv.Atoi(major)
	minorN, err2 := strconv.Atoi(minor)
	if err1 != nil || err2 != nil {
		return 0, 0, "", fmt.Errorf("InvalidStatusLine: non-numeric version: %q", verStr)
	}
	version = majorN*10 + minorN

	rest = strings.TrimLeft(rest, " ")
	codeStr := rest
	reasonStart := strings.IndexByte(rest, ' ')
	if reasonStart >= 0 {
		codeStr = rest[:reasonStart]
		reason = strings.TrimLeft(rest[reasonStart+1:], " ")
	}
	code, err = strconv.Atoi(codeStr)
	if err != nil {
		return 0, 0, "", fmt.Errorf("InvalidStatusLine: non-numeric status code: %q", codeStr)
	}

	return version, code, reason, nil
}
