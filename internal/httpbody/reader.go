package httpbody

import (
	"bufio"
	"fmt"
	"io"

	"github.com/markdingo/netreach/internal/bytesx"
	"github.com/markdingo/netreach/internal/neterr"
)

// ErrPartialFile is returned by the length decoder when the connection closes (zero read) before
// the announced Content-Length has been fully delivered.
var ErrPartialFile = fmt.Errorf(me + ": PartialFile")

// Reader decodes one response body according to its selected Mode. It wraps the same
// *bufio.Reader the header parser consumed from, so body bytes are read from exactly where the
// header block left off.
type Reader struct {
	r    *bufio.Reader
	mode Mode

	remaining uint64 // ModeLength
	chunked   chunkedState

	maxTrailerBytes int
	trailers        Header
	keepAlive       bool
}

// Header is the trailer header set collected by ReadTrailers; it mirrors httpmsg.Header's shape
// but lives here to avoid an import cycle between httpmsg and httpbody.
type Header struct {
	pairs []struct{ name, value string }
}

func (h *Header) add(name, value string) {
	h.pairs = append(h.pairs, struct{ name, value string }{name, value})
}

// Get returns the first trailer value for name, case-insensitively.
func (h *Header) Get(name string) string {
	for _, p := range h.pairs {
		if foldEqual(p.name, name) {
			return p.value
		}
	}
	return ""
}

func foldEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// NewReader selects a transfer mode and returns a Reader ready to decode it. maxHeaderBytes is
// reused as the byte budget for the whole trailer block, so trailers are size-limited the same
// way the main header parser limits the header block.
func NewReader(r *bufio.Reader, method string, status int, headers HeaderLookup, maxHeaderBytes int) *Reader {
	mode, contentLength, keepAlive := SelectMode(method, status, headers)
	return &Reader{
		r:               r,
		mode:            mode,
		remaining:       contentLength,
		maxTrailerBytes: maxHeaderBytes,
		keepAlive:       keepAlive,
	}
}

// KeepAlive reports whether the response carried "Connection: keep-alive" (observational only).
func (b *Reader) KeepAlive() bool { return b.keepAlive }

// Remaining returns the number of bytes left to read and true, only meaningful in ModeLength.
// Callers deciding whether a connection is a candidate for reuse after a redirect can treat a
// known remaining length of a few KiB or less as cheap to drain.
func (b *Reader) Remaining() (uint64, bool) {
	if b.mode == ModeLength {
		return b.remaining, true
	}
	return 0, false
}

// Mode returns the selected transfer mode.
func (b *Reader) Mode() Mode { return b.mode }

// Read implements io.Reader over the selected transfer mode.
func (b *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	switch b.mode {
	case ModeEmpty, ModeTrailers:
		return 0, io.EOF

	case ModeConnection:
		n, err := b.r.Read(p)
		if n == 0 && err == nil {
			b.mode = ModeEmpty
			return 0, io.EOF
		}
		if err == io.EOF {
			b.mode = ModeEmpty
		}
		return n, err

	case ModeLength:
		if b.remaining == 0 {
			b.mode = ModeEmpty
			return 0, io.EOF
		}
		n := len(p)
		if uint64(n) > b.remaining {
			n = int(b.remaining)
		}
		read, err := b.r.Read(p[:n])
		b.remaining -= uint64(read)
		if read == 0 && b.remaining > 0 {
			return 0, neterr.New(me+":length", neterr.UnexpectedEOF, ErrPartialFile)
		}
		if b.remaining == 0 {
			b.mode = ModeEmpty
		}
		return read, err

	case ModeChunked:
		n, err := readChunked(b.r, &b.chunked, p)
		if n == 0 && err == nil && b.chunked.sub == chunkTrailers {
			b.mode = ModeTrailers
			return 0, io.EOF
		}
		if err != nil {
			return 0, neterr.New(me+":chunked", neterr.ProtocolViolation, err)
		}
		return n, nil

	default:
		return 0, fmt.Errorf(me + ": unreachable body mode")
	}
}

// ReadTrailers reads trailer header lines until an empty line. Only valid once Mode() ==
// ModeTrailers (i.e. the chunked decoder has consumed its terminal zero-size chunk).
func (b *Reader) ReadTrailers() (*Header, error) {
	if b.mode != ModeTrailers {
		return nil, fmt.Errorf(me+": ReadTrailers called outside ModeTrailers (mode=%d)", b.mode)
	}
	h := &Header{}
	budget := b.maxTrailerBytes
	for {
		line, consumed, err := bytesx.ReadBoundedLine(b.r, budget)
		if err != nil {
			return nil, neterr.New(me+":trailers", neterr.UnexpectedEOF, err)
		}
		budget -= consumed
		if len(line) == 0 {
			break
		}
		name, value, ok := cutColon(string(line))
		if ok {
			h.add(name, value)
		} else {
			h.add(string(line), "")
		}
	}
	b.trailers = *h
	b.mode = ModeEmpty
	return h, nil
}

func cutColon(s string) (name, value string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			return trimSpace(s[:i]), trimSpace(s[i+1:]), true
		}
	}
	return s, "", false
}

func trimSpace(s string) string {
	start := 0
	for start < len(s) && (s[start] == ' ' || s[start] == '\t') {
		start++
	}
	end := len(s)
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t') {
		end--
	}
	return s[start:end]
}
