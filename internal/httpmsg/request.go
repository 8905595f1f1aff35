package httpmsg

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/markdingo/netreach/internal/constants"
	"github.com/markdingo/netreach/internal/resolver"
)

const me = "httpmsg"

// Options is the per-request dial/parse configuration.
type Options struct {
	Port          int // 0 = scheme default (80/443)
	Strategy      resolver.Strategy
	Timeout       time.Duration
	RecvBufSize   int
	SendBufSize   int
	Secure        bool // true forces TLS even for a plain "http" scheme caller-constructed URL
	MinVersion    int  // e.g. 10 for HTTP/1.0; 0 = no floor
	MaxVersion    int  // e.g. 11; 0 = no ceiling
	MaxRedirects  int  // default constants.DefaultMaxRedirects
	MaxHeaderSize int  // default constants.DefaultMaxHeaderSize

	Resolver *resolver.Resolver
}

func (o Options) withDefaults() Options {
	consts := constants.Get()
	if o.MaxRedirects == 0 {
		o.MaxRedirects = consts.DefaultMaxRedirects
	}
	if o.MaxHeaderSize == 0 {
		o.MaxHeaderSize = consts.DefaultMaxHeaderSize
	}
	if o.MaxVersion == 0 {
		o.MaxVersion = 11
	}
	return o
}

// Request is the internal representation of an outbound HTTP/1.x request.
type Request struct {
	URL     *url.URL
	Method  string
	Headers Header
	Body    []byte    // mutually exclusive with BodyStream
	BodyStream io.Reader

	Options Options
}

// Serialize writes the request line ("METHOD path+query HTTP/1.1\r\n") and headers to w,
// synthesizing Host if absent, one "Name: Value\r\n" per header, terminated by an empty line. The
// body (fixed bytes or a streamed reader) is written by the caller via WriteBody after Serialize,
// so that send-stall timing can be measured around the whole send including any streamed body.
func (r *Request) Serialize(w *bufio.Writer) error {
	path := r.URL.RequestURI()
	if _, err := fmt.Fprintf(w, "%s %s HTTP/1.1\r\n", r.Method, path); err != nil {
		return fmt.Errorf(me+": write request line: %w", err)
	}

	if !r.Headers.Has(constants.Get().HostHeader) {
		host := r.URL.Host
		if host == "" {
			host = r.URL.Hostname()
		}
		if _, err := fmt.Fprintf(w, "%s: %s\r\n", constants.Get().HostHeader, host); err != nil {
			return fmt.Errorf(me+": write host header: %w", err)
		}
	}

	var writeErr error
	r.Headers.Each(func(name, value string) {
		if writeErr != nil {
			return
		}
		if _, err := fmt.Fprintf(w, "%s: %s\r\n", name, value); err != nil {
			writeErr = err
		}
	})
	if writeErr != nil {
		return fmt.Errorf(me+": write headers: %w", writeErr)
	}

	if _, err := w.WriteString("\r\n"); err != nil {
		return fmt.Errorf(me+": write header terminator: %w", err)
	}
	return nil
}

// WriteBody writes the request body (fixed bytes or a streamed reader, until EOF) and flushes w.
func (r *Request) WriteBody(w *bufio.Writer) error {
	switch {
	case r.BodyStream != nil:
		if _, err := io.Copy(w, r.BodyStream); err != nil {
			return fmt.Errorf(me+": stream body: %w", err)
		}
	case len(r.Body) > 0:
		if _, err := w.Write(r.Body); err != nil {
			return fmt.Errorf(me+": write body: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf(me+": flush: %w", err)
	}
	return nil
}
