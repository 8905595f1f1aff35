// Package connect turns a host/port and IP strategy into a connected *net.TCPConn: it resolves the
// host via internal/resolver, iterates the resulting addresses in strategy order, dials each
// candidate with an optional overall timeout, and applies socket options to the winning connection.
package connect

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/markdingo/netreach/internal/neterr"
	"github.com/markdingo/netreach/internal/reporter"
	"github.com/markdingo/netreach/internal/resolver"
)

const me = "connect"

// Options configures a single dial.
type Options struct {
	Host     string
	Port     int // 0 = caller must supply a scheme default before calling Dial
	Strategy resolver.Strategy
	Timeout  time.Duration // 0 = no overall timeout

	RecvBufSize int // 0 = leave at OS default
	SendBufSize int
	NoDelay     bool
	KeepAliveIdle time.Duration // 0 = disabled

	Resolver *resolver.Resolver
}

// Stats is the per-dial telemetry collected while resolving and connecting.
type Stats struct {
	ResolveDuration time.Duration
	Attempts        int
	ConnectDuration time.Duration
}

// Dialer wraps Dial with reporter-visible counters, giving every stateful component a
// Name()/Report() pair.
type Dialer struct {
	dials, failures, timeouts int
}

var _ reporter.Reporter = (*Dialer)(nil)

func NewDialer() *Dialer { return &Dialer{} }

func (d *Dialer) Name() string { return me }

func (d *Dialer) Report(resetCounters bool) string {
	s := fmt.Sprintf("%s: dials=%d failures=%d timeouts=%d", me, d.dials, d.failures, d.timeouts)
	if resetCounters {
		d.dials, d.failures, d.timeouts = 0, 0, 0
	}
	return s
}

// Dial resolves opts.Host, iterates the resulting addresses in opts.Strategy order and returns the
// first TCP connection that succeeds, with opts' socket options applied.
func (d *Dialer) Dial(ctx context.Context, opts Options) (*net.TCPConn, Stats, error) {
	var stats Stats
	d.dials++

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	resolveStart := time.Now()
	lookup, err := opts.Resolver.ResolveIPs(opts.Host)
	stats.ResolveDuration = time.Since(resolveStart)
	if err != nil {
		d.failures++
		return nil, stats, neterr.New(me+":resolve", neterr.Unknown, err)
	}

	addrs := lookup.Ordered(opts.Strategy)
	if len(addrs) == 0 {
		d.failures++
		return nil, stats, neterr.New(me+":dial", neterr.ConnectFailed, fmt.Errorf("no addresses for %s", opts.Host))
	}

	var lastErr error
	for _, ip := range addrs {
		select {
		case <-ctx.Done():
			d.timeouts++
			return nil, stats, neterr.New(me+":dial", neterr.Timeout, ctx.Err())
		default:
		}

		stats.Attempts++
		attemptStart := time.Now()
		conn, err := dialOne(ctx, ip, opts.Port)
		if err != nil {
			lastErr = err
			continue
		}
		stats.ConnectDuration = time.Since(attemptStart)

		if err := applySocketOptions(conn, opts); err != nil {
			conn.Close()
			lastErr = err
			continue
		}
		return conn, stats, nil
	}

	d.failures++
	if ctx.Err() != nil {
		d.timeouts++
		return nil, stats, neterr.New(me+":dial", neterr.Timeout, ctx.Err())
	}
	return nil, stats, neterr.New(me+":dial", neterr.ConnectFailed, lastErr)
}

func dialOne(ctx context.Context, ip net.IP, port int) (*net.TCPConn, error) {
	d := net.Dialer{}
	addr := net.JoinHostPort(ip.String(), fmt.Sprintf("%d", port))
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		conn.Close()
		return nil, fmt.Errorf(me+": dialed connection is not a *net.TCPConn")
	}
	return tcpConn, nil
}

// applySocketOptions applies the recv/send buffer sizes, TCP_NODELAY and keepalive idle options.
func applySocketOptions(conn *net.TCPConn, opts Options) error {
	if opts.NoDelay {
		if err := conn.SetNoDelay(true); err != nil {
			return fmt.Errorf(me+": set nodelay: %w", err)
		}
	}
	if opts.KeepAliveIdle > 0 {
		if err := conn.SetKeepAlive(true); err != nil {
			return fmt.Errorf(me+": set keepalive: %w", err)
		}
		if err := conn.SetKeepAlivePeriod(opts.KeepAliveIdle); err != nil {
			return fmt.Errorf(me+": set keepalive period: %w", err)
		}
	}
	if opts.RecvBufSize > 0 {
		if err := conn.SetReadBuffer(opts.RecvBufSize); err != nil {
			return fmt.Errorf(me+": set recv buffer: %w", err)
		}
	}
	if opts.SendBufSize > 0 {
		if err := conn.SetWriteBuffer(opts.SendBufSize); err != nil {
			return fmt.Errorf(me+": set send buffer: %w", err)
		}
	}
	return nil
}

