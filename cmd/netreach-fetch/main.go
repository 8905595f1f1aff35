// Fetch a single file://, http(s):// or ws(s):// URL
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/markdingo/netreach/internal/connect"
	"github.com/markdingo/netreach/internal/constants"
	"github.com/markdingo/netreach/internal/fileurl"
	"github.com/markdingo/netreach/internal/httpmsg"
	"github.com/markdingo/netreach/internal/resolver"
	"github.com/markdingo/netreach/internal/tlsutil"
	"github.com/markdingo/netreach/internal/wsconn"
)

var (
	consts = constants.Get()
	cfg    *config

	stdout io.Writer
	stderr io.Writer

	flagSet *flag.FlagSet
)

func fatal(args ...interface{}) int {
	fmt.Fprint(stderr, "Fatal: ", consts.FetchProgramName, ": ")
	fmt.Fprintln(stderr, args...)
	return 1
}

func mainInit(out io.Writer, err io.Writer) {
	cfg = &config{}
	stdout = out
	stderr = err
}

func main() {
	mainInit(os.Stdout, os.Stderr)
	os.Exit(mainExecute(os.Args))
}

func mainExecute(args []string) int {
	flagSet = flag.NewFlagSet(args[0], flag.ContinueOnError)
	flagSet.SetOutput(stderr)
	if err := parseCommandLine(args); err != nil {
		return 1
	}
	if cfg.help {
		usage(stdout)
		return 0
	}
	if cfg.version {
		fmt.Fprintln(stdout, consts.FetchProgramName, "Version:", consts.Version)
		return 0
	}

	if flagSet.NArg() < 1 {
		return fatal("Require a URL on the command line. Consider -h")
	}
	rawURL := flagSet.Arg(0)
	var sendText string
	if flagSet.NArg() > 1 {
		sendText = flagSet.Arg(1)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fatal(err)
	}

	strategy, err := parseStrategy(cfg.strategy)
	if err != nil {
		return fatal(err)
	}

	ctx := context.Background()
	if cfg.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.requestTimeout)
		defer cancel()
	}

	switch u.Scheme {
	case "file":
		return fetchFile(u)
	case "http", "https":
		return fetchHTTP(ctx, u, strategy)
	case "ws", "wss":
		return fetchWS(ctx, u, strategy, sendText)
	default:
		return fatal("Unsupported URL scheme:", u.Scheme)
	}
}

func parseStrategy(s string) (resolver.Strategy, error) {
	switch s {
	case "", "v6-first":
		return resolver.Default, nil
	case "v4-first":
		return resolver.PreferIpv4, nil
	case "v4-only":
		return resolver.Ipv4Only, nil
	case "v6-only":
		return resolver.Ipv6Only, nil
	default:
		return resolver.Default, fmt.Errorf("unrecognized -strategy %q", s)
	}
}

func fetchFile(u *url.URL) int {
	rc, size, err := fileurl.Open(u, fileurl.Range{})
	if err != nil {
		return fatal(err)
	}
	defer rc.Close()
	if cfg.verbose {
		fmt.Fprintln(stderr, "file size:", size)
	}
	if _, err := io.Copy(stdout, rc); err != nil {
		return fatal(err)
	}
	return 0
}

func newResolver() (*resolver.Resolver, error) {
	opts := resolver.Options{HostsPath: cfg.hostsFile, ResolvConfPath: cfg.resolvConf}
	if cfg.verbose {
		opts.Trace = func(format string, args ...interface{}) {
			fmt.Fprintf(stderr, ";; "+format+"\n", args...)
		}
	}
	return resolver.New(opts)
}

func newTLSConfig() (*tls.Config, error) {
	return tlsutil.NewClientTLSConfig(cfg.tlsUseSystemRootCAs, cfg.tlsCAFiles.Args(),
		cfg.tlsClientCertFile, cfg.tlsClientKeyFile)
}

func fetchHTTP(ctx context.Context, u *url.URL, strategy resolver.Strategy) int {
	res, err := newResolver()
	if err != nil {
		return fatal(err)
	}
	tlsConfig, err := newTLSConfig()
	if err != nil {
		return fatal(err)
	}

	req := &httpmsg.Request{
		URL:    u,
		Method: "GET",
		Options: httpmsg.Options{
			Resolver:     res,
			Strategy:     strategy,
			Timeout:      cfg.requestTimeout,
			MaxRedirects: cfg.maxRedirects,
		},
	}
	req.Headers.Set(consts.UserAgentHeader, consts.FetchProgramName+"/"+consts.Version)

	transport := &httpmsg.Transport{Dialer: connect.NewDialer(), TLSConfig: tlsConfig}
	exch, err := transport.Do(ctx, req)
	if err != nil {
		return fatal(err)
	}
	defer exch.Conn.Close()

	if cfg.verbose {
		fmt.Fprintf(stderr, ";; Status: %d %s\n", exch.Response.StatusCode, exch.Response.Reason)
		fmt.Fprintf(stderr, ";; Connect: %s TLS: %s Wait: %s\n",
			exch.Response.Stats.Connect, exch.Response.Stats.TLSConnect, exch.Response.Stats.Wait)
	}

	buf := make([]byte, 32*1024)
	for {
		n, err := exch.Body.Read(buf)
		if n > 0 {
			stdout.Write(buf[:n])
		}
		if err != nil {
			if err != io.EOF {
				return fatal(err)
			}
			break
		}
	}
	return 0
}

func fetchWS(ctx context.Context, u *url.URL, strategy resolver.Strategy, sendText string) int {
	res, err := newResolver()
	if err != nil {
		return fatal(err)
	}
	tlsConfig, err := newTLSConfig()
	if err != nil {
		return fatal(err)
	}

	sess, err := wsconn.Open(ctx, u, wsconn.OpenOptions{
		Resolver:  res,
		Dialer:    connect.NewDialer(),
		TLSConfig: tlsConfig,
	})
	if err != nil {
		return fatal(err)
	}

	if sendText == "" {
		sess.Close(1000, "")
		return 0
	}

	if err := sess.SendText(sendText); err != nil {
		return fatal(err)
	}
	msg, err := sess.ReadMessage()
	if err != nil {
		return fatal(err)
	}
	switch msg.Kind {
	case wsconn.KindText:
		fmt.Fprintln(stdout, msg.Text)
	case wsconn.KindBinary:
		fmt.Fprintf(stdout, "%x\n", msg.Binary)
	case wsconn.KindClose:
		fmt.Fprintln(stderr, "Server closed the session, code", msg.CloseCode)
	}
	sess.Close(1000, "")
	return 0
}
