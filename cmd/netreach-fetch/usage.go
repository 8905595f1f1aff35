package main

import (
	"fmt"
	"io"
	"text/template"
)

const usageMessageTemplate = `
NAME
          {{.FetchProgramName}} -- fetch a file://, http(s):// or ws(s):// URL

SYNOPSIS
          {{.FetchProgramName}} [options] url [text-message-to-send]

DESCRIPTION
          {{.FetchProgramName}} resolves and fetches a single URL. "file://" and "http(s)://" URLs
          are read to completion and their body written to stdout; "ws(s)://" URLs are upgraded to
          a WebSocket session, and if a text-message-to-send argument is given it is sent and the
          first reply is printed, otherwise the session is opened and immediately closed.

OPTIONS
          [-hv]
          [-t remote request timeout]
          [-redirects max-redirect-count]
          [-strategy v4-only|v6-only|v4-first|v6-first]

          [-c resolv.conf file] [-hosts hosts file]

          [--tls-cert TLS Client Certificate file]
          [--tls-key TLS Client Key file]
          [--tls-other-roots TLS Root Certificate file] ...
          [--tls-use-system-roots]

          [--version]

`

func usage(out io.Writer) {
	tmpl, err := template.New("usage").Parse(usageMessageTemplate)
	if err != nil {
		panic(err)
	}
	err = tmpl.Execute(out, consts)
	if err != nil {
		panic(err)
	}
	flagSet.SetOutput(out)
	flagSet.PrintDefaults()
	fmt.Fprintln(out, "\nVersion:", consts.Version)
}

func parseCommandLine(args []string) error {
	flagSet.BoolVar(&cfg.help, "h", false, "Print usage message to Stdout then exit(0)")
	flagSet.BoolVar(&cfg.verbose, "v", false, "Print connect/TLS/wait timing stats to stderr")

	flagSet.DurationVar(&cfg.requestTimeout, "t", 0, "Remote request `timeout` (0 = no timeout)")
	flagSet.IntVar(&cfg.maxRedirects, "redirects", 5, "Maximum `count` of redirects to follow")
	flagSet.StringVar(&cfg.strategy, "strategy", "v6-first", "IP `strategy`: v4-only, v6-only, v4-first, v6-first")

	flagSet.StringVar(&cfg.resolvConf, "c", "/etc/resolv.conf", "resolv.conf `file` for issuing DNS queries")
	flagSet.StringVar(&cfg.hostsFile, "hosts", "/etc/hosts", "hosts `file` consulted before resolv.conf")

	flagSet.StringVar(&cfg.tlsClientCertFile, "tls-cert", "", "TLS Client Certificate `file`")
	flagSet.StringVar(&cfg.tlsClientKeyFile, "tls-key", "", "TLS Client Key `file`")
	flagSet.Var(&cfg.tlsCAFiles, "tls-other-roots", "Non-system Root CA `file` used to validate HTTPS/WSS endpoints")
	flagSet.BoolVar(&cfg.tlsUseSystemRootCAs, "tls-use-system-roots", true, "Validate HTTPS/WSS endpoints with root CAs")

	flagSet.BoolVar(&cfg.version, "version", false, "Print version and exit")

	return flagSet.Parse(args[1:])
}
