package main

import (
	"time"

	"github.com/markdingo/netreach/internal/flagutil"
)

type config struct {
	help    bool
	verbose bool
	version bool

	requestTimeout time.Duration
	maxRedirects   int
	strategy       string

	resolvConf string
	hostsFile  string

	tlsClientCertFile   string
	tlsClientKeyFile    string
	tlsCAFiles          flagutil.StringValue
	tlsUseSystemRootCAs bool
}
