// Package resolver is a stub DNS resolver: it loads /etc/hosts and /etc/resolv.conf, issues UDP
// queries to the configured name servers and aggregates A/AAAA answers into a LookupIp. It never
// caches and never speaks DNS-over-TCP/TLS/HTTPS.
package resolver

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const me = "resolver"

// Config is the immutable configuration built once per resolver. It is normally populated by
// LoadResolvConf rather than constructed by hand.
type Config struct {
	NameServers []string // IP literals, in resolv.conf order
	Ndots       int
	Attempts    int
	Rotate      bool
	Timeout     int // seconds, per-query
}

var defaultConfig = Config{Ndots: 1, Attempts: 2, Timeout: 5}

// LoadResolvConf parses a resolv.conf-format file. Unknown directives are tolerated; only
// nameserver/options ndots/options attempts/options rotate/options timeout are understood.
func LoadResolvConf(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf(me+": open %s: %w", path, err)
	}
	defer f.Close()

	cfg := defaultConfig
	cfg.NameServers = nil

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") || strings.HasPrefix(fields[0], ";") {
			continue
		}
		switch fields[0] {
		case "nameserver":
			if len(fields) >= 2 {
				cfg.NameServers = append(cfg.NameServers, fields[1])
			}
		case "options":
			for _, opt := range fields[1:] {
				parseOption(&cfg, opt)
			}
		default: // Unknown directive (domain, search, sortlist, ...) tolerated
		}
	}
	if err := sc.Err(); err != nil {
		return Config{}, fmt.Errorf(me+": scan %s: %w", path, err)
	}

	return cfg, nil
}

func parseOption(cfg *Config, opt string) {
	name, value, hasValue := strings.Cut(opt, ":")
	switch name {
	case "ndots":
		if hasValue {
			if n, err := strconv.Atoi(value); err == nil && n >= 0 {
				cfg.Ndots = n
			}
		}
	case "attempts":
		if hasValue {
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				cfg.Attempts = n
			}
		}
	case "timeout":
		if hasValue {
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				cfg.Timeout = n
			}
		}
	case "rotate":
		cfg.Rotate = true
	}
}
