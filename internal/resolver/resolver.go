package resolver

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/markdingo/netreach/internal/neterr"
	"github.com/markdingo/netreach/internal/reporter"

	"golang.org/x/net/idna"
)

// Strategy selects the order in which a LookupIP's v4/v6 addresses are offered to the connect-path
// dial loop.
type Strategy int

const (
	Default    Strategy = iota // v6 then v4
	Ipv4Only                   // v4 only
	Ipv6Only                   // v6 only
	PreferIpv4                 // v4 then v6
	PreferIpv6                 // v6 then v4 (same ordering as Default)
)

// LookupIP is the aggregated result of resolving a host name: two ordered lists collected from one
// or more A/AAAA answers, duplicates preserved in encounter order.
type LookupIP struct {
	V4 []net.IP
	V6 []net.IP
}

// Ordered returns the V4/V6 addresses merged according to strategy, for the connect-path dial loop.
func (l LookupIP) Ordered(strategy Strategy) []net.IP {
	switch strategy {
	case Ipv4Only:
		return append([]net.IP(nil), l.V4...)
	case Ipv6Only:
		return append([]net.IP(nil), l.V6...)
	case PreferIpv4:
		out := append([]net.IP(nil), l.V4...)
		return append(out, l.V6...)
	default: // Default, PreferIpv6
		out := append([]net.IP(nil), l.V6...)
		return append(out, l.V4...)
	}
}

// Resolver resolves host names to LookupIP results by trying the hosts file first, then the name
// servers loaded from resolv.conf, in resolv.conf order. There is no cross-call "best server"
// state: every ResolveIPs call walks r.nameServers from the front, up to maxRounds times, exactly
// as resolv.conf order prescribes, so a server that failed a prior, unrelated lookup is still
// tried first on the next one.
type Resolver struct {
	hosts       lookupSource
	nameServers []*nameServer
	warn        func(format string, args ...interface{})

	queries, hits, misses, timeouts int
}

var _ reporter.Reporter = (*Resolver)(nil)

// Options configures New.
type Options struct {
	HostsPath      string // default /etc/hosts
	ResolvConfPath string // default /etc/resolv.conf
	Warn           func(format string, args ...interface{})
	Trace          func(format string, args ...interface{}) // optional per-query/response trace log
}

// New builds a Resolver by loading the hosts file (if present) and resolv.conf's name servers.
// A missing hosts file is tolerated (an empty table is used); a missing or unparsable resolv.conf
// is an error since there would be no name servers to query.
func New(opts Options) (*Resolver, error) {
	if opts.HostsPath == "" {
		opts.HostsPath = "/etc/hosts"
	}
	if opts.ResolvConfPath == "" {
		opts.ResolvConfPath = "/etc/resolv.conf"
	}
	warn := opts.Warn
	if warn == nil {
		warn = func(string, ...interface{}) {}
	}

	r := &Resolver{warn: warn}

	hosts, err := loadHostsFile(opts.HostsPath, warn)
	if err != nil {
		warn(me+": hosts file unavailable, continuing without it: %v", err)
		hosts = &hostsTable{byName: make(map[string]*hostRecords), warn: warn}
	}
	r.hosts = hosts

	cfg, err := LoadResolvConf(opts.ResolvConfPath)
	if err != nil {
		return nil, fmt.Errorf(me+": %w", err)
	}
	for _, ns := range cfg.NameServers {
		r.nameServers = append(r.nameServers, newNameServer(ns, opts.Trace))
	}

	return r, nil
}

// ResolveIPs returns the LookupIP for host. If host parses as an IP literal, it is returned
// immediately with zero packets sent. Otherwise the hosts table is checked first; failing that,
// each configured name server is queried in resolv.conf order, for up to maxRounds rounds, so a
// transient failure on one server doesn't permanently exclude it from later lookups of other
// names.
func (r *Resolver) ResolveIPs(host string) (LookupIP, error) {
	if ip := net.ParseIP(host); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			return LookupIP{V4: []net.IP{v4}}, nil
		}
		return LookupIP{V6: []net.IP{ip}}, nil
	}

	name, err := idna.Lookup.ToASCII(strings.ToLower(host))
	if err != nil {
		name = strings.ToLower(host) // Tolerate names idna can't round trip; hand the raw name on
	}

	var result LookupIP
	var lastErr error

	const maxRounds = 3
	for round := 0; round < maxRounds; round++ {
		r.queries++
		v4, errV4 := r.hosts.lookup(rrTypeA, name)
		v6, errV6 := r.hosts.lookup(rrTypeAAAA, name)

		if errV4 == nil {
			result.V4 = append(result.V4, v4...)
		}
		if errV6 == nil {
			result.V6 = append(result.V6, v6...)
		}
		if errV4 == nil || errV6 == nil {
			r.hits++
			return result, nil
		}
		if errV4 != nil {
			lastErr = errV4
		}
		if errV6 != nil {
			lastErr = errV6
		}

		if hit, err := r.queryNameServers(name, &result); hit {
			return result, nil
		} else if err != nil {
			lastErr = err
		}
	}

	r.misses++
	if lastErr == nil {
		lastErr = fmt.Errorf(me+": no lookup sources configured for %s", name)
	}
	return LookupIP{}, lastErr
}

// queryNameServers asks each configured name server in resolv.conf order, stopping at the first
// one that answers either query type. No state survives this call: the next round (or the next
// ResolveIPs call entirely) starts again from r.nameServers[0].
func (r *Resolver) queryNameServers(name string, result *LookupIP) (hit bool, lastErr error) {
	for _, ns := range r.nameServers {
		r.queries++
		v4, errV4 := ns.lookup(rrTypeA, name)
		v6, errV6 := ns.lookup(rrTypeAAAA, name)

		if errV4 == nil {
			result.V4 = append(result.V4, v4...)
		}
		if errV6 == nil {
			result.V6 = append(result.V6, v6...)
		}
		if errV4 == nil || errV6 == nil {
			r.hits++
			return true, nil
		}

		if errV4 != nil {
			lastErr = errV4
		}
		if errV6 != nil {
			lastErr = errV6
		}
		if isTimeout(errV4) || isTimeout(errV6) {
			r.timeouts++
		}
	}
	return false, lastErr
}

func isTimeout(err error) bool {
	return errors.Is(err, neterr.AsSentinel(neterr.Timeout))
}

// Name meets reporter.Reporter.
func (r *Resolver) Name() string { return me }

// Report meets reporter.Reporter.
func (r *Resolver) Report(resetCounters bool) string {
	s := fmt.Sprintf("%s: queries=%d hits=%d misses=%d timeouts=%d nameservers=%d",
		me, r.queries, r.hits, r.misses, r.timeouts, len(r.nameServers))
	if resetCounters {
		r.queries, r.hits, r.misses, r.timeouts = 0, 0, 0, 0
	}
	return s
}
