package resolver

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
)

// hostRecords holds the A/AAAA addresses a single /etc/hosts name maps to. Always treated as
// do-not-cache: callers must not assume a TTL is actionable for hosts-file entries.
type hostRecords struct {
	v4 []net.IP
	v6 []net.IP
}

// hostsTable is the Lookup provider backed by a parsed /etc/hosts. It meets the lookupSource
// interface alongside nameServer.
type hostsTable struct {
	byName map[string]*hostRecords
	warn   func(format string, args ...interface{})
}

// loadHostsFile parses an /etc/hosts-format file line by line: strip '#' comments, first token is
// an IP, remaining tokens are hostnames lower-cased on insertion. Unparsable IPs or hostnames are
// skipped with a warning, never fatal.
func loadHostsFile(path string, warn func(format string, args ...interface{})) (*hostsTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf(me+": open %s: %w", path, err)
	}
	defer f.Close()

	if warn == nil {
		warn = func(string, ...interface{}) {}
	}
	t := &hostsTable{byName: make(map[string]*hostRecords), warn: warn}

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		ipStr := fields[0]
		ip := net.ParseIP(ipStr)
		if ip == nil {
			warn(me+": hosts: skipping unparsable IP %q", ipStr)
			continue
		}

		is4 := ip.To4() != nil
		for _, host := range fields[1:] {
			name := strings.ToLower(host)
			if !validHostname(name) {
				warn(me+": hosts: skipping unparsable hostname %q", host)
				continue
			}
			rec, ok := t.byName[name]
			if !ok {
				rec = &hostRecords{}
				t.byName[name] = rec
			}
			if is4 {
				rec.v4 = append(rec.v4, ip)
			} else {
				rec.v6 = append(rec.v6, ip)
			}
		}
	}
	if err := sc.Err(); err != nil && err != io.EOF {
		return nil, fmt.Errorf(me+": scan %s: %w", path, err)
	}

	return t, nil
}

func validHostname(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}

// lookup meets the lookupSource interface: returns the records for the requested RR type, or
// errNoData if the name is absent or the type is unsupported.
func (t *hostsTable) lookup(qtype rrType, name string) ([]net.IP, error) {
	rec, ok := t.byName[strings.ToLower(name)]
	if !ok {
		return nil, errNoData
	}
	switch qtype {
	case rrTypeA:
		if len(rec.v4) == 0 {
			return nil, errNoData
		}
		return rec.v4, nil
	case rrTypeAAAA:
		if len(rec.v6) == 0 {
			return nil, errNoData
		}
		return rec.v6, nil
	default:
		return nil, errNoData
	}
}
