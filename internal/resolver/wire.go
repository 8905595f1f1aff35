package resolver

import (
	"errors"
	"fmt"
	"math/rand"
	"net"

	"github.com/markdingo/netreach/internal/constants"
	"github.com/markdingo/netreach/internal/dnsutil"

	"github.com/miekg/dns"
)

// rrType enumerates the two RR types this resolver ever queries.
type rrType int

const (
	rrTypeA rrType = iota
	rrTypeAAAA
)

func (t rrType) dnsType() uint16 {
	if t == rrTypeAAAA {
		return dns.TypeAAAA
	}
	return dns.TypeA
}

// errNoData distinguishes "RR type absent for an existing name" from "name itself absent", which
// NoRecordsError carries.
var errNoData = errors.New(me + ": no data")

// NoRecordsError carries the SOA/response-code detail for when a name itself has no matching
// records anywhere in the answer/authority/additional sections.
type NoRecordsError struct {
	Name         string
	ResponseCode int
	SOA          dns.RR // nil if no authority SOA was present
}

func (e *NoRecordsError) Error() string {
	return fmt.Sprintf(me+": no records for %s (rcode=%d)", e.Name, e.ResponseCode)
}

// lookupSource is the single operation every provider in the ordered lookup list exposes: the
// hosts table and each configured name server.
type lookupSource interface {
	lookup(qtype rrType, name string) ([]net.IP, error)
}

// buildQuery constructs a standard RFC 1035 query: random 16-bit id, RD set, single question, and an
// EDNS0 OPT advertising a larger-than-512-byte UDP receive size so replies aren't needlessly
// truncated.
func buildQuery(qtype rrType, name string) *dns.Msg {
	m := new(dns.Msg)
	m.Id = uint16(rand.Intn(1 << 16))
	m.RecursionDesired = true
	m.Question = []dns.Question{{
		Name:   dns.Fqdn(name),
		Qtype:  qtype.dnsType(),
		Qclass: dns.ClassINET,
	}}
	m.Extra = append(m.Extra, dnsutil.NewOPT())
	return m
}

// packQuery serializes the query, rejecting anything over the constants.DNSUDPSendCap bound.
func packQuery(m *dns.Msg) ([]byte, error) {
	consts := constants.Get()
	buf, err := m.Pack()
	if err != nil {
		return nil, fmt.Errorf(me+": pack query: %w", err)
	}
	if len(buf) > consts.DNSUDPSendCap {
		return nil, fmt.Errorf(me+": query of %d bytes exceeds %d byte send cap", len(buf), consts.DNSUDPSendCap)
	}
	return buf, nil
}

// extractAnswer walks the answer, authority and additional sections. A record matches iff (class,
// type) == (query.class, query.type) and name equals the query name (case-insensitively, both
// fully qualified).
func extractAnswer(resp *dns.Msg, qtype rrType, qname string) ([]net.IP, error) {
	qname = dns.Fqdn(qname)
	wantType := qtype.dnsType()

	if resp.Rcode != dns.RcodeSuccess {
		return nil, &NoRecordsError{Name: qname, ResponseCode: resp.Rcode, SOA: findSOA(resp)}
	}

	var ips []net.IP
	touched := false

	walk := func(rrs []dns.RR) {
		for _, rr := range rrs {
			hdr := rr.Header()
			if !sameName(hdr.Name, qname) {
				continue
			}
			touched = true
			if hdr.Class != dns.ClassINET || hdr.Rrtype != wantType {
				continue
			}
			switch v := rr.(type) {
			case *dns.A:
				ips = append(ips, v.A)
			case *dns.AAAA:
				ips = append(ips, v.AAAA)
			}
		}
	}
	walk(resp.Answer)
	walk(resp.Ns)
	walk(resp.Extra)

	if len(ips) > 0 {
		return ips, nil
	}
	if touched {
		return nil, errNoData
	}
	return nil, &NoRecordsError{Name: qname, ResponseCode: resp.Rcode, SOA: findSOA(resp)}
}

func sameName(a, b string) bool {
	return dns.Fqdn(dns.CanonicalName(a)) == dns.Fqdn(dns.CanonicalName(b))
}

func findSOA(resp *dns.Msg) dns.RR {
	for _, rr := range resp.Ns {
		if _, ok := rr.(*dns.SOA); ok {
			return rr
		}
	}
	return nil
}
