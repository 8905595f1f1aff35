package resolver

import (
	"fmt"
	"net"
	"time"

	"github.com/markdingo/netreach/internal/constants"
	"github.com/markdingo/netreach/internal/dnsutil"
	"github.com/markdingo/netreach/internal/neterr"

	"github.com/miekg/dns"
)

// nameServer is a lookupSource backed by a single UDP name server. It implements the full
// transaction itself rather than delegating to a DNS client library's Exchange(), since that
// transaction is this component's reason for existing.
type nameServer struct {
	addr  string // host:port, ready for net.Dial
	trace func(format string, args ...interface{})
}

func newNameServer(ip string, trace func(format string, args ...interface{})) *nameServer {
	consts := constants.Get()
	host := ip
	if hasColon(ip) { // IPv6 literal needs bracketing before ":port" is appended
		host = "[" + ip + "]"
	}
	if trace == nil {
		trace = func(string, ...interface{}) {}
	}
	return &nameServer{addr: host + ":" + consts.DNSDefaultPort, trace: trace}
}

func hasColon(s string) bool {
	for _, r := range s {
		if r == ':' {
			return true
		}
	}
	return false
}

// lookup issues a single UDP query/response transaction and extracts matching A/AAAA records.
func (n *nameServer) lookup(qtype rrType, name string) ([]net.IP, error) {
	query := buildQuery(qtype, name)
	payload, err := packQuery(query)
	if err != nil {
		return nil, err
	}

	n.trace("%s query: %s", n.addr, dnsutil.CompactMsgString(query))

	resp, err := n.exchange(query.Id, payload)
	if err != nil {
		return nil, err
	}
	n.trace("%s response: %s", n.addr, dnsutil.CompactMsgString(resp))

	return extractAnswer(resp, qtype, name)
}

// exchange performs connect(2)+send()+recv-loop over UDP with a 5s overall timeout, discarding
// datagrams that fail to parse or whose id doesn't match the query.
func (n *nameServer) exchange(id uint16, payload []byte) (*dns.Msg, error) {
	consts := constants.Get()
	timeout, err := time.ParseDuration(consts.DNSQueryTimeout)
	if err != nil {
		timeout = 5 * time.Second
	}

	conn, err := net.Dial(consts.DNSUDPTransport, n.addr)
	if err != nil {
		return nil, neterr.New(me+":dial", neterr.ConnectFailed, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(timeout)
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, neterr.New(me+":setdeadline", neterr.Unknown, err)
	}

	if _, err := conn.Write(payload); err != nil {
		return nil, neterr.New(me+":send", neterr.ConnectFailed, err)
	}

	buf := make([]byte, consts.DNSUDPRecvCap)
	for {
		if time.Now().After(deadline) {
			return nil, neterr.New(me+":recv", neterr.Timeout, fmt.Errorf("DnsTimedOut"))
		}

		nRead, err := conn.Read(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return nil, neterr.New(me+":recv", neterr.Timeout, fmt.Errorf("DnsTimedOut"))
			}
			return nil, neterr.New(me+":recv", neterr.Unknown, err)
		}

		resp := new(dns.Msg)
		if err := resp.Unpack(buf[:nRead]); err != nil {
			continue // Unparsable datagram, keep waiting
		}
		if resp.Id != id {
			continue // Mismatching id, keep waiting
		}
		return resp, nil
	}
}
