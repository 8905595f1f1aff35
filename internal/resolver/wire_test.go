package resolver

import (
	"testing"

	"github.com/miekg/dns"
)

func TestBuildQueryAttachesOPT(t *testing.T) {
	m := buildQuery(rrTypeA, "example.net")
	if !m.RecursionDesired {
		t.Fatal("expected RD to be set")
	}
	if len(m.Question) != 1 || m.Question[0].Qtype != dns.TypeA {
		t.Fatalf("got question %+v", m.Question)
	}

	var opt *dns.OPT
	for _, rr := range m.Extra {
		if o, ok := rr.(*dns.OPT); ok {
			opt = o
		}
	}
	if opt == nil {
		t.Fatal("expected an EDNS0 OPT record in Extra")
	}
	if opt.UDPSize() != dns.DefaultMsgSize {
		t.Fatalf("got UDP size %d, want %d", opt.UDPSize(), dns.DefaultMsgSize)
	}
}

func TestBuildQueryAAAA(t *testing.T) {
	m := buildQuery(rrTypeAAAA, "example.net")
	if m.Question[0].Qtype != dns.TypeAAAA {
		t.Fatalf("got qtype %d, want AAAA", m.Question[0].Qtype)
	}
}
