/*
Package constants provides common values used across all netreach packages. Usage is to call the
global Get() function which returns the Constants by value ensuring that any modifications made
(accidental or otherwise) will not affect other modules when they call Get().

Typically usage:

    consts := constants.Get()
    fmt.Println("I am", consts.FetchProgramName, "based on", consts.RFC)

The primary reason for making this a constructed struct rather than the more typical const () block
is so that it can be fed directly into templating packages for printing usage messages.
*/
package constants

// Constants contains the system-wide constants
type Constants struct {
	FetchProgramName     string // Package related constants
	WSServerProgramName  string
	Version              string
	PackageName          string
	PackageURL           string
	RFC                  string

	HTTPDefaultPort  string // HTTP related constants
	HTTPSDefaultPort string

	HostHeader       string
	UserAgentHeader  string
	ContentLenHeader string
	TransferEncHeader string
	LocationHeader   string
	ConnectionHeader string

	DefaultMaxRedirects  int
	DefaultMaxHeaderSize int // Bytes, bounds the HTTP status/header block and WS handshake lines

	WSGUID            string // RFC 6455 handshake magic value
	WSVersion         string
	WSUpgradeValue    string
	WSConnectionValue string
	DefaultWSHandshakeTimeout string // Parsed with time.ParseDuration by callers
	DefaultWSCloseTimeout     string

	DNSDefaultPort          string // DNS Related constants
	MinimumViableDNSMessage uint   // Length of MsgHdr alone
	MaximumViableDNSMessage uint   // RFC1035/EDNS0 upper bound on a DNS message; UDP buffers use DNSUDPRecvCap
	DNSQueryTimeout         string // Parsed with time.ParseDuration by callers
	DNSMaxRounds            int
	DNSUDPSendCap           int // Outbound packets are never serialized larger than this
	DNSUDPRecvCap           int // Inbound packets are never read larger than this

	DNSUDPTransport string // Suitable for the "net" package, but just to make sure we're
	DNSTCPTransport string // consistent across the whole package.
}

var readOnlyConstants *Constants

// createReadOnlyConstants creates a read-only copy of the Constants which is copied whenever a
// caller asks for the constants set. The main reason for returning a struct is so that callers can
// inspect and/or use packages that introspect - particularly */template packages.
func createReadOnlyConstants() {
	readOnlyConstants = &Constants{
		FetchProgramName:    "netreach-fetch",
		WSServerProgramName: "netreach-wsserver",
		Version:             "v0.1.0",
		PackageName:         "netreach",
		PackageURL:          "https://github.com/markdingo/netreach",
		RFC:                 "RFC6455/RFC7230/RFC1035",

		HTTPDefaultPort:  "80",
		HTTPSDefaultPort: "443",

		HostHeader:        "Host",
		UserAgentHeader:   "User-Agent",
		ContentLenHeader:  "Content-Length",
		TransferEncHeader: "Transfer-Encoding",
		LocationHeader:    "Location",
		ConnectionHeader:  "Connection",

		DefaultMaxRedirects:  5,
		DefaultMaxHeaderSize: 128 * 1024,

		WSGUID:            "258EAFA5-E914-47DA-95CA-C5AB0DC85B11",
		WSVersion:         "13",
		WSUpgradeValue:    "websocket",
		WSConnectionValue: "Upgrade",
		DefaultWSHandshakeTimeout: "60s",
		DefaultWSCloseTimeout:     "30s",

		DNSDefaultPort:          "53",
		MinimumViableDNSMessage: 12, // Header only; shortest legal query has a 1-byte root name too
		MaximumViableDNSMessage: 65535,
		DNSQueryTimeout:         "5s",
		DNSMaxRounds:            3,
		DNSUDPSendCap:           900,
		DNSUDPRecvCap:           900,

		DNSUDPTransport: "udp",
		DNSTCPTransport: "tcp",
	}
}

func init() {
	createReadOnlyConstants()
}

// Get returns a copy of the Constant struct. Return by value so internal values cannot be
// inadvertently changed by callers.
func Get() Constants {
	return *readOnlyConstants
}
