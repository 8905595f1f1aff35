// Package httpmsg implements HTTP/1.x request/response framing: request-line + header
// serialization, a size-bounded status/header parser, and the redirect loop. Transfer-body
// decoding itself lives in internal/httpbody.
package httpmsg

import "strings"

// Header is a case-insensitive, ordered header set. Backed by a slice rather than a map so
// insertion order survives for serialization, and duplicate header lines (legal in HTTP) are
// preserved rather than silently overwritten.
type Header struct {
	pairs []headerPair
}

type headerPair struct {
	name  string // as received/set, original case
	value string
}

// Add appends a header, preserving any existing value(s) under the same name.
func (h *Header) Add(name, value string) {
	h.pairs = append(h.pairs, headerPair{name: name, value: value})
}

// Set replaces all existing values for name with a single value.
func (h *Header) Set(name, value string) {
	h.Del(name)
	h.Add(name, value)
}

// Del removes all values for name (case-insensitive).
func (h *Header) Del(name string) {
	out := h.pairs[:0]
	for _, p := range h.pairs {
		if !strings.EqualFold(p.name, name) {
			out = append(out, p)
		}
	}
	h.pairs = out
}

// Get returns the first value for name (case-insensitive), or "" if absent.
func (h *Header) Get(name string) string {
	for _, p := range h.pairs {
		if strings.EqualFold(p.name, name) {
			return p.value
		}
	}
	return ""
}

// Has reports whether name is present (case-insensitive).
func (h *Header) Has(name string) bool {
	for _, p := range h.pairs {
		if strings.EqualFold(p.name, name) {
			return true
		}
	}
	return false
}

// Values returns every value set for name, in insertion order.
func (h *Header) Values(name string) []string {
	var out []string
	for _, p := range h.pairs {
		if strings.EqualFold(p.name, name) {
			out = append(out, p.value)
		}
	}
	return out
}

// Each calls fn once per header pair, in insertion order.
func (h *Header) Each(fn func(name, value string)) {
	for _, p := range h.pairs {
		fn(p.name, p.value)
	}
}

// Len returns the number of header pairs (not the number of distinct names).
func (h *Header) Len() int { return len(h.pairs) }
