package httpmsg

import (
	"bufio"
	"strings"
	"testing"
)

func TestParseResponseBasic(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nContent-Length: 5\r\nX-Test: yes\r\n\r\nhello"
	r := bufio.NewReader(strings.NewReader(raw))
	resp, _, _, err := ParseResponse(r, 10, 11, 128*1024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Version != 11 || resp.StatusCode != 200 || resp.Reason != "OK" {
		t.Fatalf("got %+v", resp)
	}
	if got := resp.Headers.Get("x-test"); got != "yes" {
		t.Fatalf("got %q", got)
	}
}

func TestParseResponseHTTP09(t *testing.T) {
	raw := "plain body, no headers at all"
	r := bufio.NewReader(strings.NewReader(raw))
	resp, _, _, err := ParseResponse(r, 0, 11, 128*1024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Version != 9 || resp.StatusCode != 200 {
		t.Fatalf("got %+v", resp)
	}
}

func TestParseResponseHeaderWithoutColon(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nmalformed-header-no-colon\r\n\r\n"
	r := bufio.NewReader(strings.NewReader(raw))
	resp, _, _, err := ParseResponse(r, 0, 11, 128*1024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Headers.Get("malformed-header-no-colon") != "" {
		t.Fatalf("expected empty value for colonless header")
	}
}

func TestParseResponseUnexpectedVersion(t *testing.T) {
	raw := "HTTP/2.0 200 OK\r\n\r\n"
	r := bufio.NewReader(strings.NewReader(raw))
	_, _, _, err := ParseResponse(r, 10, 11, 128*1024)
	if err == nil {
		t.Fatal("expected UnexpectedVersion error")
	}
}

func TestParseResponseHeadersTooLong(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nX-Long: " + strings.Repeat("a", 1000) + "\r\n\r\n"
	r := bufio.NewReader(strings.NewReader(raw))
	_, _, _, err := ParseResponse(r, 0, 11, 30)
	if err == nil {
		t.Fatal("expected HeadersTooLong error when budget is tiny")
	}
}

func TestParseStatusLineVariants(t *testing.T) {
	v, code, reason, err := parseStatusLine("HTTP/1.0 404 Not Found")
	if err != nil || v != 10 || code != 404 || reason != "Not Found" {
		t.Fatalf("got v=%d code=%d reason=%q err=%v", v, code, reason, err)
	}

	v, code, reason, err = parseStatusLine("HTTP/1.1 204")
	if err != nil || v != 11 || code != 204 || reason != "" {
		t.Fatalf("got v=%d code=%d reason=%q err=%v", v, code, reason, err)
	}
}
