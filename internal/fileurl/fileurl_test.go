package fileurl

import (
	"io"
	"net/url"
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, content string) *url.URL {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return &url.URL{Scheme: "file", Path: path}
}

func TestOpenWholeFile(t *testing.T) {
	u := writeTemp(t, "hello world")
	rc, size, err := Open(u, Range{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	if size != 11 {
		t.Fatalf("size = %d, want 11", size)
	}
	got, _ := io.ReadAll(rc)
	if string(got) != "hello world" {
		t.Fatalf("got %q", got)
	}
}

func TestOpenRange(t *testing.T) {
	u := writeTemp(t, "0123456789")
	rc, _, err := Open(u, Range{Start: 2, End: 5})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "2345" {
		t.Fatalf("got %q, want 2345", got)
	}
}

func TestOpenRangeToEOF(t *testing.T) {
	u := writeTemp(t, "0123456789")
	rc, _, err := Open(u, Range{Start: 8, End: -1})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "89" {
		t.Fatalf("got %q, want 89", got)
	}
}

func TestOpenInvalidRange(t *testing.T) {
	u := writeTemp(t, "short")
	if _, _, err := Open(u, Range{Start: 100, End: 200}); err == nil {
		t.Fatal("expected error for out-of-range start")
	}
}

func TestOpenNonFileScheme(t *testing.T) {
	u := &url.URL{Scheme: "http", Host: "example.test"}
	if _, _, err := Open(u, Range{}); err == nil {
		t.Fatal("expected error for non-file scheme")
	}
}
