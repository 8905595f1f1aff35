package httpmsg

import "testing"

func TestHeaderCaseInsensitive(t *testing.T) {
	var h Header
	h.Set("Content-Type", "text/plain")
	if got := h.Get("content-type"); got != "text/plain" {
		t.Fatalf("got %q", got)
	}
	if !h.Has("CONTENT-TYPE") {
		t.Fatal("expected Has to be case-insensitive")
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	var h Header
	h.Add("X-A", "1")
	h.Add("X-B", "2")
	h.Add("X-A", "3")

	got := map[string][]string{}
	h.Each(func(name, value string) {
		got[name] = append(got[name], value)
	})
	if len(got["X-A"]) != 2 || got["X-A"][0] != "1" || got["X-A"][1] != "3" {
		t.Fatalf("got %+v", got)
	}
	if len(got["X-B"]) != 1 || got["X-B"][0] != "2" {
		t.Fatalf("got %+v", got)
	}
}
