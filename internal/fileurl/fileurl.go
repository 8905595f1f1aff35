// Package fileurl is a thin, out-of-core reader for "file://" URLs: open the local path and
// optionally limit the stream to a byte range, mirroring the subset of HTTP range semantics the
// fetch command needs without pulling in a range-parsing library for one caller.
package fileurl

import (
	"fmt"
	"io"
	"net/url"
	"os"
)

const me = "fileurl"

// Range selects a [Start, End] byte span, inclusive; End < 0 means "to EOF".
type Range struct {
	Start int64
	End   int64
}

// Open opens the local file named by u (scheme must be "file") and returns a stream bounded by
// rng, plus the total file size. A zero-value Range reads the whole file.
func Open(u *url.URL, rng Range) (io.ReadCloser, int64, error) {
	if u.Scheme != "file" {
		return nil, 0, fmt.Errorf("%s: not a file:// URL: %s", me, u.String())
	}
	path := u.Path
	if path == "" {
		path = u.Opaque
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", me, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("%s: %w", me, err)
	}
	size := info.Size()

	if rng.Start == 0 && rng.End == 0 {
		return f, size, nil
	}

	end := rng.End
	if end < 0 || end >= size {
		end = size - 1
	}
	if rng.Start < 0 || rng.Start > end {
		f.Close()
		return nil, 0, fmt.Errorf("%s: invalid range %d-%d for size %d", me, rng.Start, rng.End, size)
	}
	if _, err := f.Seek(rng.Start, io.SeekStart); err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("%s: %w", me, err)
	}

	return &boundedFile{f: f, remaining: end - rng.Start + 1}, size, nil
}

// boundedFile caps reads at `remaining` bytes, then behaves as EOF even though the underlying
// descriptor has more data.
type boundedFile struct {
	f         *os.File
	remaining int64
}

func (b *boundedFile) Read(p []byte) (int, error) {
	if b.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > b.remaining {
		p = p[:b.remaining]
	}
	n, err := b.f.Read(p)
	b.remaining -= int64(n)
	return n, err
}

func (b *boundedFile) Close() error { return b.f.Close() }
