package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type testCase struct {
	args   []string
	stdout []string
	stderr string
}

func runTest(t *testing.T, tx int, tc testCase) {
	t.Run(fmt.Sprintf("%d", tx), func(t *testing.T) {
		args := append([]string{"netreach-fetch"}, tc.args...)
		out := &bytes.Buffer{}
		errBuf := &bytes.Buffer{}
		mainInit(out, errBuf)
		ec := mainExecute(args)

		outStr := out.String()
		errStr := errBuf.String()

		if ec != 0 && len(tc.stderr) == 0 {
			t.Error("Unexpected non-zero exit code", ec, outStr, errStr)
		}
		if len(tc.stderr) > 0 && !strings.Contains(errStr, tc.stderr) {
			t.Error("Stderr expected:\n", tc.stderr, "Got:\n", errStr, args)
		}
		for _, o := range tc.stdout {
			if !strings.Contains(outStr, o) {
				t.Error("Stdout expected:\n", o, "Got:\n", outStr, args)
			}
		}
	})
}

func TestMainErrors(t *testing.T) {
	cases := []testCase{
		{[]string{}, nil, "Require a URL"},
		{[]string{"ftp://example.test/thing"}, nil, "Unsupported URL scheme"},
		{[]string{"-strategy", "bogus", "http://example.test/"}, nil, "unrecognized -strategy"},
		{[]string{"--tls-cert", "/dev/null", "http://example.test/"}, nil, "key file missing"},
		{[]string{"http://127.0.0.1:1/"}, nil, "connection"},
	}
	for tx, tc := range cases {
		runTest(t, tx, tc)
	}
}

func TestMainHelpAndVersion(t *testing.T) {
	runTest(t, 100, testCase{[]string{"-h"}, []string{"NAME", "netreach-fetch"}, ""})
	runTest(t, 101, testCase{[]string{"-version"}, []string{"Version:"}, ""})
}

func TestMainFetchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hello.txt")
	if err := os.WriteFile(path, []byte("hello from disk"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	runTest(t, 200, testCase{[]string{"file://" + path}, []string{"hello from disk"}, ""})
}
