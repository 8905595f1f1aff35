package wsframe

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
)

func TestHeaderEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Header{
		{Fin: true, Op: OpText, Len: 2},
		{Fin: false, Op: OpBinary, Len: 200},
		{Fin: true, Op: OpBinary, Len: 70000},
		{Fin: true, Op: OpClose, Masked: true, Mask: [4]byte{1, 2, 3, 4}, Len: 5},
	}
	for _, h := range cases {
		var buf bytes.Buffer
		if err := EncodeHeader(&buf, h); err != nil {
			t.Fatalf("encode: %v", err)
		}
		got, err := DecodeHeader(bufio.NewReader(&buf))
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got != h {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, h)
		}
	}
}

func TestEchoFrameExample(t *testing.T) {
	// Client sends Text("hi") as fin=1,op=1,masked=1,len=2,mask=0.
	mask := [4]byte{0, 0, 0, 0}
	var buf bytes.Buffer
	if err := EncodeDataFrame(&buf, true, OpText, []byte("hi"), &mask); err != nil {
		t.Fatalf("encode: %v", err)
	}

	r := bufio.NewReader(&buf)
	h, err := DecodeHeader(r)
	if err != nil {
		t.Fatalf("decode header: %v", err)
	}
	if !h.Fin || h.Op != OpText || !h.Masked || h.Len != 2 {
		t.Fatalf("got %+v", h)
	}
	payload, err := ReadPayload(r, h)
	if err != nil {
		t.Fatalf("read payload: %v", err)
	}
	if string(payload) != "hi" {
		t.Fatalf("got %q", payload)
	}
}

func TestControlFrameTooLongRejected(t *testing.T) {
	var buf bytes.Buffer
	err := EncodeControlFrame(&buf, OpPing, bytes.Repeat([]byte("x"), 126), nil)
	if err == nil || !strings.Contains(err.Error(), "UserInvalidControlFrame") {
		t.Fatalf("expected UserInvalidControlFrame, got %v", err)
	}
}

func TestControlFrameAt125Accepted(t *testing.T) {
	var buf bytes.Buffer
	err := EncodeControlFrame(&buf, OpPing, bytes.Repeat([]byte("x"), 125), nil)
	if err != nil {
		t.Fatalf("unexpected error at exactly 125 bytes: %v", err)
	}
}

func TestValidateDecodedControlFrameNotFin(t *testing.T) {
	err := ValidateDecoded(Header{Fin: false, Op: OpPing}, false, false)
	if err == nil {
		t.Fatal("expected InvalidControlFrame for non-fin control frame")
	}
}

func TestValidateDecodedServerMasked(t *testing.T) {
	err := ValidateDecoded(Header{Fin: true, Op: OpText, Masked: true}, false, true)
	if err == nil || !strings.Contains(err.Error(), "ServerMasked") {
		t.Fatalf("expected ServerMasked, got %v", err)
	}
}

func TestValidateDecodedContinuationRules(t *testing.T) {
	if err := ValidateDecoded(Header{Fin: true, Op: OpContinuation}, false, false); err == nil {
		t.Fatal("expected UnexpectedContinuation")
	}
	if err := ValidateDecoded(Header{Fin: true, Op: OpText}, true, false); err == nil {
		t.Fatal("expected ExpectedContinuation")
	}
}

func TestAssemblerAccumulatesAndCaps(t *testing.T) {
	a := NewAssembler(10)
	complete, err := a.Add(Header{Op: OpText, Fin: false}, []byte("abc"))
	if err != nil || complete {
		t.Fatalf("got complete=%v err=%v", complete, err)
	}
	complete, err = a.Add(Header{Op: OpContinuation, Fin: true}, []byte("def"))
	if err != nil || !complete {
		t.Fatalf("got complete=%v err=%v", complete, err)
	}
	if got := string(a.Bytes()); got != "abcdef" {
		t.Fatalf("got %q", got)
	}
	if _, err := a.Add(Header{Op: OpText, Fin: true}, []byte("0123456789X")); err == nil {
		t.Fatal("expected an 11-byte message to exceed the 10-byte cap")
	}
}

func TestAssemblerMessageTooLong(t *testing.T) {
	a := NewAssembler(4)
	_, err := a.Add(Header{Op: OpText, Fin: true}, []byte("12345"))
	if err == nil || !strings.Contains(err.Error(), "MessageTooLong") {
		t.Fatalf("expected MessageTooLong, got %v", err)
	}
}

func TestNewRandomMaskIsNotAllZero(t *testing.T) {
	// Not a strict guarantee, but across many draws an all-zero mask should never occur.
	for i := 0; i < 20; i++ {
		m, err := NewRandomMask()
		if err != nil {
			t.Fatalf("NewRandomMask: %v", err)
		}
		if m != [4]byte{0, 0, 0, 0} {
			return
		}
	}
	t.Fatal("NewRandomMask produced all-zero masks 20 times in a row")
}
