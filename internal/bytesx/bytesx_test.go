package bytesx

import (
	"bufio"
	"bytes"
	"testing"
)

func TestFrameHeaderByteRoundTrip(t *testing.T) {
	for _, fin := range []bool{true, false} {
		for op := byte(0); op <= 0x0f; op++ {
			b := FrameHeaderByte0(fin, op)
			gotFin, gotOp := SplitHeaderByte0(b)
			if gotFin != fin || gotOp != op {
				t.Fatalf("byte0 round trip: fin=%v op=%d got fin=%v op=%d", fin, op, gotFin, gotOp)
			}
		}
	}

	for _, masked := range []bool{true, false} {
		for l := byte(0); l <= 127; l++ {
			b := FrameHeaderByte1(masked, l)
			gotMasked, gotLen := SplitHeaderByte1(b)
			if gotMasked != masked || gotLen != l {
				t.Fatalf("byte1 round trip: masked=%v len=%d got masked=%v len=%d", masked, l, gotMasked, gotLen)
			}
		}
	}
}

func TestMaskXORIsSelfInverse(t *testing.T) {
	key := [4]byte{0x11, 0x22, 0x33, 0x44}
	for _, size := range []int{0, 1, 2, 3, 4, 5, 7, 8, 31, 257} {
		for _, offset := range []int{0, 1, 2, 3, 4, 9} {
			p := make([]byte, size)
			for i := range p {
				p[i] = byte(i*7 + 3)
			}
			orig := append([]byte(nil), p...)
			MaskXOR(p, key, offset)
			MaskXOR(p, key, offset)
			if !bytes.Equal(p, orig) {
				t.Fatalf("mask(mask(p,k),k) != p for size=%d offset=%d", size, offset)
			}
		}
	}
}

func TestMaskXORMatchesByteAtATime(t *testing.T) {
	key := [4]byte{0xde, 0xad, 0xbe, 0xef}
	p := make([]byte, 37)
	for i := range p {
		p[i] = byte(i)
	}
	got := append([]byte(nil), p...)
	MaskXOR(got, key, 5)

	want := append([]byte(nil), p...)
	for i := range want {
		want[i] ^= key[(5+i)%4]
	}

	if !bytes.Equal(got, want) {
		t.Fatalf("MaskXOR mismatch:\ngot  %x\nwant %x", got, want)
	}
}

func TestReadBoundedLine(t *testing.T) {
	r := bufio.NewReader(bytes.NewBufferString("hello\r\nworld\n"))
	line, consumed, err := ReadBoundedLine(r, 100)
	if err != nil || string(line) != "hello" || consumed != 7 {
		t.Fatalf("got line=%q consumed=%d err=%v", line, consumed, err)
	}
	line, consumed, err = ReadBoundedLine(r, 100)
	if err != nil || string(line) != "world" || consumed != 6 {
		t.Fatalf("got line=%q consumed=%d err=%v", line, consumed, err)
	}
}

func TestReadBoundedLineTooLong(t *testing.T) {
	r := bufio.NewReader(bytes.NewBufferString("0123456789\n"))
	_, _, err := ReadBoundedLine(r, 5)
	if err == nil {
		t.Fatal("expected ErrLineTooLong")
	}
}
