package wsframe

import (
	"bufio"
	"fmt"
	"io"

	"github.com/markdingo/netreach/internal/bytesx"
)

// EncodeControlFrame writes a control frame (Ping/Pong/Close). mask is nil for a
// server-originated (unmasked) frame, non-nil for a client-originated one. Returns an error if
// payload exceeds MaxControlPayload.
func EncodeControlFrame(w io.Writer, op Op, payload []byte, mask *[4]byte) error {
	if !op.IsControl() {
		return fmt.Errorf(me+": EncodeControlFrame called with non-control op %d", op)
	}
	if len(payload) > MaxControlPayload {
		return fmt.Errorf(me + ": UserInvalidControlFrame")
	}
	return encodeFrame(w, true, op, payload, mask)
}

// EncodeCloseFrame writes a Close control frame with its 2-byte big-endian code prepended to the
// payload, counted into the frame length.
func EncodeCloseFrame(w io.Writer, code uint16, reason []byte, mask *[4]byte) error {
	payload := make([]byte, 2+len(reason))
	payload[0] = byte(code >> 8)
	payload[1] = byte(code)
	copy(payload[2:], reason)
	return EncodeControlFrame(w, OpClose, payload, mask)
}

// EncodeDataFrame writes one data (or continuation) frame. fin marks the final fragment of the
// message; op is the opcode for the first fragment and must be OpContinuation for subsequent
// fragments.
func EncodeDataFrame(w io.Writer, fin bool, op Op, payload []byte, mask *[4]byte) error {
	return encodeFrame(w, fin, op, payload, mask)
}

func encodeFrame(w io.Writer, fin bool, op Op, payload []byte, mask *[4]byte) error {
	h := Header{Fin: fin, Op: op, Len: uint64(len(payload))}
	body := payload
	if mask != nil {
		h.Masked = true
		h.Mask = *mask
		body = append([]byte(nil), payload...)
		bytesx.MaskXOR(body, *mask, 0)
	}
	if err := EncodeHeader(w, h); err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf(me+": write payload: %w", err)
	}
	return nil
}

// ReadPayload reads exactly h.Len bytes of frame payload from r and unmasks it in place if h was
// masked.
func ReadPayload(r *bufio.Reader, h Header) ([]byte, error) {
	payload := make([]byte, h.Len)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	if h.Masked {
		bytesx.MaskXOR(payload, h.Mask, 0)
	}
	return payload, nil
}

// Assembler accumulates fragments of one WebSocket message, enforcing a per-message size cap: the
// assembled buffer never grows past maxLen bytes.
type Assembler struct {
	op      Op
	buf     []byte
	maxLen  uint64
	started bool
}

// NewAssembler returns an Assembler bounded by maxLen bytes.
func NewAssembler(maxLen uint64) *Assembler {
	return &Assembler{maxLen: maxLen}
}

// InProgress reports whether a message is currently being accumulated (a prior frame arrived with
// fin=false).
func (a *Assembler) InProgress() bool { return a.started }

// Add appends one data frame's payload to the in-progress message. h.Op is OpContinuation for all
// but the first fragment; complete is true once h.Fin closes out the message, at which point Op()
// and Bytes() describe the finished message and the Assembler is reset for reuse.
func (a *Assembler) Add(h Header, payload []byte) (complete bool, err error) {
	if uint64(len(a.buf))+uint64(len(payload)) > a.maxLen {
		return false, fmt.Errorf(me + ": MessageTooLong")
	}
	if !a.started {
		a.op = h.Op
		a.started = true
	}
	a.buf = append(a.buf, payload...)
	if h.Fin {
		return true, nil
	}
	return false, nil
}

// Op returns the opcode the in-progress (or just-completed) message started with.
func (a *Assembler) Op() Op { return a.op }

// Bytes returns the accumulated payload and resets the Assembler for the next message.
func (a *Assembler) Bytes() []byte {
	buf := a.buf
	a.buf = nil
	a.started = false
	return buf
}
