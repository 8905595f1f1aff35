package wsconn

import (
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/markdingo/netreach/internal/neterr"
	"github.com/markdingo/netreach/internal/wsframe"
)

// MessageKind tags the variant a completed Message carries.
type MessageKind int

const (
	KindText MessageKind = iota
	KindBinary
	KindPing
	KindPong
	KindClose
)

// CloseCodeNoStatus / CloseCodeAbnormal are synthetic close codes for the cases RFC 6455 says
// must never appear on the wire but does assign a number to for local reporting.
const (
	CloseCodeNoStatus uint16 = 1005 // Close frame received with no code
	CloseCodeAbnormal uint16 = 1006 // Stream EOF'd with no close frame received at all
)

// Message is one complete, assembled WebSocket message.
type Message struct {
	Kind       MessageKind
	Text       string
	Binary     []byte
	CloseCode  uint16
	ClosePayload []byte
}

// ReadMessage reads and returns the next complete message, transparently accumulating
// continuation frames and validating each frame header against the frame decoding rules. It
// returns (Message{Kind: KindClose, CloseCode: CloseCodeAbnormal}, nil) if the stream EOFs with no
// close frame ever received.
func (s *Session) ReadMessage() (Message, error) {
	for {
		h, err := wsframe.DecodeHeader(s.br)
		if err != nil {
			if err == io.EOF {
				return Message{Kind: KindClose, CloseCode: CloseCodeAbnormal}, nil
			}
			return Message{}, neterr.New(me+":read", neterr.UnexpectedEOF, err)
		}

		if err := wsframe.ValidateDecoded(h, s.expectContinuation, s.serverOriginated()); err != nil {
			return Message{}, err
		}

		payload, err := wsframe.ReadPayload(s.br, h)
		if err != nil {
			return Message{}, neterr.New(me+":read", neterr.UnexpectedEOF, err)
		}

		if h.Op.IsControl() {
			msg, handled, err := s.handleControlFrame(h.Op, payload)
			if err != nil {
				return Message{}, err
			}
			if handled {
				return msg, nil
			}
			continue // Not surfaced to the caller; keep reading.
		}

		complete, err := s.assembler.Add(h, payload)
		if err != nil {
			return Message{}, neterr.New(me+":read", neterr.ProtocolViolation, err)
		}
		s.expectContinuation = !complete
		if !complete {
			continue
		}

		op := s.assembler.Op()
		buf := s.assembler.Bytes()
		switch op {
		case wsframe.OpText:
			if !utf8.Valid(buf) {
				return Message{}, neterr.New(me+":read", neterr.ProtocolViolation,
					fmt.Errorf("text message is not valid UTF-8"))
			}
			return Message{Kind: KindText, Text: string(buf)}, nil
		case wsframe.OpBinary:
			return Message{Kind: KindBinary, Binary: buf}, nil
		default:
			return Message{}, neterr.New(me+":read", neterr.ProtocolViolation,
				fmt.Errorf("unexpected data opcode %d at message completion", op))
		}
	}
}

// handleControlFrame processes a decoded control frame payload. Ping and Pong are surfaced to the
// caller as KindPing/KindPong Messages carrying their payload; Close is surfaced as a KindClose
// Message and promotes closeState's Read bit. handled=false would signal "keep reading".
func (s *Session) handleControlFrame(op wsframe.Op, payload []byte) (Message, bool, error) {
	switch op {
	case wsframe.OpPing:
		return Message{Kind: KindPing, Binary: payload}, true, nil
	case wsframe.OpPong:
		return Message{Kind: KindPong, Binary: payload}, true, nil
	case wsframe.OpClose:
		code := CloseCodeNoStatus
		var reason []byte
		if len(payload) >= 2 {
			code = binary.BigEndian.Uint16(payload[:2])
			reason = payload[2:]
		}
		s.onCloseReceived()
		return Message{Kind: KindClose, CloseCode: code, ClosePayload: reason}, true, nil
	default:
		return Message{}, false, fmt.Errorf(me+": unreachable control opcode %d", op)
	}
}
