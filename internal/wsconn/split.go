package wsconn

import "github.com/markdingo/netreach/internal/wsframe"

// ReadHalf is the receive-only side of a split Session ("reader/writer split", §5 concurrency
// model): one goroutine reads messages while another writes, sharing only closeState.
type ReadHalf struct {
	s *Session
}

// WriteHalf is the send-only side of a split Session.
type WriteHalf struct {
	s *Session
}

// Split divides the session into independent read and write halves that share the same underlying
// connection and closeState lattice, so a goroutine blocked in ReadMessage can coexist with one
// calling SendText/SendBinary/Close without external locking.
func (s *Session) Split() (*ReadHalf, *WriteHalf) {
	return &ReadHalf{s: s}, &WriteHalf{s: s}
}

// ReadMessage delegates to the underlying Session.
func (r *ReadHalf) ReadMessage() (Message, error) { return r.s.ReadMessage() }

// CanRead delegates to the underlying Session.
func (r *ReadHalf) CanRead() bool { return r.s.CanRead() }

// SendText delegates to the underlying Session.
func (w *WriteHalf) SendText(text string) error { return w.s.SendText(text) }

// SendBinary delegates to the underlying Session.
func (w *WriteHalf) SendBinary(data []byte) error { return w.s.SendBinary(data) }

// SendFragmentStart delegates to the underlying Session.
func (w *WriteHalf) SendFragmentStart(op wsframe.Op, payload []byte) error {
	return w.s.SendFragmentStart(op, payload)
}

// SendFragmentContinue delegates to the underlying Session.
func (w *WriteHalf) SendFragmentContinue(payload []byte) error { return w.s.SendFragmentContinue(payload) }

// SendFragmentEnd delegates to the underlying Session.
func (w *WriteHalf) SendFragmentEnd(payload []byte) error { return w.s.SendFragmentEnd(payload) }

// SendPing delegates to the underlying Session.
func (w *WriteHalf) SendPing(payload []byte) error { return w.s.SendPing(payload) }

// SendPong delegates to the underlying Session.
func (w *WriteHalf) SendPong(payload []byte) error { return w.s.SendPong(payload) }

// Close delegates to the underlying Session.
func (w *WriteHalf) Close(code uint16, reason string) error { return w.s.Close(code, reason) }

// CanWrite delegates to the underlying Session.
func (w *WriteHalf) CanWrite() bool { return w.s.CanWrite() }
