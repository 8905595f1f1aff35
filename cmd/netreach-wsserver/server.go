package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/markdingo/netreach/internal/concurrencytracker"
	"github.com/markdingo/netreach/internal/connectiontracker"
	"github.com/markdingo/netreach/internal/wsconn"
)

// server binds one listen address and echoes every message received on every accepted session
// back to its sender, tracking connection lifecycle via connTrk.
type server struct {
	stdout        io.Writer
	listenAddress string
	verbose       bool

	maxMessageLength int
	closeTimeout     time.Duration

	ws      *wsconn.Server
	connTrk *connectiontracker.Tracker
	concTrk concurrencytracker.Counter

	sessions, messages, errors int

	wg sync.WaitGroup
}

func (s *server) listenName() string {
	if s.ws == nil {
		return s.listenAddress
	}
	return s.ws.Addr().String()
}

// start binds the listener and begins accepting connections in a background goroutine. Startup
// errors are delivered on errCh so the caller's select loop can surface them.
func (s *server) start(errCh chan<- error, wg *sync.WaitGroup) {
	ws, err := wsconn.Bind(s.listenAddress, wsconn.UpgradeOptions{})
	if err != nil {
		errCh <- err
		return
	}
	s.ws = ws
	s.connTrk = connectiontracker.New(s.listenAddress)

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.acceptLoop()
	}()
}

func (s *server) acceptLoop() {
	for {
		sess, err := s.ws.Accept(context.Background())
		if err != nil {
			return // Listener closed by stop()
		}
		s.sessions++
		key := fmt.Sprintf("%s-%d", s.listenAddress, s.sessions)
		s.connTrk.ConnState(key, time.Now(), http.StateNew)
		s.connTrk.ConnState(key, time.Now(), http.StateActive)

		s.concTrk.Add()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.concTrk.Done()
			s.echo(sess)
			s.connTrk.ConnState(key, time.Now(), http.StateClosed)
		}()
	}
}

// echo reads messages until the session closes, writing each Text/Binary message straight back to
// the sender and replying to Ping with Pong.
func (s *server) echo(sess *wsconn.Session) {
	sess.SetCloseTimeout(s.closeTimeout)
	sess.SetMaxMessageLength(uint64(s.maxMessageLength))

	for {
		msg, err := sess.ReadMessage()
		if err != nil {
			s.errors++
			if s.verbose {
				fmt.Fprintln(s.stdout, "Error reading message:", err)
			}
			return
		}

		switch msg.Kind {
		case wsconn.KindText:
			s.messages++
			if err := sess.SendText(msg.Text); err != nil {
				return
			}
		case wsconn.KindBinary:
			s.messages++
			if err := sess.SendBinary(msg.Binary); err != nil {
				return
			}
		case wsconn.KindPing:
			if err := sess.SendPong(msg.Binary); err != nil {
				return
			}
		case wsconn.KindClose:
			sess.Close(msg.CloseCode, "")
			return
		}
	}
}

func (s *server) stop() {
	if s.ws != nil {
		s.ws.Close()
	}
	s.wg.Wait()
}

// Name meets reporter.Reporter.
func (s *server) Name() string { return "wsserver:" + s.listenAddress }

// Report meets reporter.Reporter.
func (s *server) Report(resetCounters bool) string {
	rep := s.ws.Report(resetCounters)
	peak := s.concTrk.Peak(resetCounters)
	str := fmt.Sprintf("%s: %s sessions=%d messages=%d errors=%d peak_concurrency=%d",
		s.Name(), rep, s.sessions, s.messages, s.errors, peak)
	if resetCounters {
		s.sessions, s.messages, s.errors = 0, 0, 0
	}
	return str
}
