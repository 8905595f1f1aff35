package wsconn

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/markdingo/netreach/internal/connect"
	"github.com/markdingo/netreach/internal/neterr"
	"github.com/markdingo/netreach/internal/wsframe"
)

func TestUpgradeHandshakeAndEcho(t *testing.T) {
	srv, err := Bind("127.0.0.1:0", UpgradeOptions{})
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	defer srv.Close()

	serverDone := make(chan *Session, 1)
	serverErr := make(chan error, 1)
	go func() {
		sess, err := srv.Accept(context.Background())
		if err != nil {
			serverErr <- err
			return
		}
		serverDone <- sess
	}()

	target, _ := url.Parse(fmt.Sprintf("ws://%s/chat", srv.Addr().String()))
	clientSess, err := Open(context.Background(), target, OpenOptions{Dialer: connect.NewDialer()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	var serverSess *Session
	select {
	case serverSess = <-serverDone:
	case err := <-serverErr:
		t.Fatalf("server upgrade failed: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("server upgrade timed out")
	}

	if err := clientSess.SendText("hello world"); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	msg, err := serverSess.ReadMessage()
	if err != nil {
		t.Fatalf("server ReadMessage: %v", err)
	}
	if msg.Kind != KindText || msg.Text != "hello world" {
		t.Fatalf("got %+v", msg)
	}

	if err := serverSess.SendBinary([]byte{1, 2, 3}); err != nil {
		t.Fatalf("server SendBinary: %v", err)
	}
	msg, err = clientSess.ReadMessage()
	if err != nil {
		t.Fatalf("client ReadMessage: %v", err)
	}
	if msg.Kind != KindBinary || len(msg.Binary) != 3 {
		t.Fatalf("got %+v", msg)
	}
}

func TestFragmentedSendReassembles(t *testing.T) {
	srv, err := Bind("127.0.0.1:0", UpgradeOptions{})
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	defer srv.Close()

	serverDone := make(chan *Session, 1)
	go func() {
		sess, err := srv.Accept(context.Background())
		if err != nil {
			t.Errorf("server upgrade: %v", err)
			return
		}
		serverDone <- sess
	}()

	target, _ := url.Parse(fmt.Sprintf("ws://%s/chat", srv.Addr().String()))
	client, err := Open(context.Background(), target, OpenOptions{Dialer: connect.NewDialer()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	server := <-serverDone

	if err := client.SendFragmentStart(wsframe.OpText, []byte("hello ")); err != nil {
		t.Fatalf("SendFragmentStart: %v", err)
	}
	if err := client.SendFragmentContinue([]byte("frag")); err != nil {
		t.Fatalf("SendFragmentContinue: %v", err)
	}
	if err := client.SendFragmentEnd([]byte("mented")); err != nil {
		t.Fatalf("SendFragmentEnd: %v", err)
	}

	msg, err := server.ReadMessage()
	if err != nil {
		t.Fatalf("server ReadMessage: %v", err)
	}
	if msg.Kind != KindText || msg.Text != "hello fragmented" {
		t.Fatalf("got %+v", msg)
	}
}

func TestFragmentedSendRejectsInterleavedSend(t *testing.T) {
	srv, err := Bind("127.0.0.1:0", UpgradeOptions{})
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	defer srv.Close()

	go srv.Accept(context.Background())

	target, _ := url.Parse(fmt.Sprintf("ws://%s/chat", srv.Addr().String()))
	client, err := Open(context.Background(), target, OpenOptions{Dialer: connect.NewDialer()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := client.SendFragmentStart(wsframe.OpText, []byte("partial")); err != nil {
		t.Fatalf("SendFragmentStart: %v", err)
	}

	if err := client.SendText("whole message"); err == nil {
		t.Fatal("expected SendText to fail while a fragmented send is open")
	} else {
		var ne *neterr.Error
		if !errors.As(err, &ne) || ne.Kind != neterr.DataTypeMismatch {
			t.Fatalf("expected DataTypeMismatch, got %v", err)
		}
	}

	if err := client.SendFragmentStart(wsframe.OpBinary, []byte("x")); err == nil {
		t.Fatal("expected nested SendFragmentStart to fail")
	}

	if err := client.SendFragmentEnd([]byte("done")); err != nil {
		t.Fatalf("SendFragmentEnd: %v", err)
	}

	if err := client.SendFragmentContinue([]byte("stray")); err == nil {
		t.Fatal("expected SendFragmentContinue with no open send to fail")
	}
}

func TestCloseHandshakePromotesLattice(t *testing.T) {
	srv, err := Bind("127.0.0.1:0", UpgradeOptions{})
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	defer srv.Close()

	serverDone := make(chan *Session, 1)
	go func() {
		sess, err := srv.Accept(context.Background())
		if err != nil {
			t.Errorf("server upgrade: %v", err)
			return
		}
		serverDone <- sess
	}()

	target, _ := url.Parse(fmt.Sprintf("ws://%s/chat", srv.Addr().String()))
	client, err := Open(context.Background(), target, OpenOptions{Dialer: connect.NewDialer()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	client.SetCloseTimeout(2 * time.Second)

	server := <-serverDone
	server.SetCloseTimeout(2 * time.Second)

	done := make(chan struct{})
	go func() {
		msg, err := server.ReadMessage()
		if err != nil {
			t.Errorf("server ReadMessage: %v", err)
			close(done)
			return
		}
		if msg.Kind != KindClose {
			t.Errorf("expected close, got %+v", msg)
		}
		server.Close(1000, "")
		close(done)
	}()

	if err := client.Close(1000, ""); err != nil {
		t.Fatalf("client Close: %v", err)
	}
	msg, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("client ReadMessage: %v", err)
	}
	if msg.Kind != KindClose {
		t.Fatalf("expected close echo, got %+v", msg)
	}

	<-done

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if !client.CanRead() && !client.CanWrite() && !server.CanRead() && !server.CanWrite() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("closeState never reached Both on both sides")
}
