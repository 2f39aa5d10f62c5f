package quic

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/1ureka/peerchat/internal/transport"
)

func TestListenRequiresSetup(t *testing.T) {
	d := &driver{}
	if _, err := d.Listen(context.Background(), "127.0.0.1:0"); !errors.Is(err, transport.ErrNotInitialized) {
		t.Fatalf("got %v, want ErrNotInitialized", err)
	}
}

// TestLoopbackExchange dials a real QUIC listener on loopback and passes
// frames both ways.
func TestLoopbackExchange(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	d := &driver{}
	if err := d.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer d.Teardown()

	acc, err := d.Listen(ctx, "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer acc.Close()

	client, err := d.Dial(ctx, acc.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	server, err := acc.Accept(ctx)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	defer server.Close()

	for i := range 10 {
		msg := []byte(fmt.Sprintf("frame-%d", i))
		if err := client.Send(msg); err != nil {
			t.Fatalf("Send: %v", err)
		}
		got, err := server.Recv()
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		if !bytes.Equal(got, msg) {
			t.Fatalf("got %q, want %q", got, msg)
		}
	}

	if err := server.Send([]byte("pong")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got, err := client.Recv(); err != nil || string(got) != "pong" {
		t.Fatalf("client Recv = %q, %v", got, err)
	}

	client.Close()
	if _, err := server.Recv(); err == nil {
		t.Fatalf("Recv after peer close succeeded")
	}
}
