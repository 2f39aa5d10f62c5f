package rtc

import (
	"context"
	"testing"
	"time"
)

// TestLoopbackExchange runs signaling and a DataChannel over loopback.
func TestLoopbackExchange(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping WebRTC loopback in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	acc, err := Driver.Listen(ctx, "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer acc.Close()

	client, err := Driver.Dial(ctx, acc.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	server, err := acc.Accept(ctx)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	defer server.Close()

	if err := client.Send([]byte("hello")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	got, err := server.Recv()
	if err != nil || string(got) != "hello" {
		t.Fatalf("Recv = %q, %v", got, err)
	}

	if err := server.Send([]byte("world")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	got, err = client.Recv()
	if err != nil || string(got) != "world" {
		t.Fatalf("Recv = %q, %v", got, err)
	}
}

func TestAcceptAfterClose(t *testing.T) {
	acc, err := Driver.Listen(context.Background(), "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	acc.Close()

	if _, err := acc.Accept(context.Background()); err == nil {
		t.Fatalf("Accept after Close succeeded")
	}
}
