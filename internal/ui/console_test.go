package ui

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/1ureka/peerchat/internal/app"
	"github.com/1ureka/peerchat/internal/directory"
	"github.com/1ureka/peerchat/internal/protocol"
)

var (
	_ app.Display       = (*Console)(nil)
	_ directory.Flusher = (*Console)(nil)
)

func TestConsoleReadLine(t *testing.T) {
	c := NewConsole(strings.NewReader("hello\r\n\nbye"), io.Discard)

	for _, want := range []string{"hello", "", "bye"} {
		got, err := c.ReadLine()
		if err != nil {
			t.Fatalf("ReadLine: %v", err)
		}
		if got != want {
			t.Errorf("ReadLine = %q, want %q", got, want)
		}
	}

	if _, err := c.ReadLine(); !errors.Is(err, io.EOF) {
		t.Fatalf("ReadLine at end = %v, want io.EOF", err)
	}
}

func TestConsoleReadLongLine(t *testing.T) {
	long := strings.Repeat("x", 70*1024)
	c := NewConsole(strings.NewReader(long+"\nnext\n"), io.Discard)

	got, err := c.ReadLine()
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if len(got) != len(long) {
		t.Fatalf("ReadLine returned %d bytes, want %d", len(got), len(long))
	}

	if got, err := c.ReadLine(); err != nil || got != "next" {
		t.Fatalf("ReadLine after long line = %q, %v", got, err)
	}
	if _, err := c.ReadLine(); !errors.Is(err, io.EOF) {
		t.Fatalf("ReadLine at end = %v, want io.EOF", err)
	}
}

func TestConsoleRoster(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(strings.NewReader(""), &out)
	c.Plain = true

	dir := directory.New(c)
	dir.Upsert(protocol.UserRecord{ID: 0, Name: "Hank"}, false)
	dir.Upsert(protocol.UserRecord{ID: 2, Name: "Alice"}, true)
	c.ShowLine("Hank: hi")

	want := "online: Hank\nonline: Hank, Alice (you)\nHank: hi\n"
	if out.String() != want {
		t.Fatalf("output = %q, want %q", out.String(), want)
	}

	out.Reset()
	dir.Clear()
	if out.Len() != 0 {
		t.Fatalf("empty directory printed %q", out.String())
	}
}
