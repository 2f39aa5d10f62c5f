package transport

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	msgs := [][]byte{[]byte("hello"), nil, bytes.Repeat([]byte{0xAB}, 70000)}

	for _, m := range msgs {
		if err := WriteFrame(&buf, m); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}
	for i, want := range msgs {
		got, err := ReadFrame(&buf)
		if err != nil {
			t.Fatalf("ReadFrame #%d: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("frame #%d: got %d bytes, want %d", i, len(got), len(want))
		}
	}
	if _, err := ReadFrame(&buf); !errors.Is(err, io.EOF) {
		t.Fatalf("ReadFrame on empty = %v, want io.EOF", err)
	}
}

func TestFrameErrors(t *testing.T) {
	t.Run("truncated body", func(t *testing.T) {
		var buf bytes.Buffer
		WriteFrame(&buf, []byte("abcdef"))
		r := bytes.NewReader(buf.Bytes()[:buf.Len()-2])
		if _, err := ReadFrame(r); !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Fatalf("err = %v, want io.ErrUnexpectedEOF", err)
		}
	})

	t.Run("oversized header", func(t *testing.T) {
		r := bytes.NewReader([]byte{0xFF, 0xFF, 0xFF, 0xFF})
		if _, err := ReadFrame(r); err == nil {
			t.Fatalf("expected error for oversized frame")
		}
	})

	t.Run("oversized write", func(t *testing.T) {
		if err := WriteFrame(io.Discard, make([]byte, MaxFrameSize+1)); err == nil {
			t.Fatalf("expected error for oversized frame")
		}
	})
}
