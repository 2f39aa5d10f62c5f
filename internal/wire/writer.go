// Package wire implements the fixed-layout binary primitives that session
// messages are built from: native-width integers and length-prefixed strings.
//
// Integers are written in the host's native byte order. Both ends of a session
// are expected to run the same build; cross-architecture interop is not a goal.
package wire

import "encoding/binary"

// initialCapacity is the capacity a fresh Writer starts with.
const initialCapacity = 64

// order is the byte order used by both Writer and Reader.
var order = binary.NativeEndian

// Writer appends primitives to a growable buffer. Capacity doubles whenever
// an append would overflow it.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, initialCapacity)}
}

// Bytes returns the encoded bytes. The slice aliases the Writer's buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

// Cap returns the current buffer capacity.
func (w *Writer) Cap() int { return cap(w.buf) }

// grow makes room for n more bytes.
func (w *Writer) grow(n int) {
	need := len(w.buf) + n
	if need <= cap(w.buf) {
		return
	}

	c := cap(w.buf)
	if c == 0 {
		c = initialCapacity
	}
	for c < need {
		c *= 2
	}

	buf := make([]byte, len(w.buf), c)
	copy(buf, w.buf)
	w.buf = buf
}

func (w *Writer) put(p []byte) {
	w.grow(len(p))
	w.buf = append(w.buf, p...)
}

func (w *Writer) WriteUint8(v uint8) {
	w.grow(1)
	w.buf = append(w.buf, v)
}

func (w *Writer) WriteUint16(v uint16) {
	var b [2]byte
	order.PutUint16(b[:], v)
	w.put(b[:])
}

func (w *Writer) WriteUint32(v uint32) {
	var b [4]byte
	order.PutUint32(b[:], v)
	w.put(b[:])
}

func (w *Writer) WriteUint64(v uint64) {
	var b [8]byte
	order.PutUint64(b[:], v)
	w.put(b[:])
}

func (w *Writer) WriteInt8(v int8)   { w.WriteUint8(uint8(v)) }
func (w *Writer) WriteInt16(v int16) { w.WriteUint16(uint16(v)) }
func (w *Writer) WriteInt32(v int32) { w.WriteUint32(uint32(v)) }
func (w *Writer) WriteInt64(v int64) { w.WriteUint64(uint64(v)) }

// WriteString writes an 8-byte length prefix followed by the raw bytes of s.
func (w *Writer) WriteString(s string) {
	w.WriteUint64(uint64(len(s)))
	w.grow(len(s))
	w.buf = append(w.buf, s...)
}
