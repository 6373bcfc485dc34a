package packet

import (
	"encoding/binary"
	"math"
)

// Writer appends little-endian payload fields to a byte slice.
type Writer struct {
	buf []byte
}

// NewWriter appends to dst, which may be a slice of a larger fixed buffer.
func NewWriter(dst []byte) *Writer {
	return &Writer{buf: dst}
}

// WriteC writes 1 byte.
func (w *Writer) WriteC(v uint8) {
	w.buf = append(w.buf, v)
}

// WriteH writes 2 bytes little-endian.
func (w *Writer) WriteH(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

// WriteSH writes a signed 16-bit value as 2 bytes little-endian.
func (w *Writer) WriteSH(v int16) {
	w.WriteH(uint16(v))
}

// WriteD writes 4 bytes little-endian.
func (w *Writer) WriteD(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// WriteF writes a float64 as 8 bytes little-endian.
func (w *Writer) WriteF(v float64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, math.Float64bits(v))
}

func (w *Writer) Bytes() []byte {
	return w.buf
}

func (w *Writer) Len() int {
	return len(w.buf)
}
